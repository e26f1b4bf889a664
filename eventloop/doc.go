// Package eventloop implements a single-threaded, epoll-driven event loop
// that multiplexes socket readiness and an internal wakeup channel onto one
// kernel readiness interface (Linux epoll).
//
// # Architecture
//
// A [Loop] owns exactly one epoll instance, one eventfd-backed wakeup
// channel, and one dispatcher goroutine. Callers register any type
// implementing [Entity] — typically a TCP socket, TCP server, or UDP
// endpoint — and the loop's dispatcher goroutine invokes Entity.Dispatch
// whenever the kernel reports the entity's file descriptor ready. At most
// one Dispatch call is in flight for a given entity at a time, and
// dispatch is strictly serialized per loop: user callbacks therefore must
// not block indefinitely, since doing so stalls every other entity
// registered on the same loop.
//
// The wakeup channel is never exposed to user dispatch. It is rung by
// Submit (to run queued tasks) and by Shutdown, whose typed command travels
// on a separate channel; the dispatcher runs queued tasks and reads that
// command after it has dispatched every entity of the readiness batch in
// which the wakeup fired.
//
// # Platform
//
// Linux only (epoll, eventfd) — this module does not attempt portability
// to other kernels.
package eventloop
