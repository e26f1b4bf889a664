// Package threadpool implements a FIFO job queue drained by a fixed
// number of worker goroutines, gated by a counting semaphore held equal
// to the queue length.
package threadpool
