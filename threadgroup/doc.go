// Package threadgroup coordinates the spawn, and synchronous or
// asynchronous cancellation, of a dynamic set of worker goroutines that
// all share one entry function and argument.
package threadgroup
