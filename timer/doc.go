// Package timer implements a single-worker timer service driving one-shot
// timeouts and periodic intervals from two independent binary min-heaps,
// keyed by absolute due-time. Cancellation is O(1) via caller-owned
// Handle cells that the service keeps current on every heap swap.
package timer
