package eventloop

import "sync/atomic"

// loopState is the lifecycle of a Loop.
type loopState int32

const (
	stateIdle loopState = iota
	stateRunning
	stateShuttingDown
	stateClosed
)

// fastState is a small CAS-based state machine guarding Loop lifecycle
// transitions without a mutex on the hot dispatch path.
type fastState struct {
	v atomic.Int32
}

func (s *fastState) load() loopState {
	return loopState(s.v.Load())
}

func (s *fastState) store(st loopState) {
	s.v.Store(int32(st))
}

// transition performs from->to only if the current state is exactly from,
// returning whether it succeeded.
func (s *fastState) transition(from, to loopState) bool {
	return s.v.CompareAndSwap(int32(from), int32(to))
}
