package tasks

import "sync/atomic"

// State is the lifecycle position of an [Engine].
type State int32

const (
	Idle        State = iota // not started
	Dispatching              // scanner still producing jobs
	Draining                 // scanner exhausted, jobs still in flight
	Done                     // every job has reported
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dispatching:
		return "dispatching"
	case Draining:
		return "draining"
	case Done:
		return "done"
	default:
		return ""
	}
}

// Mode is the dispatch policy chosen for a run.
type Mode string

const (
	Serial   Mode = "serial"
	Parallel Mode = "parallel"
)

// stateTracker is written by the producer goroutine and read by callers of [Engine.State].
type stateTracker struct {
	v atomic.Int32
}

func (s *stateTracker) set(state State) { s.v.Store(int32(state)) }

func (s *stateTracker) get() State { return State(s.v.Load()) }
