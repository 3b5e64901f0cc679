package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors for the kernel's error taxonomy: compare with errors.Is.
var (
	// ErrInvalidArgument marks a null input, out-of-range rate/capacity,
	// non-positive interval, negative delay, out-of-[0,100] percentile, or
	// a counter observation earlier than the counter's current time.
	ErrInvalidArgument = errors.New("engine: invalid argument")

	// ErrInvalidState marks an operation attempted before initialization,
	// or a kernel run a second time.
	ErrInvalidState = errors.New("engine: invalid state")

	// ErrTimeRegression marks an attempt to schedule at a time earlier
	// than the current clock.
	ErrTimeRegression = errors.New("engine: time regression")

	// ErrCapacityExceeded is the generic "full" condition. Primitives
	// prefer emitting a signal (LoadBalked, RequestFailed) over returning
	// this error when the condition is an expected outcome; it exists for
	// callers that have no signal subscriber wired up.
	ErrCapacityExceeded = errors.New("engine: capacity exceeded")

	// ErrInconsistentState marks fatal internal corruption, e.g. a
	// service-completion event for a load the server never admitted.
	ErrInconsistentState = errors.New("engine: inconsistent state")
)

// FaultKind classifies a SimulationFault.
type FaultKind string

const (
	FaultInitFailed       FaultKind = "InitFailed"
	FaultEventFailed      FaultKind = "EventFailed"
	FaultClockRegression  FaultKind = "ClockRegression"
	FaultAlreadyRun       FaultKind = "AlreadyRun"
	FaultInconsistentState FaultKind = "InconsistentState"
)

// SimulationFault wraps any failure escaping model.Initialize or
// event.Apply, or a structural kernel invariant violation. It is the only
// error a Run call ever returns.
type SimulationFault struct {
	Kind  FaultKind
	Cause error
	At    float64 // clock time the fault occurred at, where relevant
}

func (f *SimulationFault) Error() string {
	if f.Cause == nil {
		return fmt.Sprintf("engine: simulation fault (%s) at t=%g", f.Kind, f.At)
	}
	return fmt.Sprintf("engine: simulation fault (%s) at t=%g: %v", f.Kind, f.At, f.Cause)
}

func (f *SimulationFault) Unwrap() error { return f.Cause }

func newFault(kind FaultKind, at float64, cause error) *SimulationFault {
	return &SimulationFault{Kind: kind, Cause: cause, At: at}
}
