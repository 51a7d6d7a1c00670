// Package engine implements the load-generation and measurement core: task
// distribution, per-action execution, worker pools, stage statistics and the
// progressive ramp-up controller.
package engine

import "time"

// FailureCategory classifies a failed action.
type FailureCategory int

const (
	// FailureOther covers everything that is neither a capacity nor a
	// deadline signal (constraint violations, malformed statements, ...).
	FailureOther FailureCategory = iota
	// FailureResourceExhaustion means the store refused or could not grant
	// a connection within its limit.
	FailureResourceExhaustion
	// FailureTimeout means an operation exceeded its deadline.
	FailureTimeout
)

func (c FailureCategory) String() string {
	switch c {
	case FailureResourceExhaustion:
		return "resource_exhaustion"
	case FailureTimeout:
		return "timeout"
	default:
		return "other"
	}
}

// Outcome is the result of one unit of work. Exactly one Outcome is produced
// per dispatched task index.
type Outcome struct {
	Duration time.Duration
	Err      error
	Category FailureCategory
}

// Success reports whether the action completed without error.
func (o Outcome) Success() bool {
	return o.Err == nil
}

// ConnectionFailure reports whether the outcome signals the store's capacity
// limit: a failure classified as resource exhaustion or timeout.
func (o Outcome) ConnectionFailure() bool {
	if o.Err == nil {
		return false
	}
	return o.Category == FailureResourceExhaustion || o.Category == FailureTimeout
}
