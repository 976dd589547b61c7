package domain

// OutcomeStatus describes how an external collaborator call resolved.
type OutcomeStatus string

const (
	// OUTCOME_OK means the collaborator produced a value.
	OUTCOME_OK OutcomeStatus = "ok"
	// OUTCOME_DEGRADED means the call failed and a fallback value was substituted.
	OUTCOME_DEGRADED OutcomeStatus = "degraded"
	// OUTCOME_UNAVAILABLE means no collaborator is configured.
	OUTCOME_UNAVAILABLE OutcomeStatus = "unavailable"
)

// Outcome is the typed result of a call to an optional external dependency
// such as the classifier or the narrative generator. Failures are carried as
// data so callers and tests can assert on the fallback path.
type Outcome[T any] struct {
	Value  T
	Status OutcomeStatus
	Reason string
}

// Ok wraps a value produced by the collaborator itself.
func Ok[T any](v T) Outcome[T] {
	return Outcome[T]{Value: v, Status: OUTCOME_OK}
}

// Degraded wraps a fallback value together with the reason the primary path failed.
func Degraded[T any](fallback T, reason string) Outcome[T] {
	return Outcome[T]{Value: fallback, Status: OUTCOME_DEGRADED, Reason: reason}
}

// Unavailable marks a collaborator that is not configured.
func Unavailable[T any](fallback T) Outcome[T] {
	return Outcome[T]{Value: fallback, Status: OUTCOME_UNAVAILABLE}
}

// IsOK reports whether the value came from the primary path.
func (o Outcome[T]) IsOK() bool {
	return o.Status == OUTCOME_OK
}

// Degradation is the caller-visible record of a fallback.
type Degradation struct {
	Component string `json:"component"`
	Reason    string `json:"reason"`
}

// Degradation returns a record for degraded outcomes and nil otherwise.
func (o Outcome[T]) Degradation(component string) *Degradation {
	if o.Status != OUTCOME_DEGRADED {
		return nil
	}
	return &Degradation{Component: component, Reason: o.Reason}
}
