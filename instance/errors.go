package instance

import (
	"errors"
	"fmt"
)

var (
	// ErrStatusFlow signals a stage acted on an instance outside its
	// required entry status. Not retried blindly: it marks a sequencing
	// bug or a lost race, not a transient failure.
	ErrStatusFlow = errors.New("status flow violation")

	// ErrNotFound signals an unknown instance ID.
	ErrNotFound = errors.New("instance not found")
)

// StatusFlowError carries the expected and actual statuses of a rejected
// stage invocation. Matchable with errors.Is(err, ErrStatusFlow).
type StatusFlowError struct {
	InstanceID string
	Expected   Status
	Actual     Status
}

func NewStatusFlowError(instanceID string, expected, actual Status) *StatusFlowError {
	return &StatusFlowError{
		InstanceID: instanceID,
		Expected:   expected,
		Actual:     actual,
	}
}

func (e *StatusFlowError) Error() string {
	return fmt.Sprintf("%s: instance %s expected status %s, found %s",
		ErrStatusFlow, e.InstanceID, e.Expected, e.Actual)
}

func (e *StatusFlowError) Unwrap() error {
	return ErrStatusFlow
}
