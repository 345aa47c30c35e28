package webhook

import "fmt"

/* Status represents the delivery state of a webhook call
 * Follows the lifecycle: Pending -> Success/Failed
 * Failed calls stay eligible for retry until their attempt budget runs out
 */
type Status int

const (
	Pending Status = iota + 1
	Success
	Failed
)

// String returns the string representation of the status
func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Success:
		return "success"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// NewStatus creates a Status from a string
func NewStatus(str string) Status {
	switch str {
	case "pending":
		return Pending
	case "success":
		return Success
	case "failed":
		return Failed
	default:
		return Pending
	}
}

// Validate checks if the status is valid
func (s Status) Validate() error {
	if s < Pending || s > Failed {
		return fmt.Errorf("invalid call status: %d", s)
	}
	return nil
}

// IsFinal reports whether the status alone rules out further attempts.
// Failed calls may still retry; Call.Final also covers exhaustion.
func (s Status) IsFinal() bool {
	return s == Success
}
