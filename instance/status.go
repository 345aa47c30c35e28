package instance

import "fmt"

/* Status represents the lifecycle state of an app instance
 * Follows the pipeline: new -> pending_pre_create -> ... -> running -> ... -> removed
 * The transition table below is the single source of truth for legal moves
 */
type Status int

const (
	StatusPendingPolydockClaim Status = iota + 1
	StatusNew
	StatusPendingPreCreate
	StatusPendingCreate
	StatusPendingPostCreate
	StatusPendingPreDeploy
	StatusPendingDeploy
	StatusPendingPostDeploy
	StatusRunning
	StatusPendingPreRemove
	StatusPendingRemove
	StatusPendingPostRemove
	StatusRemoved
	StatusFailed
)

// String returns the string representation of the status
func (s Status) String() string {
	switch s {
	case StatusPendingPolydockClaim:
		return "pending_polydock_claim"
	case StatusNew:
		return "new"
	case StatusPendingPreCreate:
		return "pending_pre_create"
	case StatusPendingCreate:
		return "pending_create"
	case StatusPendingPostCreate:
		return "pending_post_create"
	case StatusPendingPreDeploy:
		return "pending_pre_deploy"
	case StatusPendingDeploy:
		return "pending_deploy"
	case StatusPendingPostDeploy:
		return "pending_post_deploy"
	case StatusRunning:
		return "running"
	case StatusPendingPreRemove:
		return "pending_pre_remove"
	case StatusPendingRemove:
		return "pending_remove"
	case StatusPendingPostRemove:
		return "pending_post_remove"
	case StatusRemoved:
		return "removed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// NewStatus creates a Status from a string
func NewStatus(str string) Status {
	switch str {
	case "pending_polydock_claim":
		return StatusPendingPolydockClaim
	case "new":
		return StatusNew
	case "pending_pre_create":
		return StatusPendingPreCreate
	case "pending_create":
		return StatusPendingCreate
	case "pending_post_create":
		return StatusPendingPostCreate
	case "pending_pre_deploy":
		return StatusPendingPreDeploy
	case "pending_deploy":
		return StatusPendingDeploy
	case "pending_post_deploy":
		return StatusPendingPostDeploy
	case "running":
		return StatusRunning
	case "pending_pre_remove":
		return StatusPendingPreRemove
	case "pending_remove":
		return StatusPendingRemove
	case "pending_post_remove":
		return StatusPendingPostRemove
	case "removed":
		return StatusRemoved
	case "failed":
		return StatusFailed
	default:
		return 0
	}
}

// Validate checks if the status is a member of the defined status set
func (s Status) Validate() error {
	if s < StatusPendingPolydockClaim || s > StatusFailed {
		return fmt.Errorf("invalid status: %d", s)
	}
	return nil
}

// IsTerminal returns true if the status is a terminal state.
// No transition leaves a terminal status except operator intervention.
func (s Status) IsTerminal() bool {
	return s == StatusRemoved || s == StatusFailed
}

// IsPending returns true for statuses consumed by a stage job that
// invokes a provider action. Failed is reachable from every one of them.
func (s Status) IsPending() bool {
	switch s {
	case StatusPendingPolydockClaim,
		StatusPendingPreCreate,
		StatusPendingCreate,
		StatusPendingPostCreate,
		StatusPendingPreDeploy,
		StatusPendingDeploy,
		StatusPendingPostDeploy,
		StatusPendingPreRemove,
		StatusPendingRemove,
		StatusPendingPostRemove:
		return true
	}
	return false
}

/* Transition table: from -> allowed tos
 * Every pending status may also fall into failed on retry exhaustion
 */
var validTransitions = map[Status][]Status{
	StatusPendingPolydockClaim: {StatusNew, StatusFailed},
	StatusNew:                  {StatusPendingPreCreate},
	StatusPendingPreCreate:     {StatusPendingCreate, StatusFailed},
	StatusPendingCreate:        {StatusPendingPostCreate, StatusFailed},
	StatusPendingPostCreate:    {StatusPendingPreDeploy, StatusFailed},
	StatusPendingPreDeploy:     {StatusPendingDeploy, StatusFailed},
	StatusPendingDeploy:        {StatusPendingPostDeploy, StatusFailed},
	StatusPendingPostDeploy:    {StatusRunning, StatusFailed},
	StatusRunning:              {StatusPendingPreRemove},
	StatusPendingPreRemove:     {StatusPendingRemove, StatusFailed},
	StatusPendingRemove:        {StatusPendingPostRemove, StatusFailed},
	StatusPendingPostRemove:    {StatusRemoved, StatusFailed},
	StatusRemoved:              {},
	StatusFailed:               {},
}

// CanTransition checks if moving from one status to another is legal
func CanTransition(from, to Status) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Transition validates a status change, returning an error for illegal moves
func Transition(from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("illegal transition from %s to %s", from, to)
	}
	return nil
}
