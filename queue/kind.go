package queue

import "fmt"

/* Kind identifies one stage job. Each kind is an independently queued,
 * independently retryable unit consuming exactly one entry status.
 */
type Kind int

const (
	KindProcessNew Kind = iota + 1
	KindClaim
	KindPreCreate
	KindCreate
	KindPostCreate
	KindPreDeploy
	KindDeploy
	KindPollDeploy
	KindPostDeploy
	KindPreRemove
	KindRemove
	KindPostRemove
	KindHealthPoll
)

// Kinds lists every stage job kind, in pipeline order
func Kinds() []Kind {
	return []Kind{
		KindProcessNew,
		KindClaim,
		KindPreCreate,
		KindCreate,
		KindPostCreate,
		KindPreDeploy,
		KindDeploy,
		KindPollDeploy,
		KindPostDeploy,
		KindPreRemove,
		KindRemove,
		KindPostRemove,
		KindHealthPoll,
	}
}

// String returns the string representation of the job kind
func (k Kind) String() string {
	switch k {
	case KindProcessNew:
		return "process_new"
	case KindClaim:
		return "claim"
	case KindPreCreate:
		return "pre_create"
	case KindCreate:
		return "create"
	case KindPostCreate:
		return "post_create"
	case KindPreDeploy:
		return "pre_deploy"
	case KindDeploy:
		return "deploy"
	case KindPollDeploy:
		return "poll_deploy"
	case KindPostDeploy:
		return "post_deploy"
	case KindPreRemove:
		return "pre_remove"
	case KindRemove:
		return "remove"
	case KindPostRemove:
		return "post_remove"
	case KindHealthPoll:
		return "health_poll"
	default:
		return "unknown"
	}
}

// NewKind creates a Kind from a string
func NewKind(str string) Kind {
	for _, k := range Kinds() {
		if k.String() == str {
			return k
		}
	}
	return 0
}

// Validate checks if the kind is valid
func (k Kind) Validate() error {
	if k < KindProcessNew || k > KindHealthPoll {
		return fmt.Errorf("invalid job kind: %d", k)
	}
	return nil
}
