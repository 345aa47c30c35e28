package instance

import (
	"context"
	"time"
)

/* Small, focused interfaces: behavior, not things.
 * The instance row is the only shared mutable resource in the system, so the
 * writer contract is what enforces atomic read-modify-write on status.
 */

// Reader provides read operations for app instances
type Reader interface {
	Get(ctx context.Context, id string) (AppInstance, error)
	ListByStore(ctx context.Context, storeID string, limit int) ([]AppInstance, error)
	/* ListPending returns instances parked in a non-terminal, non-running
	 * status. Used on worker startup to re-enqueue work lost in a crash.
	 */
	ListPending(ctx context.Context) ([]AppInstance, error)
}

// Writer provides write operations for app instances
type Writer interface {
	Create(ctx context.Context, inst AppInstance) error
	/* UpdateStatus performs a conditional update: the write only lands if the
	 * persisted status still equals from. A lost race returns a
	 * *StatusFlowError carrying the status actually found. This is what makes
	 * the stage jobs' entry-status precondition race-safe.
	 */
	UpdateStatus(ctx context.Context, id string, from, to Status) error
	/* MergeData folds stage-produced keys into the instance data mapping.
	 * Existing keys not present in data are preserved, never dropped.
	 */
	MergeData(ctx context.Context, id string, data map[string]string) error
	// SetNextPollAfter records when a polling stage should run again
	SetNextPollAfter(ctx context.Context, id string, at time.Time) error
}

// Repository is the composed persistence contract for app instances
type Repository interface {
	Reader
	Writer
	Close(ctx context.Context) error
}
