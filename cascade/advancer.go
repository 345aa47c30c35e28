package cascade

import (
	"context"
	"fmt"

	"github.com/polydock/engine/instance"
	"github.com/polydock/engine/queue"
	"github.com/rs/zerolog"
)

/* stageFor maps a status to the stage job that consumes it. This table is
 * the only place that knows the full stage ordering: jobs themselves only
 * ever set status. Running has no entry here because health polls are
 * triggered externally, and terminal statuses enqueue nothing.
 */
var stageFor = map[instance.Status]queue.Kind{
	instance.StatusNew:                  queue.KindProcessNew,
	instance.StatusPendingPolydockClaim: queue.KindClaim,
	instance.StatusPendingPreCreate:     queue.KindPreCreate,
	instance.StatusPendingCreate:        queue.KindCreate,
	instance.StatusPendingPostCreate:    queue.KindPostCreate,
	instance.StatusPendingPreDeploy:     queue.KindPreDeploy,
	instance.StatusPendingDeploy:        queue.KindDeploy,
	instance.StatusPendingPostDeploy:    queue.KindPostDeploy,
	instance.StatusPendingPreRemove:     queue.KindPreRemove,
	instance.StatusPendingRemove:        queue.KindRemove,
	instance.StatusPendingPostRemove:    queue.KindPostRemove,
}

// StageFor returns the job kind consuming a status, if any
func StageFor(status instance.Status) (queue.Kind, bool) {
	kind, ok := stageFor[status]
	return kind, ok
}

// Advancer enqueues the next stage job whenever a status change lands.
// Terminal and externally-polled statuses enqueue nothing.
type Advancer struct {
	queue  queue.Enqueuer
	logger zerolog.Logger
}

// NewAdvancer creates the pipeline-advance handler
func NewAdvancer(q queue.Enqueuer, logger zerolog.Logger) *Advancer {
	return &Advancer{
		queue:  q,
		logger: logger,
	}
}

// HandleStatusChange enqueues the stage job whose entry status equals the
// new status
func (a *Advancer) HandleStatusChange(ctx context.Context, ev StatusChange) error {
	if ev.To.IsTerminal() {
		a.logger.Info().
			Str("instance_id", ev.InstanceID).
			Str("status", ev.To.String()).
			Msg("instance reached terminal status")
		return nil
	}
	return a.advance(ctx, ev.InstanceID, ev.To)
}

// HandleInstanceCreated enqueues the first stage for a freshly created
// instance (process-new for new, claim for a reserved instance)
func (a *Advancer) HandleInstanceCreated(ctx context.Context, inst instance.AppInstance) error {
	return a.advance(ctx, inst.ID, inst.Status)
}

/* Resume re-dispatches the stage for an instance's current status. After a
 * crash this alone is sufficient to restore forward progress.
 */
func (a *Advancer) Resume(ctx context.Context, inst instance.AppInstance) error {
	if inst.Status.IsTerminal() {
		return nil
	}
	return a.advance(ctx, inst.ID, inst.Status)
}

func (a *Advancer) advance(ctx context.Context, instanceID string, status instance.Status) error {
	kind, ok := stageFor[status]
	if !ok {
		return nil
	}

	err := a.queue.Enqueue(ctx, queue.Job{
		Kind:       kind,
		InstanceID: instanceID,
	})
	if err != nil {
		return fmt.Errorf("enqueuing %s for instance %s: %w", kind, instanceID, err)
	}

	a.logger.Debug().
		Str("instance_id", instanceID).
		Str("status", status.String()).
		Str("job", kind.String()).
		Msg("enqueued next stage")
	return nil
}
