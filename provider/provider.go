/* Package provider defines the pluggable backend contract for lifecycle
 * stages and a memoized registry of live backend clients.
 *
 * A StageProvider performs one stage's external side effect, may read and
 * write the instance's data mapping, and returns the desired next status --
 * or a stay outcome for long-running operations that must be polled.
 */
package provider

import (
	"context"

	"github.com/polydock/engine/instance"
	"github.com/rs/zerolog"
)

// Outcome is what a stage action returns: either the instance's next
// status, or an indication to stay put and poll again later.
type Outcome struct {
	Next instance.Status
	Stay bool
}

// Advance returns an outcome moving the instance to next
func Advance(next instance.Status) Outcome {
	return Outcome{Next: next}
}

// StayPut returns an outcome leaving the status unchanged. This is the
// normal, non-error result of a poll that found the resource not ready yet.
func StayPut() Outcome {
	return Outcome{Stay: true}
}

// StageProvider is the per-stage execution contract every backend must
// satisfy. One method per pipeline stage action; the engine picks the
// method from the instance's current status.
type StageProvider interface {
	Claim(ctx context.Context, inst *instance.AppInstance, logger zerolog.Logger) (Outcome, error)
	PreCreate(ctx context.Context, inst *instance.AppInstance, logger zerolog.Logger) (Outcome, error)
	Create(ctx context.Context, inst *instance.AppInstance, logger zerolog.Logger) (Outcome, error)
	PostCreate(ctx context.Context, inst *instance.AppInstance, logger zerolog.Logger) (Outcome, error)
	PreDeploy(ctx context.Context, inst *instance.AppInstance, logger zerolog.Logger) (Outcome, error)
	Deploy(ctx context.Context, inst *instance.AppInstance, logger zerolog.Logger) (Outcome, error)
	PollDeploy(ctx context.Context, inst *instance.AppInstance, logger zerolog.Logger) (Outcome, error)
	PostDeploy(ctx context.Context, inst *instance.AppInstance, logger zerolog.Logger) (Outcome, error)
	PreRemove(ctx context.Context, inst *instance.AppInstance, logger zerolog.Logger) (Outcome, error)
	Remove(ctx context.Context, inst *instance.AppInstance, logger zerolog.Logger) (Outcome, error)
	PostRemove(ctx context.Context, inst *instance.AppInstance, logger zerolog.Logger) (Outcome, error)
}

// Factory constructs a live provider from one config entry and the shared
// logger. Concrete factories are registered by the process wiring.
type Factory func(cfg map[string]string, logger zerolog.Logger) (StageProvider, error)
