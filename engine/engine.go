// Package engine implements the stage executor: it resolves the action
// bound to an instance's current status, invokes it through the provider
// registry, and applies the resulting status transition.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/polydock/engine/cascade"
	"github.com/polydock/engine/instance"
	"github.com/polydock/engine/provider"
	"github.com/rs/zerolog"
)

// Events receives the status-changed message after a transition is
// persisted. The cascade dispatcher implements this.
type Events interface {
	InstanceStatusChanged(ctx context.Context, ev cascade.StatusChange)
}

/* Engine executes one stage for one instance. Each stage job owns a fresh
 * Engine (and with it a fresh provider registry); instances of different
 * jobs never share one.
 */
type Engine struct {
	registry *provider.Registry
	repo     instance.Repository
	events   Events
	logger   zerolog.Logger
}

// New creates a stage executor
func New(registry *provider.Registry, repo instance.Repository, events Events, logger zerolog.Logger) *Engine {
	return &Engine{
		registry: registry,
		repo:     repo,
		events:   events,
		logger:   logger.With().Str("component", "engine").Logger(),
	}
}

/* Logging pass-throughs. Entries are tagged with engine context and the
 * Engine is returned to allow chaining.
 */

func (e *Engine) Info(msg string, fields map[string]interface{}) *Engine {
	e.logger.Info().Fields(fields).Msg(msg)
	return e
}

func (e *Engine) Warning(msg string, fields map[string]interface{}) *Engine {
	e.logger.Warn().Fields(fields).Msg(msg)
	return e
}

func (e *Engine) Error(msg string, fields map[string]interface{}) *Engine {
	e.logger.Error().Fields(fields).Msg(msg)
	return e
}

func (e *Engine) Debug(msg string, fields map[string]interface{}) *Engine {
	e.logger.Debug().Fields(fields).Msg(msg)
	return e
}

// action is one provider stage call
type action func(p provider.StageProvider, ctx context.Context, inst *instance.AppInstance, logger zerolog.Logger) (provider.Outcome, error)

/* actionFor resolves the concrete action bound to a status. Exactly one
 * action per pending status. The new status has a built-in advance with no
 * provider involvement: process-new only moves the instance into the
 * pipeline's first pending status.
 */
func actionFor(status instance.Status) (action, error) {
	switch status {
	case instance.StatusPendingPolydockClaim:
		return provider.StageProvider.Claim, nil
	case instance.StatusPendingPreCreate:
		return provider.StageProvider.PreCreate, nil
	case instance.StatusPendingCreate:
		return provider.StageProvider.Create, nil
	case instance.StatusPendingPostCreate:
		return provider.StageProvider.PostCreate, nil
	case instance.StatusPendingPreDeploy:
		return provider.StageProvider.PreDeploy, nil
	case instance.StatusPendingDeploy:
		return provider.StageProvider.Deploy, nil
	case instance.StatusPendingPostDeploy:
		return provider.StageProvider.PostDeploy, nil
	case instance.StatusPendingPreRemove:
		return provider.StageProvider.PreRemove, nil
	case instance.StatusPendingRemove:
		return provider.StageProvider.Remove, nil
	case instance.StatusPendingPostRemove:
		return provider.StageProvider.PostRemove, nil
	default:
		return nil, fmt.Errorf("no action bound to status %s", status)
	}
}

/* ProcessAppInstance executes the stage bound to the instance's current
 * status and applies the returned transition. Provider errors propagate
 * unmodified: the stage job decides terminal handling, not the engine.
 * A stay outcome leaves the status untouched and is returned to the caller
 * for rescheduling.
 */
func (e *Engine) ProcessAppInstance(ctx context.Context, inst *instance.AppInstance) (provider.Outcome, error) {
	if inst.Status == instance.StatusNew {
		outcome := provider.Advance(instance.StatusPendingPreCreate)
		if err := e.apply(ctx, inst, outcome); err != nil {
			return provider.Outcome{}, err
		}
		return outcome, nil
	}

	act, err := actionFor(inst.Status)
	if err != nil {
		return provider.Outcome{}, err
	}
	return e.run(ctx, inst, act)
}

/* PollDeploy executes the deploy poll pass for an instance sitting in
 * pending_deploy. Kept separate from ProcessAppInstance because the deploy
 * kick-off and its poll share the same entry status.
 */
func (e *Engine) PollDeploy(ctx context.Context, inst *instance.AppInstance) (provider.Outcome, error) {
	if inst.Status != instance.StatusPendingDeploy {
		return provider.Outcome{}, instance.NewStatusFlowError(inst.ID, instance.StatusPendingDeploy, inst.Status)
	}
	return e.run(ctx, inst, provider.StageProvider.PollDeploy)
}

func (e *Engine) run(ctx context.Context, inst *instance.AppInstance, act action) (provider.Outcome, error) {
	p, err := e.registry.Get(inst.ProviderKey)
	if err != nil {
		return provider.Outcome{}, err
	}

	outcome, err := act(p, ctx, inst, e.logger.With().Str("instance_id", inst.ID).Logger())
	if err != nil {
		// No swallowing: the queue's retry policy owns this failure
		return provider.Outcome{}, fmt.Errorf("running stage for status %s: %w", inst.Status, err)
	}

	// Stage actions accumulate data even when staying put
	if err := e.repo.MergeData(ctx, inst.ID, inst.Data); err != nil {
		return provider.Outcome{}, fmt.Errorf("persisting stage data: %w", err)
	}

	if outcome.Stay {
		return outcome, nil
	}

	if err := e.apply(ctx, inst, outcome); err != nil {
		return provider.Outcome{}, err
	}
	return outcome, nil
}

// apply persists a status transition and raises the status-changed message
func (e *Engine) apply(ctx context.Context, inst *instance.AppInstance, outcome provider.Outcome) error {
	if err := outcome.Next.Validate(); err != nil {
		return fmt.Errorf("provider returned invalid status: %w", err)
	}
	if err := instance.Transition(inst.Status, outcome.Next); err != nil {
		return fmt.Errorf("provider returned %s: %w", outcome.Next, err)
	}

	if err := e.repo.UpdateStatus(ctx, inst.ID, inst.Status, outcome.Next); err != nil {
		return fmt.Errorf("persisting status: %w", err)
	}

	from := inst.Status
	inst.Status = outcome.Next

	e.Info("instance status changed", map[string]interface{}{
		"instance_id": inst.ID,
		"from":        from.String(),
		"to":          inst.Status.String(),
	})

	if e.events != nil {
		e.events.InstanceStatusChanged(ctx, cascade.StatusChange{
			InstanceID: inst.ID,
			StoreID:    inst.StoreID,
			From:       from,
			To:         inst.Status,
			Data:       inst.CloneData(),
			At:         time.Now(),
		})
	}
	return nil
}
