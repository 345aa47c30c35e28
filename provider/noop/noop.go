/* Package noop is a stage provider that performs no external side effects.
 * Used for local development and pipeline testing: every stage advances to
 * its natural next status, and the deploy poll reports ready after a
 * configurable number of passes.
 */
package noop

import (
	"context"
	"strconv"

	"github.com/polydock/engine/instance"
	"github.com/polydock/engine/provider"
	"github.com/rs/zerolog"
)

// Key is the provider identity this package registers under
const Key = "noop"

// pollCountKey tracks deploy poll passes in the instance data
const pollCountKey = "noop_poll_count"

type Provider struct {
	// pollsRequired is how many poll passes report not-ready before the
	// deploy is considered converged
	pollsRequired int
	logger        zerolog.Logger
}

// Factory constructs the provider from its config bag.
// Recognized config: polls_required (default 1).
func Factory(cfg map[string]string, logger zerolog.Logger) (provider.StageProvider, error) {
	polls := 1
	if raw, ok := cfg["polls_required"]; ok {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			polls = v
		}
	}
	return &Provider{
		pollsRequired: polls,
		logger:        logger,
	}, nil
}

func (p *Provider) advance(stage string, inst *instance.AppInstance, logger zerolog.Logger, next instance.Status) (provider.Outcome, error) {
	logger.Info().Str("stage", stage).Str("next", next.String()).Msg("noop stage complete")
	return provider.Advance(next), nil
}

func (p *Provider) Claim(ctx context.Context, inst *instance.AppInstance, logger zerolog.Logger) (provider.Outcome, error) {
	return p.advance("claim", inst, logger, instance.StatusNew)
}

func (p *Provider) PreCreate(ctx context.Context, inst *instance.AppInstance, logger zerolog.Logger) (provider.Outcome, error) {
	return p.advance("pre-create", inst, logger, instance.StatusPendingCreate)
}

func (p *Provider) Create(ctx context.Context, inst *instance.AppInstance, logger zerolog.Logger) (provider.Outcome, error) {
	return p.advance("create", inst, logger, instance.StatusPendingPostCreate)
}

func (p *Provider) PostCreate(ctx context.Context, inst *instance.AppInstance, logger zerolog.Logger) (provider.Outcome, error) {
	return p.advance("post-create", inst, logger, instance.StatusPendingPreDeploy)
}

func (p *Provider) PreDeploy(ctx context.Context, inst *instance.AppInstance, logger zerolog.Logger) (provider.Outcome, error) {
	return p.advance("pre-deploy", inst, logger, instance.StatusPendingDeploy)
}

// Deploy kicks the rollout off and hands over to polling
func (p *Provider) Deploy(ctx context.Context, inst *instance.AppInstance, logger zerolog.Logger) (provider.Outcome, error) {
	if p.pollsRequired == 0 {
		return p.advance("deploy", inst, logger, instance.StatusPendingPostDeploy)
	}
	inst.Data[pollCountKey] = "0"
	logger.Info().Str("stage", "deploy").Msg("noop deploy started")
	return provider.StayPut(), nil
}

// PollDeploy reports not-ready until the configured pass count is reached
func (p *Provider) PollDeploy(ctx context.Context, inst *instance.AppInstance, logger zerolog.Logger) (provider.Outcome, error) {
	polls, _ := strconv.Atoi(inst.Data[pollCountKey])
	polls++
	inst.Data[pollCountKey] = strconv.Itoa(polls)

	if polls < p.pollsRequired {
		logger.Info().Int("polls", polls).Msg("noop deploy not ready")
		return provider.StayPut(), nil
	}

	return p.advance("poll-deploy", inst, logger, instance.StatusPendingPostDeploy)
}

func (p *Provider) PostDeploy(ctx context.Context, inst *instance.AppInstance, logger zerolog.Logger) (provider.Outcome, error) {
	return p.advance("post-deploy", inst, logger, instance.StatusRunning)
}

func (p *Provider) PreRemove(ctx context.Context, inst *instance.AppInstance, logger zerolog.Logger) (provider.Outcome, error) {
	return p.advance("pre-remove", inst, logger, instance.StatusPendingRemove)
}

func (p *Provider) Remove(ctx context.Context, inst *instance.AppInstance, logger zerolog.Logger) (provider.Outcome, error) {
	return p.advance("remove", inst, logger, instance.StatusPendingPostRemove)
}

func (p *Provider) PostRemove(ctx context.Context, inst *instance.AppInstance, logger zerolog.Logger) (provider.Outcome, error) {
	return p.advance("post-remove", inst, logger, instance.StatusRemoved)
}
