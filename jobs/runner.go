package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/polydock/engine/cascade"
	"github.com/polydock/engine/engine"
	"github.com/polydock/engine/instance"
	"github.com/polydock/engine/provider"
	"github.com/polydock/engine/queue"
	"github.com/rs/zerolog"
)

// DefaultMaxAttempts bounds how often a stage is retried before the
// instance is forced to failed.
const DefaultMaxAttempts = 3

// DefaultRetryBackoff is the delay expression evaluated per attempt,
// yielding milliseconds.
const DefaultRetryBackoff = "2 ** attempt * 1000"

// RunnerConfig carries the tunables of the stage runner
type RunnerConfig struct {
	// MaxAttempts is the global retry budget per stage job
	MaxAttempts int
	// RetryBackoff is an expression over {attempt} yielding a delay in
	// milliseconds, e.g. "2 ** attempt * 1000"
	RetryBackoff string
	// PollInterval is the delay between deploy poll passes
	PollInterval time.Duration
}

func (c RunnerConfig) withDefaults() RunnerConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.RetryBackoff == "" {
		c.RetryBackoff = DefaultRetryBackoff
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval * time.Second
	}
	return c
}

/* Runner executes one stage job end to end: fresh instance read, entry
 * status guard, a fresh engine per job, retry scheduling, and the forced
 * failed transition when the budget runs out.
 */
type Runner struct {
	repo      instance.Repository
	enqueuer  queue.Enqueuer
	events    engine.Events
	factories map[string]provider.Factory
	configs   provider.Config
	cfg       RunnerConfig
	backoff   *vm.Program
	logger    zerolog.Logger
}

// NewRunner creates a stage job runner. The backoff expression is compiled
// once here and reused for every retry calculation.
func NewRunner(
	repo instance.Repository,
	enqueuer queue.Enqueuer,
	events engine.Events,
	factories map[string]provider.Factory,
	configs provider.Config,
	cfg RunnerConfig,
	logger zerolog.Logger,
) (*Runner, error) {
	cfg = cfg.withDefaults()

	program, err := expr.Compile(cfg.RetryBackoff, expr.Env(backoffEnv(0)))
	if err != nil {
		return nil, fmt.Errorf("compiling retry backoff expression: %w", err)
	}

	return &Runner{
		repo:      repo,
		enqueuer:  enqueuer,
		events:    events,
		factories: factories,
		configs:   configs,
		cfg:       cfg,
		backoff:   program,
		logger:    logger.With().Str("component", "jobs").Logger(),
	}, nil
}

func backoffEnv(attempt int) map[string]interface{} {
	return map[string]interface{}{"attempt": attempt}
}

// Backoff evaluates the retry delay for an attempt number
func (r *Runner) Backoff(attempt int) (time.Duration, error) {
	out, err := expr.Run(r.backoff, backoffEnv(attempt))
	if err != nil {
		return 0, fmt.Errorf("evaluating retry backoff: %w", err)
	}

	var ms float64
	switch v := out.(type) {
	case int:
		ms = float64(v)
	case int64:
		ms = float64(v)
	case float64:
		ms = v
	default:
		return 0, fmt.Errorf("retry backoff yielded %T, want a number", out)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

/* Execute runs one delivered job. It never returns an error for outcomes
 * the queue should not retry through redelivery: retries are scheduled
 * explicitly with backoff, and the caller always acknowledges the message.
 */
func (r *Runner) Execute(ctx context.Context, job queue.Job) {
	logger := r.logger.With().
		Str("job", job.Kind.String()).
		Str("instance_id", job.InstanceID).
		Int("attempt", job.Attempt).
		Logger()

	logger.Info().Msg("stage job started")
	defer logger.Info().Msg("stage job finished")

	def, ok := DefinitionFor(job.Kind)
	if !ok {
		logger.Error().Msg("unknown job kind, dropping")
		return
	}

	// Never trust stale state across queue re-delivery
	inst, err := r.repo.Get(ctx, job.InstanceID)
	if err != nil {
		logger.Error().Err(err).Msg("reading instance")
		return
	}

	if inst.Status != def.Entry {
		/* Duplicate delivery or a lost race: the status this job expects has
		 * already moved on. Surfaced distinctly from transient failures and
		 * never retried.
		 */
		flowErr := instance.NewStatusFlowError(inst.ID, def.Entry, inst.Status)
		logger.Warn().Err(flowErr).Msg("status flow violation, skipping stage")
		return
	}

	if def.NoOp {
		logger.Info().Msg("placeholder stage, nothing to do")
		return
	}

	outcome, err := r.invoke(ctx, def, &inst)
	if err != nil {
		r.handleFailure(ctx, logger, def, job, inst, err)
		return
	}

	if outcome.Stay {
		r.reschedule(ctx, logger, def, inst)
	}
}

// invoke builds the per-job engine (and with it a per-job registry) and
// runs the stage.
func (r *Runner) invoke(ctx context.Context, def Definition, inst *instance.AppInstance) (provider.Outcome, error) {
	registry := provider.NewRegistry(r.factories, r.configs, r.logger)
	eng := engine.New(registry, r.repo, r.events, r.logger)

	if def.Poll {
		return eng.PollDeploy(ctx, inst)
	}
	return eng.ProcessAppInstance(ctx, inst)
}

/* handleFailure classifies a stage error. Status flow violations and
 * missing provider configuration are not retryable; anything else is
 * opaque provider failure, retried with backoff until the budget runs out
 * and then forced to failed so the instance stays queryable.
 */
func (r *Runner) handleFailure(ctx context.Context, logger zerolog.Logger, def Definition, job queue.Job, inst instance.AppInstance, err error) {
	switch {
	case errors.Is(err, instance.ErrStatusFlow):
		logger.Warn().Err(err).Msg("status flow violation during stage")
		return
	case errors.Is(err, provider.ErrConfigurationMissing):
		logger.Error().Err(err).Msg("provider configuration missing, job abandoned")
		return
	}

	nextAttempt := job.Attempt + 1
	if nextAttempt < r.cfg.MaxAttempts {
		delay, berr := r.Backoff(nextAttempt)
		if berr != nil {
			logger.Error().Err(berr).Msg("computing retry backoff")
			delay = time.Second
		}

		retry := queue.Job{
			Kind:       job.Kind,
			InstanceID: job.InstanceID,
			Attempt:    nextAttempt,
			RunAfter:   time.Now().Add(delay),
		}
		if qerr := r.enqueuer.Enqueue(ctx, retry); qerr != nil {
			logger.Error().Err(qerr).Msg("scheduling stage retry")
			return
		}
		logger.Warn().Err(err).Dur("delay", delay).Msg("stage failed, retry scheduled")
		return
	}

	logger.Error().Err(err).Msg("retry budget exhausted, failing instance")
	r.failInstance(ctx, logger, inst)
}

// failInstance force-transitions the instance to failed and raises the
// status-changed message so subscribers see the terminal state.
func (r *Runner) failInstance(ctx context.Context, logger zerolog.Logger, inst instance.AppInstance) {
	if err := r.repo.UpdateStatus(ctx, inst.ID, inst.Status, instance.StatusFailed); err != nil {
		logger.Error().Err(err).Msg("persisting failed status")
		return
	}

	if r.events != nil {
		r.events.InstanceStatusChanged(ctx, cascade.StatusChange{
			InstanceID: inst.ID,
			StoreID:    inst.StoreID,
			From:       inst.Status,
			To:         instance.StatusFailed,
			Data:       inst.CloneData(),
			At:         time.Now(),
		})
	}
}

/* reschedule handles the stay outcome of a polling stage: record the next
 * poll time on the instance and park the follow-up job. This is the one
 * place a job enqueues a successor itself; everything else goes through
 * the cascade.
 */
func (r *Runner) reschedule(ctx context.Context, logger zerolog.Logger, def Definition, inst instance.AppInstance) {
	if def.OnStay == 0 {
		return
	}

	next := time.Now().Add(r.cfg.PollInterval)
	if err := r.repo.SetNextPollAfter(ctx, inst.ID, next); err != nil {
		logger.Error().Err(err).Msg("recording next poll time")
	}

	err := r.enqueuer.Enqueue(ctx, queue.Job{
		Kind:       def.OnStay,
		InstanceID: inst.ID,
		RunAfter:   next,
	})
	if err != nil {
		logger.Error().Err(err).Msg("scheduling poll")
		return
	}

	logger.Debug().Time("next_poll_after", next).Msg("poll rescheduled")
}
