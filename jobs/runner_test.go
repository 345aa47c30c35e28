package jobs_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/polydock/engine/cascade"
	"github.com/polydock/engine/instance"
	"github.com/polydock/engine/instance/inmem"
	"github.com/polydock/engine/jobs"
	"github.com/polydock/engine/provider"
	"github.com/polydock/engine/provider/noop"
	"github.com/polydock/engine/queue"
	"github.com/polydock/engine/queue/mocks"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// recordingEvents captures the status-change messages a runner raises
type recordingEvents struct {
	mu      sync.Mutex
	changes []cascade.StatusChange
}

func (r *recordingEvents) InstanceStatusChanged(ctx context.Context, ev cascade.StatusChange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, ev)
}

// failingFactory builds a provider whose every stage fails
func failingFactory(err error) provider.Factory {
	return func(cfg map[string]string, logger zerolog.Logger) (provider.StageProvider, error) {
		return failingProvider{err: err}, nil
	}
}

type failingProvider struct{ err error }

func (p failingProvider) fail() (provider.Outcome, error) { return provider.Outcome{}, p.err }

func (p failingProvider) Claim(context.Context, *instance.AppInstance, zerolog.Logger) (provider.Outcome, error) {
	return p.fail()
}
func (p failingProvider) PreCreate(context.Context, *instance.AppInstance, zerolog.Logger) (provider.Outcome, error) {
	return p.fail()
}
func (p failingProvider) Create(context.Context, *instance.AppInstance, zerolog.Logger) (provider.Outcome, error) {
	return p.fail()
}
func (p failingProvider) PostCreate(context.Context, *instance.AppInstance, zerolog.Logger) (provider.Outcome, error) {
	return p.fail()
}
func (p failingProvider) PreDeploy(context.Context, *instance.AppInstance, zerolog.Logger) (provider.Outcome, error) {
	return p.fail()
}
func (p failingProvider) Deploy(context.Context, *instance.AppInstance, zerolog.Logger) (provider.Outcome, error) {
	return p.fail()
}
func (p failingProvider) PollDeploy(context.Context, *instance.AppInstance, zerolog.Logger) (provider.Outcome, error) {
	return p.fail()
}
func (p failingProvider) PostDeploy(context.Context, *instance.AppInstance, zerolog.Logger) (provider.Outcome, error) {
	return p.fail()
}
func (p failingProvider) PreRemove(context.Context, *instance.AppInstance, zerolog.Logger) (provider.Outcome, error) {
	return p.fail()
}
func (p failingProvider) Remove(context.Context, *instance.AppInstance, zerolog.Logger) (provider.Outcome, error) {
	return p.fail()
}
func (p failingProvider) PostRemove(context.Context, *instance.AppInstance, zerolog.Logger) (provider.Outcome, error) {
	return p.fail()
}

func newRunner(t *testing.T, repo instance.Repository, enqueuer queue.Enqueuer, events *recordingEvents, factories map[string]provider.Factory, cfg jobs.RunnerConfig) *jobs.Runner {
	t.Helper()
	configs := provider.Config{}
	for key := range factories {
		configs[key] = map[string]string{}
	}
	runner, err := jobs.NewRunner(repo, enqueuer, events, factories, configs, cfg, zerolog.Nop())
	require.NoError(t, err)
	return runner
}

func TestBackoff(t *testing.T) {
	repo := inmem.NewRepository()

	t.Run("default expression is exponential", func(t *testing.T) {
		runner := newRunner(t, repo, mocks.NewEnqueuer(t), &recordingEvents{}, nil, jobs.RunnerConfig{})

		d1, err := runner.Backoff(1)
		require.NoError(t, err)
		assert.Equal(t, 2*time.Second, d1)

		d2, err := runner.Backoff(2)
		require.NoError(t, err)
		assert.Equal(t, 4*time.Second, d2)
	})

	t.Run("custom expression", func(t *testing.T) {
		runner := newRunner(t, repo, mocks.NewEnqueuer(t), &recordingEvents{}, nil, jobs.RunnerConfig{
			RetryBackoff: "attempt * 500",
		})

		d, err := runner.Backoff(3)
		require.NoError(t, err)
		assert.Equal(t, 1500*time.Millisecond, d)
	})

	t.Run("invalid expression fails construction", func(t *testing.T) {
		_, err := jobs.NewRunner(repo, mocks.NewEnqueuer(t), nil, nil, nil, jobs.RunnerConfig{
			RetryBackoff: "pow(2,",
		}, zerolog.Nop())
		require.Error(t, err)
	})
}

func TestExecute(t *testing.T) {
	ctx := context.Background()

	t.Run("advances the instance one stage", func(t *testing.T) {
		repo := inmem.NewRepository()
		require.NoError(t, repo.Create(ctx, instance.AppInstance{
			ID: "inst-1", ProviderKey: noop.Key, Status: instance.StatusPendingPreCreate, Data: map[string]string{},
		}))

		events := &recordingEvents{}
		runner := newRunner(t, repo, mocks.NewEnqueuer(t), events, map[string]provider.Factory{noop.Key: noop.Factory}, jobs.RunnerConfig{})

		runner.Execute(ctx, queue.Job{Kind: queue.KindPreCreate, InstanceID: "inst-1"})

		stored, err := repo.Get(ctx, "inst-1")
		require.NoError(t, err)
		assert.Equal(t, instance.StatusPendingCreate, stored.Status)
		require.Len(t, events.changes, 1)
	})

	t.Run("entry status mismatch drops the job", func(t *testing.T) {
		repo := inmem.NewRepository()
		require.NoError(t, repo.Create(ctx, instance.AppInstance{
			ID: "inst-1", ProviderKey: noop.Key, Status: instance.StatusPendingCreate, Data: map[string]string{},
		}))

		events := &recordingEvents{}
		// A stale pre-create delivery arrives after the instance moved on.
		// Nothing may run: no status change, no retry.
		runner := newRunner(t, repo, mocks.NewEnqueuer(t), events, map[string]provider.Factory{noop.Key: noop.Factory}, jobs.RunnerConfig{})

		runner.Execute(ctx, queue.Job{Kind: queue.KindPreCreate, InstanceID: "inst-1"})

		stored, err := repo.Get(ctx, "inst-1")
		require.NoError(t, err)
		assert.Equal(t, instance.StatusPendingCreate, stored.Status)
		assert.Empty(t, events.changes)
	})

	t.Run("unknown instance drops the job", func(t *testing.T) {
		repo := inmem.NewRepository()
		runner := newRunner(t, repo, mocks.NewEnqueuer(t), &recordingEvents{}, nil, jobs.RunnerConfig{})
		runner.Execute(ctx, queue.Job{Kind: queue.KindPreCreate, InstanceID: "ghost"})
	})

	t.Run("placeholder stage does nothing", func(t *testing.T) {
		repo := inmem.NewRepository()
		require.NoError(t, repo.Create(ctx, instance.AppInstance{
			ID: "inst-1", ProviderKey: noop.Key, Status: instance.StatusRunning, Data: map[string]string{},
		}))

		events := &recordingEvents{}
		runner := newRunner(t, repo, mocks.NewEnqueuer(t), events, nil, jobs.RunnerConfig{})

		runner.Execute(ctx, queue.Job{Kind: queue.KindHealthPoll, InstanceID: "inst-1"})

		stored, err := repo.Get(ctx, "inst-1")
		require.NoError(t, err)
		assert.Equal(t, instance.StatusRunning, stored.Status)
		assert.Empty(t, events.changes)
	})

	t.Run("deploy stay schedules a poll", func(t *testing.T) {
		repo := inmem.NewRepository()
		require.NoError(t, repo.Create(ctx, instance.AppInstance{
			ID: "inst-1", ProviderKey: noop.Key, Status: instance.StatusPendingDeploy, Data: map[string]string{},
		}))

		interval := 15 * time.Second
		before := time.Now()

		enqueuer := mocks.NewEnqueuer(t)
		enqueuer.On("Enqueue", ctx, mock.MatchedBy(func(job queue.Job) bool {
			return job.Kind == queue.KindPollDeploy &&
				job.InstanceID == "inst-1" &&
				!job.RunAfter.Before(before.Add(interval))
		})).Return(nil)

		runner := newRunner(t, repo, enqueuer, &recordingEvents{}, map[string]provider.Factory{noop.Key: noop.Factory}, jobs.RunnerConfig{
			PollInterval: interval,
		})

		runner.Execute(ctx, queue.Job{Kind: queue.KindDeploy, InstanceID: "inst-1"})

		stored, err := repo.Get(ctx, "inst-1")
		require.NoError(t, err)
		assert.Equal(t, instance.StatusPendingDeploy, stored.Status, "deploy stays until the poll converges")
		assert.False(t, stored.NextPollAfter.Before(before.Add(interval)), "next poll time recorded")
	})

	t.Run("opaque failure schedules a retry with backoff", func(t *testing.T) {
		repo := inmem.NewRepository()
		require.NoError(t, repo.Create(ctx, instance.AppInstance{
			ID: "inst-1", ProviderKey: "flaky", Status: instance.StatusPendingCreate, Data: map[string]string{},
		}))

		enqueuer := mocks.NewEnqueuer(t)
		enqueuer.On("Enqueue", ctx, mock.MatchedBy(func(job queue.Job) bool {
			return job.Kind == queue.KindCreate &&
				job.InstanceID == "inst-1" &&
				job.Attempt == 1 &&
				job.RunAfter.After(time.Now())
		})).Return(nil)

		events := &recordingEvents{}
		runner := newRunner(t, repo, enqueuer, events, map[string]provider.Factory{
			"flaky": failingFactory(fmt.Errorf("backend unavailable")),
		}, jobs.RunnerConfig{MaxAttempts: 3})

		runner.Execute(ctx, queue.Job{Kind: queue.KindCreate, InstanceID: "inst-1", Attempt: 0})

		stored, err := repo.Get(ctx, "inst-1")
		require.NoError(t, err)
		assert.Equal(t, instance.StatusPendingCreate, stored.Status, "status untouched while retrying")
		assert.Empty(t, events.changes)
	})

	t.Run("exhausted retry budget fails the instance", func(t *testing.T) {
		repo := inmem.NewRepository()
		require.NoError(t, repo.Create(ctx, instance.AppInstance{
			ID: "inst-1", StoreID: "store-1", ProviderKey: "flaky", Status: instance.StatusPendingCreate, Data: map[string]string{},
		}))

		events := &recordingEvents{}
		runner := newRunner(t, repo, mocks.NewEnqueuer(t), events, map[string]provider.Factory{
			"flaky": failingFactory(fmt.Errorf("backend unavailable")),
		}, jobs.RunnerConfig{MaxAttempts: 3})

		// Third delivery of a job that failed twice already
		runner.Execute(ctx, queue.Job{Kind: queue.KindCreate, InstanceID: "inst-1", Attempt: 2})

		stored, err := repo.Get(ctx, "inst-1")
		require.NoError(t, err)
		assert.Equal(t, instance.StatusFailed, stored.Status)

		require.Len(t, events.changes, 1)
		assert.Equal(t, instance.StatusPendingCreate, events.changes[0].From)
		assert.Equal(t, instance.StatusFailed, events.changes[0].To)
		assert.Equal(t, "store-1", events.changes[0].StoreID)
	})

	t.Run("missing provider configuration is not retried", func(t *testing.T) {
		repo := inmem.NewRepository()
		require.NoError(t, repo.Create(ctx, instance.AppInstance{
			ID: "inst-1", ProviderKey: "unconfigured", Status: instance.StatusPendingCreate, Data: map[string]string{},
		}))

		events := &recordingEvents{}
		runner := newRunner(t, repo, mocks.NewEnqueuer(t), events, nil, jobs.RunnerConfig{})

		runner.Execute(ctx, queue.Job{Kind: queue.KindCreate, InstanceID: "inst-1"})

		stored, err := repo.Get(ctx, "inst-1")
		require.NoError(t, err)
		assert.Equal(t, instance.StatusPendingCreate, stored.Status)
		assert.Empty(t, events.changes)
	})
}
