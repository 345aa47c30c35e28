package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/polydock/engine/queue"
	"github.com/rs/zerolog"
)

const (
	// DefaultPromoteInterval is how often parked future jobs are promoted
	DefaultPromoteInterval = time.Second
	// DefaultHeartbeatInterval is how often workers report liveness
	DefaultHeartbeatInterval = 30 * time.Second
)

// Heartbeater is implemented by brokers that track worker liveness
type Heartbeater interface {
	SetWorkerHeartbeat(ctx context.Context, workerID, kind, status string) error
}

/* Worker runs one consumer loop per stage job kind plus a scheduler tick
 * that promotes parked jobs. Jobs for different instances run fully in
 * parallel; per-instance ordering comes from the entry-status guard, not
 * from the broker.
 */
type Worker struct {
	broker queue.Queue
	runner *Runner
	logger zerolog.Logger

	workerID          string
	promoteInterval   time.Duration
	heartbeatInterval time.Duration
}

type WorkerOption func(*Worker)

// WithPromoteInterval configures the scheduler tick
func WithPromoteInterval(d time.Duration) WorkerOption {
	return func(w *Worker) {
		w.promoteInterval = d
	}
}

// WithHeartbeatInterval configures the liveness reporting interval
func WithHeartbeatInterval(d time.Duration) WorkerOption {
	return func(w *Worker) {
		w.heartbeatInterval = d
	}
}

// NewWorker creates a stage worker pool
func NewWorker(broker queue.Queue, runner *Runner, logger zerolog.Logger, opts ...WorkerOption) *Worker {
	w := &Worker{
		broker:            broker,
		runner:            runner,
		logger:            logger.With().Str("component", "worker").Logger(),
		workerID:          uuid.New().String(),
		promoteInterval:   DefaultPromoteInterval,
		heartbeatInterval: DefaultHeartbeatInterval,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run consumes stage jobs until the context is cancelled
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info().Str("worker_id", w.workerID).Msg("starting stage worker")

	var wg sync.WaitGroup
	for _, kind := range queue.Kinds() {
		wg.Add(1)
		go func(kind queue.Kind) {
			defer wg.Done()
			w.consumeLoop(ctx, kind)
		}(kind)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		w.scheduleLoop(ctx)
	}()

	if hb, ok := w.broker.(Heartbeater); ok {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.heartbeatLoop(ctx, hb)
		}()
	}

	wg.Wait()
	return ctx.Err()
}

// consumeLoop pulls jobs of one kind and executes them.
// The runner owns retries, so every delivered message is acknowledged.
func (w *Worker) consumeLoop(ctx context.Context, kind queue.Kind) {
	for {
		if ctx.Err() != nil {
			return
		}

		jobs, err := w.broker.Consume(ctx, kind)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error().Err(err).Str("kind", kind.String()).Msg("consuming jobs")
			time.Sleep(time.Second)
			continue
		}

		for _, job := range jobs {
			w.runner.Execute(ctx, job)
			if err := w.broker.Ack(ctx, job); err != nil {
				w.logger.Error().Err(err).Str("kind", kind.String()).Msg("acknowledging job")
			}
		}
	}
}

// scheduleLoop promotes parked future jobs on an interval
func (w *Worker) scheduleLoop(ctx context.Context) {
	ticker := time.NewTicker(w.promoteInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := w.broker.PromoteDue(ctx, time.Now()); err != nil {
				w.logger.Error().Err(err).Msg("promoting scheduled jobs")
			}
		case <-ctx.Done():
			return
		}
	}
}

// heartbeatLoop reports worker liveness on an interval
func (w *Worker) heartbeatLoop(ctx context.Context, hb Heartbeater) {
	ticker := time.NewTicker(w.heartbeatInterval)
	defer ticker.Stop()

	beat := func() {
		for _, kind := range queue.Kinds() {
			if err := hb.SetWorkerHeartbeat(ctx, w.workerID, kind.String(), "processing"); err != nil {
				w.logger.Error().Err(err).Msg("setting worker heartbeat")
				return
			}
		}
	}

	beat()
	for {
		select {
		case <-ticker.C:
			beat()
		case <-ctx.Done():
			return
		}
	}
}
