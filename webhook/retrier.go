package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultRetrierInterval is how often failed calls are re-attempted
	DefaultRetrierInterval = 15 * time.Second
	// retryBatchSize bounds how many due calls one pass picks up
	retryBatchSize = 100
)

/* Retrier re-attempts failed webhook calls whose retry time has passed.
 * Runs alongside the stage worker; each pass is independent of the events
 * that created the calls.
 */
type Retrier struct {
	store    CallReader
	service  *Service
	interval time.Duration
	logger   zerolog.Logger
}

// NewRetrier creates the webhook retry loop
func NewRetrier(store CallReader, service *Service, logger zerolog.Logger) *Retrier {
	return &Retrier{
		store:    store,
		service:  service,
		interval: DefaultRetrierInterval,
		logger:   logger.With().Str("component", "webhook-retrier").Logger(),
	}
}

// RunOnce re-attempts every due call and returns how many were tried
func (r *Retrier) RunOnce(ctx context.Context) (int, error) {
	calls, err := r.store.DueForRetry(ctx, time.Now(), retryBatchSize)
	if err != nil {
		return 0, fmt.Errorf("loading due webhook calls: %w", err)
	}

	for _, call := range calls {
		r.service.Attempt(ctx, call)
	}
	return len(calls), nil
}

// Run re-attempts due calls on an interval until the context is cancelled
func (r *Retrier) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil {
				r.logger.Error().Err(err).Msg("webhook retry pass failed")
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
