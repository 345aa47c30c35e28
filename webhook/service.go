package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/google/uuid"
	"github.com/polydock/engine/cache"
	"github.com/polydock/engine/cascade"
	"github.com/rs/zerolog"
)

const (
	// DefaultMaxAttempts bounds delivery retries per call
	DefaultMaxAttempts = 5
	// DefaultRetryBackoff yields the retry delay in milliseconds
	DefaultRetryBackoff = "2 ** attempt * 1000"
	// responseBodyLimit caps how much of a subscriber response is recorded
	responseBodyLimit = 4096

	subscriptionCacheTTL = time.Minute
)

// Config carries the delivery tunables
type Config struct {
	MaxAttempts  int
	RetryBackoff string
	// ExtraSensitiveKeys extends the redaction policy at runtime
	ExtraSensitiveKeys []string
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.RetryBackoff == "" {
		c.RetryBackoff = DefaultRetryBackoff
	}
	return c
}

/* Service delivers status-change payloads to every active subscription of
 * the owning store. Delivery is best-effort and at-least-once: failures are
 * recorded per call and retried independently, and never block or roll
 * back the status change that triggered them.
 *
 * Implements cascade.Handler.
 */
type Service struct {
	store   Store
	policy  RedactionPolicy
	client  *http.Client
	cache   cache.Cache
	cfg     Config
	backoff *vm.Program
	logger  zerolog.Logger
}

// NewService creates the webhook delivery service. The cache is optional;
// pass nil to look subscriptions up on every event.
func NewService(store Store, subsCache cache.Cache, cfg Config, logger zerolog.Logger) (*Service, error) {
	cfg = cfg.withDefaults()

	program, err := expr.Compile(cfg.RetryBackoff, expr.Env(map[string]interface{}{"attempt": 0}))
	if err != nil {
		return nil, fmt.Errorf("compiling retry backoff expression: %w", err)
	}

	policy := DefaultRedactionPolicy()
	if len(cfg.ExtraSensitiveKeys) > 0 {
		policy = policy.WithSensitiveKeys(cfg.ExtraSensitiveKeys...)
	}

	return &Service{
		store:   store,
		policy:  policy,
		client:  &http.Client{Timeout: 30 * time.Second},
		cache:   subsCache,
		cfg:     cfg,
		backoff: program,
		logger:  logger.With().Str("component", "webhook").Logger(),
	}, nil
}

// Policy returns the active redaction policy
func (s *Service) Policy() RedactionPolicy {
	return s.policy
}

/* HandleStatusChange records one pending call per active subscription of
 * the instance's store and attempts delivery. Errors are logged, never
 * propagated: webhook delivery must not fail the cascade.
 */
func (s *Service) HandleStatusChange(ctx context.Context, ev cascade.StatusChange) error {
	subs, err := s.activeSubscriptions(ctx, ev.StoreID)
	if err != nil {
		return fmt.Errorf("loading subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return nil
	}

	body, err := BuildPayload(ev, s.policy)
	if err != nil {
		return fmt.Errorf("building payload: %w", err)
	}

	for _, sub := range subs {
		call := Call{
			ID:             uuid.New().String(),
			SubscriptionID: sub.ID,
			TargetURL:      sub.TargetURL,
			Event:          ev.Event(),
			Payload:        body,
			Status:         Pending,
			MaxAttempts:    s.cfg.MaxAttempts,
			CreatedAt:      time.Now(),
			UpdatedAt:      time.Now(),
		}
		if err := s.store.CreateCall(ctx, call); err != nil {
			s.logger.Error().Err(err).Str("subscription_id", sub.ID).Msg("recording webhook call")
			continue
		}

		s.Attempt(ctx, call)
	}

	return nil
}

/* Attempt performs one HTTP delivery of a call and records the outcome.
 * Success is final; failure schedules the next retry while the budget
 * lasts.
 */
func (s *Service) Attempt(ctx context.Context, call Call) {
	if call.Final() {
		s.logger.Debug().Str("call_id", call.ID).Msg("call already final, skipping")
		return
	}

	logger := s.logger.With().
		Str("call_id", call.ID).
		Str("target_url", call.TargetURL).
		Int("attempt", call.Attempts+1).
		Logger()

	code, respBody, err := s.post(ctx, call.TargetURL, call.Payload)
	if err == nil && code >= 200 && code < 300 {
		if err := s.store.MarkSuccess(ctx, call.ID, code, respBody); err != nil {
			logger.Error().Err(err).Msg("recording webhook success")
			return
		}
		logger.Info().Int("response_code", code).Msg("webhook delivered")
		return
	}

	var nextRetryAt time.Time
	if call.Attempts+1 < call.MaxAttempts {
		nextRetryAt = time.Now().Add(s.retryDelay(call.Attempts + 1))
	}

	if merr := s.store.MarkFailed(ctx, call.ID, code, respBody, nextRetryAt); merr != nil {
		logger.Error().Err(merr).Msg("recording webhook failure")
		return
	}

	evt := logger.Warn().Int("response_code", code)
	if err != nil {
		evt = evt.Err(err)
	}
	if nextRetryAt.IsZero() {
		evt.Msg("webhook delivery failed, attempts exhausted")
	} else {
		evt.Time("next_retry_at", nextRetryAt).Msg("webhook delivery failed, retry scheduled")
	}
}

func (s *Service) post(ctx context.Context, url string, payload []byte) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("posting webhook: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyLimit))
	if err != nil {
		return resp.StatusCode, "", fmt.Errorf("reading response: %w", err)
	}

	return resp.StatusCode, string(body), nil
}

func (s *Service) retryDelay(attempt int) time.Duration {
	out, err := expr.Run(s.backoff, map[string]interface{}{"attempt": attempt})
	if err != nil {
		s.logger.Error().Err(err).Msg("evaluating retry backoff")
		return time.Minute
	}

	switch v := out.(type) {
	case int:
		return time.Duration(v) * time.Millisecond
	case int64:
		return time.Duration(v) * time.Millisecond
	case float64:
		return time.Duration(v) * time.Millisecond
	default:
		return time.Minute
	}
}

// activeSubscriptions reads active subscriptions for a store through the
// injected TTL cache, falling back to the store on a miss.
func (s *Service) activeSubscriptions(ctx context.Context, storeID string) ([]Subscription, error) {
	cacheKey := fmt.Sprintf("subs:%s", storeID)

	if s.cache != nil {
		if raw, ok, err := s.cache.Get(ctx, cacheKey); err == nil && ok {
			var subs []Subscription
			if err := json.Unmarshal(raw, &subs); err == nil {
				return subs, nil
			}
		}
	}

	subs, err := s.store.ActiveForStore(ctx, storeID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(subs); err == nil {
			if err := s.cache.Set(ctx, cacheKey, raw, subscriptionCacheTTL); err != nil {
				s.logger.Debug().Err(err).Msg("caching subscriptions")
			}
		}
	}

	return subs, nil
}
