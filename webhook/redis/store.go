package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/polydock/engine/webhook"
	"github.com/redis/go-redis/v9"
)

/* Redis implementation of webhook.Store
 * Call records live in one hash per call (webhookcall:{id}); calls awaiting
 * retry are indexed in a sorted set scored by their next retry time.
 * Subscriptions are hashes indexed per store by a set.
 */

const (
	callPrefix   = "webhookcall"
	retrySetKey  = "webhookcalls:retries"
	subPrefix    = "webhooksub"
	storeSetPfx  = "webhooksubs:store"
)

type Store struct {
	client *redis.Client
}

// NewStore creates a new Redis-backed webhook store
func NewStore(addr, password string, db int) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to Redis: %w", err)
	}

	return &Store{client: client}, nil
}

// NewStoreWithClient wraps an existing client
func NewStoreWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

// SaveSubscription creates or updates a subscription
func (s *Store) SaveSubscription(ctx context.Context, sub webhook.Subscription) error {
	err := s.client.HSet(ctx, subKey(sub.ID), map[string]interface{}{
		"id":         sub.ID,
		"store_id":   sub.StoreID,
		"target_url": sub.TargetURL,
		"active":     strconv.FormatBool(sub.Active),
		"created_at": sub.CreatedAt.Unix(),
		"updated_at": time.Now().Unix(),
	}).Err()
	if err != nil {
		return fmt.Errorf("storing subscription: %w", err)
	}

	if err := s.client.SAdd(ctx, storeSetKey(sub.StoreID), sub.ID).Err(); err != nil {
		return fmt.Errorf("indexing subscription by store: %w", err)
	}
	return nil
}

// DeleteSubscription removes a subscription
func (s *Store) DeleteSubscription(ctx context.Context, id string) error {
	data, err := s.client.HGetAll(ctx, subKey(id)).Result()
	if err != nil {
		return fmt.Errorf("getting subscription: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	if err := s.client.SRem(ctx, storeSetKey(data["store_id"]), id).Err(); err != nil {
		return fmt.Errorf("unindexing subscription: %w", err)
	}
	if err := s.client.Del(ctx, subKey(id)).Err(); err != nil {
		return fmt.Errorf("deleting subscription: %w", err)
	}
	return nil
}

// ActiveForStore returns the active subscriptions belonging to a store
func (s *Store) ActiveForStore(ctx context.Context, storeID string) ([]webhook.Subscription, error) {
	ids, err := s.client.SMembers(ctx, storeSetKey(storeID)).Result()
	if err != nil {
		return nil, fmt.Errorf("listing store subscriptions: %w", err)
	}

	var subs []webhook.Subscription
	for _, id := range ids {
		data, err := s.client.HGetAll(ctx, subKey(id)).Result()
		if err != nil || len(data) == 0 {
			continue
		}

		active, _ := strconv.ParseBool(data["active"])
		if !active {
			continue
		}

		subs = append(subs, webhook.Subscription{
			ID:        data["id"],
			StoreID:   data["store_id"],
			TargetURL: data["target_url"],
			Active:    active,
			CreatedAt: time.Unix(parseInt64(data["created_at"]), 0),
			UpdatedAt: time.Unix(parseInt64(data["updated_at"]), 0),
		})
	}

	return subs, nil
}

// CreateCall records a new pending delivery attempt record
func (s *Store) CreateCall(ctx context.Context, call webhook.Call) error {
	err := s.client.HSet(ctx, callKey(call.ID), map[string]interface{}{
		"id":              call.ID,
		"subscription_id": call.SubscriptionID,
		"target_url":      call.TargetURL,
		"event":           call.Event,
		"payload":         call.Payload,
		"status":          call.Status.String(),
		"attempts":        call.Attempts,
		"max_attempts":    call.MaxAttempts,
		"response_code":   call.ResponseCode,
		"response_body":   call.ResponseBody,
		"next_retry_at":   call.NextRetryAt.Unix(),
		"created_at":      call.CreatedAt.Unix(),
		"updated_at":      call.UpdatedAt.Unix(),
	}).Err()
	if err != nil {
		return fmt.Errorf("storing webhook call: %w", err)
	}
	return nil
}

// GetCall retrieves a call record by ID
func (s *Store) GetCall(ctx context.Context, id string) (webhook.Call, error) {
	data, err := s.client.HGetAll(ctx, callKey(id)).Result()
	if err != nil {
		return webhook.Call{}, fmt.Errorf("getting webhook call: %w", err)
	}
	if len(data) == 0 {
		return webhook.Call{}, fmt.Errorf("webhook call not found: %s", id)
	}
	return hydrateCall(data), nil
}

// MarkSuccess finalizes a call after a delivered attempt
func (s *Store) MarkSuccess(ctx context.Context, id string, responseCode int, responseBody string) error {
	err := s.client.HSet(ctx, callKey(id), map[string]interface{}{
		"status":        webhook.Success.String(),
		"response_code": responseCode,
		"response_body": responseBody,
		"updated_at":    time.Now().Unix(),
	}).Err()
	if err != nil {
		return fmt.Errorf("marking call success: %w", err)
	}

	if err := s.client.HIncrBy(ctx, callKey(id), "attempts", 1).Err(); err != nil {
		return fmt.Errorf("incrementing attempts: %w", err)
	}

	// A successful call is never retried again
	if err := s.client.ZRem(ctx, retrySetKey, id).Err(); err != nil {
		return fmt.Errorf("removing call from retry index: %w", err)
	}
	return nil
}

// MarkFailed records a failed attempt and schedules the next retry unless
// the attempt budget is exhausted (zero nextRetryAt).
func (s *Store) MarkFailed(ctx context.Context, id string, responseCode int, responseBody string, nextRetryAt time.Time) error {
	err := s.client.HSet(ctx, callKey(id), map[string]interface{}{
		"status":        webhook.Failed.String(),
		"response_code": responseCode,
		"response_body": responseBody,
		"next_retry_at": nextRetryAt.Unix(),
		"updated_at":    time.Now().Unix(),
	}).Err()
	if err != nil {
		return fmt.Errorf("marking call failed: %w", err)
	}

	if err := s.client.HIncrBy(ctx, callKey(id), "attempts", 1).Err(); err != nil {
		return fmt.Errorf("incrementing attempts: %w", err)
	}

	if nextRetryAt.IsZero() {
		if err := s.client.ZRem(ctx, retrySetKey, id).Err(); err != nil {
			return fmt.Errorf("removing exhausted call from retry index: %w", err)
		}
		return nil
	}

	err = s.client.ZAdd(ctx, retrySetKey, redis.Z{
		Score:  float64(nextRetryAt.Unix()),
		Member: id,
	}).Err()
	if err != nil {
		return fmt.Errorf("indexing call for retry: %w", err)
	}
	return nil
}

// DueForRetry returns failed calls whose retry time has passed
func (s *Store) DueForRetry(ctx context.Context, now time.Time, limit int) ([]webhook.Call, error) {
	ids, err := s.client.ZRangeByScore(ctx, retrySetKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.Unix(), 10),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("reading retry index: %w", err)
	}

	var calls []webhook.Call
	for _, id := range ids {
		call, err := s.GetCall(ctx, id)
		if err != nil {
			// Orphaned index entry
			s.client.ZRem(ctx, retrySetKey, id)
			continue
		}
		calls = append(calls, call)
	}
	return calls, nil
}

// Close closes the Redis connection
func (s *Store) Close(ctx context.Context) error {
	return s.client.Close()
}

// GetClient returns the underlying Redis client for advanced operations
func (s *Store) GetClient() *redis.Client {
	return s.client
}

// Helper functions

func callKey(id string) string {
	return fmt.Sprintf("%s:%s", callPrefix, id)
}

func subKey(id string) string {
	return fmt.Sprintf("%s:%s", subPrefix, id)
}

func storeSetKey(storeID string) string {
	return fmt.Sprintf("%s:%s", storeSetPfx, storeID)
}

func hydrateCall(data map[string]string) webhook.Call {
	return webhook.Call{
		ID:             data["id"],
		SubscriptionID: data["subscription_id"],
		TargetURL:      data["target_url"],
		Event:          data["event"],
		Payload:        []byte(data["payload"]),
		Status:         webhook.NewStatus(data["status"]),
		Attempts:       int(parseInt64(data["attempts"])),
		MaxAttempts:    int(parseInt64(data["max_attempts"])),
		ResponseCode:   int(parseInt64(data["response_code"])),
		ResponseBody:   data["response_body"],
		NextRetryAt:    time.Unix(parseInt64(data["next_retry_at"]), 0),
		CreatedAt:      time.Unix(parseInt64(data["created_at"]), 0),
		UpdatedAt:      time.Unix(parseInt64(data["updated_at"]), 0),
	}
}

func parseInt64(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}
