package webhook

import (
	"context"
	"time"
)

/* Small, focused interfaces. Subscriptions are written by an external
 * admin surface and read here; call records are owned entirely by delivery.
 */

// SubscriptionReader provides read access to subscriptions
type SubscriptionReader interface {
	ActiveForStore(ctx context.Context, storeID string) ([]Subscription, error)
}

// SubscriptionWriter provides the admin-side write operations
type SubscriptionWriter interface {
	SaveSubscription(ctx context.Context, sub Subscription) error
	DeleteSubscription(ctx context.Context, id string) error
}

// CallReader provides read access to call records
type CallReader interface {
	GetCall(ctx context.Context, id string) (Call, error)
	/* DueForRetry returns failed calls whose next retry time has passed and
	 * whose attempt budget is not exhausted.
	 */
	DueForRetry(ctx context.Context, now time.Time, limit int) ([]Call, error)
}

// CallWriter records delivery attempts
type CallWriter interface {
	CreateCall(ctx context.Context, call Call) error
	// MarkSuccess finalizes a call; it is never retried afterwards
	MarkSuccess(ctx context.Context, id string, responseCode int, responseBody string) error
	/* MarkFailed increments the attempt count and records the response. A
	 * zero nextRetryAt means the budget is exhausted and the call is final.
	 */
	MarkFailed(ctx context.Context, id string, responseCode int, responseBody string, nextRetryAt time.Time) error
}

// Store is the composed persistence contract for webhook delivery
type Store interface {
	SubscriptionReader
	SubscriptionWriter
	CallReader
	CallWriter
	Close(ctx context.Context) error
}
