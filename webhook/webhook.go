package webhook

import "time"

/* Subscription represents an external endpoint registered to receive
 * status-change notifications for a store's instances. Administered
 * outside the core; consumed read-only by delivery.
 */
type Subscription struct {
	ID        string
	StoreID   string
	TargetURL string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

/* Call represents one delivery attempt record. Created pending, updated on
 * each attempt. Attempts only ever increases, and a call that reaches
 * success is never retried again.
 */
type Call struct {
	ID             string
	SubscriptionID string
	TargetURL      string
	Event          string
	Payload        []byte
	Status         Status
	Attempts       int
	MaxAttempts    int
	ResponseCode   int
	ResponseBody   string
	NextRetryAt    time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Final reports whether no further delivery attempt may happen: the call
// succeeded, or failed with no retry scheduled (attempts exhausted).
func (c Call) Final() bool {
	return c.Status.IsFinal() || (c.Status == Failed && c.NextRetryAt.IsZero())
}
