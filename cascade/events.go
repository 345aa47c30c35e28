/* Package cascade carries the event-driven glue between stages: whenever an
 * instance's status changes, a typed message is placed on an internal
 * channel and fanned out to independent handlers (pipeline advance, webhook
 * notify). A stage job never enqueues its successor; the advancer is the
 * only place that knows the full stage ordering.
 */
package cascade

import (
	"context"
	"time"

	"github.com/polydock/engine/instance"
)

// StatusChange is the message raised when an instance's persisted status
// moves from one value to another. Data is a snapshot, never the live map.
type StatusChange struct {
	InstanceID string
	StoreID    string
	From       instance.Status
	To         instance.Status
	Data       map[string]string
	At         time.Time
}

// Event name for webhook delivery and call records
func (s StatusChange) Event() string {
	return "instance.status_changed"
}

// Handler consumes status-change messages. Handlers are independent: one
// failing never prevents the others from running.
type Handler interface {
	HandleStatusChange(ctx context.Context, ev StatusChange) error
}

// CreatedHandler consumes the simpler instance-created event that drives
// the first stage of the pipeline.
type CreatedHandler interface {
	HandleInstanceCreated(ctx context.Context, inst instance.AppInstance) error
}
