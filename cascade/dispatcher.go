package cascade

import (
	"context"
	"time"

	"github.com/polydock/engine/instance"
	"github.com/rs/zerolog"
)

const defaultBuffer = 256

/* Dispatcher is the internal event bus: typed messages on a channel, fanned
 * out to registered handlers by the Run loop. Publishing never blocks the
 * status change that raised the event beyond channel admission; handler
 * failures are logged and isolated.
 */
type Dispatcher struct {
	handlers        []Handler
	createdHandlers []CreatedHandler

	events  chan StatusChange
	created chan instance.AppInstance
	logger  zerolog.Logger
}

// NewDispatcher creates a dispatcher with the given handlers subscribed
func NewDispatcher(logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		events:  make(chan StatusChange, defaultBuffer),
		created: make(chan instance.AppInstance, defaultBuffer),
		logger:  logger,
	}
}

// Subscribe registers a status-change handler
func (d *Dispatcher) Subscribe(h Handler) *Dispatcher {
	d.handlers = append(d.handlers, h)
	return d
}

// SubscribeCreated registers an instance-created handler
func (d *Dispatcher) SubscribeCreated(h CreatedHandler) *Dispatcher {
	d.createdHandlers = append(d.createdHandlers, h)
	return d
}

// InstanceStatusChanged publishes a status-change message.
// Implements the engine's events contract.
func (d *Dispatcher) InstanceStatusChanged(ctx context.Context, ev StatusChange) {
	select {
	case d.events <- ev:
	case <-ctx.Done():
	}
}

// StatusChanged publishes a status change persisted by the instance
// service itself, typed with the same message the engine raises.
// Implements instance.Notifier.
func (d *Dispatcher) StatusChanged(ctx context.Context, inst instance.AppInstance, from, to instance.Status) {
	d.InstanceStatusChanged(ctx, StatusChange{
		InstanceID: inst.ID,
		StoreID:    inst.StoreID,
		From:       from,
		To:         to,
		Data:       inst.CloneData(),
		At:         time.Now(),
	})
}

// InstanceCreated publishes the instance-created event.
// Implements instance.Notifier.
func (d *Dispatcher) InstanceCreated(ctx context.Context, inst instance.AppInstance) {
	select {
	case d.created <- inst:
	case <-ctx.Done():
	}
}

// Run consumes published events until the context is cancelled
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case ev := <-d.events:
			d.Dispatch(ctx, ev)
		case inst := <-d.created:
			d.DispatchCreated(ctx, inst)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Dispatch fans a status-change message out to every subscribed handler
func (d *Dispatcher) Dispatch(ctx context.Context, ev StatusChange) {
	for _, h := range d.handlers {
		if err := h.HandleStatusChange(ctx, ev); err != nil {
			d.logger.Error().Err(err).
				Str("instance_id", ev.InstanceID).
				Str("from", ev.From.String()).
				Str("to", ev.To.String()).
				Msg("status change handler failed")
		}
	}
}

// DispatchCreated fans the instance-created event out to its handlers
func (d *Dispatcher) DispatchCreated(ctx context.Context, inst instance.AppInstance) {
	for _, h := range d.createdHandlers {
		if err := h.HandleInstanceCreated(ctx, inst); err != nil {
			d.logger.Error().Err(err).
				Str("instance_id", inst.ID).
				Msg("instance created handler failed")
		}
	}
}
