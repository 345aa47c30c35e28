/* Package queue defines the durable stage-job queue contract.
 * Delivery is at-least-once: every consumer must guard against duplicate or
 * out-of-order delivery (the stage jobs do this with their entry-status
 * precondition).
 */
package queue

import (
	"context"
	"time"
)

// Job is one queued unit of lifecycle work: a job kind plus the instance it
// advances. Attempt counts deliveries of this logical job, not of the
// underlying queue message.
type Job struct {
	ID         string
	Kind       Kind
	InstanceID string
	Attempt    int
	RunAfter   time.Time

	// streamID is the broker message handle, set on consume and used by Ack.
	streamID string
}

// StreamID returns the broker message handle assigned on consume
func (j Job) StreamID() string { return j.streamID }

// WithStreamID returns a copy of the job carrying the broker handle
func (j Job) WithStreamID(id string) Job {
	j.streamID = id
	return j
}

// Enqueuer places jobs on the queue. Jobs with RunAfter in the future are
// parked and promoted when due.
type Enqueuer interface {
	Enqueue(ctx context.Context, job Job) error
}

// Consumer pulls jobs of one kind off the queue.
type Consumer interface {
	/* Consume reads due jobs for a kind, blocking briefly when none are
	 * available. Returned jobs stay pending in the broker until acknowledged.
	 */
	Consume(ctx context.Context, kind Kind) ([]Job, error)
	// Ack marks a delivered job as processed
	Ack(ctx context.Context, job Job) error
}

// Scheduler promotes parked future jobs onto their streams.
type Scheduler interface {
	PromoteDue(ctx context.Context, now time.Time) (int, error)
}

// Queue is the composed broker contract
type Queue interface {
	Enqueuer
	Consumer
	Scheduler
	Close(ctx context.Context) error
}
