package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/polydock/engine/queue"
	"github.com/redis/go-redis/v9"
)

/* Redis Streams implementation of queue.Queue
 * One stream per job kind (stages:{kind}) with a consumer group for
 * at-least-once delivery. Jobs scheduled for the future are parked in a
 * sorted set (stages:scheduled, score = run-after unix time) and promoted
 * onto their stream by the worker tick.
 */

const (
	streamPrefix  = "stages"
	scheduledKey  = "stages:scheduled"
	consumerGroup = "stage-workers"
	consumerName  = "worker"

	// defaultReclaimMinIdle is how long a delivered entry may sit unacked
	// before Consume claims it back. Long enough that a live worker is
	// never robbed mid-stage.
	defaultReclaimMinIdle = time.Minute
)

type Queue struct {
	client         *redis.Client
	reclaimMinIdle time.Duration
}

// NewQueue creates a new Redis-backed stage queue
func NewQueue(addr, password string, db int) (*Queue, error) {
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

	return &Queue{client: client, reclaimMinIdle: defaultReclaimMinIdle}, nil
}

// NewQueueWithClient wraps an existing client
func NewQueueWithClient(client *redis.Client) *Queue {
	return &Queue{client: client, reclaimMinIdle: defaultReclaimMinIdle}
}

// SetReclaimMinIdle overrides the idle threshold for reclaiming unacked
// entries left behind by a crashed worker
func (q *Queue) SetReclaimMinIdle(d time.Duration) {
	q.reclaimMinIdle = d
}

// Enqueue places a job on its kind's stream, or parks it in the scheduled
// set when RunAfter is in the future.
func (q *Queue) Enqueue(ctx context.Context, job queue.Job) error {
	if err := job.Kind.Validate(); err != nil {
		return fmt.Errorf("validating job kind: %w", err)
	}
	if job.ID == "" {
		job.ID = uuid.New().String()
	}

	if job.RunAfter.After(time.Now()) {
		return q.park(ctx, job)
	}
	return q.add(ctx, job)
}

func (q *Queue) add(ctx context.Context, job queue.Job) error {
	streamKey := getStreamKey(job.Kind)

	// Create consumer group if it doesn't exist; error ignored when it does
	q.client.XGroupCreateMkStream(ctx, streamKey, consumerGroup, "0")

	_, err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: streamKey,
		Values: map[string]interface{}{
			"job_id":      job.ID,
			"kind":        job.Kind.String(),
			"instance_id": job.InstanceID,
			"attempt":     job.Attempt,
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("adding to stream: %w", err)
	}
	return nil
}

// scheduledJob is the parked representation of a future job
type scheduledJob struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	InstanceID string `json:"instance_id"`
	Attempt    int    `json:"attempt"`
	RunAfter   int64  `json:"run_after"`
}

func (q *Queue) park(ctx context.Context, job queue.Job) error {
	member, err := json.Marshal(scheduledJob{
		ID:         job.ID,
		Kind:       job.Kind.String(),
		InstanceID: job.InstanceID,
		Attempt:    job.Attempt,
		RunAfter:   job.RunAfter.Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshaling scheduled job: %w", err)
	}

	err = q.client.ZAdd(ctx, scheduledKey, redis.Z{
		Score:  float64(job.RunAfter.Unix()),
		Member: member,
	}).Err()
	if err != nil {
		return fmt.Errorf("parking scheduled job: %w", err)
	}
	return nil
}

// PromoteDue moves parked jobs whose run-after time has passed onto their
// streams. Returns the number promoted.
func (q *Queue) PromoteDue(ctx context.Context, now time.Time) (int, error) {
	members, err := q.client.ZRangeByScore(ctx, scheduledKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("reading scheduled jobs: %w", err)
	}

	promoted := 0
	for _, member := range members {
		var sj scheduledJob
		if err := json.Unmarshal([]byte(member), &sj); err != nil {
			// Unreadable member: drop it rather than wedging the scheduler
			q.client.ZRem(ctx, scheduledKey, member)
			continue
		}

		job := queue.Job{
			ID:         sj.ID,
			Kind:       queue.NewKind(sj.Kind),
			InstanceID: sj.InstanceID,
			Attempt:    sj.Attempt,
		}
		if err := q.add(ctx, job); err != nil {
			return promoted, fmt.Errorf("promoting scheduled job: %w", err)
		}

		if err := q.client.ZRem(ctx, scheduledKey, member).Err(); err != nil {
			return promoted, fmt.Errorf("removing promoted job: %w", err)
		}
		promoted++
	}

	return promoted, nil
}

// Consume reads due jobs for a kind via the consumer group
func (q *Queue) Consume(ctx context.Context, kind queue.Kind) ([]queue.Job, error) {
	streamKey := getStreamKey(kind)

	// Create consumer group if it doesn't exist; error ignored when it does
	q.client.XGroupCreateMkStream(ctx, streamKey, consumerGroup, "0")

	/* Entries delivered to a worker that died before acking stay pending in
	 * the group forever under a ">" read. Claim them back first once they
	 * have been idle past the threshold.
	 */
	claimed, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   streamKey,
		Group:    consumerGroup,
		Consumer: consumerName,
		MinIdle:  q.reclaimMinIdle,
		Start:    "0-0",
		Count:    1,
	}).Result()
	if err == nil && len(claimed) > 0 {
		return jobsFromMessages(claimed), nil
	}

	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    consumerGroup,
		Consumer: consumerName,
		Streams:  []string{streamKey, ">"},
		Count:    1,
		Block:    1 * time.Second,
	}).Result()
	if err == redis.Nil {
		return []queue.Job{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading from stream: %w", err)
	}

	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return []queue.Job{}, nil
	}

	return jobsFromMessages(streams[0].Messages), nil
}

// jobsFromMessages hydrates stream entries into jobs
func jobsFromMessages(msgs []redis.XMessage) []queue.Job {
	var jobs []queue.Job
	for _, msg := range msgs {
		job := queue.Job{
			ID:         stringValue(msg.Values, "job_id"),
			Kind:       queue.NewKind(stringValue(msg.Values, "kind")),
			InstanceID: stringValue(msg.Values, "instance_id"),
			Attempt:    intValue(msg.Values, "attempt"),
		}
		jobs = append(jobs, job.WithStreamID(msg.ID))
	}
	return jobs
}

// Ack marks a delivered job as processed in the consumer group
func (q *Queue) Ack(ctx context.Context, job queue.Job) error {
	if job.StreamID() == "" {
		return nil
	}

	streamKey := getStreamKey(job.Kind)
	if err := q.client.XAck(ctx, streamKey, consumerGroup, job.StreamID()).Err(); err != nil {
		return fmt.Errorf("acknowledging job: %w", err)
	}
	return nil
}

// Len returns the number of entries in a kind's stream
func (q *Queue) Len(ctx context.Context, kind queue.Kind) (int64, error) {
	length, err := q.client.XLen(ctx, getStreamKey(kind)).Result()
	if err != nil && err != redis.Nil {
		return 0, fmt.Errorf("reading stream length: %w", err)
	}
	return length, nil
}

// Close closes the Redis connection
func (q *Queue) Close(ctx context.Context) error {
	return q.client.Close()
}

// GetClient returns the underlying Redis client for advanced operations
func (q *Queue) GetClient() *redis.Client {
	return q.client
}

// Helper functions

func getStreamKey(kind queue.Kind) string {
	return fmt.Sprintf("%s:%s", streamPrefix, kind.String())
}

func stringValue(values map[string]interface{}, key string) string {
	s, _ := values[key].(string)
	return s
}

func intValue(values map[string]interface{}, key string) int {
	s, _ := values[key].(string)
	v, _ := strconv.Atoi(s)
	return v
}
