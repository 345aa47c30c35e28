package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/polydock/engine/instance"
	"github.com/polydock/engine/queue"
	"github.com/redis/go-redis/v9"
)

// RedisCollector implements the Collector interface against the shared
// Redis backing of the queue, instance, and webhook stores.
type RedisCollector struct {
	client *redis.Client
}

// NewRedisCollector creates a new Redis metrics collector
func NewRedisCollector(client *redis.Client) *RedisCollector {
	return &RedisCollector{client: client}
}

// Collect gathers all metrics from Redis
func (c *RedisCollector) Collect(ctx context.Context) (Metrics, error) {
	queueLengths, err := c.GetQueueLengths(ctx)
	if err != nil {
		return Metrics{}, fmt.Errorf("getting queue lengths: %w", err)
	}

	statusCounts, err := c.GetStatusCounts(ctx)
	if err != nil {
		return Metrics{}, fmt.Errorf("getting status counts: %w", err)
	}

	throughput, err := c.GetWebhookThroughput(ctx)
	if err != nil {
		return Metrics{}, fmt.Errorf("getting webhook throughput: %w", err)
	}

	workers, err := c.GetActiveWorkers(ctx)
	if err != nil {
		return Metrics{}, fmt.Errorf("getting active workers: %w", err)
	}

	return Metrics{
		QueueLengths:      queueLengths,
		StatusCounts:      statusCounts,
		WebhookThroughput: throughput,
		Workers:           workers,
		Timestamp:         time.Now(),
	}, nil
}

// GetQueueLengths returns the number of queued jobs in each stage stream
func (c *RedisCollector) GetQueueLengths(ctx context.Context) (map[string]int64, error) {
	queueLengths := make(map[string]int64)

	for _, kind := range queue.Kinds() {
		streamKey := fmt.Sprintf("stages:%s", kind.String())

		length, err := c.client.XLen(ctx, streamKey).Result()
		if err != nil && err != redis.Nil {
			// Continue even if one stream fails
			continue
		}
		queueLengths[kind.String()] = length
	}

	return queueLengths, nil
}

// GetStatusCounts returns counts of instances grouped by status
func (c *RedisCollector) GetStatusCounts(ctx context.Context) (map[string]int64, error) {
	statusCounts := make(map[string]int64)
	for s := instance.StatusPendingPolydockClaim; s <= instance.StatusFailed; s++ {
		statusCounts[s.String()] = 0
	}

	var cursor uint64
	for {
		keys, nextCursor, err := c.client.Scan(ctx, cursor, "instance:*", 1000).Result()
		if err != nil {
			return nil, fmt.Errorf("scanning instance keys: %w", err)
		}

		if len(keys) > 0 {
			pipe := c.client.Pipeline()
			cmds := make([]*redis.StringCmd, len(keys))
			for i, key := range keys {
				cmds[i] = pipe.HGet(ctx, key, "status")
			}
			if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
				return nil, fmt.Errorf("executing pipeline: %w", err)
			}

			for _, cmd := range cmds {
				status, err := cmd.Result()
				if err != nil {
					continue
				}
				if _, exists := statusCounts[status]; exists {
					statusCounts[status]++
				}
			}
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return statusCounts, nil
}

// GetWebhookThroughput calculates deliveries over different time windows
func (c *RedisCollector) GetWebhookThroughput(ctx context.Context) (ThroughputMetrics, error) {
	now := time.Now()
	oneMinuteAgo := now.Add(-1 * time.Minute).Unix()
	fiveMinutesAgo := now.Add(-5 * time.Minute).Unix()
	fifteenMinutesAgo := now.Add(-15 * time.Minute).Unix()

	var lastMinute, lastFiveMinutes, lastFifteenMinutes int64

	var cursor uint64
	for {
		keys, nextCursor, err := c.client.Scan(ctx, cursor, "webhookcall:*", 1000).Result()
		if err != nil {
			return ThroughputMetrics{}, fmt.Errorf("scanning webhook call keys: %w", err)
		}

		for _, key := range keys {
			data, err := c.client.HMGet(ctx, key, "status", "updated_at").Result()
			if err != nil || len(data) < 2 {
				continue
			}

			status, ok1 := data[0].(string)
			updatedAtStr, ok2 := data[1].(string)
			if !ok1 || !ok2 || status != "success" {
				continue
			}

			var updatedAt int64
			fmt.Sscanf(updatedAtStr, "%d", &updatedAt)

			if updatedAt >= fifteenMinutesAgo {
				lastFifteenMinutes++
				if updatedAt >= fiveMinutesAgo {
					lastFiveMinutes++
					if updatedAt >= oneMinuteAgo {
						lastMinute++
					}
				}
			}
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return ThroughputMetrics{
		LastMinute:         lastMinute,
		LastFiveMinutes:    lastFiveMinutes,
		LastFifteenMinutes: lastFifteenMinutes,
	}, nil
}

// GetActiveWorkers returns live workers grouped by stage kind
func (c *RedisCollector) GetActiveWorkers(ctx context.Context) (map[string][]WorkerInfo, error) {
	workers := make(map[string][]WorkerInfo)

	var cursor uint64
	for {
		keys, nextCursor, err := c.client.Scan(ctx, cursor, "worker:heartbeat:*", 1000).Result()
		if err != nil {
			return nil, fmt.Errorf("scanning worker heartbeat keys: %w", err)
		}

		for _, key := range keys {
			data, err := c.client.Get(ctx, key).Result()
			if err != nil {
				continue
			}

			var workerInfo WorkerInfo
			if err := json.Unmarshal([]byte(data), &workerInfo); err != nil {
				continue
			}

			workers[workerInfo.Kind] = append(workers[workerInfo.Kind], workerInfo)
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return workers, nil
}
