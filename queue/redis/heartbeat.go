package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// WorkerHeartbeat represents the liveness record for a stage worker
type WorkerHeartbeat struct {
	WorkerID      string    `json:"worker_id"`
	Kind          string    `json:"kind"`
	Status        string    `json:"status"` // "idle", "processing"
	LastHeartbeat time.Time `json:"last_heartbeat"`
}

// SetWorkerHeartbeat stores or updates a worker's heartbeat.
// The key carries a 60 second TTL: a worker that stops heartbeating
// within that window is considered inactive.
func (q *Queue) SetWorkerHeartbeat(ctx context.Context, workerID, kind, status string) error {
	key := fmt.Sprintf("worker:heartbeat:%s:%s", kind, workerID)

	heartbeat := WorkerHeartbeat{
		WorkerID:      workerID,
		Kind:          kind,
		Status:        status,
		LastHeartbeat: time.Now(),
	}

	data, err := json.Marshal(heartbeat)
	if err != nil {
		return fmt.Errorf("marshaling heartbeat: %w", err)
	}

	// Workers heartbeat every 30 seconds against the 60 second TTL
	if err := q.client.Set(ctx, key, data, 60*time.Second).Err(); err != nil {
		return fmt.Errorf("setting heartbeat: %w", err)
	}

	return nil
}

// GetActiveWorkers retrieves all live workers grouped by job kind
func (q *Queue) GetActiveWorkers(ctx context.Context) (map[string][]WorkerHeartbeat, error) {
	pattern := "worker:heartbeat:*"
	workersByKind := make(map[string][]WorkerHeartbeat)

	var cursor uint64
	for {
		keys, nextCursor, err := q.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("scanning worker keys: %w", err)
		}

		for _, key := range keys {
			data, err := q.client.Get(ctx, key).Result()
			if err == redis.Nil {
				// Key expired between scan and get
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("getting worker heartbeat: %w", err)
			}

			var heartbeat WorkerHeartbeat
			if err := json.Unmarshal([]byte(data), &heartbeat); err != nil {
				continue
			}

			workersByKind[heartbeat.Kind] = append(workersByKind[heartbeat.Kind], heartbeat)
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return workersByKind, nil
}
