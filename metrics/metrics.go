package metrics

import (
	"context"
	"time"
)

// Metrics represents the current state of the lifecycle system.
type Metrics struct {
	// QueueLengths maps stage job kind to the number of queued jobs
	QueueLengths map[string]int64 `json:"queue_lengths"`

	// StatusCounts maps instance status name to instance count
	StatusCounts map[string]int64 `json:"status_counts"`

	// WebhookThroughput is webhook deliveries over time windows
	WebhookThroughput ThroughputMetrics `json:"webhook_throughput"`

	// Workers maps stage kind to the list of live workers
	Workers map[string][]WorkerInfo `json:"workers"`

	// Timestamp when metrics were collected
	Timestamp time.Time `json:"timestamp"`
}

// ThroughputMetrics counts webhook deliveries over different time windows.
type ThroughputMetrics struct {
	LastMinute         int64 `json:"last_minute"`
	LastFiveMinutes    int64 `json:"last_five_minutes"`
	LastFifteenMinutes int64 `json:"last_fifteen_minutes"`
}

// WorkerInfo represents one live stage worker.
type WorkerInfo struct {
	WorkerID      string    `json:"worker_id"`
	Kind          string    `json:"kind"`
	Status        string    `json:"status"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
}

// Collector gathers metrics from the lifecycle system.
type Collector interface {
	// Collect gathers current metrics from the system
	Collect(ctx context.Context) (Metrics, error)

	// GetQueueLengths returns the number of queued jobs per stage kind
	GetQueueLengths(ctx context.Context) (map[string]int64, error)

	// GetStatusCounts returns the count of instances by status
	GetStatusCounts(ctx context.Context) (map[string]int64, error)

	// GetWebhookThroughput returns webhook deliveries over time windows
	GetWebhookThroughput(ctx context.Context) (ThroughputMetrics, error)

	// GetActiveWorkers returns live workers per stage kind
	GetActiveWorkers(ctx context.Context) (map[string][]WorkerInfo, error)
}
