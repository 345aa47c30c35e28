package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/polydock/engine/instance"
	"github.com/redis/go-redis/v9"
)

/* Redis implementation of instance.Repository
 * Uses one hash per instance: instance:{id}
 * Stage-produced data lives in per-key hash fields (data:{key}) so MergeData
 * is a plain HSET and never clobbers keys written by earlier stages.
 * An index set per store (instances:store:{store_id}) backs ListByStore.
 */

const (
	hashPrefix     = "instance"
	storeSetPrefix = "instances:store"
	dataFieldPfx   = "data:"
)

/* statusCASScript performs the conditional status write: the update only
 * lands when the persisted status still equals ARGV[1]. Returns the status
 * found so the caller can build a precise flow violation error.
 */
var statusCASScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'status')
if cur == ARGV[1] then
  redis.call('HSET', KEYS[1], 'status', ARGV[2], 'updated_at', ARGV[3])
  return {1, cur}
end
return {0, cur or ''}
`)

type Repository struct {
	client *redis.Client
}

// NewRepository creates a new Redis-backed instance repository
func NewRepository(addr, password string, db int) (*Repository, error) {
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

	return &Repository{client: client}, nil
}

// NewRepositoryWithClient wraps an existing client, sharing the connection
// pool with the queue and webhook stores.
func NewRepositoryWithClient(client *redis.Client) *Repository {
	return &Repository{client: client}
}

// Create stores a new app instance
func (r *Repository) Create(ctx context.Context, inst instance.AppInstance) error {
	hashKey := instanceKey(inst.ID)

	fields := map[string]interface{}{
		"id":              inst.ID,
		"store_id":        inst.StoreID,
		"app_id":          inst.AppID,
		"provider_key":    inst.ProviderKey,
		"status":          inst.Status.String(),
		"next_poll_after": inst.NextPollAfter.Unix(),
		"created_at":      inst.CreatedAt.Unix(),
		"updated_at":      inst.UpdatedAt.Unix(),
	}
	for k, v := range inst.Data {
		fields[dataFieldPfx+k] = v
	}

	if err := r.client.HSet(ctx, hashKey, fields).Err(); err != nil {
		return fmt.Errorf("storing instance: %w", err)
	}

	if err := r.client.SAdd(ctx, storeSetKey(inst.StoreID), inst.ID).Err(); err != nil {
		return fmt.Errorf("indexing instance by store: %w", err)
	}

	return nil
}

// Get retrieves an app instance by ID
func (r *Repository) Get(ctx context.Context, id string) (instance.AppInstance, error) {
	data, err := r.client.HGetAll(ctx, instanceKey(id)).Result()
	if err != nil {
		return instance.AppInstance{}, fmt.Errorf("getting instance: %w", err)
	}
	if len(data) == 0 {
		return instance.AppInstance{}, fmt.Errorf("%w: %s", instance.ErrNotFound, id)
	}

	return hydrate(data), nil
}

// ListByStore retrieves instances belonging to a store
func (r *Repository) ListByStore(ctx context.Context, storeID string, limit int) ([]instance.AppInstance, error) {
	ids, err := r.client.SMembers(ctx, storeSetKey(storeID)).Result()
	if err != nil {
		return nil, fmt.Errorf("listing store instances: %w", err)
	}

	var instances []instance.AppInstance
	for _, id := range ids {
		if limit > 0 && len(instances) >= limit {
			break
		}
		inst, err := r.Get(ctx, id)
		if err != nil {
			continue
		}
		instances = append(instances, inst)
	}
	return instances, nil
}

// ListPending scans for instances stuck in a pending status
func (r *Repository) ListPending(ctx context.Context) ([]instance.AppInstance, error) {
	var pending []instance.AppInstance

	var cursor uint64
	for {
		keys, nextCursor, err := r.client.Scan(ctx, cursor, "instance:*", 1000).Result()
		if err != nil {
			return nil, fmt.Errorf("scanning instance keys: %w", err)
		}

		for _, key := range keys {
			data, err := r.client.HGetAll(ctx, key).Result()
			if err != nil || len(data) == 0 {
				continue
			}
			inst := hydrate(data)
			if inst.Status.IsPending() || inst.Status == instance.StatusNew {
				pending = append(pending, inst)
			}
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	return pending, nil
}

// UpdateStatus performs the conditional status write. A lost race returns a
// *instance.StatusFlowError carrying the status actually persisted.
func (r *Repository) UpdateStatus(ctx context.Context, id string, from, to instance.Status) error {
	res, err := statusCASScript.Run(ctx, r.client,
		[]string{instanceKey(id)},
		from.String(), to.String(), time.Now().Unix(),
	).Slice()
	if err != nil {
		return fmt.Errorf("updating status: %w", err)
	}

	ok, _ := res[0].(int64)
	if ok == 1 {
		return nil
	}

	found, _ := res[1].(string)
	if found == "" {
		return fmt.Errorf("%w: %s", instance.ErrNotFound, id)
	}
	return instance.NewStatusFlowError(id, from, instance.NewStatus(found))
}

// MergeData folds stage-produced keys into the instance data mapping
func (r *Repository) MergeData(ctx context.Context, id string, data map[string]string) error {
	if len(data) == 0 {
		return nil
	}

	fields := make(map[string]interface{}, len(data)+1)
	for k, v := range data {
		fields[dataFieldPfx+k] = v
	}
	fields["updated_at"] = time.Now().Unix()

	if err := r.client.HSet(ctx, instanceKey(id), fields).Err(); err != nil {
		return fmt.Errorf("merging instance data: %w", err)
	}
	return nil
}

// SetNextPollAfter records when a polling stage should run again
func (r *Repository) SetNextPollAfter(ctx context.Context, id string, at time.Time) error {
	err := r.client.HSet(ctx, instanceKey(id), map[string]interface{}{
		"next_poll_after": at.Unix(),
		"updated_at":      time.Now().Unix(),
	}).Err()
	if err != nil {
		return fmt.Errorf("setting next poll time: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (r *Repository) Close(ctx context.Context) error {
	return r.client.Close()
}

// GetClient returns the underlying Redis client for advanced operations
func (r *Repository) GetClient() *redis.Client {
	return r.client
}

// Helper functions

func instanceKey(id string) string {
	return fmt.Sprintf("%s:%s", hashPrefix, id)
}

func storeSetKey(storeID string) string {
	return fmt.Sprintf("%s:%s", storeSetPrefix, storeID)
}

func hydrate(fields map[string]string) instance.AppInstance {
	data := make(map[string]string)
	for k, v := range fields {
		if strings.HasPrefix(k, dataFieldPfx) {
			data[strings.TrimPrefix(k, dataFieldPfx)] = v
		}
	}

	return instance.AppInstance{
		ID:            fields["id"],
		StoreID:       fields["store_id"],
		AppID:         fields["app_id"],
		ProviderKey:   fields["provider_key"],
		Status:        instance.NewStatus(fields["status"]),
		NextPollAfter: time.Unix(parseInt64(fields["next_poll_after"]), 0),
		Data:          data,
		CreatedAt:     time.Unix(parseInt64(fields["created_at"]), 0),
		UpdatedAt:     time.Unix(parseInt64(fields["updated_at"]), 0),
	}
}

func parseInt64(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}
