// Package inmem is an in-memory implementation of the instance repository
// for testing and local development.
package inmem

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/polydock/engine/instance"
)

type Repository struct {
	mu        sync.RWMutex
	instances map[string]instance.AppInstance
}

func NewRepository() *Repository {
	return &Repository{
		instances: make(map[string]instance.AppInstance),
	}
}

func (r *Repository) Create(ctx context.Context, inst instance.AppInstance) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.instances[inst.ID]; ok {
		return fmt.Errorf("instance already exists: %s", inst.ID)
	}
	inst.Data = cloneMap(inst.Data)
	r.instances[inst.ID] = inst
	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (instance.AppInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inst, ok := r.instances[id]
	if !ok {
		return instance.AppInstance{}, fmt.Errorf("%w: %s", instance.ErrNotFound, id)
	}
	inst.Data = cloneMap(inst.Data)
	return inst, nil
}

func (r *Repository) ListByStore(ctx context.Context, storeID string, limit int) ([]instance.AppInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []instance.AppInstance
	for _, inst := range r.instances {
		if inst.StoreID != storeID {
			continue
		}
		if limit > 0 && len(out) >= limit {
			break
		}
		inst.Data = cloneMap(inst.Data)
		out = append(out, inst)
	}
	return out, nil
}

func (r *Repository) ListPending(ctx context.Context) ([]instance.AppInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []instance.AppInstance
	for _, inst := range r.instances {
		if inst.Status.IsPending() || inst.Status == instance.StatusNew {
			inst.Data = cloneMap(inst.Data)
			out = append(out, inst)
		}
	}
	return out, nil
}

// UpdateStatus mirrors the conditional write of the Redis repository: the
// update only lands when the stored status still equals from.
func (r *Repository) UpdateStatus(ctx context.Context, id string, from, to instance.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	inst, ok := r.instances[id]
	if !ok {
		return fmt.Errorf("%w: %s", instance.ErrNotFound, id)
	}
	if inst.Status != from {
		return instance.NewStatusFlowError(id, from, inst.Status)
	}
	inst.Status = to
	inst.UpdatedAt = time.Now()
	r.instances[id] = inst
	return nil
}

func (r *Repository) MergeData(ctx context.Context, id string, data map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	inst, ok := r.instances[id]
	if !ok {
		return fmt.Errorf("%w: %s", instance.ErrNotFound, id)
	}
	if inst.Data == nil {
		inst.Data = make(map[string]string)
	} else {
		inst.Data = cloneMap(inst.Data)
	}
	for k, v := range data {
		inst.Data[k] = v
	}
	inst.UpdatedAt = time.Now()
	r.instances[id] = inst
	return nil
}

func (r *Repository) SetNextPollAfter(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	inst, ok := r.instances[id]
	if !ok {
		return fmt.Errorf("%w: %s", instance.ErrNotFound, id)
	}
	inst.NextPollAfter = at
	inst.UpdatedAt = time.Now()
	r.instances[id] = inst
	return nil
}

func (r *Repository) Close(ctx context.Context) error {
	return nil
}

func cloneMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
