package instance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

/* Service represents the business logic layer for instance creation and lookup.
 * Uses pointer semantics as it's an API, not data.
 */

// UseCase defines the business operations for app instance management
type UseCase interface {
	Create(ctx context.Context, storeID, appID, providerKey string) (AppInstance, error)
	Claim(ctx context.Context, storeID, appID, providerKey string) (AppInstance, error)
	Get(ctx context.Context, id string) (AppInstance, error)
	ListByStore(ctx context.Context, storeID string, limit int) ([]AppInstance, error)
	Remove(ctx context.Context, id string) (AppInstance, error)
}

// Notifier receives lifecycle events raised by the service.
// The cascade dispatcher implements this; the service only declares it.
type Notifier interface {
	InstanceCreated(ctx context.Context, inst AppInstance)
	// StatusChanged announces a status the service itself persisted, so
	// subscribers see service-side transitions the same as stage ones.
	StatusChanged(ctx context.Context, inst AppInstance, from, to Status)
}

type Service struct {
	Repo   Repository
	Events Notifier
}

// NewService creates a new instance service with dependency injection
func NewService(repo Repository, events Notifier) *Service {
	return &Service{
		Repo:   repo,
		Events: events,
	}
}

// Create registers a new app instance in status new and announces it,
// which is what drives the process-new stage onto the queue.
func (s *Service) Create(ctx context.Context, storeID, appID, providerKey string) (AppInstance, error) {
	return s.create(ctx, storeID, appID, providerKey, StatusNew)
}

// Claim reserves an instance for an external registration flow. The claim
// stage moves it to new once the reservation completes.
func (s *Service) Claim(ctx context.Context, storeID, appID, providerKey string) (AppInstance, error) {
	return s.create(ctx, storeID, appID, providerKey, StatusPendingPolydockClaim)
}

func (s *Service) create(ctx context.Context, storeID, appID, providerKey string, status Status) (AppInstance, error) {
	if providerKey == "" {
		return AppInstance{}, fmt.Errorf("provider key is required")
	}

	now := time.Now()
	inst := AppInstance{
		ID:          uuid.New().String(),
		StoreID:     storeID,
		AppID:       appID,
		ProviderKey: providerKey,
		Status:      status,
		Data:        map[string]string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.Repo.Create(ctx, inst); err != nil {
		return AppInstance{}, fmt.Errorf("storing instance: %w", err)
	}

	if s.Events != nil {
		s.Events.InstanceCreated(ctx, inst)
	}

	return inst, nil
}

// Get retrieves an app instance by ID
func (s *Service) Get(ctx context.Context, id string) (AppInstance, error) {
	inst, err := s.Repo.Get(ctx, id)
	if err != nil {
		return AppInstance{}, fmt.Errorf("getting instance: %w", err)
	}
	return inst, nil
}

/* Remove starts the teardown pipeline for a running instance. The status
 * write is conditional, so two concurrent remove requests cannot both win:
 * the loser gets a *StatusFlowError.
 */
func (s *Service) Remove(ctx context.Context, id string) (AppInstance, error) {
	inst, err := s.Repo.Get(ctx, id)
	if err != nil {
		return AppInstance{}, fmt.Errorf("getting instance: %w", err)
	}
	if err := s.Repo.UpdateStatus(ctx, id, StatusRunning, StatusPendingPreRemove); err != nil {
		return AppInstance{}, fmt.Errorf("starting removal: %w", err)
	}
	inst.Status = StatusPendingPreRemove
	inst.UpdatedAt = time.Now()

	if s.Events != nil {
		s.Events.StatusChanged(ctx, inst, StatusRunning, StatusPendingPreRemove)
	}

	return inst, nil
}

// ListByStore retrieves the app instances belonging to one store
func (s *Service) ListByStore(ctx context.Context, storeID string, limit int) ([]AppInstance, error) {
	all, err := s.Repo.ListByStore(ctx, storeID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing instances: %w", err)
	}
	return all, nil
}
