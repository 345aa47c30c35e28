package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/polydock/engine/instance"
	"github.com/polydock/engine/queue"
	"github.com/polydock/engine/webhook"
)

/* HTTP layer DTOs for the instance API.
 * Separate from domain entities to avoid leaking internal structure, and
 * instance data always passes through the redaction policy on the way out.
 */

// instanceRequest represents the payload for creating an instance
type instanceRequest struct {
	StoreID     string `json:"store_id"`
	AppID       string `json:"app_id"`
	ProviderKey string `json:"provider_key"`
	// Claim asks for a pre-registration reservation instead of a direct create
	Claim bool `json:"claim"`
}

// instanceResponse represents an app instance in the API
type instanceResponse struct {
	ID            string            `json:"id"`
	StoreID       string            `json:"store_id"`
	AppID         string            `json:"app_id"`
	ProviderKey   string            `json:"provider_key"`
	Status        string            `json:"status"`
	Data          map[string]string `json:"data,omitempty"`
	NextPollAfter *time.Time        `json:"next_poll_after,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

func toInstanceResponse(inst instance.AppInstance, policy webhook.RedactionPolicy) instanceResponse {
	resp := instanceResponse{
		ID:          inst.ID,
		StoreID:     inst.StoreID,
		AppID:       inst.AppID,
		ProviderKey: inst.ProviderKey,
		Status:      inst.Status.String(),
		Data:        policy.Redact(inst.Data),
		CreatedAt:   inst.CreatedAt,
		UpdatedAt:   inst.UpdatedAt,
	}
	if !inst.NextPollAfter.IsZero() {
		at := inst.NextPollAfter
		resp.NextPollAfter = &at
	}
	return resp
}

// postInstance handles POST /v1/instances
func postInstance(instanceService instance.UseCase, policy webhook.RedactionPolicy) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req instanceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.StoreID == "" || req.AppID == "" || req.ProviderKey == "" {
			http.Error(w, "store_id, app_id and provider_key are required", http.StatusBadRequest)
			return
		}

		var (
			inst instance.AppInstance
			err  error
		)
		if req.Claim {
			inst, err = instanceService.Claim(r.Context(), req.StoreID, req.AppID, req.ProviderKey)
		} else {
			inst, err = instanceService.Create(r.Context(), req.StoreID, req.AppID, req.ProviderKey)
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		// Provisioning continues asynchronously in the workers
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		if err := json.NewEncoder(w).Encode(toInstanceResponse(inst, policy)); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

// getInstance handles GET /v1/instances/{id}
func getInstance(instanceService instance.UseCase, policy webhook.RedactionPolicy) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		inst, err := instanceService.Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, instance.ErrNotFound) {
				http.Error(w, "instance not found", http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(toInstanceResponse(inst, policy)); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

// getStoreInstances handles GET /v1/stores/{store_id}/instances
func getStoreInstances(instanceService instance.UseCase, policy webhook.RedactionPolicy) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		storeID := chi.URLParam(r, "store_id")
		all, err := instanceService.ListByStore(r.Context(), storeID, 100)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		result := make([]instanceResponse, 0, len(all))
		for _, inst := range all {
			result = append(result, toInstanceResponse(inst, policy))
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(result); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

// removeInstance handles POST /v1/instances/{id}/remove.
// The service publishes the status change; the cascade enqueues the
// pre-remove stage and notifies webhook subscribers from there.
func removeInstance(instanceService instance.UseCase, policy webhook.RedactionPolicy) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		inst, err := instanceService.Remove(r.Context(), id)
		if err != nil {
			switch {
			case errors.Is(err, instance.ErrNotFound):
				http.Error(w, "instance not found", http.StatusNotFound)
			case errors.Is(err, instance.ErrStatusFlow):
				http.Error(w, "instance is not running", http.StatusConflict)
			default:
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		if err := json.NewEncoder(w).Encode(toInstanceResponse(inst, policy)); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

// triggerHealthPoll handles POST /v1/instances/{id}/health-poll
func triggerHealthPoll(instanceService instance.UseCase, stages queue.Enqueuer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		inst, err := instanceService.Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, instance.ErrNotFound) {
				http.Error(w, "instance not found", http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if inst.Status != instance.StatusRunning {
			http.Error(w, "instance is not running", http.StatusConflict)
			return
		}

		job := queue.Job{
			ID:         uuid.New().String(),
			Kind:       queue.KindHealthPoll,
			InstanceID: inst.ID,
		}
		if err := stages.Enqueue(r.Context(), job); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})
}
