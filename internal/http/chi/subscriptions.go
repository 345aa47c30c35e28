package chi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/polydock/engine/webhook"
)

// subscriptionRequest represents the payload for registering a webhook endpoint
type subscriptionRequest struct {
	TargetURL string `json:"target_url"`
}

// subscriptionResponse represents a webhook subscription in the API
type subscriptionResponse struct {
	ID        string    `json:"id"`
	StoreID   string    `json:"store_id"`
	TargetURL string    `json:"target_url"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// getSubscriptions handles GET /v1/stores/{store_id}/subscriptions
func getSubscriptions(store webhook.SubscriptionReader) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		storeID := chi.URLParam(r, "store_id")
		subs, err := store.ActiveForStore(r.Context(), storeID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		result := make([]subscriptionResponse, 0, len(subs))
		for _, sub := range subs {
			result = append(result, subscriptionResponse{
				ID:        sub.ID,
				StoreID:   sub.StoreID,
				TargetURL: sub.TargetURL,
				Active:    sub.Active,
				CreatedAt: sub.CreatedAt,
			})
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(result); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

// postSubscription handles POST /v1/stores/{store_id}/subscriptions
func postSubscription(store webhook.SubscriptionWriter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		storeID := chi.URLParam(r, "store_id")
		var req subscriptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.TargetURL == "" {
			http.Error(w, "target_url is required", http.StatusBadRequest)
			return
		}

		now := time.Now()
		sub := webhook.Subscription{
			ID:        uuid.New().String(),
			StoreID:   storeID,
			TargetURL: req.TargetURL,
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := store.SaveSubscription(r.Context(), sub); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		if err := json.NewEncoder(w).Encode(subscriptionResponse{
			ID:        sub.ID,
			StoreID:   sub.StoreID,
			TargetURL: sub.TargetURL,
			Active:    sub.Active,
			CreatedAt: sub.CreatedAt,
		}); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

// deleteSubscription handles DELETE /v1/subscriptions/{id}
func deleteSubscription(store webhook.SubscriptionWriter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := store.DeleteSubscription(r.Context(), id); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}
