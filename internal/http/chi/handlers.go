package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"
	"github.com/polydock/engine/instance"
	"github.com/polydock/engine/metrics"
	"github.com/polydock/engine/queue"
	"github.com/polydock/engine/webhook"
)

/* The API surface is administrative: instances are created and inspected
 * here, but all lifecycle progress happens in the workers. The only way the
 * API touches the pipeline is by enqueueing jobs.
 */

// Handlers sets up the lifecycle API routes
func Handlers(ctx context.Context, instanceService instance.UseCase, stages queue.Enqueuer, subscriptions webhook.Store, policy webhook.RedactionPolicy, collector metrics.Collector, promHandler http.Handler) *chi.Mux {
	logger := httplog.NewLogger("polydock-api", httplog.Options{
		JSON: true,
	})
	r := chi.NewRouter()
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Method(http.MethodGet, "/health", healthCheck())
	if promHandler != nil {
		r.Method(http.MethodGet, "/metrics", promHandler)
	}

	r.Method(http.MethodPost, "/v1/instances", postInstance(instanceService, policy))
	r.Method(http.MethodGet, "/v1/instances/{id}", getInstance(instanceService, policy))
	r.Method(http.MethodPost, "/v1/instances/{id}/remove", removeInstance(instanceService, policy))
	r.Method(http.MethodPost, "/v1/instances/{id}/health-poll", triggerHealthPoll(instanceService, stages))
	r.Method(http.MethodGet, "/v1/stores/{store_id}/instances", getStoreInstances(instanceService, policy))

	r.Method(http.MethodGet, "/v1/stores/{store_id}/subscriptions", getSubscriptions(subscriptions))
	r.Method(http.MethodPost, "/v1/stores/{store_id}/subscriptions", postSubscription(subscriptions))
	r.Method(http.MethodDelete, "/v1/subscriptions/{id}", deleteSubscription(subscriptions))

	if collector != nil {
		r.Method(http.MethodGet, "/v1/metrics", getMetrics(collector))
	}

	return r
}

// healthCheck handles GET /health
func healthCheck() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
}

// getMetrics handles GET /v1/metrics, the JSON view of system state
func getMetrics(collector metrics.Collector) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m, err := collector.Collect(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(m); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}
