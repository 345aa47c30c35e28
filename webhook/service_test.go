package webhook_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/polydock/engine/cascade"
	"github.com/polydock/engine/instance"
	"github.com/polydock/engine/instance/inmem"
	"github.com/polydock/engine/webhook"
	"github.com/polydock/engine/webhook/mocks"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// memCache is an in-process cache.Cache for exercising the subscription
// lookup path without Redis
type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{entries: map[string][]byte{}}
}

func (c *memCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok, nil
}

func (c *memCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *memCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func statusChange(data map[string]string) cascade.StatusChange {
	return cascade.StatusChange{
		InstanceID: "inst-1",
		StoreID:    "store-1",
		From:       instance.StatusPendingPostDeploy,
		To:         instance.StatusRunning,
		Data:       data,
		At:         time.Now(),
	}
}

func TestHandleStatusChange(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers one call per subscription", func(t *testing.T) {
		var received []webhook.Payload
		var mu sync.Mutex
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var p webhook.Payload
			require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
			mu.Lock()
			received = append(received, p)
			mu.Unlock()
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		store := mocks.NewStore(t)
		store.On("ActiveForStore", ctx, "store-1").Return([]webhook.Subscription{
			{ID: "sub-1", StoreID: "store-1", TargetURL: server.URL, Active: true},
			{ID: "sub-2", StoreID: "store-1", TargetURL: server.URL, Active: true},
		}, nil)
		store.On("CreateCall", ctx, mock.MatchedBy(func(call webhook.Call) bool {
			return call.Status == webhook.Pending && call.Event == "instance.status_changed"
		})).Return(nil).Twice()
		store.On("MarkSuccess", ctx, mock.AnythingOfType("string"), http.StatusOK, "").Return(nil).Twice()

		service, err := webhook.NewService(store, nil, webhook.Config{}, zerolog.Nop())
		require.NoError(t, err)

		err = service.HandleStatusChange(ctx, statusChange(map[string]string{
			"app_url":           "https://example.test",
			"database_password": "hunter2",
		}))
		require.NoError(t, err)

		require.Len(t, received, 2, "one delivery per subscription")
		for _, p := range received {
			assert.Equal(t, "running", p.NewStatus)
			assert.Equal(t, "https://example.test", p.Data["app_url"])
			assert.NotContains(t, p.Data, "database_password", "payload is redacted")
		}
	})

	t.Run("no subscriptions, no calls", func(t *testing.T) {
		store := mocks.NewStore(t)
		store.On("ActiveForStore", ctx, "store-1").Return(nil, nil)

		service, err := webhook.NewService(store, nil, webhook.Config{}, zerolog.Nop())
		require.NoError(t, err)

		require.NoError(t, service.HandleStatusChange(ctx, statusChange(nil)))
	})

	t.Run("failed delivery schedules a retry", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "try later", http.StatusServiceUnavailable)
		}))
		defer server.Close()

		store := mocks.NewStore(t)
		store.On("ActiveForStore", ctx, "store-1").Return([]webhook.Subscription{
			{ID: "sub-1", StoreID: "store-1", TargetURL: server.URL, Active: true},
		}, nil)
		store.On("CreateCall", ctx, mock.Anything).Return(nil)
		store.On("MarkFailed", ctx, mock.AnythingOfType("string"), http.StatusServiceUnavailable,
			mock.AnythingOfType("string"), mock.MatchedBy(func(at time.Time) bool {
				return at.After(time.Now())
			})).Return(nil)

		service, err := webhook.NewService(store, nil, webhook.Config{}, zerolog.Nop())
		require.NoError(t, err)

		require.NoError(t, service.HandleStatusChange(ctx, statusChange(nil)))
	})

	t.Run("subscriptions served from cache on second event", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		store := mocks.NewStore(t)
		store.On("ActiveForStore", ctx, "store-1").Return([]webhook.Subscription{
			{ID: "sub-1", StoreID: "store-1", TargetURL: server.URL, Active: true},
		}, nil).Once()
		store.On("CreateCall", ctx, mock.Anything).Return(nil).Twice()
		store.On("MarkSuccess", ctx, mock.AnythingOfType("string"), http.StatusOK, "").Return(nil).Twice()

		service, err := webhook.NewService(store, newMemCache(), webhook.Config{}, zerolog.Nop())
		require.NoError(t, err)

		require.NoError(t, service.HandleStatusChange(ctx, statusChange(nil)))
		require.NoError(t, service.HandleStatusChange(ctx, statusChange(nil)))
	})
}

func TestAttempt(t *testing.T) {
	ctx := context.Background()

	t.Run("exhausted budget finalizes the call", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusBadGateway)
		}))
		defer server.Close()

		store := mocks.NewStore(t)
		// Zero nextRetryAt marks the budget exhausted
		store.On("MarkFailed", ctx, "call-1", http.StatusBadGateway,
			mock.AnythingOfType("string"), time.Time{}).Return(nil)

		service, err := webhook.NewService(store, nil, webhook.Config{MaxAttempts: 3}, zerolog.Nop())
		require.NoError(t, err)

		service.Attempt(ctx, webhook.Call{
			ID:          "call-1",
			TargetURL:   server.URL,
			Payload:     []byte(`{}`),
			Status:      webhook.Failed,
			Attempts:    2,
			MaxAttempts: 3,
		})
	})

	t.Run("unreachable endpoint counts as failure", func(t *testing.T) {
		store := mocks.NewStore(t)
		store.On("MarkFailed", ctx, "call-1", 0, "", mock.AnythingOfType("time.Time")).Return(nil)

		service, err := webhook.NewService(store, nil, webhook.Config{}, zerolog.Nop())
		require.NoError(t, err)

		service.Attempt(ctx, webhook.Call{
			ID:          "call-1",
			TargetURL:   "http://127.0.0.1:1/unreachable",
			Payload:     []byte(`{}`),
			MaxAttempts: 5,
		})
	})

	t.Run("success is final", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		store := mocks.NewStore(t)
		store.On("MarkSuccess", ctx, "call-1", http.StatusNoContent, "").Return(nil)

		service, err := webhook.NewService(store, nil, webhook.Config{}, zerolog.Nop())
		require.NoError(t, err)

		service.Attempt(ctx, webhook.Call{
			ID:          "call-1",
			TargetURL:   server.URL,
			Payload:     []byte(`{}`),
			MaxAttempts: 5,
		})
	})
}

func TestRetrier(t *testing.T) {
	ctx := context.Background()

	t.Run("re-attempts due calls", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		store := mocks.NewStore(t)
		store.On("DueForRetry", ctx, mock.AnythingOfType("time.Time"), 100).Return([]webhook.Call{
			{ID: "call-1", TargetURL: server.URL, Payload: []byte(`{}`), Attempts: 1, MaxAttempts: 5},
		}, nil)
		store.On("MarkSuccess", ctx, "call-1", http.StatusOK, "").Return(nil)

		service, err := webhook.NewService(store, nil, webhook.Config{}, zerolog.Nop())
		require.NoError(t, err)

		tried, err := webhook.NewRetrier(store, service, zerolog.Nop()).RunOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, tried)
	})

	t.Run("nothing due", func(t *testing.T) {
		store := mocks.NewStore(t)
		store.On("DueForRetry", ctx, mock.AnythingOfType("time.Time"), 100).Return(nil, nil)

		service, err := webhook.NewService(store, nil, webhook.Config{}, zerolog.Nop())
		require.NoError(t, err)

		tried, err := webhook.NewRetrier(store, service, zerolog.Nop()).RunOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, tried)
	})
}

/* The removal kickoff is persisted by the instance service rather than a
 * stage job, and must reach subscribers all the same: one call record and
 * one delivery for running -> pending_pre_remove.
 */
func TestRemovalNotifiesSubscribers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	delivered := make(chan webhook.Payload, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p webhook.Payload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		delivered <- p
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	store := mocks.NewStore(t)
	store.On("ActiveForStore", mock.Anything, "store-1").Return([]webhook.Subscription{
		{ID: "sub-1", StoreID: "store-1", TargetURL: server.URL, Active: true},
	}, nil)
	store.On("CreateCall", mock.Anything, mock.MatchedBy(func(call webhook.Call) bool {
		return call.Status == webhook.Pending && call.SubscriptionID == "sub-1"
	})).Return(nil)
	markedSuccess := make(chan struct{})
	store.On("MarkSuccess", mock.Anything, mock.AnythingOfType("string"), http.StatusOK, "").
		Run(func(mock.Arguments) { close(markedSuccess) }).Return(nil)

	service, err := webhook.NewService(store, nil, webhook.Config{}, zerolog.Nop())
	require.NoError(t, err)

	dispatcher := cascade.NewDispatcher(zerolog.Nop()).Subscribe(service)
	go dispatcher.Run(ctx)

	repo := inmem.NewRepository()
	instances := instance.NewService(repo, dispatcher)
	require.NoError(t, repo.Create(ctx, instance.AppInstance{
		ID:      "inst-1",
		StoreID: "store-1",
		Status:  instance.StatusRunning,
		Data:    map[string]string{"app_url": "https://app.example.com"},
	}))

	_, err = instances.Remove(ctx, "inst-1")
	require.NoError(t, err)

	select {
	case p := <-delivered:
		assert.Equal(t, "instance.status_changed", p.Event)
		assert.Equal(t, "inst-1", p.InstanceID)
		assert.Equal(t, "running", p.PreviousStatus)
		assert.Equal(t, "pending_pre_remove", p.NewStatus)
		assert.Equal(t, "https://app.example.com", p.Data["app_url"])
	case <-time.After(2 * time.Second):
		t.Fatal("removal produced no webhook delivery")
	}

	// The delivery goroutine records the outcome after the subscriber has
	// responded; wait for it before the mock asserts its expectations.
	select {
	case <-markedSuccess:
	case <-time.After(2 * time.Second):
		t.Fatal("removal delivery outcome was not recorded")
	}
}

func TestAttemptSkipsFinalCalls(t *testing.T) {
	ctx := context.Background()

	var posts int
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		posts++
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	// No store expectations: a final call must touch neither the wire nor
	// the store.
	store := mocks.NewStore(t)
	service, err := webhook.NewService(store, nil, webhook.Config{}, zerolog.Nop())
	require.NoError(t, err)

	t.Run("succeeded call", func(t *testing.T) {
		service.Attempt(ctx, webhook.Call{
			ID:        "call-1",
			TargetURL: server.URL,
			Status:    webhook.Success,
		})
		assert.Equal(t, 0, posts)
	})

	t.Run("exhausted failed call", func(t *testing.T) {
		service.Attempt(ctx, webhook.Call{
			ID:          "call-2",
			TargetURL:   server.URL,
			Status:      webhook.Failed,
			Attempts:    3,
			MaxAttempts: 3,
		})
		assert.Equal(t, 0, posts)
	})

	t.Run("failed call with a retry scheduled is not final", func(t *testing.T) {
		call := webhook.Call{
			ID:          "call-3",
			Status:      webhook.Failed,
			Attempts:    1,
			MaxAttempts: 3,
			NextRetryAt: time.Now().Add(time.Minute),
		}
		assert.False(t, call.Final())
	})

	t.Run("pending call is not final", func(t *testing.T) {
		assert.False(t, webhook.Call{Status: webhook.Pending}.Final())
	})
}
