package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/polydock/engine/instance"
	instancemocks "github.com/polydock/engine/instance/mocks"
	"github.com/polydock/engine/queue"
	queuemocks "github.com/polydock/engine/queue/mocks"
	"github.com/polydock/engine/webhook"
	webhookmocks "github.com/polydock/engine/webhook/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newHandlers(s instance.UseCase, stages queue.Enqueuer, store webhook.Store) http.Handler {
	return Handlers(context.Background(), s, stages, store, webhook.DefaultRedactionPolicy(), nil, nil)
}

func testAppInstance() instance.AppInstance {
	now := time.Now().UTC().Truncate(time.Second)
	return instance.AppInstance{
		ID:          "inst-1",
		StoreID:     "store-1",
		AppID:       "app-1",
		ProviderKey: "noop",
		Status:      instance.StatusRunning,
		Data: map[string]string{
			"app_url":           "https://app.example.com",
			"database_password": "hunter2",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestHealthCheck(t *testing.T) {
	h := newHandlers(instancemocks.NewUseCase(t), queuemocks.NewEnqueuer(t), webhookmocks.NewStore(t))
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPostInstance(t *testing.T) {
	t.Run("create", func(t *testing.T) {
		s := instancemocks.NewUseCase(t)
		inst := testAppInstance()
		inst.Status = instance.StatusPendingPreCreate
		s.On("Create", mock.Anything, "store-1", "app-1", "noop").Return(inst, nil)

		h := newHandlers(s, queuemocks.NewEnqueuer(t), webhookmocks.NewStore(t))
		body := bytes.NewBufferString(`{"store_id":"store-1","app_id":"app-1","provider_key":"noop"}`)
		req := httptest.NewRequest(http.MethodPost, "/v1/instances", body)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusAccepted, w.Code)
		var resp instanceResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "inst-1", resp.ID)
		assert.Equal(t, "pending_pre_create", resp.Status)
		assert.Equal(t, "https://app.example.com", resp.Data["app_url"])
		assert.NotContains(t, resp.Data, "database_password")
	})
	t.Run("claim", func(t *testing.T) {
		s := instancemocks.NewUseCase(t)
		inst := testAppInstance()
		inst.Status = instance.StatusPendingPolydockClaim
		s.On("Claim", mock.Anything, "store-1", "app-1", "noop").Return(inst, nil)

		h := newHandlers(s, queuemocks.NewEnqueuer(t), webhookmocks.NewStore(t))
		body := bytes.NewBufferString(`{"store_id":"store-1","app_id":"app-1","provider_key":"noop","claim":true}`)
		req := httptest.NewRequest(http.MethodPost, "/v1/instances", body)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusAccepted, w.Code)
		var resp instanceResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "pending_polydock_claim", resp.Status)
	})
	t.Run("missing fields", func(t *testing.T) {
		h := newHandlers(instancemocks.NewUseCase(t), queuemocks.NewEnqueuer(t), webhookmocks.NewStore(t))
		body := bytes.NewBufferString(`{"store_id":"store-1"}`)
		req := httptest.NewRequest(http.MethodPost, "/v1/instances", body)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetInstance(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		s := instancemocks.NewUseCase(t)
		s.On("Get", mock.Anything, "inst-1").Return(testAppInstance(), nil)

		h := newHandlers(s, queuemocks.NewEnqueuer(t), webhookmocks.NewStore(t))
		req := httptest.NewRequest(http.MethodGet, "/v1/instances/inst-1", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp instanceResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "running", resp.Status)
		assert.NotContains(t, resp.Data, "database_password")
	})
	t.Run("not found", func(t *testing.T) {
		s := instancemocks.NewUseCase(t)
		s.On("Get", mock.Anything, "missing").Return(instance.AppInstance{}, instance.ErrNotFound)

		h := newHandlers(s, queuemocks.NewEnqueuer(t), webhookmocks.NewStore(t))
		req := httptest.NewRequest(http.MethodGet, "/v1/instances/missing", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestGetStoreInstances(t *testing.T) {
	s := instancemocks.NewUseCase(t)
	s.On("ListByStore", mock.Anything, "store-1", 100).Return([]instance.AppInstance{testAppInstance()}, nil)

	h := newHandlers(s, queuemocks.NewEnqueuer(t), webhookmocks.NewStore(t))
	req := httptest.NewRequest(http.MethodGet, "/v1/stores/store-1/instances", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp []instanceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "inst-1", resp[0].ID)
}

func TestRemoveInstance(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		s := instancemocks.NewUseCase(t)
		inst := testAppInstance()
		inst.Status = instance.StatusPendingPreRemove
		s.On("Remove", mock.Anything, "inst-1").Return(inst, nil)

		// The cascade owns the pre-remove enqueue, so the handler must not
		// touch the queue itself.
		h := newHandlers(s, queuemocks.NewEnqueuer(t), webhookmocks.NewStore(t))
		req := httptest.NewRequest(http.MethodPost, "/v1/instances/inst-1/remove", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusAccepted, w.Code)
		var resp instanceResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "pending_pre_remove", resp.Status)
	})
	t.Run("not running", func(t *testing.T) {
		s := instancemocks.NewUseCase(t)
		flowErr := instance.NewStatusFlowError("inst-1", instance.StatusRunning, instance.StatusPendingDeploy)
		s.On("Remove", mock.Anything, "inst-1").Return(instance.AppInstance{}, flowErr)

		h := newHandlers(s, queuemocks.NewEnqueuer(t), webhookmocks.NewStore(t))
		req := httptest.NewRequest(http.MethodPost, "/v1/instances/inst-1/remove", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusConflict, w.Code)
	})
	t.Run("not found", func(t *testing.T) {
		s := instancemocks.NewUseCase(t)
		s.On("Remove", mock.Anything, "missing").Return(instance.AppInstance{}, instance.ErrNotFound)

		h := newHandlers(s, queuemocks.NewEnqueuer(t), webhookmocks.NewStore(t))
		req := httptest.NewRequest(http.MethodPost, "/v1/instances/missing/remove", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestTriggerHealthPoll(t *testing.T) {
	t.Run("running", func(t *testing.T) {
		s := instancemocks.NewUseCase(t)
		s.On("Get", mock.Anything, "inst-1").Return(testAppInstance(), nil)

		stages := queuemocks.NewEnqueuer(t)
		stages.On("Enqueue", mock.Anything, mock.MatchedBy(func(job queue.Job) bool {
			return job.Kind == queue.KindHealthPoll && job.InstanceID == "inst-1"
		})).Return(nil)

		h := newHandlers(s, stages, webhookmocks.NewStore(t))
		req := httptest.NewRequest(http.MethodPost, "/v1/instances/inst-1/health-poll", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusAccepted, w.Code)
	})
	t.Run("not running", func(t *testing.T) {
		s := instancemocks.NewUseCase(t)
		inst := testAppInstance()
		inst.Status = instance.StatusPendingDeploy
		s.On("Get", mock.Anything, "inst-1").Return(inst, nil)

		h := newHandlers(s, queuemocks.NewEnqueuer(t), webhookmocks.NewStore(t))
		req := httptest.NewRequest(http.MethodPost, "/v1/instances/inst-1/health-poll", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestSubscriptions(t *testing.T) {
	t.Run("list", func(t *testing.T) {
		store := webhookmocks.NewStore(t)
		store.On("ActiveForStore", mock.Anything, "store-1").Return([]webhook.Subscription{
			{ID: "sub-1", StoreID: "store-1", TargetURL: "https://hooks.example.com", Active: true},
		}, nil)

		h := newHandlers(instancemocks.NewUseCase(t), queuemocks.NewEnqueuer(t), store)
		req := httptest.NewRequest(http.MethodGet, "/v1/stores/store-1/subscriptions", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp []subscriptionResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp, 1)
		assert.Equal(t, "https://hooks.example.com", resp[0].TargetURL)
	})
	t.Run("register", func(t *testing.T) {
		store := webhookmocks.NewStore(t)
		store.On("SaveSubscription", mock.Anything, mock.MatchedBy(func(sub webhook.Subscription) bool {
			return sub.StoreID == "store-1" && sub.TargetURL == "https://hooks.example.com" && sub.Active && sub.ID != ""
		})).Return(nil)

		h := newHandlers(instancemocks.NewUseCase(t), queuemocks.NewEnqueuer(t), store)
		body := bytes.NewBufferString(`{"target_url":"https://hooks.example.com"}`)
		req := httptest.NewRequest(http.MethodPost, "/v1/stores/store-1/subscriptions", body)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		var resp subscriptionResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Active)
	})
	t.Run("register without target", func(t *testing.T) {
		h := newHandlers(instancemocks.NewUseCase(t), queuemocks.NewEnqueuer(t), webhookmocks.NewStore(t))
		req := httptest.NewRequest(http.MethodPost, "/v1/stores/store-1/subscriptions", bytes.NewBufferString(`{}`))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
	t.Run("delete", func(t *testing.T) {
		store := webhookmocks.NewStore(t)
		store.On("DeleteSubscription", mock.Anything, "sub-1").Return(nil)

		h := newHandlers(instancemocks.NewUseCase(t), queuemocks.NewEnqueuer(t), store)
		req := httptest.NewRequest(http.MethodDelete, "/v1/subscriptions/sub-1", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}
