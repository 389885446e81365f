package studio_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lumeoai/lumeo/modules/studio"
	"github.com/lumeoai/lumeo/pkg/storage"
	"github.com/lumeoai/lumeo/pkg/subscription"
	"github.com/lumeoai/lumeo/pkg/training"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) SubmitTraining(ctx context.Context, req training.TrainingRequest) (*training.Job, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*training.Job), args.Error(1)
}

func (m *mockProvider) JobStatus(ctx context.Context, requestID string) (*training.Job, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*training.Job), args.Error(1)
}

type testEnv struct {
	module   *studio.Module
	svc      subscription.Service
	provider *mockProvider
	root     string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	catalog, err := subscription.NewCatalog(context.Background(),
		subscription.NewInMemSource(subscription.DefaultPlans()...))
	require.NoError(t, err)
	svc := subscription.NewService(catalog, subscription.NewMemoryStore(),
		subscription.NewNoopBillingProvider())

	root := t.TempDir()
	store, err := storage.NewLocalStorage(root, "/uploads/")
	require.NoError(t, err)

	provider := &mockProvider{}
	coordinator := training.NewCoordinator(svc, provider)

	module := studio.NewModule(store, coordinator, svc, func(r *http.Request) (string, error) {
		userID := r.Header.Get("X-Test-User")
		if userID == "" {
			return "", assert.AnError
		}
		return userID, nil
	})

	return &testEnv{module: module, svc: svc, provider: provider, root: root}
}

func (e *testEnv) subscribe(t *testing.T, userID string, tier subscription.Tier) {
	t.Helper()
	_, err := e.svc.Subscribe(context.Background(), userID, tier, subscription.CycleMonthly,
		subscription.PaymentConfirmation{TransactionID: "txn", Tier: tier, Cycle: subscription.CycleMonthly})
	require.NoError(t, err)
}

func TestModule_UploadPhoto(t *testing.T) {
	t.Parallel()

	t.Run("stores a supported image", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		req := httptest.NewRequest(http.MethodPost, "/models/m1/photos",
			strings.NewReader("fake-png-bytes"))
		req.Header.Set("X-Test-User", "u1")
		req.Header.Set("Content-Type", "image/png")
		rec := httptest.NewRecorder()
		env.module.Handle().ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var resp struct {
			FileID string `json:"file_id"`
			URL    string `json:"url"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.FileID)

		key := storage.TrainingInputKey("u1", "m1", resp.FileID, ".png")
		assert.FileExists(t, filepath.Join(env.root, filepath.FromSlash(key)))
	})

	t.Run("rejects unsupported content types", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		req := httptest.NewRequest(http.MethodPost, "/models/m1/photos",
			strings.NewReader("<svg/>"))
		req.Header.Set("X-Test-User", "u1")
		req.Header.Set("Content-Type", "image/svg+xml")
		rec := httptest.NewRecorder()
		env.module.Handle().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	})

	t.Run("requires authentication", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		req := httptest.NewRequest(http.MethodPost, "/models/m1/photos", strings.NewReader("x"))
		req.Header.Set("Content-Type", "image/png")
		rec := httptest.NewRecorder()
		env.module.Handle().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestModule_TrainModel(t *testing.T) {
	t.Parallel()

	trainBody := `{"image_urls":["https://cdn.example.com/1.jpg"],"trigger_phrase":"ohwx person"}`

	t.Run("submits and charges credits", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.subscribe(t, "u1", subscription.TierPro)
		env.provider.On("SubmitTraining", mock.Anything, mock.Anything).
			Return(&training.Job{RequestID: "req-1", Status: training.StatusQueued}, nil)

		req := httptest.NewRequest(http.MethodPost, "/models", strings.NewReader(trainBody))
		req.Header.Set("X-Test-User", "u1")
		rec := httptest.NewRecorder()
		env.module.Handle().ServeHTTP(rec, req)

		require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

		var job struct {
			RequestID string `json:"request_id"`
			Status    string `json:"status"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
		assert.Equal(t, "req-1", job.RequestID)
		assert.Equal(t, "queued", job.Status)

		sub, err := env.svc.GetSubscription(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, 1000-training.DefaultTrainingCost, sub.AvailableCredits)
		assert.Equal(t, 1, sub.ModelsCreated)
	})

	t.Run("rejects users without a subscription", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		req := httptest.NewRequest(http.MethodPost, "/models", strings.NewReader(trainBody))
		req.Header.Set("X-Test-User", "ghost")
		rec := httptest.NewRecorder()
		env.module.Handle().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("rejects submissions without images", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.subscribe(t, "u1", subscription.TierPro)
		env.provider.On("SubmitTraining", mock.Anything, mock.Anything).
			Return(nil, training.ErrNoTrainingImages)

		req := httptest.NewRequest(http.MethodPost, "/models", strings.NewReader(`{}`))
		req.Header.Set("X-Test-User", "u1")
		rec := httptest.NewRecorder()
		env.module.Handle().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestModule_JobStatus(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.provider.On("JobStatus", mock.Anything, "req-1").
		Return(&training.Job{
			RequestID: "req-1",
			Status:    training.StatusCompleted,
			ModelURL:  "https://fal.media/lora/req-1.safetensors",
		}, nil)

	req := httptest.NewRequest(http.MethodGet, "/jobs/req-1", nil)
	req.Header.Set("X-Test-User", "u1")
	rec := httptest.NewRecorder()
	env.module.Handle().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "req-1.safetensors")
}

func TestModule_Limits(t *testing.T) {
	t.Parallel()

	t.Run("subscribed user", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.subscribe(t, "u1", subscription.TierPremium)

		req := httptest.NewRequest(http.MethodGet, "/limits", nil)
		req.Header.Set("X-Test-User", "u1")
		rec := httptest.NewRecorder()
		env.module.Handle().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var limits struct {
			CanCreateModel    bool `json:"can_create_model"`
			MaxParallelImages int  `json:"max_parallel_images"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &limits))
		assert.True(t, limits.CanCreateModel)
		assert.Equal(t, 8, limits.MaxParallelImages)
	})

	t.Run("user without a subscription", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		req := httptest.NewRequest(http.MethodGet, "/limits", nil)
		req.Header.Set("X-Test-User", "ghost")
		rec := httptest.NewRecorder()
		env.module.Handle().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"can_create_model":false`)
		assert.Contains(t, rec.Body.String(), `"max_parallel_images":1`)
	})
}
