package training_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumeoai/lumeo/pkg/training"
)

func newFalProvider(t *testing.T, handler http.Handler) *training.FalProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	provider, err := training.NewFalProvider(
		training.FalConfig{APIKey: "key-123", ModelID: "fal-ai/flux-lora-fast-training"},
		training.WithFalBaseURL(srv.URL))
	require.NoError(t, err)
	return provider
}

func TestFalProvider_SubmitTraining(t *testing.T) {
	t.Parallel()

	t.Run("submits with auth header and returns the request ID", func(t *testing.T) {
		t.Parallel()
		provider := newFalProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/fal-ai/flux-lora-fast-training", r.URL.Path)
			assert.Equal(t, "Key key-123", r.Header.Get("Authorization"))

			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "ohwx person", body["trigger_phrase"])

			_, _ = w.Write([]byte(`{"request_id":"req-abc","status":"IN_QUEUE"}`))
		}))

		job, err := provider.SubmitTraining(context.Background(), training.TrainingRequest{
			ImageURLs:     []string{"https://cdn.example.com/1.jpg"},
			TriggerPhrase: "ohwx person",
		})
		require.NoError(t, err)
		assert.Equal(t, "req-abc", job.RequestID)
		assert.Equal(t, training.StatusQueued, job.Status)
	})

	t.Run("rejects empty image list without calling the API", func(t *testing.T) {
		t.Parallel()
		provider := newFalProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("unexpected API call")
		}))

		_, err := provider.SubmitTraining(context.Background(), training.TrainingRequest{})
		assert.ErrorIs(t, err, training.ErrNoTrainingImages)
	})

	t.Run("surfaces API errors", func(t *testing.T) {
		t.Parallel()
		provider := newFalProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "quota exceeded", http.StatusTooManyRequests)
		}))

		_, err := provider.SubmitTraining(context.Background(), training.TrainingRequest{
			ImageURLs: []string{"https://cdn.example.com/1.jpg"},
		})
		assert.ErrorIs(t, err, training.ErrSubmitFailed)
	})
}

func TestFalProvider_JobStatus(t *testing.T) {
	t.Parallel()

	t.Run("in progress", func(t *testing.T) {
		t.Parallel()
		provider := newFalProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/fal-ai/flux-lora-fast-training/requests/req-1/status", r.URL.Path)
			_, _ = w.Write([]byte(`{"request_id":"req-1","status":"IN_PROGRESS"}`))
		}))

		job, err := provider.JobStatus(context.Background(), "req-1")
		require.NoError(t, err)
		assert.Equal(t, training.StatusInProgress, job.Status)
		assert.Empty(t, job.ModelURL)
	})

	t.Run("completed fetches the model URL", func(t *testing.T) {
		t.Parallel()
		provider := newFalProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/fal-ai/flux-lora-fast-training/requests/req-1/status":
				_, _ = w.Write([]byte(`{"request_id":"req-1","status":"COMPLETED"}`))
			case "/fal-ai/flux-lora-fast-training/requests/req-1":
				_, _ = w.Write([]byte(`{"request_id":"req-1","status":"COMPLETED","response":{"diffusers_lora_file":{"url":"https://fal.media/lora/req-1.safetensors"}}}`))
			default:
				t.Errorf("unexpected path %s", r.URL.Path)
			}
		}))

		job, err := provider.JobStatus(context.Background(), "req-1")
		require.NoError(t, err)
		assert.Equal(t, training.StatusCompleted, job.Status)
		assert.Equal(t, "https://fal.media/lora/req-1.safetensors", job.ModelURL)
	})

	t.Run("unknown job", func(t *testing.T) {
		t.Parallel()
		provider := newFalProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))

		_, err := provider.JobStatus(context.Background(), "req-missing")
		assert.ErrorIs(t, err, training.ErrJobNotFound)
	})
}
