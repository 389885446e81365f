package training

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultQueueBaseURL = "https://queue.fal.run"
	defaultModelID      = "fal-ai/flux-lora-fast-training"
	defaultSteps        = 1000
)

// FalConfig configures the fal.ai queue client.
type FalConfig struct {
	APIKey  string `env:"FAL_API_KEY"`
	ModelID string `env:"FAL_MODEL_ID" envDefault:"fal-ai/flux-lora-fast-training"`
}

// FalProvider implements Provider against the fal.ai queue API. Jobs are
// submitted asynchronously; completion is observed by polling JobStatus.
type FalProvider struct {
	apiKey     string
	modelID    string
	baseURL    string
	httpClient *http.Client
}

// FalOption configures a FalProvider.
type FalOption func(*FalProvider)

// WithFalBaseURL overrides the queue endpoint, used in tests.
func WithFalBaseURL(url string) FalOption {
	return func(p *FalProvider) {
		if url != "" {
			p.baseURL = url
		}
	}
}

// WithFalHTTPClient sets a custom HTTP client.
func WithFalHTTPClient(client *http.Client) FalOption {
	return func(p *FalProvider) {
		if client != nil {
			p.httpClient = client
		}
	}
}

// NewFalProvider creates a fal.ai training provider.
func NewFalProvider(cfg FalConfig, opts ...FalOption) (*FalProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("training: fal API key is required")
	}

	p := &FalProvider{
		apiKey:     cfg.APIKey,
		modelID:    cfg.ModelID,
		baseURL:    defaultQueueBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	if p.modelID == "" {
		p.modelID = defaultModelID
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

type falSubmitRequest struct {
	ImageURLs     []string `json:"image_urls,omitempty"`
	TriggerPhrase string   `json:"trigger_phrase,omitempty"`
	Steps         int      `json:"steps"`
}

type falQueueResponse struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	Response  struct {
		DiffusersLoraFile struct {
			URL string `json:"url"`
		} `json:"diffusers_lora_file"`
	} `json:"response"`
}

// SubmitTraining enqueues a training job on the fal queue.
func (p *FalProvider) SubmitTraining(ctx context.Context, req TrainingRequest) (*Job, error) {
	if len(req.ImageURLs) == 0 {
		return nil, ErrNoTrainingImages
	}

	steps := req.Steps
	if steps <= 0 {
		steps = defaultSteps
	}
	body, err := json.Marshal(falSubmitRequest{
		ImageURLs:     req.ImageURLs,
		TriggerPhrase: req.TriggerPhrase,
		Steps:         steps,
	})
	if err != nil {
		return nil, fmt.Errorf("training: encode submission: %w", err)
	}

	url := fmt.Sprintf("%s/%s", p.baseURL, p.modelID)
	resp, err := p.do(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	if resp.RequestID == "" {
		return nil, fmt.Errorf("%w: response carries no request ID", ErrSubmitFailed)
	}
	return &Job{RequestID: resp.RequestID, Status: StatusQueued}, nil
}

// JobStatus fetches the state of a submitted job, including the trained
// model URL once the job completes.
func (p *FalProvider) JobStatus(ctx context.Context, requestID string) (*Job, error) {
	if requestID == "" {
		return nil, ErrJobNotFound
	}

	statusURL := fmt.Sprintf("%s/%s/requests/%s/status", p.baseURL, p.modelID, requestID)
	resp, err := p.do(ctx, http.MethodGet, statusURL, nil)
	if err != nil {
		return nil, err
	}

	job := &Job{RequestID: requestID, Status: mapFalStatus(resp.Status), Error: resp.Error}
	if job.Status != StatusCompleted {
		return job, nil
	}

	resultURL := fmt.Sprintf("%s/%s/requests/%s", p.baseURL, p.modelID, requestID)
	result, err := p.do(ctx, http.MethodGet, resultURL, nil)
	if err != nil {
		return nil, err
	}
	job.ModelURL = result.Response.DiffusersLoraFile.URL
	return job, nil
}

func (p *FalProvider) do(ctx context.Context, method, url string, body io.Reader) (*falQueueResponse, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("training: build request: %w", err)
	}
	req.Header.Set("Authorization", "Key "+p.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, errors.Join(ErrSubmitFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrJobNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d: %s", ErrSubmitFailed, resp.StatusCode, raw)
	}

	var decoded falQueueResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("training: decode response: %w", err)
	}
	return &decoded, nil
}

func mapFalStatus(status string) JobStatus {
	switch status {
	case "IN_QUEUE":
		return StatusQueued
	case "IN_PROGRESS":
		return StatusInProgress
	case "COMPLETED", "OK":
		return StatusCompleted
	case "FAILED", "ERROR":
		return StatusFailed
	default:
		return JobStatus(status)
	}
}
