package studio

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lumeoai/lumeo/pkg/storage"
	"github.com/lumeoai/lumeo/pkg/subscription"
	"github.com/lumeoai/lumeo/pkg/training"
)

// maxUploadBytes caps a single training selfie upload.
const maxUploadBytes = 20 << 20

// UserResolver extracts the authenticated user ID from a request.
type UserResolver func(r *http.Request) (string, error)

// Module exposes photo uploads and model training over HTTP.
type Module struct {
	store       storage.Storage
	coordinator *training.Coordinator
	subs        subscription.Service
	resolveUser UserResolver
	logger      *slog.Logger
}

// ModuleOption configures a Module.
type ModuleOption func(*Module)

// WithLogger sets the logger used for handler errors.
func WithLogger(logger *slog.Logger) ModuleOption {
	return func(m *Module) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewModule creates the studio HTTP module.
// Panics if any required dependency is nil.
func NewModule(store storage.Storage, coordinator *training.Coordinator, subs subscription.Service, resolveUser UserResolver, opts ...ModuleOption) *Module {
	if store == nil {
		panic("studio: storage is required")
	}
	if coordinator == nil {
		panic("studio: training coordinator is required")
	}
	if subs == nil {
		panic("studio: subscription service is required")
	}
	if resolveUser == nil {
		panic("studio: user resolver is required")
	}

	m := &Module{
		store:       store,
		coordinator: coordinator,
		subs:        subs,
		resolveUser: resolveUser,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Handle returns the module's router, ready to be mounted.
func (m *Module) Handle() http.Handler {
	r := chi.NewRouter()

	r.Post("/models/{modelID}/photos", m.uploadPhoto)
	r.Delete("/models/{modelID}", m.deleteModelInputs)
	r.Post("/models", m.trainModel)
	r.Get("/jobs/{requestID}", m.jobStatus)
	r.Get("/limits", m.limits)

	return r
}

type uploadResponse struct {
	FileID string `json:"file_id"`
	URL    string `json:"url"`
}

func (m *Module) uploadPhoto(w http.ResponseWriter, r *http.Request) {
	userID, err := m.resolveUser(r)
	if err != nil {
		m.writeError(w, r, http.StatusUnauthorized, err)
		return
	}
	modelID := chi.URLParam(r, "modelID")

	contentType := r.Header.Get("Content-Type")
	ext, err := storage.ValidateContentType(contentType)
	if err != nil {
		m.writeError(w, r, http.StatusUnsupportedMediaType, err)
		return
	}

	fileID := uuid.NewString()
	key := storage.TrainingInputKey(userID, modelID, fileID, ext)
	url, err := m.store.Upload(r.Context(), key, contentType,
		http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		m.writeError(w, r, statusFor(err), err)
		return
	}

	m.writeJSON(w, http.StatusCreated, uploadResponse{FileID: fileID, URL: url})
}

func (m *Module) deleteModelInputs(w http.ResponseWriter, r *http.Request) {
	userID, err := m.resolveUser(r)
	if err != nil {
		m.writeError(w, r, http.StatusUnauthorized, err)
		return
	}
	modelID := chi.URLParam(r, "modelID")

	prefix := storage.TrainingInputKey(userID, modelID, "", "")
	if err := m.store.DeletePrefix(r.Context(), prefix); err != nil {
		m.writeError(w, r, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type jobView struct {
	RequestID string             `json:"request_id"`
	Status    training.JobStatus `json:"status"`
	ModelURL  string             `json:"model_url,omitempty"`
	Error     string             `json:"error,omitempty"`
}

func toJobView(job *training.Job) jobView {
	return jobView{
		RequestID: job.RequestID,
		Status:    job.Status,
		ModelURL:  job.ModelURL,
		Error:     job.Error,
	}
}

type trainRequest struct {
	ImageURLs     []string `json:"image_urls"`
	TriggerPhrase string   `json:"trigger_phrase"`
	Steps         int      `json:"steps,omitempty"`
}

func (m *Module) trainModel(w http.ResponseWriter, r *http.Request) {
	userID, err := m.resolveUser(r)
	if err != nil {
		m.writeError(w, r, http.StatusUnauthorized, err)
		return
	}

	var req trainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		m.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	job, err := m.coordinator.TrainModel(r.Context(), userID, training.TrainingRequest{
		ImageURLs:     req.ImageURLs,
		TriggerPhrase: req.TriggerPhrase,
		Steps:         req.Steps,
	})
	if err != nil {
		m.writeError(w, r, statusFor(err), err)
		return
	}
	m.writeJSON(w, http.StatusAccepted, toJobView(job))
}

func (m *Module) jobStatus(w http.ResponseWriter, r *http.Request) {
	if _, err := m.resolveUser(r); err != nil {
		m.writeError(w, r, http.StatusUnauthorized, err)
		return
	}

	job, err := m.coordinator.JobStatus(r.Context(), chi.URLParam(r, "requestID"))
	if err != nil {
		m.writeError(w, r, statusFor(err), err)
		return
	}
	m.writeJSON(w, http.StatusOK, toJobView(job))
}

type limitsResponse struct {
	CanCreateModel    bool `json:"can_create_model"`
	MaxParallelImages int  `json:"max_parallel_images"`
}

func (m *Module) limits(w http.ResponseWriter, r *http.Request) {
	userID, err := m.resolveUser(r)
	if err != nil {
		m.writeError(w, r, http.StatusUnauthorized, err)
		return
	}

	m.writeJSON(w, http.StatusOK, limitsResponse{
		CanCreateModel:    m.subs.CanCreateModel(r.Context(), userID),
		MaxParallelImages: m.subs.MaxParallelImages(r.Context(), userID),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, subscription.ErrModelLimitReached):
		return http.StatusUnprocessableEntity
	case errors.Is(err, subscription.ErrInsufficientCredits):
		return http.StatusPaymentRequired
	case errors.Is(err, subscription.ErrSubscriptionNotFound):
		return http.StatusNotFound
	case errors.Is(err, training.ErrNoTrainingImages):
		return http.StatusBadRequest
	case errors.Is(err, training.ErrJobNotFound),
		errors.Is(err, storage.ErrObjectNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrUnsupportedContentType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, storage.ErrInvalidKey):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (m *Module) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		m.logger.Error("failed to encode response", slog.Any("error", err))
	}
}

func (m *Module) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status == http.StatusInternalServerError {
		m.logger.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
