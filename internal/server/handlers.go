package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/thumbembed/internal/job"
	"github.com/maauso/thumbembed/internal/thumbnail"
)

// VersionProber reports the ffmpeg build in use.
type VersionProber interface {
	Version(ctx context.Context) (string, error)
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service            *job.EmbedService
	prober             VersionProber
	validator          *validator.Validate
	logger             *slog.Logger
	enableAsyncProcess bool
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithAsyncProcessing enables or disables background processing.
// When disabled, CreateJob only creates the job and returns immediately
// without starting background processing.
func WithAsyncProcessing(enabled bool) HandlerOption {
	return func(h *Handlers) {
		h.enableAsyncProcess = enabled
	}
}

// WithVersionProber makes the health check probe ffmpeg.
func WithVersionProber(p VersionProber) HandlerOption {
	return func(h *Handlers) {
		h.prober = p
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *job.EmbedService, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		service:            service,
		validator:          validator.New(),
		logger:             logger,
		enableAsyncProcess: true, // Default to enabled
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if h.prober == nil {
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
		return
	}

	version, err := h.prober.Version(r.Context())
	if err != nil {
		h.logger.Warn("ffmpeg probe failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "degraded", Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", FFmpeg: version})
}

// EmbedThumbnail handles POST /thumbnails requests. The embed runs to
// completion even if the client goes away, so an overwrite is never left
// half done.
func (h *Handlers) EmbedThumbnail(w http.ResponseWriter, r *http.Request) {
	req, input, ok := h.decodeEmbedRequest(w, r)
	if !ok {
		return
	}

	out, err := h.service.Embed(context.WithoutCancel(r.Context()), input)
	if err != nil && out == nil {
		h.logger.Error("embed failed",
			slog.String("video", req.VideoPath),
			slog.String("error", err.Error()),
		)
		status, code := errorStatus(err)
		writeError(w, status, err.Error(), code)
		return
	}

	resp := EmbedResponse{
		Message:   out.Message(),
		FinalPath: out.FinalPath,
		Mode:      out.Mode(),
		VideoURL:  out.VideoURL,
	}
	status := http.StatusOK
	if err != nil {
		status, resp.Code = errorStatus(err)
		resp.Error = err.Error()
	}
	writeJSON(w, status, resp)
}

// CreateJob handles POST /jobs requests.
func (h *Handlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	req, input, ok := h.decodeEmbedRequest(w, r)
	if !ok {
		return
	}

	createdJob, err := h.service.CreateJob(r.Context(), input)
	if err != nil {
		h.logger.Error("failed to create job",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to create job", "JOB_CREATION_FAILED")
		return
	}

	// Start processing in background with a detached context
	if h.enableAsyncProcess {
		go func(ctx context.Context, jobID string, inp job.EmbedInput) {
			_, processErr := h.service.ProcessExistingJob(ctx, jobID, inp)
			if processErr != nil {
				h.logger.Error("background processing failed",
					slog.String("job_id", jobID),
					slog.String("error", processErr.Error()),
				)
			}
		}(context.WithoutCancel(r.Context()), createdJob.ID, input)
	}

	h.logger.Info("job created",
		slog.String("job_id", createdJob.ID),
		slog.String("video", req.VideoPath),
	)

	writeJSON(w, http.StatusAccepted, CreateJobResponse{
		ID:     createdJob.ID,
		Status: string(createdJob.Status),
	})
}

// GetJob handles GET /jobs/{id} requests.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return
	}

	foundJob, err := h.service.GetJob(r.Context(), jobID)
	if err != nil {
		h.writeJobError(w, jobID, err)
		return
	}

	writeJSON(w, http.StatusOK, toJobResponse(foundJob))
}

// ListJobs handles GET /jobs requests.
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.service.ListJobs(r.Context())
	if err != nil {
		h.logger.Error("failed to list jobs", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list jobs", "JOB_FETCH_FAILED")
		return
	}

	resp := ListJobsResponse{Jobs: make([]JobResponse, 0, len(jobs))}
	for _, j := range jobs {
		resp.Jobs = append(resp.Jobs, toJobResponse(j))
	}
	writeJSON(w, http.StatusOK, resp)
}

// DeleteJob handles DELETE /jobs/{id} requests.
func (h *Handlers) DeleteJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return
	}

	if err := h.service.DeleteJob(r.Context(), jobID); err != nil {
		h.writeJobError(w, jobID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) writeJobError(w http.ResponseWriter, jobID string, err error) {
	switch {
	case errors.Is(err, job.ErrJobNotFound):
		writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
	case errors.Is(err, job.ErrJobActive):
		writeError(w, http.StatusConflict, "job is still running", "JOB_ACTIVE")
	default:
		h.logger.Error("job lookup failed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get job", "JOB_FETCH_FAILED")
	}
}

// decodeEmbedRequest parses and validates the body shared by POST
// /thumbnails and POST /jobs. It writes the error response itself.
func (h *Handlers) decodeEmbedRequest(w http.ResponseWriter, r *http.Request) (EmbedRequest, job.EmbedInput, bool) {
	var req EmbedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return req, job.EmbedInput{}, false
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return req, job.EmbedInput{}, false
	}

	mode, err := thumbnail.ParseSaveMode(req.SaveMode, req.OutputFilename)
	if err != nil {
		status, code := errorStatus(err)
		writeError(w, status, err.Error(), code)
		return req, job.EmbedInput{}, false
	}

	return req, job.EmbedInput{
		VideoPath: req.VideoPath,
		Image:     thumbnail.SourceFrom(req.ImagePath, req.ImageData),
		Mode:      mode,
		PushToS3:  req.PushToS3,
	}, true
}

// errorStatus maps an embed error to an HTTP status and error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, thumbnail.ErrMissingImageSource):
		return http.StatusBadRequest, "MISSING_IMAGE_SOURCE"
	case errors.Is(err, thumbnail.ErrInvalidSaveMode):
		return http.StatusBadRequest, "INVALID_SAVE_MODE"
	case errors.Is(err, thumbnail.ErrDecode):
		return http.StatusBadRequest, "DECODE_ERROR"
	case errors.Is(err, thumbnail.ErrSpawn):
		return http.StatusServiceUnavailable, "SPAWN_ERROR"
	case errors.Is(err, thumbnail.ErrMux):
		return http.StatusUnprocessableEntity, "MUX_ERROR"
	case errors.Is(err, thumbnail.ErrTempWrite):
		return http.StatusInternalServerError, "TEMP_WRITE_ERROR"
	case errors.Is(err, thumbnail.ErrDeleteOriginal):
		return http.StatusInternalServerError, "DELETE_ORIGINAL_ERROR"
	case errors.Is(err, thumbnail.ErrRename):
		return http.StatusInternalServerError, "RENAME_ERROR"
	case errors.Is(err, job.ErrPublish):
		return http.StatusBadGateway, "PUBLISH_ERROR"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

func toJobResponse(j *job.Job) JobResponse {
	c := j.Clone()
	resp := JobResponse{
		ID:         c.ID,
		Status:     string(c.Status),
		VideoPath:  c.VideoPath,
		Mode:       c.Mode,
		OutputPath: c.OutputPath,
		Message:    c.Message,
		VideoURL:   c.VideoURL,
		Error:      c.Error,
		CreatedAt:  c.CreatedAt,
	}
	if !c.CompletedAt.IsZero() {
		resp.CompletedAt = &c.CompletedAt
	}
	return resp
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
