package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"newsreader/internal/entity"
	"newsreader/internal/health"
	"newsreader/internal/repository/postgres"
	"newsreader/internal/service"
	"newsreader/internal/status"
	"newsreader/internal/storage"
)

// maxUploadBytes caps the multipart submission body.
const maxUploadBytes = 32 << 20

// FeedbackStore backs the review endpoints. Nil disables them.
type FeedbackStore interface {
	Create(ctx context.Context, review string, submittedAt time.Time) (uuid.UUID, error)
	Recent(ctx context.Context, limit int) ([]postgres.Feedback, error)
}

type Handler struct {
	submit   *service.SubmitService
	store    status.Store
	files    *storage.Store
	feedback FeedbackStore
	// healthPath is the filesystem probed on /health.
	healthPath string
	log        zerolog.Logger
}

func NewHandler(submit *service.SubmitService, store status.Store, files *storage.Store, feedback FeedbackStore, healthPath string, log zerolog.Logger) *Handler {
	return &Handler{
		submit:     submit,
		store:      store,
		files:      files,
		feedback:   feedback,
		healthPath: healthPath,
		log:        log,
	}
}

type submitResp struct {
	JobID string `json:"job_id"`
}

// SubmitJob godoc
// @Summary Submit a conversion job
// @Description Accepts a URL or an uploaded document plus processing options, enqueues it, and returns the job id to poll.
// @Tags jobs
// @Accept mpfd
// @Produce json
// @Param url formData string false "source article URL (mutually exclusive with file)"
// @Param file formData file false "uploaded PDF or image (mutually exclusive with url)"
// @Param options formData string false "JSON array of processing flags"
// @Param api_key formData string true "caller's generation-service key"
// @Success 202 {object} submitResp
// @Failure 400 {object} apiError
// @Failure 502 {object} apiError
// @Router /jobs [post]
func (h *Handler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	opts, err := parseOptions(r.FormValue("options"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "options must be a JSON array of strings")
		return
	}

	req := service.SubmitRequest{
		SourceURL:  r.FormValue("url"),
		Options:    opts,
		Credential: r.FormValue("api_key"),
	}

	if file, header, ferr := r.FormFile("file"); ferr == nil {
		defer file.Close()
		req.Upload = &service.Upload{Filename: header.Filename, Reader: file}
	}

	jobID, err := h.submit.Submit(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, entity.ErrValidation):
			writeErr(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, entity.ErrInfrastructure):
			writeErr(w, http.StatusBadGateway, "could not submit job to the queue")
		default:
			writeErr(w, http.StatusInternalServerError, "could not submit job")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, submitResp{JobID: jobID})
}

type statusResp struct {
	Status    entity.State `json:"status"`
	Error     string       `json:"error,omitempty"`
	ResultURL string       `json:"result_url,omitempty"`
}

// GetStatus godoc
// @Summary Get job status
// @Tags jobs
// @Produce json
// @Param id path string true "job id"
// @Success 200 {object} statusResp
// @Failure 404 {object} map[string]string
// @Router /jobs/{id} [get]
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")

	rec, err := h.store.Get(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, status.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"status": "not_found"})
			return
		}
		writeErr(w, http.StatusBadGateway, "status store unavailable")
		return
	}

	resp := statusResp{Status: rec.State, Error: rec.Error}
	if rec.State == entity.StateFinished && rec.ResultReference != "" {
		resp.ResultURL = "/results/" + rec.ResultReference
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetResult godoc
// @Summary Download a finished readout
// @Tags jobs
// @Produce octet-stream
// @Param filename path string true "result file name"
// @Success 200 {file} binary
// @Failure 404 {object} apiError
// @Router /results/{filename} [get]
func (h *Handler) GetResult(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	path, err := h.files.ResolveResult(filename)
	if err != nil {
		writeErr(w, http.StatusNotFound, "result not found")
		return
	}

	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Type", "audio/mpeg")
	http.ServeFile(w, r, path)
}

type reviewDTO struct {
	Review    string `json:"review"`
	Timestamp string `json:"timestamp"`
}

// PostReview godoc
// @Summary Store reader feedback
// @Tags feedback
// @Accept json
// @Produce json
// @Param request body reviewDTO true "feedback payload"
// @Success 200 {object} map[string]string
// @Failure 400 {object} apiError
// @Failure 503 {object} apiError
// @Router /review [post]
func (h *Handler) PostReview(w http.ResponseWriter, r *http.Request) {
	if h.feedback == nil {
		writeErr(w, http.StatusServiceUnavailable, "feedback storage is not configured")
		return
	}

	var dto reviewDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if dto.Review == "" {
		writeErr(w, http.StatusBadRequest, "review text cannot be empty")
		return
	}

	submittedAt := time.Now().UTC()
	if dto.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339, dto.Timestamp); err == nil {
			submittedAt = ts
		}
	}

	if _, err := h.feedback.Create(r.Context(), dto.Review, submittedAt); err != nil {
		h.log.Error().Err(err).Msg("could not store feedback")
		writeErr(w, http.StatusInternalServerError, "could not save feedback")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

type feedbackEntry struct {
	ID          string `json:"id"`
	Review      string `json:"review"`
	SubmittedAt string `json:"submitted_at"`
}

// ListReviews godoc
// @Summary List recent reader feedback
// @Tags feedback
// @Produce json
// @Success 200 {array} feedbackEntry
// @Failure 503 {object} apiError
// @Router /review [get]
func (h *Handler) ListReviews(w http.ResponseWriter, r *http.Request) {
	if h.feedback == nil {
		writeErr(w, http.StatusServiceUnavailable, "feedback storage is not configured")
		return
	}

	items, err := h.feedback.Recent(r.Context(), 50)
	if err != nil {
		h.log.Error().Err(err).Msg("could not list feedback")
		writeErr(w, http.StatusInternalServerError, "could not list feedback")
		return
	}

	out := make([]feedbackEntry, 0, len(items))
	for _, f := range items {
		out = append(out, feedbackEntry{
			ID:          f.ID.String(),
			Review:      f.Review,
			SubmittedAt: f.SubmittedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// Health godoc
// @Summary Service liveness and host resources
// @Tags ops
// @Produce json
// @Success 200 {object} map[string]any
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"resources": health.Take(h.healthPath),
	})
}

func parseOptions(raw string) ([]entity.Option, error) {
	if raw == "" {
		return nil, nil
	}
	var opts []entity.Option
	if err := json.Unmarshal([]byte(raw), &opts); err != nil {
		return nil, err
	}
	return opts, nil
}
