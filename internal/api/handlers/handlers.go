package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/rutwin/cashflow/internal/analytics"
	"github.com/rutwin/cashflow/internal/api/middleware"
	"github.com/rutwin/cashflow/internal/jobs"
	"github.com/rutwin/cashflow/internal/logger"
)

// Analyzer runs the synchronous analyses.
type Analyzer interface {
	IdentifyRecurring(ctx context.Context, req analytics.RecurringRequest) (*analytics.RecurringReport, error)
	ForecastCashFlow(ctx context.Context, req analytics.ForecastRequest) (*analytics.ForecastReport, error)
	AnalyzeCashFlow(ctx context.Context, req analytics.CashFlowRequest) (*analytics.CashFlowReport, error)
}

// AnalysisHandler handles the synchronous analysis endpoints.
type AnalysisHandler struct {
	svc Analyzer
	log zerolog.Logger
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(svc Analyzer, log zerolog.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		svc: svc,
		log: log,
	}
}

// IdentifyRecurring handles POST /api/recurring
func (h *AnalysisHandler) IdentifyRecurring(w http.ResponseWriter, r *http.Request) {
	var req analytics.RecurringRequest
	if err := middleware.DecodeJSON(w, r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.svc.IdentifyRecurring(r.Context(), req)
	if err != nil {
		h.writeAnalysisError(w, r, err, "Failed to identify recurring transactions")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, report)
}

// ForecastCashFlow handles POST /api/forecast
func (h *AnalysisHandler) ForecastCashFlow(w http.ResponseWriter, r *http.Request) {
	var req analytics.ForecastRequest
	if err := middleware.DecodeJSON(w, r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.svc.ForecastCashFlow(r.Context(), req)
	if err != nil {
		h.writeAnalysisError(w, r, err, "Failed to forecast cash flow")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, report)
}

// AnalyzeCashFlow handles POST /api/cashflow
func (h *AnalysisHandler) AnalyzeCashFlow(w http.ResponseWriter, r *http.Request) {
	var req analytics.CashFlowRequest
	if err := middleware.DecodeJSON(w, r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.svc.AnalyzeCashFlow(r.Context(), req)
	if err != nil {
		h.writeAnalysisError(w, r, err, "Failed to analyze cash flow")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, report)
}

// writeAnalysisError reports caller mistakes verbatim and hides internal
// failures behind a generic message.
func (h *AnalysisHandler) writeAnalysisError(w http.ResponseWriter, r *http.Request, err error, message string) {
	if analytics.IsRequestError(err) {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	log := logger.FromContext(r.Context())
	log.Error().Err(err).Str("path", r.URL.Path).Msg(message)
	middleware.WriteError(w, http.StatusInternalServerError, message)
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store     jobs.JobStore
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, publisher jobs.Publisher, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store:     store,
		publisher: publisher,
		log:       log,
	}
}

// CreateJob handles POST /api/jobs
func (h *JobsHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type       jobs.JobType `json:"type"`
		AccountID  string       `json:"account_id"`
		Params     jobs.Params  `json:"params"`
		MaxRetries int          `json:"max_retries"`
	}
	if err := middleware.DecodeJSON(w, r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !req.Type.Valid() {
		middleware.WriteError(w, http.StatusBadRequest, "type must be one of detect_recurring, forecast_cash_flow, analyze_cash_flow")
		return
	}
	if req.AccountID == "" && req.Params.InputURI == "" {
		middleware.WriteError(w, http.StatusBadRequest, "account_id or params.input_uri is required")
		return
	}
	if req.MaxRetries < 0 {
		middleware.WriteError(w, http.StatusBadRequest, "max_retries must not be negative")
		return
	}
	if err := req.Params.Validate(); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	job := &jobs.AnalysisJob{
		Type:       req.Type,
		AccountID:  req.AccountID,
		Params:     req.Params,
		MaxRetries: req.MaxRetries,
	}
	if err := h.publisher.Publish(r.Context(), job); err != nil {
		h.log.Error().Err(err).Str("job_type", string(req.Type)).Msg("Failed to enqueue job")
		if errors.Is(err, jobs.ErrQueueClosed) {
			middleware.WriteError(w, http.StatusServiceUnavailable, "Job queue is shutting down")
			return
		}
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue job")
		return
	}

	h.log.Info().
		Str("job_id", job.JobID).
		Str("job_type", string(job.Type)).
		Str("account_id", job.AccountID).
		Msg("Job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id":     job.JobID,
		"status":     job.Status,
		"created_at": job.CreatedAt,
	})
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")

	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Job not found")
			return
		}
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		AccountID: query.Get("account_id"),
		Type:      jobs.JobType(query.Get("type")),
		Status:    jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}
