package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"visamatch/internal/eligibility"
	"visamatch/internal/eligibility/service"
	"visamatch/pkg/platform/httputil"
	"visamatch/pkg/requestcontext"
)

// Service defines the interface for eligibility operations.
type Service interface {
	Evaluate(ctx context.Context, req service.EvaluateRequest) (*service.Evaluation, error)
	EvaluateDirect(ctx context.Context, visa eligibility.VisaProfile, job eligibility.JobConstraints) (*eligibility.Result, error)
	ListEligibleJobs(ctx context.Context, req service.ListJobsRequest) (*service.JobPage, error)
	ListMatchingVisas(ctx context.Context, jobID string, visaCodes []string) (*service.VisaMatches, error)
}

// Handler wires eligibility endpoints to the eligibility service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an eligibility handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts eligibility endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/eligibility", func(r chi.Router) {
		r.Get("/jobs", h.HandleListJobs)
		r.Get("/jobs/{jobID}", h.HandleEvaluateJob)
		r.Get("/jobs/{jobID}/visas", h.HandleListVisas)
		r.Post("/evaluate", h.HandleEvaluate)
	})
}

// HandleEvaluateJob handles GET /eligibility/jobs/{jobID}.
func (h *Handler) HandleEvaluateJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()
	q := r.URL.Query()

	req := service.EvaluateRequest{
		VisaCode: q.Get("visa"),
		WorkerID: q.Get("worker"),
		JobID:    chi.URLParam(r, "jobID"),
	}
	ev, err := h.service.Evaluate(ctx, req)
	if err != nil {
		h.logger.WarnContext(ctx, "job evaluation failed",
			"request_id", requestID,
			"job_id", req.JobID,
			"visa_code", req.VisaCode,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "job evaluated",
		"request_id", requestID,
		"job_id", req.JobID,
		"visa_code", string(ev.Result.VisaCode),
		"status", string(ev.Result.Status),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromEvaluation(ev))
}

// HandleListJobs handles GET /eligibility/jobs.
func (h *Handler) HandleListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, err := parseListJobsQuery(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	page, err := h.service.ListEligibleJobs(ctx, req)
	if err != nil {
		h.logger.WarnContext(ctx, "job listing failed",
			"request_id", requestID,
			"visa_code", req.VisaCode,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "jobs evaluated",
		"request_id", requestID,
		"visa_code", string(page.VisaCode),
		"total", page.Summary.Total,
		"eligible", page.Summary.TotalEligible,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromJobPage(page))
}

// HandleListVisas handles GET /eligibility/jobs/{jobID}/visas.
func (h *Handler) HandleListVisas(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	jobID := chi.URLParam(r, "jobID")

	matches, err := h.service.ListMatchingVisas(ctx, jobID, parseCodes(r.URL.Query()))
	if err != nil {
		h.logger.WarnContext(ctx, "visa matching failed",
			"request_id", requestID,
			"job_id", jobID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromVisaMatches(matches))
}

// HandleEvaluate handles POST /eligibility/evaluate for callers that already
// hold the visa profile and job constraints.
func (h *Handler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[EvaluateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.EvaluateDirect(ctx, req.Profile(), req.Job)
	if err != nil {
		h.logger.WarnContext(ctx, "direct evaluation failed",
			"request_id", requestID,
			"visa_code", req.Visa.VisaCode,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}
