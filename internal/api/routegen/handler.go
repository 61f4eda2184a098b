package routegen

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/tripforge/tripforge/internal/api"
	"github.com/tripforge/tripforge/internal/types"
)

type Handler struct {
	logger  *slog.Logger
	service Service
}

func NewRouteGenHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger:  logger,
		service: service,
	}
}

// CreateRoute handles POST /routes/generate - starts an asynchronous
// generation job and returns its id for polling.
func (h *Handler) CreateRoute(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("RouteGenHandler").Start(r.Context(), "CreateRoute")
	defer span.End()

	l := h.logger.With(slog.String("method", "CreateRoute"))

	var req types.CreateRouteRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Invalid request body", slog.Any("error", err))
		span.SetStatus(codes.Error, "Invalid request body")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	accepted, err := h.service.StartGeneration(ctx, req)
	if err != nil {
		l.WarnContext(ctx, "Rejected generation request", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Generation request rejected")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	l.InfoContext(ctx, "Generation job accepted", slog.String("job_id", accepted.JobID))
	span.SetStatus(codes.Ok, "Job accepted")
	api.WriteJSONResponse(w, r, http.StatusAccepted, accepted)
}

// GetJob handles GET /routes/jobs/{jobID} - the polling read path.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("RouteGenHandler").Start(r.Context(), "GetJob")
	defer span.End()

	l := h.logger.With(slog.String("method", "GetJob"))

	jobID := chi.URLParam(r, "jobID")
	if jobID == "" {
		span.SetStatus(codes.Error, "Missing job id")
		api.ErrorResponse(w, r, http.StatusBadRequest, "job id is required")
		return
	}

	status, err := h.service.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			span.SetStatus(codes.Error, "Job not found")
			api.ErrorResponse(w, r, http.StatusNotFound, "job not found")
			return
		}
		l.ErrorContext(ctx, "Failed to read job", slog.String("job_id", jobID), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Job lookup failed")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "failed to read job")
		return
	}

	span.SetStatus(codes.Ok, "Job returned")
	api.WriteJSONResponse(w, r, http.StatusOK, status)
}

// ExpandRoute handles POST /routes/expand - inserts the cheapest extra
// landmark into an existing route.
func (h *Handler) ExpandRoute(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("RouteGenHandler").Start(r.Context(), "ExpandRoute")
	defer span.End()

	l := h.logger.With(slog.String("method", "ExpandRoute"))

	var req types.ExpandRouteRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		span.SetStatus(codes.Error, "Invalid request body")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.service.ExpandRoute(ctx, req)
	if err != nil {
		l.WarnContext(ctx, "Route expansion failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Expansion failed")
		api.ErrorResponse(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}

	span.SetStatus(codes.Ok, "Route extended")
	api.WriteJSONResponse(w, r, http.StatusOK, resp)
}

// InsertionCost handles POST /routes/insertion-cost.
func (h *Handler) InsertionCost(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("RouteGenHandler").Start(r.Context(), "InsertionCost")
	defer span.End()

	var req types.InsertionCostRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		span.SetStatus(codes.Error, "Invalid request body")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.service.InsertionCost(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Cost computation failed")
		api.ErrorResponse(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}

	span.SetStatus(codes.Ok, "Cost computed")
	api.WriteJSONResponse(w, r, http.StatusOK, resp)
}
