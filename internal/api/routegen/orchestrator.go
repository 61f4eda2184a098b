package routegen

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/semaphore"

	"github.com/tripforge/tripforge/app/observability/metrics"
	"github.com/tripforge/tripforge/internal/types"
)

const maxRequestedStops = 10

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// Service defines the business logic contract for route generation.
type Service interface {
	StartGeneration(ctx context.Context, req types.CreateRouteRequest) (*types.JobAcceptedResponse, error)
	GetJob(ctx context.Context, jobID string) (*types.JobStatusResponse, error)
	ExpandRoute(ctx context.Context, req types.ExpandRouteRequest) (*types.ExpandRouteResponse, error)
	InsertionCost(ctx context.Context, req types.InsertionCostRequest) (*types.InsertionCostResponse, error)
}

// Options tunes the orchestration pipeline; zero values fall back to the
// package defaults.
type Options struct {
	MaxRetries int
	BaseDelay  time.Duration
	// CallTimeout bounds one upstream call. There is deliberately no
	// job-level watchdog; a stuck source is unstuck by this per-call
	// deadline.
	CallTimeout time.Duration
	Temperature float32
	// UpstreamConcurrency bounds in-flight upstream calls across all jobs.
	// Kept at 1 to respect the shared per-caller rate budget.
	UpstreamConcurrency int64
	JobRetention        time.Duration
	// FallbackEstimate is the per-source time estimate used before the
	// first source of a job completes.
	FallbackEstimate time.Duration
}

// ServiceImpl provides the implementation for Service. One background
// goroutine per job walks the selected sources strictly in sequence; the
// weighted semaphore additionally serializes upstream calls across jobs.
type ServiceImpl struct {
	logger           *slog.Logger
	client           *queryClient
	store            *JobStore
	sem              *semaphore.Weighted
	metrics          *metrics.AppMetrics
	fallbackEstimate time.Duration
}

// NewService creates a new route generation service instance.
func NewService(generator TextGenerator, store *JobStore, logger *slog.Logger, opts Options) *ServiceImpl {
	if opts.UpstreamConcurrency <= 0 {
		opts.UpstreamConcurrency = 1
	}
	if opts.FallbackEstimate <= 0 {
		opts.FallbackEstimate = 12 * time.Second
	}
	metrics.InitAppMetrics()
	return &ServiceImpl{
		logger:           logger,
		client:           newQueryClient(generator, logger, metrics.Get(), opts.MaxRetries, opts.BaseDelay, opts.CallTimeout, opts.Temperature),
		store:            store,
		sem:              semaphore.NewWeighted(opts.UpstreamConcurrency),
		metrics:          metrics.Get(),
		fallbackEstimate: opts.FallbackEstimate,
	}
}

// StartGeneration validates the request, registers the job and spawns its
// background run. The caller gets the job id back immediately and polls.
func (s *ServiceImpl) StartGeneration(ctx context.Context, req types.CreateRouteRequest) (*types.JobAcceptedResponse, error) {
	ctx, span := otel.Tracer("RouteGenService").Start(ctx, "StartGeneration")
	defer span.End()

	l := s.logger.With(slog.String("method", "StartGeneration"))

	if req.Destination == "" {
		span.SetStatus(codes.Error, "Missing destination")
		return nil, fmt.Errorf("destination is required")
	}
	if req.Stops < 1 || req.Stops > maxRequestedStops {
		span.SetStatus(codes.Error, "Invalid stop count")
		return nil, fmt.Errorf("stops must be between 1 and %d", maxRequestedStops)
	}
	profiles, err := ResolveProfiles(req.Sources)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Unknown source")
		return nil, err
	}
	if len(profiles) == 0 {
		span.SetStatus(codes.Error, "No sources selected")
		return nil, fmt.Errorf("at least one source is required")
	}

	job := &types.GenerationJob{
		ID:              uuid.New().String(),
		Status:          types.JobStatusProcessing,
		Destination:     req.Destination,
		RequestedStops:  req.Stops,
		SelectedSources: append([]string(nil), req.Sources...),
		BudgetTier:      req.Budget,
		Progress: types.JobProgress{
			Total:                len(profiles),
			StartedAt:            time.Now(),
			EstimatedRemainingMs: (s.fallbackEstimate * time.Duration(len(profiles))).Milliseconds(),
		},
	}
	s.store.Create(job)

	l.InfoContext(ctx, "Generation job created",
		slog.String("job_id", job.ID),
		slog.String("destination", req.Destination),
		slog.Int("stops", req.Stops),
		slog.Int("sources", len(profiles)))

	go s.run(context.WithoutCancel(ctx), job.ID, req, profiles)

	span.SetStatus(codes.Ok, "Job accepted")
	return &types.JobAcceptedResponse{JobID: job.ID, Status: types.JobStatusProcessing}, nil
}

// run is the per-job orchestration loop. A single source's failure is fully
// contained; the job itself fails only if the loop panics before producing
// results.
func (s *ServiceImpl) run(ctx context.Context, jobID string, req types.CreateRouteRequest, profiles []SourceProfile) {
	ctx, span := otel.Tracer("RouteGenService").Start(ctx, "run")
	defer span.End()

	l := s.logger.With(slog.String("method", "run"), slog.String("job_id", jobID))

	defer func() {
		if r := recover(); r != nil {
			l.ErrorContext(ctx, "Generation job panicked", slog.Any("panic", r))
			span.SetStatus(codes.Error, "Job panicked")
			_ = s.store.Update(jobID, func(j *types.GenerationJob) {
				if !j.Status.Terminal() {
					j.Status = types.JobStatusFailed
					j.Error = fmt.Sprintf("internal error: %v", r)
				}
			})
			s.metrics.RouteJobsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "failed")))
		}
	}()

	started := time.Now()
	for i, profile := range profiles {
		_ = s.store.Update(jobID, func(j *types.GenerationJob) {
			j.Progress.CurrentSource = profile.ID
		})

		result := s.runSource(ctx, profile, req)

		completed := i + 1
		elapsed := time.Since(started)
		_ = s.store.Update(jobID, func(j *types.GenerationJob) {
			j.Results = append(j.Results, result)
			j.Progress.Completed = completed
			j.Progress.PercentComplete = completed * 100 / len(profiles)
			j.Progress.CurrentSource = ""
			avg := elapsed / time.Duration(completed)
			j.Progress.EstimatedRemainingMs = (avg * time.Duration(len(profiles)-completed)).Milliseconds()
		})
	}

	var merged *types.SourceResult
	if len(profiles) >= 2 {
		if job, err := s.store.Get(jobID); err == nil {
			merged = s.safeMerge(ctx, job.Results, req.Stops)
		}
	}

	_ = s.store.Update(jobID, func(j *types.GenerationJob) {
		if merged != nil {
			j.Results = append([]types.SourceResult{*merged}, j.Results...)
		}
		j.Status = types.JobStatusCompleted
		j.Progress.EstimatedRemainingMs = 0
	})

	s.metrics.RouteJobsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "completed")))
	l.InfoContext(ctx, "Generation job completed",
		slog.Duration("elapsed", time.Since(started)),
		slog.Bool("merged", merged != nil))
	span.SetStatus(codes.Ok, "Job completed")
}

// runSource executes the full pipeline stage for one source: query,
// sanitize, parse, optimize, extract. Any failure turns into an empty-route
// marker carrying the error, never into a job abort.
func (s *ServiceImpl) runSource(ctx context.Context, profile SourceProfile, req types.CreateRouteRequest) types.SourceResult {
	ctx, span := otel.Tracer("RouteGenService").Start(ctx, "runSource")
	defer span.End()
	span.SetAttributes(attribute.String("source", profile.ID))

	l := s.logger.With(slog.String("method", "runSource"), slog.String("source", profile.ID))
	start := time.Now()
	defer func() {
		s.metrics.SourceQueryDurationSeconds.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(attribute.String("source", profile.ID)))
	}()

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return s.failureResult(ctx, profile, fmt.Errorf("waiting for upstream slot: %w", err))
	}
	text, err := s.client.QueryRoute(ctx, profile, req.Destination, req.Stops, req.Budget)
	s.sem.Release(1)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Upstream query failed")
		return s.failureResult(ctx, profile, err)
	}

	raw, ok := SanitizeJSON(text)
	if !ok {
		span.SetStatus(codes.Error, "Unparseable response")
		return s.failureResult(ctx, profile, fmt.Errorf("response could not be repaired into JSON"))
	}

	var rec types.RouteRecommendation
	if err := json.Unmarshal(raw, &rec); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Malformed payload")
		return s.failureResult(ctx, profile, fmt.Errorf("malformed route payload: %w", err))
	}

	rec.Waypoints = dropEndpointCollisions(rec.Waypoints, rec.Origin, rec.Destination)

	if hasValidEndpoints(rec.Origin, rec.Destination) {
		rec.Waypoints, rec.Alternatives = SelectStops(rec.Waypoints, *rec.Origin, *rec.Destination, req.Stops)
	} else if len(rec.Waypoints) > req.Stops {
		// No geography to optimize on; keep the model's own ordering.
		rec.Alternatives = append([]types.CityCandidate(nil), rec.Waypoints[req.Stops:]...)
		rec.Waypoints = rec.Waypoints[:req.Stops]
	}

	l.InfoContext(ctx, "Source pipeline completed",
		slog.Int("waypoints", len(rec.Waypoints)),
		slog.Int("alternatives", len(rec.Alternatives)))
	s.metrics.SourceQueriesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", profile.ID),
		attribute.String("outcome", "success")))
	span.SetStatus(codes.Ok, "Source completed")

	return types.SourceResult{
		SourceID:        profile.ID,
		Name:            profile.Name,
		Color:           profile.Color,
		Icon:            profile.Icon,
		Recommendations: rec,
		Metrics:         ExtractMetrics(CleanResponse(text), profile.MetricRules, profile.DistributionRules),
	}
}

func (s *ServiceImpl) failureResult(ctx context.Context, profile SourceProfile, err error) types.SourceResult {
	s.logger.WarnContext(ctx, "Source contribution failed",
		slog.String("source", profile.ID),
		slog.Any("error", err))
	s.metrics.SourceQueriesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", profile.ID),
		attribute.String("outcome", "failure")))
	return types.SourceResult{
		SourceID:        profile.ID,
		Name:            profile.Name,
		Color:           profile.Color,
		Icon:            profile.Icon,
		Recommendations: types.RouteRecommendation{Waypoints: []types.CityCandidate{}},
		Error:           err.Error(),
	}
}

// safeMerge runs the merge engine behind a recover: a broken merge must
// never fail the job, the per-source results still complete it.
func (s *ServiceImpl) safeMerge(ctx context.Context, results []types.SourceResult, requestedStops int) (merged *types.SourceResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "Merge engine panicked, completing without merged entry", slog.Any("panic", r))
			merged = nil
		}
	}()

	merged = MergeResults(results, requestedStops)
	if merged.Recommendations.Origin == nil {
		s.metrics.MergeFallbacksTotal.Add(ctx, 1)
	}
	return merged
}

// GetJob is the polling read path. Route is attached only once the job
// completed; unknown ids surface ErrJobNotFound, never a processing state.
func (s *ServiceImpl) GetJob(ctx context.Context, jobID string) (*types.JobStatusResponse, error) {
	_, span := otel.Tracer("RouteGenService").Start(ctx, "GetJob")
	defer span.End()

	job, err := s.store.Get(jobID)
	if err != nil {
		span.SetStatus(codes.Error, "Job not found")
		return nil, err
	}

	resp := &types.JobStatusResponse{
		ID:       job.ID,
		Status:   job.Status,
		Progress: job.Progress,
		Error:    job.Error,
	}
	if job.Status == types.JobStatusCompleted {
		resp.Route = &types.RoutePlan{
			Origin:      planOrigin(job.Results),
			Destination: job.Destination,
			TotalStops:  job.RequestedStops,
			Budget:      job.BudgetTier,
			Results:     job.Results,
		}
	}
	span.SetStatus(codes.Ok, "Job returned")
	return resp, nil
}

// ExpandRoute folds the single cheapest candidate into an existing route.
func (s *ServiceImpl) ExpandRoute(ctx context.Context, req types.ExpandRouteRequest) (*types.ExpandRouteResponse, error) {
	_, span := otel.Tracer("RouteGenService").Start(ctx, "ExpandRoute")
	defer span.End()

	route, inserted, detour, err := ExtendRoute(req.Route, req.Candidates)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "No insertable candidate")
		return nil, err
	}
	span.SetStatus(codes.Ok, "Route extended")
	return &types.ExpandRouteResponse{Route: route, Inserted: inserted, DetourKm: detour}, nil
}

// InsertionCost answers "what would adding this city cost" without mutating
// the route.
func (s *ServiceImpl) InsertionCost(ctx context.Context, req types.InsertionCostRequest) (*types.InsertionCostResponse, error) {
	_, span := otel.Tracer("RouteGenService").Start(ctx, "InsertionCost")
	defer span.End()

	cost, pos, err := InsertionCost(req.Route, req.City)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "City not insertable")
		return nil, err
	}
	span.SetStatus(codes.Ok, "Cost computed")
	return &types.InsertionCostResponse{DetourKm: cost, Position: pos}, nil
}

func hasValidEndpoints(origin, destination *types.CityCandidate) bool {
	return origin != nil && destination != nil &&
		validCoordinate(origin.Latitude, origin.Longitude) &&
		validCoordinate(destination.Latitude, destination.Longitude)
}

// dropEndpointCollisions removes waypoints that duplicate the origin or
// destination by name key.
func dropEndpointCollisions(waypoints []types.CityCandidate, origin, destination *types.CityCandidate) []types.CityCandidate {
	if origin == nil && destination == nil {
		return waypoints
	}
	out := waypoints[:0:0]
	for _, w := range waypoints {
		if origin != nil && w.Key() == origin.Key() {
			continue
		}
		if destination != nil && w.Key() == destination.Key() {
			continue
		}
		out = append(out, w)
	}
	return out
}

// planOrigin surfaces the first usable origin among the results for the
// final plan header (the merged entry, when present, sits at index 0).
func planOrigin(results []types.SourceResult) *types.CityCandidate {
	for _, r := range results {
		if r.Recommendations.Origin != nil && validCoordinate(r.Recommendations.Origin.Latitude, r.Recommendations.Origin.Longitude) {
			return r.Recommendations.Origin
		}
	}
	return nil
}
