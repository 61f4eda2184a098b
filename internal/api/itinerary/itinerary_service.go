package itinerary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/genai"

	"github.com/tripforge/tripforge/internal/api/routegen"
	"github.com/tripforge/tripforge/internal/types"
)

// Itinerary generation is a separate upstream call site from route
// generation: the response budget is much larger (a full day-by-day plan)
// and retries use a fixed delay instead of exponential backoff, because by
// the time a client asks for an itinerary there is no job queue to protect.

const (
	itineraryMaxRetries   = 2
	itineraryRetryDelay   = 2 * time.Second
	itineraryMaxTokens    = 16384
	itineraryTemperature  = 0.7
	itineraryCacheTTL     = 30 * time.Minute
	itineraryCacheCleanup = 10 * time.Minute
)

// ErrEmptyRoute rejects itinerary requests without any waypoints.
var ErrEmptyRoute = errors.New("at least one waypoint is required")

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// Service defines the business logic contract for itinerary generation.
type Service interface {
	GenerateItinerary(ctx context.Context, req types.ItineraryRequest) (*types.Itinerary, error)
}

type ServiceImpl struct {
	logger    *slog.Logger
	generator routegen.TextGenerator
	cache     *cache.Cache
}

// NewItineraryService creates a new itinerary service instance.
func NewItineraryService(generator routegen.TextGenerator, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:    logger,
		generator: generator,
		cache:     cache.New(itineraryCacheTTL, itineraryCacheCleanup),
	}
}

// GenerateItinerary builds a day-by-day plan for an already generated route.
func (s *ServiceImpl) GenerateItinerary(ctx context.Context, req types.ItineraryRequest) (*types.Itinerary, error) {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "GenerateItinerary")
	defer span.End()

	l := s.logger.With(slog.String("method", "GenerateItinerary"))

	if len(req.Waypoints) == 0 {
		span.SetStatus(codes.Error, "Empty route")
		return nil, ErrEmptyRoute
	}

	cacheKey := itineraryCacheKey(req)
	if cached, found := s.cache.Get(cacheKey); found {
		l.InfoContext(ctx, "Returning cached itinerary", slog.String("cache_key", cacheKey))
		span.SetStatus(codes.Ok, "Cache hit")
		return cached.(*types.Itinerary), nil
	}

	prompt := buildItineraryPrompt(req)
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](itineraryTemperature),
		MaxOutputTokens: itineraryMaxTokens,
	}

	var text string
	var err error
	for attempt := 0; attempt <= itineraryMaxRetries; attempt++ {
		text, err = s.generator.GenerateContent(ctx, prompt, config)
		if err == nil {
			break
		}
		if !routegen.IsTransient(err) || attempt == itineraryMaxRetries {
			l.ErrorContext(ctx, "Itinerary generation failed", slog.Int("attempt", attempt+1), slog.Any("error", err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "Upstream call failed")
			return nil, fmt.Errorf("itinerary generation failed: %w", err)
		}
		l.WarnContext(ctx, "Itinerary generation failed, retrying",
			slog.Int("attempt", attempt+1),
			slog.Duration("delay", itineraryRetryDelay),
			slog.Any("error", err))
		select {
		case <-time.After(itineraryRetryDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	raw, ok := routegen.SanitizeJSON(text)
	if !ok {
		span.SetStatus(codes.Error, "Unparseable response")
		return nil, fmt.Errorf("itinerary response could not be repaired into JSON")
	}

	var itinerary types.Itinerary
	if err := json.Unmarshal(raw, &itinerary); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Malformed payload")
		return nil, fmt.Errorf("malformed itinerary payload: %w", err)
	}
	if len(itinerary.Days) == 0 {
		span.SetStatus(codes.Error, "Empty itinerary")
		return nil, fmt.Errorf("itinerary response contained no days")
	}

	s.cache.Set(cacheKey, &itinerary, cache.DefaultExpiration)
	l.InfoContext(ctx, "Itinerary generated", slog.Int("days", len(itinerary.Days)))
	span.SetStatus(codes.Ok, "Itinerary generated")
	return &itinerary, nil
}

func itineraryCacheKey(req types.ItineraryRequest) string {
	names := make([]string, 0, len(req.Waypoints)+2)
	if req.Origin != nil {
		names = append(names, req.Origin.Key())
	}
	for _, w := range req.Waypoints {
		names = append(names, w.Key())
	}
	if req.Destination != nil {
		names = append(names, req.Destination.Key())
	}
	return fmt.Sprintf("itinerary:%s:%s", strings.Join(names, ">"), req.Budget)
}
