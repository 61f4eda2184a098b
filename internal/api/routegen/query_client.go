package routegen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"google.golang.org/genai"

	"github.com/tripforge/tripforge/app/observability/metrics"
)

// TextGenerator is the contract the core needs from the text-generation
// provider: send a prompt, get text back, may fail. Satisfied by
// generativeAI.AIClient.
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string, config *genai.GenerateContentConfig) (string, error)
}

// UpstreamError is returned once a query's retry budget is exhausted or a
// permanent upstream failure was hit.
type UpstreamError struct {
	Source    string
	Attempts  int
	Transient bool
	Err       error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream query for source %q failed after %d attempt(s): %v", e.Source, e.Attempts, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Token budgets scale with the stop count (the prompt requests 2x candidate
// cities) so larger routes do not get truncated mid-object, capped at a
// fixed ceiling.
const (
	baseOutputTokens    = 2048
	tokensPerStop       = 512
	maxOutputTokenCap   = 8192
	defaultQueryRetries = 2
	defaultBaseDelay    = 500 * time.Millisecond
	defaultCallTimeout  = 45 * time.Second
	defaultTemperature  = 0.5
)

type queryClient struct {
	logger      *slog.Logger
	generator   TextGenerator
	metrics     *metrics.AppMetrics
	maxRetries  int
	baseDelay   time.Duration
	callTimeout time.Duration
	temperature float32
}

func newQueryClient(generator TextGenerator, logger *slog.Logger, appMetrics *metrics.AppMetrics, maxRetries int, baseDelay, callTimeout time.Duration, temperature float32) *queryClient {
	if maxRetries < 0 {
		maxRetries = defaultQueryRetries
	}
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}
	if temperature <= 0 {
		temperature = defaultTemperature
	}
	return &queryClient{
		logger:      logger,
		generator:   generator,
		metrics:     appMetrics,
		maxRetries:  maxRetries,
		baseDelay:   baseDelay,
		callTimeout: callTimeout,
		temperature: temperature,
	}
}

// QueryRoute asks one source profile for its candidate route. Transient
// upstream failures are retried with exponential backoff (baseDelay * 2^n);
// permanent failures escalate immediately.
func (q *queryClient) QueryRoute(ctx context.Context, profile SourceProfile, destination string, stops int, budget string) (string, error) {
	prompt := profile.BuildPrompt(destination, stops, budget)
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](q.temperature),
		MaxOutputTokens: outputTokenBudget(stops),
	}

	for attempt := 0; ; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, q.callTimeout)
		text, err := q.generator.GenerateContent(callCtx, prompt, config)
		cancel()
		if err == nil {
			return text, nil
		}

		if !IsTransient(err) {
			q.logger.WarnContext(ctx, "Upstream query failed permanently",
				slog.String("source", profile.ID),
				slog.Int("attempt", attempt+1),
				slog.Any("error", err))
			return "", &UpstreamError{Source: profile.ID, Attempts: attempt + 1, Transient: false, Err: err}
		}
		if attempt >= q.maxRetries {
			return "", &UpstreamError{Source: profile.ID, Attempts: attempt + 1, Transient: true, Err: err}
		}

		delay := q.baseDelay * (1 << attempt)
		q.metrics.UpstreamRetriesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("source", profile.ID)))
		q.logger.WarnContext(ctx, "Upstream query failed, backing off",
			slog.String("source", profile.ID),
			slog.Int("attempt", attempt+1),
			slog.Duration("delay", delay),
			slog.Any("error", err))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", &UpstreamError{Source: profile.ID, Attempts: attempt + 1, Transient: true, Err: ctx.Err()}
		}
	}
}

func outputTokenBudget(stops int) int32 {
	budget := baseOutputTokens + stops*tokensPerStop
	if budget > maxOutputTokenCap {
		budget = maxOutputTokenCap
	}
	return int32(budget)
}

// IsTransient classifies an upstream failure as retryable: call timeouts and
// temporarily-unavailable statuses retry, everything else (authentication,
// malformed request) escalates immediately.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 429, 500, 502, 503:
			return true
		default:
			return false
		}
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unavailable") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "deadline exceeded") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "overloaded")
}
