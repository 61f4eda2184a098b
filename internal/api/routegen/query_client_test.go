package routegen

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/tripforge/tripforge/app/observability/metrics"
)

type MockTextGenerator struct {
	mock.Mock
}

func (m *MockTextGenerator) GenerateContent(ctx context.Context, prompt string, config *genai.GenerateContentConfig) (string, error) {
	args := m.Called(ctx, prompt, config)
	return args.String(0), args.Error(1)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestQueryClient(gen TextGenerator, baseDelay time.Duration) *queryClient {
	metrics.InitAppMetrics()
	return newQueryClient(gen, discardLogger(), metrics.Get(), 2, baseDelay, time.Second, 0.5)
}

func testProfile(t *testing.T) SourceProfile {
	t.Helper()
	p, ok := ProfileByID("culture")
	require.True(t, ok)
	return p
}

func TestQueryRoute_SucceedsFirstTry(t *testing.T) {
	gen := new(MockTextGenerator)
	gen.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything).
		Return(`{"waypoints": []}`, nil).Once()

	client := newTestQueryClient(gen, time.Millisecond)
	text, err := client.QueryRoute(context.Background(), testProfile(t), "Lyon", 3, "moderate")
	require.NoError(t, err)
	assert.Equal(t, `{"waypoints": []}`, text)
	gen.AssertExpectations(t)
}

func TestQueryRoute_RetriesTransientThenSucceeds(t *testing.T) {
	gen := new(MockTextGenerator)
	gen.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("model overloaded, try again")).Twice()
	gen.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything).
		Return(`{"ok": true}`, nil).Once()

	client := newTestQueryClient(gen, time.Millisecond)
	text, err := client.QueryRoute(context.Background(), testProfile(t), "Lyon", 3, "moderate")
	require.NoError(t, err)
	assert.Equal(t, `{"ok": true}`, text)
	gen.AssertNumberOfCalls(t, "GenerateContent", 3)
}

func TestQueryRoute_ExhaustsRetryBudget(t *testing.T) {
	gen := new(MockTextGenerator)
	gen.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("request timeout"))

	client := newTestQueryClient(gen, time.Millisecond)
	_, err := client.QueryRoute(context.Background(), testProfile(t), "Lyon", 3, "moderate")
	require.Error(t, err)

	var upstreamErr *UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.True(t, upstreamErr.Transient)
	assert.Equal(t, 3, upstreamErr.Attempts) // initial call + 2 retries
	gen.AssertNumberOfCalls(t, "GenerateContent", 3)
}

func TestQueryRoute_PermanentFailureFailsFast(t *testing.T) {
	gen := new(MockTextGenerator)
	gen.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("invalid api key"))

	client := newTestQueryClient(gen, time.Millisecond)
	_, err := client.QueryRoute(context.Background(), testProfile(t), "Lyon", 3, "moderate")
	require.Error(t, err)

	var upstreamErr *UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.False(t, upstreamErr.Transient)
	assert.Equal(t, 1, upstreamErr.Attempts)
	gen.AssertNumberOfCalls(t, "GenerateContent", 1)
}

func TestQueryRoute_CanceledContextStopsBackoff(t *testing.T) {
	gen := new(MockTextGenerator)
	gen.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("service unavailable"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := newTestQueryClient(gen, time.Hour)
	_, err := client.QueryRoute(ctx, testProfile(t), "Lyon", 3, "moderate")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	gen.AssertNumberOfCalls(t, "GenerateContent", 1)
}

func TestOutputTokenBudget(t *testing.T) {
	assert.Equal(t, int32(2560), outputTokenBudget(1))
	assert.Equal(t, int32(3584), outputTokenBudget(3))
	// Large routes hit the ceiling instead of growing without bound.
	assert.Equal(t, int32(8192), outputTokenBudget(50))
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{"nil", nil, false},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"rate limited status", genai.APIError{Code: 429, Message: "quota"}, true},
		{"server error status", genai.APIError{Code: 500, Message: "internal"}, true},
		{"unavailable status", genai.APIError{Code: 503, Message: "unavailable"}, true},
		{"bad request status", genai.APIError{Code: 400, Message: "bad prompt"}, false},
		{"auth status", genai.APIError{Code: 401, Message: "unauthenticated"}, false},
		{"overloaded text", errors.New("the model is overloaded"), true},
		{"rate limit text", errors.New("rate limit exceeded"), true},
		{"plain failure", errors.New("malformed response schema"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.transient, IsTransient(tt.err))
		})
	}
}
