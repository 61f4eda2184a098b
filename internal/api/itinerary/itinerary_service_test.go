package itinerary

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/tripforge/tripforge/internal/types"
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

func testRequest() types.ItineraryRequest {
	origin := types.CityCandidate{Name: "Aix-en-Provence", Latitude: 43.5297, Longitude: 5.4474}
	destination := types.CityCandidate{Name: "Lyon", Latitude: 45.7640, Longitude: 4.8357}
	return types.ItineraryRequest{
		Origin:      &origin,
		Destination: &destination,
		Waypoints: []types.CityCandidate{
			{Name: "Avignon", Latitude: 43.9493, Longitude: 4.8055},
			{Name: "Valence", Latitude: 44.9334, Longitude: 4.8924},
		},
		Budget: "moderate",
	}
}

func itineraryResponse() string {
	return "```json\n" + `{
  "name": "Rhône Valley Road Trip",
  "description": "Three days from Provence to Lyon.",
  "days": [
    {"day": 1, "city": "Avignon", "morning": "Palais des Papes", "afternoon": "Pont d'Avignon", "evening": "Old town dinner", "driving_time": "1h from Aix-en-Provence"},
    {"day": 2, "city": "Valence", "morning": "Old town walk", "afternoon": "Parc Jouvet", "evening": "Local bistro", "driving_time": "1h15 from Avignon"},
    {"day": 3, "city": "Lyon", "morning": "Vieux Lyon", "afternoon": "Fourvière", "evening": "Bouchon dinner", "driving_time": "1h from Valence"}
  ]
}` + "\n```"
}

func TestGenerateItinerary_Success(t *testing.T) {
	gen := new(MockTextGenerator)
	gen.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything).
		Return(itineraryResponse(), nil).Once()

	svc := NewItineraryService(gen, discardLogger())
	itinerary, err := svc.GenerateItinerary(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "Rhône Valley Road Trip", itinerary.Name)
	require.Len(t, itinerary.Days, 3)
	assert.Equal(t, "Avignon", itinerary.Days[0].City)
	gen.AssertExpectations(t)
}

func TestGenerateItinerary_UsesLargeTokenBudget(t *testing.T) {
	gen := new(MockTextGenerator)
	gen.On("GenerateContent", mock.Anything, mock.Anything, mock.MatchedBy(func(config *genai.GenerateContentConfig) bool {
		return config.MaxOutputTokens == itineraryMaxTokens
	})).Return(itineraryResponse(), nil).Once()

	svc := NewItineraryService(gen, discardLogger())
	_, err := svc.GenerateItinerary(context.Background(), testRequest())
	require.NoError(t, err)
	gen.AssertExpectations(t)
}

func TestGenerateItinerary_EmptyRoute(t *testing.T) {
	svc := NewItineraryService(new(MockTextGenerator), discardLogger())
	_, err := svc.GenerateItinerary(context.Background(), types.ItineraryRequest{})
	assert.ErrorIs(t, err, ErrEmptyRoute)
}

func TestGenerateItinerary_CacheHit(t *testing.T) {
	gen := new(MockTextGenerator)
	gen.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything).
		Return(itineraryResponse(), nil).Once()

	svc := NewItineraryService(gen, discardLogger())
	first, err := svc.GenerateItinerary(context.Background(), testRequest())
	require.NoError(t, err)
	second, err := svc.GenerateItinerary(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Same(t, first, second)
	gen.AssertNumberOfCalls(t, "GenerateContent", 1)
}

func TestGenerateItinerary_CacheKeyedByRoute(t *testing.T) {
	gen := new(MockTextGenerator)
	gen.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything).
		Return(itineraryResponse(), nil)

	svc := NewItineraryService(gen, discardLogger())
	_, err := svc.GenerateItinerary(context.Background(), testRequest())
	require.NoError(t, err)

	other := testRequest()
	other.Waypoints = other.Waypoints[:1]
	_, err = svc.GenerateItinerary(context.Background(), other)
	require.NoError(t, err)

	gen.AssertNumberOfCalls(t, "GenerateContent", 2)
}

func TestGenerateItinerary_PermanentFailureFailsFast(t *testing.T) {
	gen := new(MockTextGenerator)
	gen.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("invalid api key"))

	svc := NewItineraryService(gen, discardLogger())
	_, err := svc.GenerateItinerary(context.Background(), testRequest())
	require.Error(t, err)
	gen.AssertNumberOfCalls(t, "GenerateContent", 1)
}

func TestGenerateItinerary_CanceledContextStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	gen := new(MockTextGenerator)
	gen.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return("", errors.New("model overloaded"))

	svc := NewItineraryService(gen, discardLogger())
	_, err := svc.GenerateItinerary(ctx, testRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	gen.AssertNumberOfCalls(t, "GenerateContent", 1)
}

func TestGenerateItinerary_UnparseableResponse(t *testing.T) {
	gen := new(MockTextGenerator)
	gen.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything).
		Return("no JSON in sight", nil).Once()

	svc := NewItineraryService(gen, discardLogger())
	_, err := svc.GenerateItinerary(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "repaired")
}

func TestGenerateItinerary_EmptyDaysRejected(t *testing.T) {
	gen := new(MockTextGenerator)
	gen.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything).
		Return(`{"name": "Empty", "description": "", "days": []}`, nil).Once()

	svc := NewItineraryService(gen, discardLogger())
	_, err := svc.GenerateItinerary(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no days")
}
