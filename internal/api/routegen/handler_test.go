package routegen

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tripforge/tripforge/internal/types"
)

type MockRouteGenService struct {
	mock.Mock
}

var _ Service = (*MockRouteGenService)(nil)

func (m *MockRouteGenService) StartGeneration(ctx context.Context, req types.CreateRouteRequest) (*types.JobAcceptedResponse, error) {
	args := m.Called(ctx, req)
	if resp := args.Get(0); resp != nil {
		return resp.(*types.JobAcceptedResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRouteGenService) GetJob(ctx context.Context, jobID string) (*types.JobStatusResponse, error) {
	args := m.Called(ctx, jobID)
	if resp := args.Get(0); resp != nil {
		return resp.(*types.JobStatusResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRouteGenService) ExpandRoute(ctx context.Context, req types.ExpandRouteRequest) (*types.ExpandRouteResponse, error) {
	args := m.Called(ctx, req)
	if resp := args.Get(0); resp != nil {
		return resp.(*types.ExpandRouteResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRouteGenService) InsertionCost(ctx context.Context, req types.InsertionCostRequest) (*types.InsertionCostResponse, error) {
	args := m.Called(ctx, req)
	if resp := args.Get(0); resp != nil {
		return resp.(*types.InsertionCostResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func newTestRouter(service Service) http.Handler {
	h := NewRouteGenHandler(service, discardLogger())
	r := chi.NewRouter()
	r.Post("/routes/generate", h.CreateRoute)
	r.Get("/routes/jobs/{jobID}", h.GetJob)
	r.Post("/routes/expand", h.ExpandRoute)
	r.Post("/routes/insertion-cost", h.InsertionCost)
	return r
}

func TestCreateRouteHandler(t *testing.T) {
	t.Run("accepts valid request", func(t *testing.T) {
		svc := new(MockRouteGenService)
		svc.On("StartGeneration", mock.Anything, mock.MatchedBy(func(req types.CreateRouteRequest) bool {
			return req.Destination == "Lyon" && req.Stops == 3
		})).Return(&types.JobAcceptedResponse{JobID: "job-42", Status: types.JobStatusProcessing}, nil).Once()

		body := bytes.NewBufferString(`{"destination": "Lyon", "stops": 3, "sources": ["culture", "food"]}`)
		req := httptest.NewRequest(http.MethodPost, "/routes/generate", body)
		rec := httptest.NewRecorder()
		newTestRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusAccepted, rec.Code)
		var accepted types.JobAcceptedResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))
		assert.Equal(t, "job-42", accepted.JobID)
		assert.Equal(t, types.JobStatusProcessing, accepted.Status)
		svc.AssertExpectations(t)
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		svc := new(MockRouteGenService)
		req := httptest.NewRequest(http.MethodPost, "/routes/generate", bytes.NewBufferString(`{"destination": `))
		rec := httptest.NewRecorder()
		newTestRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		svc.AssertNotCalled(t, "StartGeneration")
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		svc := new(MockRouteGenService)
		req := httptest.NewRequest(http.MethodPost, "/routes/generate", bytes.NewBufferString(`{"destination": "Lyon", "stops": 3, "surprise": true}`))
		rec := httptest.NewRecorder()
		newTestRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "surprise")
	})

	t.Run("maps validation failure to 400", func(t *testing.T) {
		svc := new(MockRouteGenService)
		svc.On("StartGeneration", mock.Anything, mock.Anything).
			Return(nil, assert.AnError).Once()

		req := httptest.NewRequest(http.MethodPost, "/routes/generate", bytes.NewBufferString(`{"destination": "Lyon", "stops": 99}`))
		rec := httptest.NewRecorder()
		newTestRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetJobHandler(t *testing.T) {
	t.Run("returns job status", func(t *testing.T) {
		svc := new(MockRouteGenService)
		svc.On("GetJob", mock.Anything, "job-42").Return(&types.JobStatusResponse{
			ID:     "job-42",
			Status: types.JobStatusProcessing,
			Progress: types.JobProgress{
				Total:     2,
				Completed: 1,
			},
		}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/routes/jobs/job-42", nil)
		rec := httptest.NewRecorder()
		newTestRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var status types.JobStatusResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
		assert.Equal(t, "job-42", status.ID)
		assert.Equal(t, 1, status.Progress.Completed)
		assert.Nil(t, status.Route)
	})

	t.Run("unknown job is 404", func(t *testing.T) {
		svc := new(MockRouteGenService)
		svc.On("GetJob", mock.Anything, "gone").Return(nil, ErrJobNotFound).Once()

		req := httptest.NewRequest(http.MethodGet, "/routes/jobs/gone", nil)
		rec := httptest.NewRecorder()
		newTestRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestExpandRouteHandler(t *testing.T) {
	t.Run("expands route", func(t *testing.T) {
		svc := new(MockRouteGenService)
		inserted := city("Valence", 44.9334, 4.8924)
		svc.On("ExpandRoute", mock.Anything, mock.Anything).Return(&types.ExpandRouteResponse{
			Route:    []types.CityCandidate{city("Aix-en-Provence", 43.5297, 5.4474), inserted, city("Lyon", 45.7640, 4.8357)},
			Inserted: &inserted,
			DetourKm: 12.5,
		}, nil).Once()

		body := bytes.NewBufferString(`{"route": [{"name": "Aix-en-Provence", "latitude": 43.5297, "longitude": 5.4474, "description": ""}], "candidates": []}`)
		req := httptest.NewRequest(http.MethodPost, "/routes/expand", body)
		rec := httptest.NewRecorder()
		newTestRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp types.ExpandRouteResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Len(t, resp.Route, 3)
		assert.InDelta(t, 12.5, resp.DetourKm, 1e-9)
	})

	t.Run("uninsertable candidate is 422", func(t *testing.T) {
		svc := new(MockRouteGenService)
		svc.On("ExpandRoute", mock.Anything, mock.Anything).Return(nil, ErrNoInsertableCity).Once()

		body := bytes.NewBufferString(`{"route": [], "candidates": []}`)
		req := httptest.NewRequest(http.MethodPost, "/routes/expand", body)
		rec := httptest.NewRecorder()
		newTestRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestInsertionCostHandler(t *testing.T) {
	svc := new(MockRouteGenService)
	svc.On("InsertionCost", mock.Anything, mock.Anything).Return(&types.InsertionCostResponse{
		DetourKm: 7.3,
		Position: 1,
	}, nil).Once()

	body := bytes.NewBufferString(`{"route": [], "city": {"name": "Valence", "latitude": 44.9334, "longitude": 4.8924, "description": ""}}`)
	req := httptest.NewRequest(http.MethodPost, "/routes/insertion-cost", body)
	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp types.InsertionCostResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Position)
	assert.InDelta(t, 7.3, resp.DetourKm, 1e-9)
}
