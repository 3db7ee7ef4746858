package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aidledger-audit/internal/api_gateway/service"
	"github.com/aidledger-audit/internal/domain/prediction"
	"github.com/aidledger-audit/internal/domain/shared"
)

func newPredictionRouter(svc *MockPredictionService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewPredictionHandler(newTestLogger(), svc)
	r := gin.New()
	r.POST("/predictions", h.Create)
	r.GET("/predictions/accuracy", h.Accuracy)
	r.GET("/predictions/:id", h.GetByID)
	return r
}

func samplePrediction(t *testing.T) *prediction.Prediction {
	t.Helper()
	p, err := prediction.NewPrediction("hatay", map[string]float64{"tent": 100, "water": 500}, 0.9,
		"3f1c0a9e", "3f1c0a9e", prediction.SourceModel)
	require.NoError(t, err)
	return p
}

func TestPredictionHandler_Create(t *testing.T) {
	t.Run("Accepted", func(t *testing.T) {
		svc := new(MockPredictionService)
		p := samplePrediction(t)
		svc.On("CreatePrediction", mock.Anything, "hatay").Return(p, nil).Once()

		w, resp := perform(t, newPredictionRouter(svc), http.MethodPost, "/predictions", gin.H{"region_id": "hatay"}, nil)

		assert.Equal(t, http.StatusAccepted, w.Code)
		var body PredictionResponse
		require.NoError(t, json.Unmarshal(resp.Data, &body))
		assert.Equal(t, p.ID.String(), body.ID)
		assert.Equal(t, "pending", body.LedgerRef)
		assert.Equal(t, "model", body.Source)
		assert.Nil(t, body.Accuracy)
		svc.AssertExpectations(t)
	})

	t.Run("MissingRegion", func(t *testing.T) {
		svc := new(MockPredictionService)

		w, _ := perform(t, newPredictionRouter(svc), http.MethodPost, "/predictions", gin.H{}, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "CreatePrediction", mock.Anything, mock.Anything)
	})

	t.Run("BlankRegion", func(t *testing.T) {
		svc := new(MockPredictionService)
		svc.On("CreatePrediction", mock.Anything, "  ").
			Return(nil, shared.ValidationError{Field: "region_id", Reason: "must not be empty"})

		w, _ := perform(t, newPredictionRouter(svc), http.MethodPost, "/predictions", gin.H{"region_id": "  "}, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestPredictionHandler_GetByID(t *testing.T) {
	t.Run("Found", func(t *testing.T) {
		svc := new(MockPredictionService)
		p := samplePrediction(t)
		score := 87.5
		p.Accuracy = &score
		svc.On("GetPrediction", mock.Anything, p.ID).Return(p, nil)

		w, resp := perform(t, newPredictionRouter(svc), http.MethodGet, "/predictions/"+p.ID.String(), nil, nil)

		assert.Equal(t, http.StatusOK, w.Code)
		var body PredictionResponse
		require.NoError(t, json.Unmarshal(resp.Data, &body))
		require.NotNil(t, body.Accuracy)
		assert.InDelta(t, 87.5, *body.Accuracy, 1e-9)
	})

	t.Run("InvalidID", func(t *testing.T) {
		svc := new(MockPredictionService)

		w, _ := perform(t, newPredictionRouter(svc), http.MethodGet, "/predictions/not-a-uuid", nil, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "GetPrediction", mock.Anything, mock.Anything)
	})

	t.Run("NotFound", func(t *testing.T) {
		svc := new(MockPredictionService)
		id := uuid.New()
		svc.On("GetPrediction", mock.Anything, id).Return(nil, prediction.ErrPredictionNotFound(id))

		w, _ := perform(t, newPredictionRouter(svc), http.MethodGet, "/predictions/"+id.String(), nil, nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestPredictionHandler_Accuracy(t *testing.T) {
	t.Run("Summary", func(t *testing.T) {
		svc := new(MockPredictionService)
		id := uuid.New()
		svc.On("DashboardAccuracy", mock.Anything).Return(&service.AccuracySummary{
			Overall:     82.5,
			Evaluated:   1,
			Predictions: []service.PredictionAccuracy{{ID: id, RegionID: "hatay", Accuracy: 82.5}},
		}, nil)

		w, resp := perform(t, newPredictionRouter(svc), http.MethodGet, "/predictions/accuracy", nil, nil)

		assert.Equal(t, http.StatusOK, w.Code)
		var body service.AccuracySummary
		require.NoError(t, json.Unmarshal(resp.Data, &body))
		assert.Equal(t, 1, body.Evaluated)
		assert.InDelta(t, 82.5, body.Overall, 1e-9)
		require.Len(t, body.Predictions, 1)
		assert.Equal(t, id, body.Predictions[0].ID)
	})

	t.Run("StoreFailure", func(t *testing.T) {
		svc := new(MockPredictionService)
		svc.On("DashboardAccuracy", mock.Anything).Return(nil, errors.New("connection reset"))

		w, resp := perform(t, newPredictionRouter(svc), http.MethodGet, "/predictions/accuracy", nil, nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "INTERNAL_SERVER_ERROR", resp.Error.Code)
	})
}
