package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aidledger-audit/internal/api_gateway/service"
)

// PredictionHandler handles HTTP requests for demand forecasts
type PredictionHandler struct {
	predictionService service.PredictionService
	logger            *slog.Logger
}

// NewPredictionHandler creates a new prediction handler
func NewPredictionHandler(logger *slog.Logger, predictionService service.PredictionService) *PredictionHandler {
	return &PredictionHandler{
		predictionService: predictionService,
		logger:            logger,
	}
}

// Create fetches a forecast and schedules the commit of its hash
func (h *PredictionHandler) Create(c *gin.Context) {
	var req CreatePredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	p, err := h.predictionService.CreatePrediction(c.Request.Context(), req.RegionID)
	if err != nil {
		h.logger.Error("Failed to create prediction", "region_id", req.RegionID, "error", err)
		RespondError(c, err)
		return
	}

	RespondAccepted(c, mapPredictionToResponse(p))
}

// GetByID retrieves a prediction, returns 404 if not found
func (h *PredictionHandler) GetByID(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid prediction ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid prediction ID")
		return
	}

	p, err := h.predictionService.GetPrediction(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}

	RespondOK(c, mapPredictionToResponse(p))
}

func (h *PredictionHandler) Accuracy(c *gin.Context) {
	summary, err := h.predictionService.DashboardAccuracy(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to compute accuracy dashboard", "error", err)
		RespondError(c, err)
		return
	}

	RespondOK(c, summary)
}
