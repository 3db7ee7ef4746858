package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/aidledger-audit/internal/api_gateway/service"
)

// ReconciliationHandler compares ledger and database histories of a shipment
type ReconciliationHandler struct {
	reconciliationService service.ReconciliationService
	logger                *slog.Logger
}

func NewReconciliationHandler(logger *slog.Logger, reconciliationService service.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{
		reconciliationService: reconciliationService,
		logger:                logger,
	}
}

func (h *ReconciliationHandler) Reconcile(c *gin.Context) {
	barcode := c.Param("barcode")

	verdict, err := h.reconciliationService.Reconcile(c.Request.Context(), barcode)
	if err != nil {
		h.logger.Error("Failed to reconcile shipment", "barcode", barcode, "error", err)
		RespondError(c, err)
		return
	}

	RespondOK(c, mapVerdictToResponse(barcode, verdict))
}
