package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aidledger-audit/internal/api_gateway/service"
	"github.com/aidledger-audit/internal/domain/audit"
)

// ActorHeader identifies the acting user on delivery confirmation
const ActorHeader = "X-Actor-ID"

// ShipmentHandler handles HTTP requests for shipment lifecycle operations
type ShipmentHandler struct {
	shipmentService service.ShipmentService
	logger          *slog.Logger
}

// NewShipmentHandler creates a new shipment handler
func NewShipmentHandler(logger *slog.Logger, shipmentService service.ShipmentService) *ShipmentHandler {
	return &ShipmentHandler{
		shipmentService: shipmentService,
		logger:          logger,
	}
}

// Register creates a shipment in Registered
func (h *ShipmentHandler) Register(c *gin.Context) {
	var req RegisterShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	in := service.RegisterShipmentRequest{
		Barcode:               req.Barcode,
		SourceLocationID:      uuid.MustParse(req.SourceLocationID),
		DestinationLocationID: uuid.MustParse(req.DestinationLocationID),
	}
	if req.PredictionID != "" {
		id := uuid.MustParse(req.PredictionID)
		in.PredictionID = &id
	}

	sh, err := h.shipmentService.Register(c.Request.Context(), in)
	if err != nil {
		h.logger.Error("Failed to register shipment", "barcode", req.Barcode, "error", err)
		RespondError(c, err)
		return
	}

	RespondCreated(c, mapShipmentToResponse(sh))
}

func (h *ShipmentHandler) Get(c *gin.Context) {
	barcode := c.Param("barcode")

	sh, err := h.shipmentService.GetShipment(c.Request.Context(), barcode)
	if err != nil {
		h.logger.Error("Failed to get shipment", "barcode", barcode, "error", err)
		RespondError(c, err)
		return
	}

	RespondOK(c, mapShipmentToResponse(sh))
}

func (h *ShipmentHandler) AuditLog(c *gin.Context) {
	barcode := c.Param("barcode")

	entries, err := h.shipmentService.AuditLog(c.Request.Context(), barcode)
	if err != nil {
		h.logger.Error("Failed to get audit log", "barcode", barcode, "error", err)
		RespondError(c, err)
		return
	}

	RespondOK(c, mapAuditEntries(entries))
}

// Transition applies a status change and returns before the ledger commit completes
func (h *ShipmentHandler) Transition(c *gin.Context) {
	barcode := c.Param("barcode")

	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	sh, err := h.shipmentService.Transition(c.Request.Context(), barcode, req.Status)
	if err != nil {
		RespondError(c, err)
		return
	}

	RespondAccepted(c, TransitionResponse{
		Shipment:     mapShipmentToResponse(sh),
		LedgerStatus: audit.LedgerRefPending,
	})
}

// ConfirmDelivery records delivered quantities on an arrived shipment
func (h *ShipmentHandler) ConfirmDelivery(c *gin.Context) {
	barcode := c.Param("barcode")

	actorID, err := uuid.Parse(strings.TrimSpace(c.GetHeader(ActorHeader)))
	if err != nil {
		RespondWithError(c, http.StatusForbidden, "FORBIDDEN", "A valid "+ActorHeader+" header is required")
		return
	}

	var req ConfirmDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	sh, err := h.shipmentService.ConfirmDelivery(c.Request.Context(), barcode, actorID, req.ActualQuantities)
	if err != nil {
		RespondError(c, err)
		return
	}

	RespondAccepted(c, TransitionResponse{
		Shipment:     mapShipmentToResponse(sh),
		LedgerStatus: audit.LedgerRefPending,
	})
}

func mapAuditEntries(entries []*audit.Entry) []AuditEntryResponse {
	out := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, mapAuditEntryToResponse(e))
	}
	return out
}
