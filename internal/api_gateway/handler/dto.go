package handler

import (
	"time"

	"github.com/aidledger-audit/internal/domain/audit"
	"github.com/aidledger-audit/internal/domain/ledger"
	"github.com/aidledger-audit/internal/domain/prediction"
	"github.com/aidledger-audit/internal/domain/reconciliation"
	"github.com/aidledger-audit/internal/domain/shipment"
)

// RegisterShipmentRequest represents a request to register a new shipment
type RegisterShipmentRequest struct {
	Barcode               string `json:"barcode" binding:"required"`
	SourceLocationID      string `json:"source_location_id" binding:"required,uuid"`
	DestinationLocationID string `json:"destination_location_id" binding:"required,uuid"`
	PredictionID          string `json:"prediction_id,omitempty" binding:"omitempty,uuid"`
}

// TransitionRequest represents a status change of a shipment
type TransitionRequest struct {
	Status string `json:"status" binding:"required"`
}

// ConfirmDeliveryRequest carries the delivered quantities per item key
type ConfirmDeliveryRequest struct {
	ActualQuantities map[string]float64 `json:"actual_quantities" binding:"required"`
}

// CreatePredictionRequest asks for a forecast of one region
type CreatePredictionRequest struct {
	RegionID string `json:"region_id" binding:"required"`
}

// ShipmentResponse represents a shipment in API responses
type ShipmentResponse struct {
	ID                    string `json:"id"`
	Barcode               string `json:"barcode"`
	Status                string `json:"status"`
	SourceLocationID      string `json:"source_location_id"`
	DestinationLocationID string `json:"destination_location_id"`
	PredictionID          string `json:"prediction_id,omitempty"`
	ConfirmedBy           string `json:"confirmed_by,omitempty"`
	CreatedAt             string `json:"created_at"`
	UpdatedAt             string `json:"updated_at"`
}

// TransitionResponse is returned once the change is stored and its ledger commit scheduled
type TransitionResponse struct {
	Shipment     ShipmentResponse `json:"shipment"`
	LedgerStatus string           `json:"ledger_status"`
}

// AuditEntryResponse represents one audit trail entry
type AuditEntryResponse struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Location  string `json:"location"`
	LedgerRef string `json:"ledger_ref"`
	Timestamp string `json:"timestamp"`
}

// ReconciliationResponse is the comparison of ledger and database histories
type ReconciliationResponse struct {
	Barcode               string            `json:"barcode"`
	BlockchainRecordCount int               `json:"blockchainRecordCount"`
	DatabaseRecordCount   int               `json:"databaseRecordCount"`
	VerificationStatus    string            `json:"verificationStatus"`
	BlockchainHistory     []ledger.LogEntry `json:"blockchainHistory"`
}

// PredictionResponse represents a prediction in API responses
type PredictionResponse struct {
	ID          string             `json:"id"`
	RegionID    string             `json:"region_id"`
	Predicted   map[string]float64 `json:"predicted_quantities"`
	Confidence  float64            `json:"confidence"`
	ContentHash string             `json:"content_hash"`
	Source      string             `json:"source"`
	Actual      map[string]float64 `json:"actual_quantities,omitempty"`
	Accuracy    *float64           `json:"accuracy,omitempty"`
	LedgerRef   string             `json:"ledger_ref,omitempty"`
	CreatedAt   string             `json:"created_at"`
}

func mapShipmentToResponse(s *shipment.Shipment) ShipmentResponse {
	resp := ShipmentResponse{
		ID:                    s.ID.String(),
		Barcode:               s.Barcode,
		Status:                string(s.Status),
		SourceLocationID:      s.SourceLocationID.String(),
		DestinationLocationID: s.DestinationLocationID.String(),
		CreatedAt:             s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:             s.UpdatedAt.Format(time.RFC3339),
	}
	if s.PredictionID != nil {
		resp.PredictionID = s.PredictionID.String()
	}
	if s.ConfirmedBy != nil {
		resp.ConfirmedBy = s.ConfirmedBy.String()
	}
	return resp
}

func mapAuditEntryToResponse(e *audit.Entry) AuditEntryResponse {
	return AuditEntryResponse{
		ID:        e.ID.String(),
		Status:    e.Status,
		Location:  e.LocationLabel,
		LedgerRef: e.LedgerRef,
		Timestamp: e.CreatedAt.Format(time.RFC3339),
	}
}

func mapVerdictToResponse(barcode string, v *reconciliation.Verdict) ReconciliationResponse {
	return ReconciliationResponse{
		Barcode:               barcode,
		BlockchainRecordCount: v.LedgerCount,
		DatabaseRecordCount:   v.DBCount,
		VerificationStatus:    string(v.Status),
		BlockchainHistory:     v.LedgerHistory,
	}
}

func mapPredictionToResponse(p *prediction.Prediction) PredictionResponse {
	resp := PredictionResponse{
		ID:          p.ID.String(),
		RegionID:    p.RegionID,
		Predicted:   p.Predicted,
		Confidence:  p.Confidence,
		ContentHash: p.ContentHash,
		Source:      string(p.Source),
		Actual:      p.Actual,
		Accuracy:    p.Accuracy,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
	}
	if p.LedgerRef != nil {
		resp.LedgerRef = *p.LedgerRef
	}
	return resp
}
