package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/aidledger-audit/internal/domain/shared"
)

// Kind identifies which ledger contract call a submission maps to
type Kind string

const (
	KindPredictionHash Kind = "prediction_hash" // addPredictionHash(regionId, hash)
	KindShipmentLog    Kind = "shipment_log"    // addShipmentLog(barcode, status, location)
)

// RecordState is the outcome the ledger assigned to a submission
type RecordState string

const (
	RecordStateConfirmed RecordState = "confirmed"
	RecordStateRejected  RecordState = "rejected"
)

// Payload carries the contract arguments of a submission. Shipment logs use
// Status and Location; prediction hashes use RegionID and Hash.
type Payload struct {
	Status   string `json:"status,omitempty" bson:"status,omitempty"`
	Location string `json:"location,omitempty" bson:"location,omitempty"`
	RegionID string `json:"region_id,omitempty" bson:"region_id,omitempty"`
	Hash     string `json:"hash,omitempty" bson:"hash,omitempty"`
}

// ShipmentLog builds the payload for a shipment status checkpoint
func ShipmentLog(status, location string) Payload {
	return Payload{Status: status, Location: location}
}

// PredictionHash builds the payload for a forecast hash commitment
func PredictionHash(regionID, hash string) Payload {
	return Payload{RegionID: regionID, Hash: hash}
}

// Validate checks that the payload carries the arguments kind requires
func (p Payload) Validate(kind Kind) error {
	switch kind {
	case KindShipmentLog:
		if strings.TrimSpace(p.Status) == "" {
			return shared.ValidationError{Field: "status", Reason: "shipment log requires a status"}
		}
	case KindPredictionHash:
		if strings.TrimSpace(p.RegionID) == "" || strings.TrimSpace(p.Hash) == "" {
			return shared.ValidationError{Field: "hash", Reason: "prediction hash requires region and hash"}
		}
	default:
		return shared.ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown event kind %q", kind)}
	}
	return nil
}

// Submission is the write request carried from the gateway to the ledger node
type Submission struct {
	TxHash      string    `json:"tx_hash"`
	Subject     string    `json:"subject"`
	Kind        Kind      `json:"kind"`
	Payload     Payload   `json:"payload"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Validate checks the envelope and its payload
func (s *Submission) Validate() error {
	if s.TxHash == "" {
		return shared.ValidationError{Field: "tx_hash", Reason: "must not be empty"}
	}
	if strings.TrimSpace(s.Subject) == "" {
		return shared.ValidationError{Field: "subject", Reason: "must not be empty"}
	}
	return s.Payload.Validate(s.Kind)
}

// Record is a sealed ledger transaction as stored by the ledger node
type Record struct {
	TxHash      string      `bson:"tx_hash"`
	Subject     string      `bson:"subject"`
	Kind        Kind        `bson:"kind"`
	Payload     Payload     `bson:"payload"`
	State       RecordState `bson:"state"`
	Reason      string      `bson:"reason,omitempty"`
	BlockNumber int64       `bson:"block_number"`
	Timestamp   int64       `bson:"timestamp"` // ledger-native unix seconds
	SubmittedAt time.Time   `bson:"submitted_at"`
}

// LogEntry is the ledger's view of one shipment checkpoint
type LogEntry struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
	Location  string `json:"location"`
}

// ToLogEntry projects a confirmed shipment-log record
func (r *Record) ToLogEntry() LogEntry {
	return LogEntry{
		Status:    r.Payload.Status,
		Timestamp: r.Timestamp,
		Location:  r.Payload.Location,
	}
}

// Receipt describes a confirmed transaction
type Receipt struct {
	TxID        string `json:"tx_id"`
	BlockNumber int64  `json:"block_number"`
	Timestamp   int64  `json:"timestamp"`
}
