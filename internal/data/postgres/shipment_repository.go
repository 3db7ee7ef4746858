// Package postgres provides PostgreSQL implementations of the domain
// repositories: shipments, their audit trail, predictions and the read-only
// catalog.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aidledger-audit/internal/domain/shipment"
	"github.com/aidledger-audit/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const shipmentColumns = `id, barcode, status, source_location_id, destination_location_id, prediction_id, confirmed_by, created_at, updated_at`

// ShipmentRepository implements the shipment.Repository interface for PostgreSQL
type ShipmentRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewShipmentRepository creates a new PostgreSQL shipment repository
func NewShipmentRepository(logger *slog.Logger, db *persistence.PostgresDB) shipment.Repository {
	return &ShipmentRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to tx
func (r *ShipmentRepository) WithTx(tx pgx.Tx) shipment.Repository {
	return &ShipmentRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new shipment. A duplicate barcode yields a conflict error.
func (r *ShipmentRepository) Create(ctx context.Context, s *shipment.Shipment) error {
	query := `
		INSERT INTO shipments (` + shipmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.querier.Exec(ctx, query,
		s.ID,
		s.Barcode,
		string(s.Status),
		s.SourceLocationID,
		s.DestinationLocationID,
		s.PredictionID,
		s.ConfirmedBy,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return shipment.ErrDuplicateBarcode(s.Barcode)
		}
		r.logger.Error("Failed to create shipment", "barcode", s.Barcode, "error", err)
		return fmt.Errorf("failed to create shipment: %w", err)
	}

	return nil
}

// GetByBarcode retrieves a shipment by its external barcode
func (r *ShipmentRepository) GetByBarcode(ctx context.Context, barcode string) (*shipment.Shipment, error) {
	query := `SELECT ` + shipmentColumns + ` FROM shipments WHERE barcode = $1`
	return r.getOne(ctx, query, barcode, barcode)
}

// LockByBarcode reads a shipment and holds a row lock until the surrounding
// transaction ends, serializing concurrent transitions of the same shipment.
func (r *ShipmentRepository) LockByBarcode(ctx context.Context, barcode string) (*shipment.Shipment, error) {
	query := `SELECT ` + shipmentColumns + ` FROM shipments WHERE barcode = $1 FOR UPDATE`
	return r.getOne(ctx, query, barcode, barcode)
}

// UpdateStatus persists the lifecycle fields of a shipment
func (r *ShipmentRepository) UpdateStatus(ctx context.Context, s *shipment.Shipment) error {
	query := `
		UPDATE shipments
		SET status = $1, confirmed_by = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := r.querier.Exec(ctx, query, string(s.Status), s.ConfirmedBy, s.UpdatedAt, s.ID)
	if err != nil {
		r.logger.Error("Failed to update shipment status", "id", s.ID.String(), "status", s.Status, "error", err)
		return fmt.Errorf("failed to update shipment status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shipment.ErrShipmentNotFound(s.ID.String())
	}

	return nil
}

func (r *ShipmentRepository) getOne(ctx context.Context, query, key string, arg interface{}) (*shipment.Shipment, error) {
	var s shipment.Shipment
	var status string
	err := r.querier.QueryRow(ctx, query, arg).Scan(
		&s.ID,
		&s.Barcode,
		&status,
		&s.SourceLocationID,
		&s.DestinationLocationID,
		&s.PredictionID,
		&s.ConfirmedBy,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shipment.ErrShipmentNotFound(key)
		}
		r.logger.Error("Failed to get shipment", "key", key, "error", err)
		return nil, fmt.Errorf("failed to get shipment: %w", err)
	}
	s.Status = shipment.Status(status)

	return &s, nil
}
