package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aidledger-audit/internal/domain/audit"
	"github.com/aidledger-audit/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AuditRepository implements the audit.Repository interface for PostgreSQL
type AuditRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewAuditRepository creates a new PostgreSQL audit trail repository
func NewAuditRepository(logger *slog.Logger, db *persistence.PostgresDB) audit.Repository {
	return &AuditRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to tx
func (r *AuditRepository) WithTx(tx pgx.Tx) audit.Repository {
	return &AuditRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create appends an entry to a shipment's audit trail
func (r *AuditRepository) Create(ctx context.Context, e *audit.Entry) error {
	query := `
		INSERT INTO audit_log (id, shipment_id, status, location_label, ledger_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.querier.Exec(ctx, query, e.ID, e.ShipmentID, e.Status, e.LocationLabel, e.LedgerRef, e.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create audit entry", "shipment_id", e.ShipmentID.String(), "status", e.Status, "error", err)
		return fmt.Errorf("failed to create audit entry: %w", err)
	}

	return nil
}

// ListByShipment returns the entries of a shipment ordered by creation time,
// with the insertion sequence breaking ties
func (r *AuditRepository) ListByShipment(ctx context.Context, shipmentID uuid.UUID) ([]*audit.Entry, error) {
	query := `
		SELECT id, shipment_id, status, location_label, ledger_ref, provisional_ref, created_at
		FROM audit_log
		WHERE shipment_id = $1
		ORDER BY created_at ASC, seq ASC
	`

	rows, err := r.querier.Query(ctx, query, shipmentID)
	if err != nil {
		r.logger.Error("Failed to list audit entries", "shipment_id", shipmentID.String(), "error", err)
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*audit.Entry, 0)
	for rows.Next() {
		var e audit.Entry
		if err := rows.Scan(&e.ID, &e.ShipmentID, &e.Status, &e.LocationLabel, &e.LedgerRef, &e.ProvisionalRef, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit entries: %w", err)
	}

	return entries, nil
}

// SetProvisionalRef stores the transaction hash returned at submission time.
// Only pending entries are touched.
func (r *AuditRepository) SetProvisionalRef(ctx context.Context, id uuid.UUID, ref string) error {
	query := `
		UPDATE audit_log
		SET provisional_ref = $1
		WHERE id = $2 AND ledger_ref = 'pending'
	`

	if _, err := r.querier.Exec(ctx, query, ref, id); err != nil {
		r.logger.Error("Failed to set provisional ledger ref", "entry_id", id.String(), "error", err)
		return fmt.Errorf("failed to set provisional ledger ref: %w", err)
	}

	return nil
}

// FinalizeLedgerRef moves a pending entry to its terminal reference
func (r *AuditRepository) FinalizeLedgerRef(ctx context.Context, id uuid.UUID, ref string) error {
	query := `
		UPDATE audit_log
		SET ledger_ref = $1
		WHERE id = $2 AND ledger_ref = 'pending'
	`

	result, err := r.querier.Exec(ctx, query, ref, id)
	if err != nil {
		r.logger.Error("Failed to finalize ledger ref", "entry_id", id.String(), "ref", ref, "error", err)
		return fmt.Errorf("failed to finalize ledger ref: %w", err)
	}
	if result.RowsAffected() == 0 {
		return audit.ErrAlreadyFinalized{EntryID: id}
	}

	return nil
}

// ListStalePending returns pending entries older than olderThan together
// with their shipment barcode, oldest first
func (r *AuditRepository) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*audit.Pending, error) {
	query := `
		SELECT a.id, a.shipment_id, a.status, a.location_label, a.ledger_ref, a.provisional_ref, a.created_at, s.barcode
		FROM audit_log a
		JOIN shipments s ON s.id = a.shipment_id
		WHERE a.ledger_ref = 'pending' AND a.created_at < $1
		ORDER BY a.created_at ASC, a.seq ASC
		LIMIT $2
	`

	rows, err := r.querier.Query(ctx, query, olderThan, limit)
	if err != nil {
		r.logger.Error("Failed to list stale pending audit entries", "error", err)
		return nil, fmt.Errorf("failed to list stale pending audit entries: %w", err)
	}
	defer rows.Close()

	var pending []*audit.Pending
	for rows.Next() {
		var p audit.Pending
		if err := rows.Scan(&p.ID, &p.ShipmentID, &p.Status, &p.LocationLabel, &p.LedgerRef, &p.ProvisionalRef, &p.CreatedAt, &p.Barcode); err != nil {
			return nil, fmt.Errorf("failed to scan pending audit entry: %w", err)
		}
		pending = append(pending, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending audit entries: %w", err)
	}

	return pending, nil
}
