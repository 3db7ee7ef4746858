package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aidledger-audit/internal/domain/prediction"
	"github.com/aidledger-audit/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const predictionColumns = `id, region_id, predicted, confidence, content_hash, source_hash, source, actual, accuracy, ledger_ref, shipment_id, created_at`

// PredictionRepository implements the prediction.Repository interface for PostgreSQL.
// Quantity maps are stored as JSONB.
type PredictionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewPredictionRepository creates a new PostgreSQL prediction repository
func NewPredictionRepository(logger *slog.Logger, db *persistence.PostgresDB) prediction.Repository {
	return &PredictionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to tx
func (r *PredictionRepository) WithTx(tx pgx.Tx) prediction.Repository {
	return &PredictionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new prediction
func (r *PredictionRepository) Create(ctx context.Context, p *prediction.Prediction) error {
	predicted, err := json.Marshal(p.Predicted)
	if err != nil {
		return fmt.Errorf("failed to marshal predicted quantities: %w", err)
	}

	query := `
		INSERT INTO predictions (id, region_id, predicted, confidence, content_hash, source_hash, source, ledger_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.querier.Exec(ctx, query,
		p.ID,
		p.RegionID,
		predicted,
		p.Confidence,
		p.ContentHash,
		p.SourceHash,
		string(p.Source),
		p.LedgerRef,
		p.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create prediction", "region_id", p.RegionID, "error", err)
		return fmt.Errorf("failed to create prediction: %w", err)
	}

	return nil
}

// GetByID retrieves a prediction by its ID
func (r *PredictionRepository) GetByID(ctx context.Context, id uuid.UUID) (*prediction.Prediction, error) {
	query := `SELECT ` + predictionColumns + ` FROM predictions WHERE id = $1`

	p, err := scanPrediction(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, prediction.ErrPredictionNotFound(id)
		}
		r.logger.Error("Failed to get prediction", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get prediction: %w", err)
	}

	return p, nil
}

// UpdateActuals stores delivered quantities, the resulting accuracy and the
// delivering shipment
func (r *PredictionRepository) UpdateActuals(ctx context.Context, p *prediction.Prediction) error {
	actual, err := json.Marshal(p.Actual)
	if err != nil {
		return fmt.Errorf("failed to marshal actual quantities: %w", err)
	}

	query := `
		UPDATE predictions
		SET actual = $1, accuracy = $2, shipment_id = $3
		WHERE id = $4
	`

	result, err := r.querier.Exec(ctx, query, actual, p.Accuracy, p.ShipmentID, p.ID)
	if err != nil {
		r.logger.Error("Failed to update prediction actuals", "id", p.ID.String(), "error", err)
		return fmt.Errorf("failed to update prediction actuals: %w", err)
	}
	if result.RowsAffected() == 0 {
		return prediction.ErrPredictionNotFound(p.ID)
	}

	return nil
}

// ListWithActuals returns every prediction that has delivered quantities, oldest first
func (r *PredictionRepository) ListWithActuals(ctx context.Context) ([]*prediction.Prediction, error) {
	query := `SELECT ` + predictionColumns + ` FROM predictions WHERE actual IS NOT NULL ORDER BY created_at ASC`

	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list predictions with actuals", "error", err)
		return nil, fmt.Errorf("failed to list predictions with actuals: %w", err)
	}
	defer rows.Close()

	var predictions []*prediction.Prediction
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		predictions = append(predictions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating predictions: %w", err)
	}

	return predictions, nil
}

// SetProvisionalRef stores the transaction hash returned at submission time
func (r *PredictionRepository) SetProvisionalRef(ctx context.Context, id uuid.UUID, ref string) error {
	query := `
		UPDATE predictions
		SET provisional_ref = $1
		WHERE id = $2 AND ledger_ref = 'pending'
	`

	if _, err := r.querier.Exec(ctx, query, ref, id); err != nil {
		r.logger.Error("Failed to set provisional ledger ref", "prediction_id", id.String(), "error", err)
		return fmt.Errorf("failed to set provisional ledger ref: %w", err)
	}

	return nil
}

// FinalizeLedgerRef moves a pending prediction commitment to its terminal reference
func (r *PredictionRepository) FinalizeLedgerRef(ctx context.Context, id uuid.UUID, ref string) error {
	query := `
		UPDATE predictions
		SET ledger_ref = $1
		WHERE id = $2 AND ledger_ref = 'pending'
	`

	result, err := r.querier.Exec(ctx, query, ref, id)
	if err != nil {
		r.logger.Error("Failed to finalize prediction ledger ref", "prediction_id", id.String(), "ref", ref, "error", err)
		return fmt.Errorf("failed to finalize prediction ledger ref: %w", err)
	}
	if result.RowsAffected() == 0 {
		return prediction.ErrAlreadyFinalized{PredictionID: id}
	}

	return nil
}

// ListStalePending returns predictions whose commitment is still pending and
// older than olderThan
func (r *PredictionRepository) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*prediction.Pending, error) {
	query := `
		SELECT id, region_id, content_hash, provisional_ref, created_at
		FROM predictions
		WHERE ledger_ref = 'pending' AND created_at < $1
		ORDER BY created_at ASC
		LIMIT $2
	`

	rows, err := r.querier.Query(ctx, query, olderThan, limit)
	if err != nil {
		r.logger.Error("Failed to list stale pending predictions", "error", err)
		return nil, fmt.Errorf("failed to list stale pending predictions: %w", err)
	}
	defer rows.Close()

	var pending []*prediction.Pending
	for rows.Next() {
		var p prediction.Pending
		if err := rows.Scan(&p.ID, &p.RegionID, &p.ContentHash, &p.ProvisionalRef, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pending prediction: %w", err)
		}
		pending = append(pending, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending predictions: %w", err)
	}

	return pending, nil
}

func scanPrediction(row pgx.Row) (*prediction.Prediction, error) {
	var p prediction.Prediction
	var source string
	var predicted, actual []byte
	err := row.Scan(
		&p.ID,
		&p.RegionID,
		&predicted,
		&p.Confidence,
		&p.ContentHash,
		&p.SourceHash,
		&source,
		&actual,
		&p.Accuracy,
		&p.LedgerRef,
		&p.ShipmentID,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Source = prediction.Source(source)

	if err := json.Unmarshal(predicted, &p.Predicted); err != nil {
		return nil, fmt.Errorf("failed to decode predicted quantities: %w", err)
	}
	if len(actual) > 0 {
		if err := json.Unmarshal(actual, &p.Actual); err != nil {
			return nil, fmt.Errorf("failed to decode actual quantities: %w", err)
		}
	}

	return &p, nil
}
