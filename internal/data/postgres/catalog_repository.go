package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aidledger-audit/internal/domain/catalog"
	"github.com/aidledger-audit/internal/domain/shared"
	"github.com/aidledger-audit/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CatalogRepository implements the catalog.Repository interface for PostgreSQL
type CatalogRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewCatalogRepository creates a new PostgreSQL catalog repository
func NewCatalogRepository(logger *slog.Logger, db *persistence.PostgresDB) catalog.Repository {
	return &CatalogRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *CatalogRepository) GetLocation(ctx context.Context, id uuid.UUID) (*catalog.Location, error) {
	query := `SELECT id, name FROM locations WHERE id = $1`

	var l catalog.Location
	if err := r.querier.QueryRow(ctx, query, id).Scan(&l.ID, &l.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFoundError{Resource: "location", Key: id.String()}
		}
		r.logger.Error("Failed to get location", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get location: %w", err)
	}

	return &l, nil
}

func (r *CatalogRepository) GetActor(ctx context.Context, id uuid.UUID) (*catalog.Actor, error) {
	query := `SELECT id, name, role, location_id FROM actors WHERE id = $1`

	var a catalog.Actor
	var role string
	if err := r.querier.QueryRow(ctx, query, id).Scan(&a.ID, &a.Name, &role, &a.LocationID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFoundError{Resource: "actor", Key: id.String()}
		}
		r.logger.Error("Failed to get actor", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get actor: %w", err)
	}
	a.Role = catalog.Role(role)

	return &a, nil
}

func (r *CatalogRepository) ListItemKeys(ctx context.Context) ([]string, error) {
	query := `SELECT key FROM items ORDER BY key`

	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list catalog items", "error", err)
		return nil, fmt.Errorf("failed to list catalog items: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan catalog item: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating catalog items: %w", err)
	}

	return keys, nil
}
