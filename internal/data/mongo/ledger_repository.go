// Package mongo stores sealed ledger records for the development ledger node.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/aidledger-audit/internal/domain/ledger"
)

const (
	// DefaultLedgerCollection is used when no collection name is configured
	DefaultLedgerCollection = "ledger_records"

	countersCollection = "ledger_counters"
	blockCounterID     = "block_number"
)

var _ ledger.Repository = (*LedgerRepository)(nil)

// LedgerRepository implements the ledger.Repository interface for MongoDB
type LedgerRepository struct {
	db         *mongo.Database
	collection string
	logger     *slog.Logger
}

// NewLedgerRepository creates a new MongoDB ledger repository
func NewLedgerRepository(logger *slog.Logger, db *mongo.Database, collection string) *LedgerRepository {
	if collection == "" {
		collection = DefaultLedgerCollection
	}
	return &LedgerRepository{
		db:         db,
		collection: collection,
		logger:     logger,
	}
}

// EnsureIndexes creates the unique tx hash index and the per-subject lookup index
func (r *LedgerRepository) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "tx_hash", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "subject", Value: 1},
				{Key: "kind", Value: 1},
				{Key: "state", Value: 1},
				{Key: "block_number", Value: 1},
			},
		},
	}

	if _, err := r.db.Collection(r.collection).Indexes().CreateMany(ctx, models); err != nil {
		r.logger.Error("Failed to create ledger indexes", "collection", r.collection, "error", err)
		return fmt.Errorf("failed to create ledger indexes: %w", err)
	}
	return nil
}

// Insert stores a sealed record. The unique index on tx_hash makes a second
// insert of the same transaction fail with ErrDuplicateRecord.
func (r *LedgerRepository) Insert(ctx context.Context, record *ledger.Record) error {
	_, err := r.db.Collection(r.collection).InsertOne(ctx, record)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ledger.ErrDuplicateRecord{TxHash: record.TxHash}
		}
		r.logger.Error("Failed to insert ledger record",
			"tx_hash", record.TxHash,
			"error", err)
		return fmt.Errorf("failed to insert ledger record: %w", err)
	}

	return nil
}

// GetByTxHash retrieves a record by transaction hash.
// Returns ErrRecordNotFound if the transaction was never sealed.
func (r *LedgerRepository) GetByTxHash(ctx context.Context, txHash string) (*ledger.Record, error) {
	var record ledger.Record
	err := r.db.Collection(r.collection).FindOne(ctx, bson.M{"tx_hash": txHash}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ledger.ErrRecordNotFound{TxHash: txHash}
		}
		r.logger.Error("Failed to get ledger record",
			"tx_hash", txHash,
			"error", err)
		return nil, fmt.Errorf("failed to get ledger record: %w", err)
	}

	return &record, nil
}

// ListBySubject returns the records of one subject, kind and state in block
// order, with the tx hash breaking ties inside a block
func (r *LedgerRepository) ListBySubject(ctx context.Context, subject string, kind ledger.Kind, state ledger.RecordState) ([]*ledger.Record, error) {
	filter := bson.M{
		"subject": subject,
		"kind":    kind,
		"state":   state,
	}
	opts := options.Find().SetSort(bson.D{
		{Key: "block_number", Value: 1},
		{Key: "tx_hash", Value: 1},
	})

	cursor, err := r.db.Collection(r.collection).Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to list ledger records",
			"subject", subject,
			"error", err)
		return nil, fmt.Errorf("failed to list ledger records: %w", err)
	}
	defer cursor.Close(ctx)

	records := make([]*ledger.Record, 0)
	if err := cursor.All(ctx, &records); err != nil {
		r.logger.Error("Failed to decode ledger records",
			"subject", subject,
			"error", err)
		return nil, fmt.Errorf("failed to decode ledger records: %w", err)
	}

	return records, nil
}

// NextBlockNumber atomically increments and returns the block height counter
func (r *LedgerRepository) NextBlockNumber(ctx context.Context) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := r.db.Collection(countersCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": blockCounterID},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&counter)
	if err != nil {
		r.logger.Error("Failed to allocate block number", "error", err)
		return 0, fmt.Errorf("failed to allocate block number: %w", err)
	}

	return counter.Seq, nil
}

// Ping checks that the ledger store is reachable
func (r *LedgerRepository) Ping(ctx context.Context) error {
	if err := r.db.Client().Ping(ctx, nil); err != nil {
		return fmt.Errorf("ledger store unreachable: %w", err)
	}
	return nil
}
