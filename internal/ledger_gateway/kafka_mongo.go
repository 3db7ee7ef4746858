package gateway

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aidledger-audit/internal/domain/ledger"
	"github.com/aidledger-audit/internal/platform/messaging/producers"
)

// recordReader is the read side of the ledger record store
type recordReader interface {
	GetByTxHash(ctx context.Context, txHash string) (*ledger.Record, error)
	ListBySubject(ctx context.Context, subject string, kind ledger.Kind, state ledger.RecordState) ([]*ledger.Record, error)
}

// kafkaMongoGateway submits through the Kafka submission topic and reads the
// records the ledger node sealed into MongoDB
type kafkaMongoGateway struct {
	publisher producers.MessagePublisher
	records   recordReader
	logger    *slog.Logger
	closers   []func(context.Context) error
	now       func() time.Time
	nonce     func() string
}

func newKafkaMongoGateway(logger *slog.Logger, publisher producers.MessagePublisher, records recordReader, closers ...func(context.Context) error) *kafkaMongoGateway {
	return &kafkaMongoGateway{
		publisher: publisher,
		records:   records,
		logger:    logger,
		closers:   closers,
		now:       func() time.Time { return time.Now().UTC() },
		nonce:     func() string { return uuid.NewString() },
	}
}

func (g *kafkaMongoGateway) Append(ctx context.Context, subject string, kind ledger.Kind, payload ledger.Payload) (string, error) {
	submission := &ledger.Submission{
		Subject:     subject,
		Kind:        kind,
		Payload:     payload,
		SubmittedAt: g.now(),
	}
	submission.TxHash = txHash(subject, kind, payload, g.nonce())

	if err := submission.Validate(); err != nil {
		return "", err
	}

	if err := g.publisher.Publish(ctx, subject, submission); err != nil {
		return "", ledger.TransientOpError{Op: "append", Err: err}
	}

	g.logger.Debug("Submitted ledger transaction", "tx_ref", submission.TxHash, "subject", subject, "kind", kind)
	return submission.TxHash, nil
}

func (g *kafkaMongoGateway) Query(ctx context.Context, subject string) ([]ledger.LogEntry, error) {
	records, err := g.records.ListBySubject(ctx, subject, ledger.KindShipmentLog, ledger.RecordStateConfirmed)
	if err != nil {
		return nil, ledger.TransientOpError{Op: "query", Err: err}
	}

	history := make([]ledger.LogEntry, 0, len(records))
	for _, r := range records {
		history = append(history, r.ToLogEntry())
	}
	return history, nil
}

func (g *kafkaMongoGateway) Confirmation(ctx context.Context, txRef string) (*ledger.Receipt, error) {
	record, err := g.records.GetByTxHash(ctx, txRef)
	if err != nil {
		if errors.Is(err, ledger.ErrRecordNotFound{}) {
			return nil, ledger.ErrNotConfirmed
		}
		return nil, ledger.TransientOpError{Op: "confirmation", Err: err}
	}

	if record.State == ledger.RecordStateRejected {
		return nil, ledger.ErrRejected{TxHash: txRef, Reason: record.Reason}
	}

	return &ledger.Receipt{
		TxID:        record.TxHash,
		BlockNumber: record.BlockNumber,
		Timestamp:   record.Timestamp,
	}, nil
}

func (g *kafkaMongoGateway) Available() bool { return true }

func (g *kafkaMongoGateway) Close(ctx context.Context) error {
	var errs []error
	if err := g.publisher.Close(); err != nil {
		errs = append(errs, err)
	}
	for _, closeFn := range g.closers {
		if err := closeFn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// txHash derives the transaction hash the ledger node seals the record under
func txHash(subject string, kind ledger.Kind, payload ledger.Payload, nonce string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|%s|%s|%s",
		subject, kind, payload.Status, payload.Location, payload.RegionID, payload.Hash, nonce)
	return "0x" + hex.EncodeToString(h.Sum(nil))
}
