package gateway

import (
	"context"
	"log/slog"

	"github.com/aidledger-audit/internal/config"
	ledgerstore "github.com/aidledger-audit/internal/data/mongo"
	"github.com/aidledger-audit/internal/domain/ledger"
	"github.com/aidledger-audit/internal/platform/messaging/producers"
	"github.com/aidledger-audit/internal/platform/persistence"
)

// New connects to the ledger. When the ledger is disabled, misconfigured or
// unreachable within LEDGER_PROBE_TIMEOUT it returns the Unavailable gateway
// together with a ledger.ConnectivityError; the caller is expected to log the
// error and carry on with the returned gateway.
func New(ctx context.Context, logger *slog.Logger, cfg *config.Config) (Gateway, error) {
	if !cfg.Ledger.Enabled {
		return Unavailable(), ledger.ConnectivityError{Reason: "ledger disabled by configuration"}
	}
	if cfg.Kafka.Brokers == "" || cfg.Kafka.SubmissionTopic == "" {
		return Unavailable(), ledger.ConnectivityError{Reason: "submission broker not configured"}
	}
	if cfg.MongoDB.URI == "" || cfg.MongoDB.Database == "" {
		return Unavailable(), ledger.ConnectivityError{Reason: "ledger store not configured"}
	}

	probeCtx, cancel := context.WithTimeout(ctx, cfg.Ledger.ProbeTimeout)
	defer cancel()

	mongoCfg := cfg.MongoDB
	if mongoCfg.Timeout > cfg.Ledger.ProbeTimeout {
		mongoCfg.Timeout = cfg.Ledger.ProbeTimeout
	}
	store, err := persistence.NewMongoDB(probeCtx, logger, &mongoCfg)
	if err != nil {
		return Unavailable(), ledger.ConnectivityError{Reason: "ledger store unreachable", Err: err}
	}

	kafkaCfg := cfg.Kafka
	if kafkaCfg.MaxWait <= 0 || kafkaCfg.MaxWait > cfg.Ledger.ProbeTimeout {
		kafkaCfg.MaxWait = cfg.Ledger.ProbeTimeout
	}
	producer, err := producers.NewSubmissionProducer(probeCtx, logger, &kafkaCfg)
	if err != nil {
		_ = store.Close(ctx)
		return Unavailable(), ledger.ConnectivityError{Reason: "submission broker unreachable", Err: err}
	}

	records := ledgerstore.NewLedgerRepository(logger, store.Database(), cfg.MongoDB.LedgerCollection)
	logger.Info("Ledger gateway connected",
		"brokers", cfg.Kafka.Brokers,
		"topic", cfg.Kafka.SubmissionTopic,
		"collection", cfg.MongoDB.LedgerCollection,
	)

	return newKafkaMongoGateway(logger, producer, records, store.Close), nil
}
