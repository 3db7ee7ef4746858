package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aidledger-audit/internal/config"
	"github.com/segmentio/kafka-go"
)

// SubmissionProducer writes ledger submissions to the submission topic.
// Writes are synchronous so that a failed submission reaches the caller's
// retry loop.
type SubmissionProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewSubmissionProducer dials the broker, ensures the submission topic exists
// and returns a producer bound to it
func NewSubmissionProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*SubmissionProducer, error) {
	if cfg.SubmissionTopic == "" {
		return nil, fmt.Errorf("kafka submission topic is not configured")
	}

	dialer := &kafka.Dialer{Timeout: cfg.MaxWait}
	conn, err := dialer.DialContext(ctx, "tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for submission producer: %w", err)
	}
	defer conn.Close()

	if err := ensureTopic(conn, cfg.SubmissionTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure submission topic %s: %w", cfg.SubmissionTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.SubmissionTopic,
		Balancer:     &kafka.Hash{}, // same subject, same partition
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: cfg.MaxWait,
	}

	return &SubmissionProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.SubmissionTopic,
	}, nil
}

func (p *SubmissionProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal submission: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Warn("Failed to publish ledger submission",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish submission to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published ledger submission", "topic", p.topic, "key", key)
	return nil
}

func (p *SubmissionProducer) Close() error {
	p.logger.Info("Closing ledger submission producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close submission writer for topic %s: %w", p.topic, err)
	}
	return nil
}
