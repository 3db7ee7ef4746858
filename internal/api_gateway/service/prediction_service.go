package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/aidledger-audit/internal/accuracy"
	"github.com/aidledger-audit/internal/contenthash"
	"github.com/aidledger-audit/internal/domain/ledger"
	"github.com/aidledger-audit/internal/domain/prediction"
	"github.com/aidledger-audit/internal/domain/shared"
	committer "github.com/aidledger-audit/internal/ledger_committer"
)

// PredictionServiceImpl implements the PredictionService interface
type PredictionServiceImpl struct {
	predictions prediction.Repository
	forecaster  Forecaster
	committer   committer.Enqueuer
	logger      *slog.Logger
}

// NewPredictionService creates a new prediction service
func NewPredictionService(logger *slog.Logger, predictions prediction.Repository, forecaster Forecaster, enqueuer committer.Enqueuer) PredictionService {
	return &PredictionServiceImpl{
		predictions: predictions,
		forecaster:  forecaster,
		committer:   enqueuer,
		logger:      logger,
	}
}

func (s *PredictionServiceImpl) CreatePrediction(ctx context.Context, regionID string) (*prediction.Prediction, error) {
	regionID = strings.TrimSpace(regionID)
	if regionID == "" {
		return nil, shared.ValidationError{Field: "region_id", Reason: "must not be empty"}
	}

	f := s.forecaster.Predict(ctx, regionID)

	hash, err := contenthash.Hash(f.Predictions, regionID)
	if err != nil {
		return nil, shared.ValidationError{Field: "predictions", Reason: err.Error()}
	}

	source := prediction.SourceModel
	if f.Fallback {
		source = prediction.SourceFallback
	} else if f.Hash != "" && f.Hash != hash {
		s.logger.Warn("Forecast hash differs from recomputed content hash",
			"region_id", regionID,
			"source_hash", f.Hash,
			"content_hash", hash,
		)
	}

	p, err := prediction.NewPrediction(regionID, f.Predictions, f.Confidence, hash, f.Hash, source)
	if err != nil {
		return nil, err
	}
	if err := s.predictions.Create(ctx, p); err != nil {
		s.logger.Error("Failed to store prediction", "region_id", regionID, "error", err)
		return nil, err
	}

	s.logger.Info("Prediction created",
		"prediction_id", p.ID.String(),
		"region_id", regionID,
		"source", source,
		"content_hash", hash,
	)
	s.committer.Enqueue(committer.Job{
		Kind:    ledger.KindPredictionHash,
		Subject: regionID,
		Payload: ledger.PredictionHash(regionID, hash),
		RefID:   p.ID,
	})
	return p, nil
}

func (s *PredictionServiceImpl) GetPrediction(ctx context.Context, id uuid.UUID) (*prediction.Prediction, error) {
	return s.predictions.GetByID(ctx, id)
}

func (s *PredictionServiceImpl) DashboardAccuracy(ctx context.Context) (*AccuracySummary, error) {
	preds, err := s.predictions.ListWithActuals(ctx)
	if err != nil {
		return nil, err
	}

	summary := &AccuracySummary{Predictions: make([]PredictionAccuracy, 0, len(preds))}
	scores := make([]float64, 0, len(preds))
	for _, p := range preds {
		res := accuracy.Dashboard(p.Predicted, p.Actual)
		summary.Predictions = append(summary.Predictions, PredictionAccuracy{
			ID:       p.ID,
			RegionID: p.RegionID,
			Accuracy: res.Accuracy,
		})
		// Nothing scored: every item was zero/zero
		if res.Evaluated == 0 {
			continue
		}
		scores = append(scores, res.Accuracy)
	}
	summary.Evaluated = len(scores)
	summary.Overall = accuracy.Mean(scores, 1)
	return summary, nil
}
