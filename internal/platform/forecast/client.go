// Package forecast calls the external demand forecasting service. Any failure
// is absorbed: callers always get a forecast, marked as a fallback when the
// service could not provide one.
package forecast

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/aidledger-audit/internal/config"
)

const (
	predictPath = "/predict"

	FallbackConfidence = 0.85
	fallbackHashPrefix = "mock-fallback-"
)

// fallbackQuantities is substituted when the service cannot answer
var fallbackQuantities = map[string]float64{
	"tent":        120,
	"blanket":     480,
	"water":       2000,
	"food_kit":    300,
	"medical_kit": 60,
	"hygiene_kit": 150,
}

// Forecast is a demand forecast for one region
type Forecast struct {
	Predictions map[string]float64 `json:"predictions"`
	Confidence  float64            `json:"confidence"`
	Hash        string             `json:"hash"`
	Fallback    bool               `json:"-"`
}

type predictRequest struct {
	RegionID string `json:"region_id"`
}

// Client talks to the forecasting service over HTTP
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

func NewClient(logger *slog.Logger, cfg config.ForecastConfig) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.With("component", "forecast_client"),
		now:        time.Now,
	}
}

// Predict asks the service for a forecast of regionID. It never fails; on any
// error the fixed fallback forecast is returned instead.
func (c *Client) Predict(ctx context.Context, regionID string) *Forecast {
	f, err := c.request(ctx, regionID)
	if err != nil {
		c.logger.Warn("Forecasting service failed, using fallback forecast",
			"region_id", regionID,
			"error", err,
		)
		return c.fallback()
	}
	return f
}

func (c *Client) request(ctx context.Context, regionID string) (*Forecast, error) {
	body, err := json.Marshal(predictRequest{RegionID: regionID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal forecast request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+predictPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build forecast request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("forecast request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("forecast service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var f Forecast
	if err := json.NewDecoder(resp.Body).Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode forecast response: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *Forecast) validate() error {
	if f.Predictions == nil {
		return fmt.Errorf("forecast response has no predictions")
	}
	if f.Confidence < 0 || f.Confidence > 1 || math.IsNaN(f.Confidence) {
		return fmt.Errorf("forecast confidence %v is outside [0,1]", f.Confidence)
	}
	for item, q := range f.Predictions {
		if q < 0 || math.IsNaN(q) || math.IsInf(q, 0) {
			return fmt.Errorf("forecast quantity for %q is invalid: %v", item, q)
		}
	}
	return nil
}

func (c *Client) fallback() *Forecast {
	q := make(map[string]float64, len(fallbackQuantities))
	for k, v := range fallbackQuantities {
		q[k] = v
	}
	return &Forecast{
		Predictions: q,
		Confidence:  FallbackConfidence,
		Hash:        fmt.Sprintf("%s%d", fallbackHashPrefix, c.now().Unix()),
		Fallback:    true,
	}
}
