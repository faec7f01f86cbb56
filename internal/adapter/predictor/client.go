// Package predictor talks to the external PPV prediction model.
package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/couchcryptid/blast-vibration-service/internal/domain"
	"github.com/couchcryptid/blast-vibration-service/internal/observability"
)

// Client implements domain.RemotePredictor against the model's /predict endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a prediction client. requestsPerSecond paces outbound calls.
func NewClient(baseURL string, timeout time.Duration, requestsPerSecond float64, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		metrics: metrics,
		logger:  logger,
	}
}

// Predict submits the blast parameters and returns the model's PPV and scaled distance.
func (c *Client) Predict(ctx context.Context, params domain.BlastParameters) (domain.RemotePrediction, error) {
	start := time.Now()
	result, err := c.doRequest(ctx, params)
	c.metrics.PredictorDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.PredictorRequests.WithLabelValues("error").Inc()
		c.logger.Warn("remote prediction failed", "mine", params.SelectedMine, "error", err)
		return domain.RemotePrediction{}, err
	}
	c.metrics.PredictorRequests.WithLabelValues("success").Inc()
	return result, nil
}

func (c *Client) doRequest(ctx context.Context, params domain.BlastParameters) (domain.RemotePrediction, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.RemotePrediction{}, fmt.Errorf("rate limit wait: %w", err)
	}

	body, err := json.Marshal(params)
	if err != nil {
		return domain.RemotePrediction{}, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return domain.RemotePrediction{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.RemotePrediction{}, fmt.Errorf("predict request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return domain.RemotePrediction{}, fmt.Errorf("predictor API error: status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.RemotePrediction{}, fmt.Errorf("decode response: %w", err)
	}
	if out.PredictedPPV == nil {
		return domain.RemotePrediction{}, fmt.Errorf("decode response: missing predicted_ppv")
	}
	ppv := *out.PredictedPPV
	if math.IsNaN(ppv) || math.IsInf(ppv, 0) || ppv < 0 {
		return domain.RemotePrediction{}, fmt.Errorf("predictor returned invalid ppv %v", ppv)
	}

	result := domain.RemotePrediction{PredictedPPV: ppv}
	if out.PredictedSD != nil {
		result.PredictedSD = *out.PredictedSD
	}
	return result, nil
}

// Prediction API response body. Pointers distinguish a missing field from zero.
type response struct {
	PredictedPPV *float64 `json:"predicted_ppv"`
	PredictedSD  *float64 `json:"predicted_sd"`
}
