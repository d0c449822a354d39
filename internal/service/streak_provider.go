package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/ms-lokesh/cohort-summit-api/internal/models"
)

// StreakProviderConfig configures the coding-practice provider client.
type StreakProviderConfig struct {
	BaseURL        string
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
}

// StreakProviderClient fetches daily activity summaries from the coding-practice provider.
type StreakProviderClient struct {
	cfg     StreakProviderConfig
	client  *http.Client
	metrics *MetricsService
	logger  *zap.Logger
}

// NewStreakProviderClient builds a provider client with retry defaults applied.
func NewStreakProviderClient(cfg StreakProviderConfig, metrics *MetricsService, logger *zap.Logger) *StreakProviderClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreakProviderClient{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		metrics: metrics,
		logger:  logger,
	}
}

// FetchActivity returns the provider summary for handle. Server errors and
// transport failures are retried with exponential backoff; client errors are not.
func (c *StreakProviderClient) FetchActivity(ctx context.Context, handle string) (*models.ProviderActivity, error) {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/users/" + url.PathEscape(handle) + "/activity"

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.cfg.InitialBackoff

	return backoff.Retry(ctx, func() (*models.ProviderActivity, error) {
		return c.fetchOnce(ctx, endpoint)
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(c.cfg.MaxAttempts)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			c.logger.Debug("streak provider retry", zap.String("handle", handle), zap.Duration("wait", wait), zap.Error(err))
		}),
	)
}

func (c *StreakProviderClient) fetchOnce(ctx context.Context, endpoint string) (*models.ProviderActivity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.metrics.ObserveHTTPRequest(http.MethodGet, "streak_provider_activity", http.StatusServiceUnavailable, time.Since(start))
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()
	c.metrics.ObserveHTTPRequest(http.MethodGet, "streak_provider_activity", resp.StatusCode, time.Since(start))

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	switch {
	case resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("provider returned status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, backoff.Permanent(fmt.Errorf("provider returned status %d", resp.StatusCode))
	}

	var activity models.ProviderActivity
	if err := json.Unmarshal(body, &activity); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("parse provider response: %w", err))
	}
	return &activity, nil
}
