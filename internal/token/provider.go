// Package token exchanges the long-lived vendor API key for short-lived
// session credentials, so browser clients never see the real key.
package token

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"dialogue-transcription-service/internal/observability/logging"
	"dialogue-transcription-service/internal/observability/metrics"
)

// ErrNoAPIKey means the service has no long-lived key to exchange.
var ErrNoAPIKey = errors.New("token: no API key configured")

// Config holds token provider settings.
type Config struct {
	// Endpoint is the vendor's key management API.
	Endpoint string
	// APIKey is the long-lived key used to mint session keys.
	APIKey string
	// TTL is the requested lifetime of minted keys.
	TTL time.Duration
	// Timeout bounds the exchange request.
	Timeout time.Duration
}

// DefaultConfig returns settings for the vendor's managed endpoint.
func DefaultConfig() Config {
	return Config{
		Endpoint: "https://mp.speechmatics.com/v1/api_keys",
		TTL:      time.Hour,
		Timeout:  10 * time.Second,
	}
}

// Provider mints short-lived realtime keys.
type Provider struct {
	cfg     Config
	client  *http.Client
	metrics *metrics.Metrics
}

// NewProvider creates a token provider.
func NewProvider(cfg Config) *Provider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Provider{
		cfg:     cfg,
		client:  &http.Client{Timeout: timeout},
		metrics: metrics.DefaultMetrics,
	}
}

type keyRequest struct {
	TTL int64 `json:"ttl"`
}

type keyResponse struct {
	KeyValue string `json:"key_value"`
}

// Issue requests a new short-lived realtime key from the vendor.
func (p *Provider) Issue(ctx context.Context) (string, error) {
	start := time.Now()
	key, err := p.issue(ctx)
	if err != nil {
		p.metrics.RecordTokenIssue("error", time.Since(start).Seconds())
		return "", err
	}
	p.metrics.RecordTokenIssue("ok", time.Since(start).Seconds())
	return key, nil
}

func (p *Provider) issue(ctx context.Context) (string, error) {
	if p.cfg.APIKey == "" {
		return "", ErrNoAPIKey
	}

	body, err := json.Marshal(keyRequest{TTL: int64(p.cfg.TTL.Seconds())})
	if err != nil {
		return "", fmt.Errorf("token: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.Endpoint+"?type=rt", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("token: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token: exchange request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		logger := logging.WithComponent("token-provider")
		logger.Warn().
			Int("status", resp.StatusCode).
			Msg("Key exchange rejected")
		return "", fmt.Errorf("token: exchange failed with status %d", resp.StatusCode)
	}

	var kr keyResponse
	if err := json.NewDecoder(resp.Body).Decode(&kr); err != nil {
		return "", fmt.Errorf("token: decode response: %w", err)
	}
	if kr.KeyValue == "" {
		return "", errors.New("token: response carried no key")
	}
	return kr.KeyValue, nil
}
