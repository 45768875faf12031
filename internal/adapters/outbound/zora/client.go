// Package zora implements the QuoteProvider and CoinLister interfaces using the
// Zora coins API: trade calls for swaps and the explore listing for discovery.
package zora

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/archon-research/stl-trade/internal/domain/entity"
	"github.com/archon-research/stl-trade/internal/pkg/blockchain"
	"github.com/archon-research/stl-trade/internal/pkg/httpclient"
	"github.com/archon-research/stl-trade/internal/ports/outbound"
)

// Compile-time checks that Client implements the outbound ports.
var (
	_ outbound.QuoteProvider = (*Client)(nil)
	_ outbound.CoinLister    = (*Client)(nil)
)

const providerName = "zora"

// ClientConfig holds configuration for the Zora client.
type ClientConfig struct {
	// APIKey is sent as the api-key header.
	APIKey string

	// BaseURL is the Zora SDK API base URL.
	// Defaults to https://api-sdk.zora.engineering
	BaseURL string

	// ChainID is sent with every trade request.
	// Defaults to Base (8453).
	ChainID int64

	// Timeout is the maximum time to wait for a single HTTP request.
	Timeout time.Duration

	// MaxRetries is the maximum number of retry attempts for 429/5xx and network failures.
	MaxRetries int

	// RateLimitPerSec caps outgoing requests.
	RateLimitPerSec float64

	// Logger is the structured logger for the client.
	Logger *slog.Logger

	// HTTPClient is an optional custom HTTP client.
	HTTPClient *http.Client
}

// ClientConfigDefaults returns a config with default values.
func ClientConfigDefaults() ClientConfig {
	return ClientConfig{
		BaseURL:         "https://api-sdk.zora.engineering",
		ChainID:         blockchain.BaseChainID,
		Timeout:         15 * time.Second,
		MaxRetries:      2,
		RateLimitPerSec: 5,
		Logger:          slog.Default(),
	}
}

// Client talks to the Zora coins API.
type Client struct {
	config ClientConfig
	http   *httpclient.Client
	logger *slog.Logger
}

// NewClient creates a new Zora API client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		return nil, errors.New("APIKey is required")
	}

	defaults := ClientConfigDefaults()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.ChainID == 0 {
		config.ChainID = defaults.ChainID
	}
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = defaults.MaxRetries
	}
	if config.RateLimitPerSec == 0 {
		config.RateLimitPerSec = defaults.RateLimitPerSec
	}
	if config.Logger == nil {
		config.Logger = defaults.Logger
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	logger := config.Logger.With("component", "zora-client")
	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = config.Timeout
	httpCfg.MaxRetries = config.MaxRetries
	httpCfg.RateLimit = rate.Limit(config.RateLimitPerSec)

	return &Client{
		config: config,
		http:   httpclient.NewClient(httpCfg, config.HTTPClient, logger),
		logger: logger,
	}, nil
}

// Name returns the provider name.
func (c *Client) Name() string {
	return providerName
}

func (c *Client) do(ctx context.Context, req httpclient.Request, result any) error {
	if req.Headers == nil {
		req.Headers = make(map[string]string)
	}
	req.Headers["api-key"] = c.config.APIKey

	err := c.http.Do(ctx, req, result)
	if err == nil {
		return nil
	}
	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) {
		return fmt.Errorf("%w: zora API error: %d - %s", entity.ErrProviderError, statusErr.StatusCode, statusErr.Body)
	}
	return fmt.Errorf("%w: zora request failed: %v", entity.ErrProviderError, err)
}
