// Package zerox implements the QuoteProvider interface using the 0x Swap API v2
// allowance-holder endpoint.
package zerox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/time/rate"

	"github.com/archon-research/stl-trade/internal/domain/entity"
	"github.com/archon-research/stl-trade/internal/pkg/blockchain"
	"github.com/archon-research/stl-trade/internal/pkg/httpclient"
	"github.com/archon-research/stl-trade/internal/ports/outbound"
)

// Compile-time check that Client implements outbound.QuoteProvider.
var _ outbound.QuoteProvider = (*Client)(nil)

const (
	providerName = "0x"
	quotePath    = "/swap/allowance-holder/quote"
	apiVersion   = "v2"
)

// ClientConfig holds configuration for the 0x client.
type ClientConfig struct {
	// APIKey is sent as the 0x-api-key header.
	APIKey string

	// BaseURL is the 0x API base URL.
	// Defaults to https://api.0x.org
	BaseURL string

	// ChainID is sent with every quote request.
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
		BaseURL:         "https://api.0x.org",
		ChainID:         blockchain.BaseChainID,
		Timeout:         15 * time.Second,
		MaxRetries:      2,
		RateLimitPerSec: 5,
		Logger:          slog.Default(),
	}
}

// Client fetches swap quotes from 0x.
type Client struct {
	config ClientConfig
	http   *httpclient.Client
	logger *slog.Logger
}

// NewClient creates a new 0x API client.
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

	logger := config.Logger.With("component", "zerox-client")
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

// GetSwapQuote fetches the raw allowance-holder quote for selling sellAmount of
// sellToken for buyToken. Addresses may be the native marker.
func (c *Client) GetSwapQuote(ctx context.Context, sellToken, buyToken common.Address, sellAmount *big.Int, taker common.Address, slippageBps uint32) (*SwapQuoteResponse, error) {
	params := url.Values{
		"chainId":     {strconv.FormatInt(c.config.ChainID, 10)},
		"sellToken":   {sellToken.Hex()},
		"buyToken":    {buyToken.Hex()},
		"sellAmount":  {sellAmount.String()},
		"taker":       {taker.Hex()},
		"slippageBps": {strconv.FormatUint(uint64(slippageBps), 10)},
	}

	var response SwapQuoteResponse
	err := c.http.Do(ctx, httpclient.Request{
		URL:   c.config.BaseURL + quotePath,
		Query: params,
		Headers: map[string]string{
			"0x-api-key": c.config.APIKey,
			"0x-version": apiVersion,
		},
	}, &response)
	if err != nil {
		var statusErr *httpclient.StatusError
		if errors.As(err, &statusErr) {
			return nil, fmt.Errorf("%w: 0x API error: %d - %s", entity.ErrProviderError, statusErr.StatusCode, statusErr.Body)
		}
		return nil, fmt.Errorf("%w: 0x request failed: %v", entity.ErrProviderError, err)
	}
	return &response, nil
}

// GetQuote validates req, fetches a quote and normalizes it.
func (c *Client) GetQuote(ctx context.Context, req entity.TradeRequest) (*entity.Quote, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	response, err := c.GetSwapQuote(ctx, tokenParam(req.SellAsset()), tokenParam(req.BuyAsset()), req.AmountIn(), req.Sender(), req.SlippageBps())
	if err != nil {
		return nil, err
	}

	if response.LiquidityAvailable != nil && !*response.LiquidityAvailable {
		return nil, fmt.Errorf("%w: no liquidity for %s", entity.ErrQuoteUnavailable, req)
	}
	if response.Transaction == nil {
		return nil, fmt.Errorf("%w: quote for %s has no transaction", entity.ErrProviderError, req)
	}

	quote, err := normalize(req, response)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("quote received",
		"label", req.Label(),
		"buyAmount", response.BuyAmount,
		"value", response.Transaction.Value,
		"duration", time.Since(start),
	)
	return quote, nil
}

func normalize(req entity.TradeRequest, response *SwapQuoteResponse) (*entity.Quote, error) {
	tx := response.Transaction
	if !common.IsHexAddress(tx.To) {
		return nil, fmt.Errorf("%w: invalid transaction target %q", entity.ErrProviderError, tx.To)
	}
	data, err := hexutil.Decode(tx.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid transaction data: %v", entity.ErrProviderError, err)
	}
	value, err := parseAmount(tx.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid transaction value: %v", entity.ErrProviderError, err)
	}
	buyAmount, err := parseAmount(response.BuyAmount)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid buyAmount: %v", entity.ErrProviderError, err)
	}
	var gas uint64
	if tx.Gas != "" {
		gas, _ = strconv.ParseUint(tx.Gas, 10, 64)
	}

	quote, err := entity.NewQuote(req, entity.QuoteParams{
		Provider:          providerName,
		Target:            common.HexToAddress(tx.To),
		CallData:          data,
		NativeValue:       value,
		ExpectedAmountOut: buyAmount,
		GasEstimate:       gas,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrProviderError, err)
	}
	return quote, nil
}

// tokenParam maps the native asset to the marker address 0x expects.
func tokenParam(asset entity.Asset) common.Address {
	if asset.IsNative() {
		return blockchain.NativeToken
	}
	return asset.Address()
}

// parseAmount parses a decimal integer string. Empty means zero.
func parseAmount(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("not a non-negative integer: %q", s)
	}
	return v, nil
}
