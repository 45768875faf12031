package zora

import (
	"context"
	"fmt"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/archon-research/stl-trade/internal/domain/entity"
	"github.com/archon-research/stl-trade/internal/pkg/httpclient"
)

// CreateTradeCall posts a trade request and returns the raw response.
func (c *Client) CreateTradeCall(ctx context.Context, body TradeRequest) (*TradeCallResponse, error) {
	var response TradeCallResponse
	err := c.do(ctx, httpclient.Request{
		Method: http.MethodPost,
		URL:    c.config.BaseURL + "/quote",
		Body:   body,
	}, &response)
	if err != nil {
		return nil, err
	}
	return &response, nil
}

// GetQuote validates req, requests a trade call and normalizes it. A response
// with success=false means the pair has no route.
func (c *Client) GetQuote(ctx context.Context, req entity.TradeRequest) (*entity.Quote, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	response, err := c.CreateTradeCall(ctx, TradeRequest{
		TokenIn:  tokenRef(req.SellAsset()),
		TokenOut: tokenRef(req.BuyAsset()),
		AmountIn: req.AmountIn().String(),
		Slippage: req.SlippageFraction(),
		Sender:   req.Sender().Hex(),
		ChainID:  c.config.ChainID,
	})
	if err != nil {
		return nil, err
	}
	if !response.Success {
		return nil, fmt.Errorf("%w: zora returned no trade for %s", entity.ErrQuoteUnavailable, req)
	}

	quote, err := normalize(req, response)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("quote received",
		"label", req.Label(),
		"amountOut", response.Quote.AmountOut,
		"value", response.Call.Value,
	)
	return quote, nil
}

func normalize(req entity.TradeRequest, response *TradeCallResponse) (*entity.Quote, error) {
	if !common.IsHexAddress(response.Call.Target) {
		return nil, fmt.Errorf("%w: invalid call target %q", entity.ErrProviderError, response.Call.Target)
	}
	data, err := hexutil.Decode(response.Call.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid call data: %v", entity.ErrProviderError, err)
	}
	value, err := parseAmount(response.Call.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid call value: %v", entity.ErrProviderError, err)
	}
	amountOut, err := parseAmount(response.Quote.AmountOut)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid amountOut: %v", entity.ErrProviderError, err)
	}

	var route *entity.RouteInfo
	if response.Trade != nil {
		route = &entity.RouteInfo{
			Commands: response.Trade.Commands,
			Inputs:   response.Trade.Inputs,
		}
	}

	quote, err := entity.NewQuote(req, entity.QuoteParams{
		Provider:          providerName,
		Target:            common.HexToAddress(response.Call.Target),
		CallData:          data,
		NativeValue:       value,
		ExpectedAmountOut: amountOut,
		Route:             route,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrProviderError, err)
	}
	return quote, nil
}

func tokenRef(asset entity.Asset) TokenRef {
	if asset.IsNative() {
		return TokenRef{Type: "eth"}
	}
	return TokenRef{Type: "erc20", Address: asset.Address().Hex()}
}

// parseAmount accepts decimal or 0x-prefixed hex integers. Empty means zero.
func parseAmount(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 0)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("not a non-negative integer: %q", s)
	}
	return v, nil
}
