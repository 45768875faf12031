package entity

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// maxSlippageBps is 100%.
const maxSlippageBps = 10_000

// Direction is which side of the ETH pair the run trades.
type Direction string

const (
	// DirectionBuy spends ETH on target tokens.
	DirectionBuy Direction = "buy"
	// DirectionSell sells token balances back to ETH.
	DirectionSell Direction = "sell"
)

// ParseDirection parses "buy" or "sell".
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case DirectionBuy:
		return DirectionBuy, nil
	case DirectionSell:
		return DirectionSell, nil
	default:
		return "", fmt.Errorf("unknown direction %q (must be 'buy' or 'sell')", s)
	}
}

// Asset is either the chain's native currency or an ERC-20 token.
type Asset struct {
	native  bool
	address common.Address
}

// NativeAsset is the native-currency marker.
var NativeAsset = Asset{native: true}

// TokenAsset returns the asset for an ERC-20 contract.
func TokenAsset(address common.Address) Asset {
	return Asset{address: address}
}

// IsNative reports whether the asset is the native currency.
func (a Asset) IsNative() bool {
	return a.native
}

// Address returns the token address. It is the zero address for the native asset.
func (a Asset) Address() common.Address {
	return a.address
}

func (a Asset) String() string {
	if a.native {
		return "ETH"
	}
	return a.address.Hex()
}

// TradeRequest asks a quote provider for one swap. It is immutable: the
// constructor copies the amount and AmountIn returns a copy.
type TradeRequest struct {
	sellAsset   Asset
	buyAsset    Asset
	amountIn    *big.Int
	slippageBps uint32
	sender      common.Address
	label       string
}

// NewTradeRequest builds a request. label is a human-readable name used in
// logs and reports; it defaults to the non-native side of the pair.
func NewTradeRequest(sell, buy Asset, amountIn *big.Int, slippageBps uint32, sender common.Address, label string) TradeRequest {
	var amount *big.Int
	if amountIn != nil {
		amount = new(big.Int).Set(amountIn)
	}
	if label == "" {
		if sell.IsNative() {
			label = buy.String()
		} else {
			label = sell.String()
		}
	}
	return TradeRequest{
		sellAsset:   sell,
		buyAsset:    buy,
		amountIn:    amount,
		slippageBps: slippageBps,
		sender:      sender,
		label:       label,
	}
}

// NewBuyRequest spends amountIn of ETH on token.
func NewBuyRequest(token common.Address, amountIn *big.Int, slippageBps uint32, sender common.Address, label string) TradeRequest {
	return NewTradeRequest(NativeAsset, TokenAsset(token), amountIn, slippageBps, sender, label)
}

// NewSellRequest sells amountIn of token for ETH.
func NewSellRequest(token common.Address, amountIn *big.Int, slippageBps uint32, sender common.Address, label string) TradeRequest {
	return NewTradeRequest(TokenAsset(token), NativeAsset, amountIn, slippageBps, sender, label)
}

func (r TradeRequest) SellAsset() Asset {
	return r.sellAsset
}

func (r TradeRequest) BuyAsset() Asset {
	return r.buyAsset
}

func (r TradeRequest) SlippageBps() uint32 {
	return r.slippageBps
}

func (r TradeRequest) Sender() common.Address {
	return r.sender
}

// Label is the human-readable name of the traded token.
func (r TradeRequest) Label() string {
	return r.label
}

// AmountIn returns a copy of the input amount in the sell asset's smallest unit.
func (r TradeRequest) AmountIn() *big.Int {
	if r.amountIn == nil {
		return nil
	}
	return new(big.Int).Set(r.amountIn)
}

// SlippageFraction returns the tolerance as a fraction, e.g. 100 bps -> 0.01.
func (r TradeRequest) SlippageFraction() float64 {
	return float64(r.slippageBps) / maxSlippageBps
}

// Validate checks the request before any provider is contacted. Failures wrap
// ErrInvalidRequest.
func (r TradeRequest) Validate() error {
	if r.amountIn == nil || r.amountIn.Sign() <= 0 {
		return fmt.Errorf("%w: amountIn must be positive", ErrInvalidRequest)
	}
	if r.sellAsset == r.buyAsset {
		return fmt.Errorf("%w: sell and buy asset are both %s", ErrInvalidRequest, r.sellAsset)
	}
	if !r.sellAsset.IsNative() && r.sellAsset.Address() == (common.Address{}) {
		return fmt.Errorf("%w: sell token address is zero", ErrInvalidRequest)
	}
	if !r.buyAsset.IsNative() && r.buyAsset.Address() == (common.Address{}) {
		return fmt.Errorf("%w: buy token address is zero", ErrInvalidRequest)
	}
	if r.sender == (common.Address{}) {
		return fmt.Errorf("%w: sender address is zero", ErrInvalidRequest)
	}
	if r.slippageBps > maxSlippageBps {
		return fmt.Errorf("%w: slippage %d bps exceeds %d", ErrInvalidRequest, r.slippageBps, maxSlippageBps)
	}
	return nil
}

func (r TradeRequest) String() string {
	return fmt.Sprintf("%s %s -> %s", r.amountIn, r.sellAsset, r.buyAsset)
}
