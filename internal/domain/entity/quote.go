package entity

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// RouteInfo is the structured payload some providers return alongside the
// call. It is informational and never used to build the transaction.
type RouteInfo struct {
	Commands string
	Inputs   []string
}

// Quote is a provider's answer for exactly one TradeRequest: the call that
// performs the swap and what it is expected to return. Quotes are never mutated
// after creation; accessors that expose big integers or byte slices return copies.
type Quote struct {
	provider          string
	target            common.Address
	callData          []byte
	nativeValue       *big.Int
	expectedAmountOut *big.Int
	gasEstimate       uint64
	request           TradeRequest
	route             *RouteInfo
}

// QuoteParams carries the fields of a new Quote.
type QuoteParams struct {
	Provider          string
	Target            common.Address
	CallData          []byte
	NativeValue       *big.Int
	ExpectedAmountOut *big.Int
	GasEstimate       uint64
	Route             *RouteInfo
}

// NewQuote normalizes a provider response into a Quote for request. A nil
// native value means the call carries no ETH.
func NewQuote(request TradeRequest, p QuoteParams) (*Quote, error) {
	if p.Target == (common.Address{}) {
		return nil, fmt.Errorf("quote target must not be the zero address")
	}
	if len(p.CallData) == 0 {
		return nil, fmt.Errorf("quote calldata must not be empty")
	}

	value := new(big.Int)
	if p.NativeValue != nil {
		if p.NativeValue.Sign() < 0 {
			return nil, fmt.Errorf("quote value must be non-negative, got %s", p.NativeValue)
		}
		value.Set(p.NativeValue)
	}
	amountOut := new(big.Int)
	if p.ExpectedAmountOut != nil {
		amountOut.Set(p.ExpectedAmountOut)
	}

	return &Quote{
		provider:          p.Provider,
		target:            p.Target,
		callData:          append([]byte(nil), p.CallData...),
		nativeValue:       value,
		expectedAmountOut: amountOut,
		gasEstimate:       p.GasEstimate,
		request:           request,
		route:             p.Route,
	}, nil
}

func (q *Quote) Provider() string {
	return q.provider
}

func (q *Quote) Target() common.Address {
	return q.target
}

func (q *Quote) CallData() []byte {
	return append([]byte(nil), q.callData...)
}

// NativeValue is the ETH attached to the call, in wei.
func (q *Quote) NativeValue() *big.Int {
	return new(big.Int).Set(q.nativeValue)
}

// ExpectedAmountOut is informational only.
func (q *Quote) ExpectedAmountOut() *big.Int {
	return new(big.Int).Set(q.expectedAmountOut)
}

func (q *Quote) GasEstimate() uint64 {
	return q.gasEstimate
}

func (q *Quote) Request() TradeRequest {
	return q.request
}

func (q *Quote) Route() *RouteInfo {
	return q.route
}
