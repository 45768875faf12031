package testutil

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/archon-research/stl-trade/internal/domain/entity"
)

var (
	// TestSender is the wallet used across service tests.
	TestSender = common.HexToAddress("0x00000000000000000000000000000000000A11CE")
	// TestRouter is the swap target quotes point at.
	TestRouter = common.HexToAddress("0x000000000000000000000000000000000000F00D")
)

// TokenAddress returns a deterministic token address for index i.
func TokenAddress(i int) common.Address {
	return common.BigToAddress(big.NewInt(int64(0x1000 + i)))
}

// NewQuote builds a quote for req whose value is req.AmountIn() on buys and
// zero on sells. The calldata embeds the label so calls are distinguishable.
func NewQuote(t *testing.T, provider string, req entity.TradeRequest) *entity.Quote {
	t.Helper()
	value := new(big.Int)
	if req.SellAsset().IsNative() {
		value = req.AmountIn()
	}
	q, err := entity.NewQuote(req, entity.QuoteParams{
		Provider:          provider,
		Target:            TestRouter,
		CallData:          append([]byte{0x12, 0x34, 0x56, 0x78}, []byte(req.Label())...),
		NativeValue:       value,
		ExpectedAmountOut: new(big.Int).Mul(req.AmountIn(), big.NewInt(1000)),
	})
	if err != nil {
		t.Fatalf("building quote: %v", err)
	}
	return q
}
