package entity

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// BatchCall is one accepted quote inside a batch. Its position in the batch
// determines which return-data entry belongs to it.
type BatchCall struct {
	Target       common.Address
	AllowFailure bool
	Value        *big.Int
	CallData     []byte
	Request      TradeRequest
	// ExpectedAmountOut is carried through for reporting.
	ExpectedAmountOut *big.Int
}

func (c BatchCall) clone() BatchCall {
	c.Value = new(big.Int).Set(c.Value)
	c.CallData = append([]byte(nil), c.CallData...)
	c.ExpectedAmountOut = new(big.Int).Set(c.ExpectedAmountOut)
	return c
}

// Batch is an ordered, immutable set of calls and the sum of their values.
// It can only be created by BatchBuilder.Build.
type Batch struct {
	calls      []BatchCall
	totalValue *big.Int
}

// Len returns the number of calls.
func (b *Batch) Len() int {
	return len(b.calls)
}

// Calls returns a copy of the calls in insertion order.
func (b *Batch) Calls() []BatchCall {
	out := make([]BatchCall, len(b.calls))
	for i, c := range b.calls {
		out[i] = c.clone()
	}
	return out
}

// Call returns a copy of the i-th call.
func (b *Batch) Call(i int) BatchCall {
	return b.calls[i].clone()
}

// TotalValue is the transaction value needed to fund every call, in wei.
func (b *Batch) TotalValue() *big.Int {
	return new(big.Int).Set(b.totalValue)
}

// TotalExpectedOut sums the informational expected output of every call.
func (b *Batch) TotalExpectedOut() *big.Int {
	total := new(big.Int)
	for _, c := range b.calls {
		total.Add(total, c.ExpectedAmountOut)
	}
	return total
}

// BatchBuilder accumulates accepted quotes. It never fails on AddQuote; an
// empty builder fails on Build with ErrNoValidCalls.
type BatchBuilder struct {
	allowFailure bool
	calls        []BatchCall
	total        *big.Int
}

// NewBatchBuilder returns a builder whose calls carry allowFailure. Atomic
// execution uses false so any failing swap reverts the whole transaction.
func NewBatchBuilder(allowFailure bool) *BatchBuilder {
	return &BatchBuilder{
		allowFailure: allowFailure,
		total:        new(big.Int),
	}
}

// AddQuote appends the quote's call and adds its value to the running total.
func (b *BatchBuilder) AddQuote(q *Quote) {
	call := BatchCall{
		Target:            q.Target(),
		AllowFailure:      b.allowFailure,
		Value:             q.NativeValue(),
		CallData:          q.CallData(),
		Request:           q.Request(),
		ExpectedAmountOut: q.ExpectedAmountOut(),
	}
	b.calls = append(b.calls, call)
	b.total.Add(b.total, call.Value)
}

// Len returns the number of accepted quotes so far.
func (b *BatchBuilder) Len() int {
	return len(b.calls)
}

// Build freezes the accepted calls into a Batch.
func (b *BatchBuilder) Build() (*Batch, error) {
	if len(b.calls) == 0 {
		return nil, ErrNoValidCalls
	}
	calls := make([]BatchCall, len(b.calls))
	for i, c := range b.calls {
		calls[i] = c.clone()
	}
	return &Batch{
		calls:      calls,
		totalValue: new(big.Int).Set(b.total),
	}, nil
}
