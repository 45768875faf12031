package entity

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func newTestQuote(t *testing.T, label string, value int64) *Quote {
	t.Helper()
	req := NewBuyRequest(testToken, big.NewInt(value), 100, testSender, label)
	q, err := NewQuote(req, QuoteParams{
		Provider:          "test",
		Target:            common.HexToAddress("0x3333333333333333333333333333333333333333"),
		CallData:          []byte{0xde, 0xad, byte(value)},
		NativeValue:       big.NewInt(value),
		ExpectedAmountOut: big.NewInt(value * 10),
	})
	if err != nil {
		t.Fatalf("NewQuote() error = %v", err)
	}
	return q
}

func TestBatchBuilder_EmptyBuildFails(t *testing.T) {
	_, err := NewBatchBuilder(false).Build()
	if !errors.Is(err, ErrNoValidCalls) {
		t.Fatalf("Build() error = %v, want ErrNoValidCalls", err)
	}
}

func TestBatchBuilder_TotalValueIsSumOfCalls(t *testing.T) {
	b := NewBatchBuilder(false)
	values := []int64{10_000_000_000_000, 0, 25_000_000_000_000, 1}
	for i, v := range values {
		b.AddQuote(newTestQuote(t, string(rune('a'+i)), v))
	}

	batch, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if batch.Len() != len(values) {
		t.Fatalf("Len() = %d, want %d", batch.Len(), len(values))
	}

	sum := new(big.Int)
	for _, c := range batch.Calls() {
		sum.Add(sum, c.Value)
	}
	if sum.Cmp(batch.TotalValue()) != 0 {
		t.Errorf("sum of values %s != TotalValue %s", sum, batch.TotalValue())
	}
	if batch.TotalValue().String() != "35000000000001" {
		t.Errorf("TotalValue() = %s", batch.TotalValue())
	}
	if batch.TotalExpectedOut().String() != "350000000000010" {
		t.Errorf("TotalExpectedOut() = %s", batch.TotalExpectedOut())
	}
}

func TestBatchBuilder_PreservesOrderAndAllowFailure(t *testing.T) {
	b := NewBatchBuilder(true)
	b.AddQuote(newTestQuote(t, "first", 1))
	b.AddQuote(newTestQuote(t, "second", 2))

	batch, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	calls := batch.Calls()
	if calls[0].Request.Label() != "first" || calls[1].Request.Label() != "second" {
		t.Errorf("order not preserved: %s, %s", calls[0].Request.Label(), calls[1].Request.Label())
	}
	for i, c := range calls {
		if !c.AllowFailure {
			t.Errorf("call %d AllowFailure = false, want true", i)
		}
	}
}

func TestBatch_IsImmutable(t *testing.T) {
	b := NewBatchBuilder(false)
	b.AddQuote(newTestQuote(t, "x", 5))
	batch, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	calls := batch.Calls()
	calls[0].Value.SetInt64(999)
	calls[0].CallData[0] = 0x00
	batch.TotalValue().SetInt64(999)

	// Adding to the builder after Build must not affect the built batch.
	b.AddQuote(newTestQuote(t, "y", 7))

	if batch.Len() != 1 {
		t.Errorf("Len() = %d, want 1", batch.Len())
	}
	if batch.Call(0).Value.Int64() != 5 {
		t.Errorf("call value mutated: %s", batch.Call(0).Value)
	}
	if batch.Call(0).CallData[0] != 0xde {
		t.Errorf("calldata mutated: %x", batch.Call(0).CallData)
	}
	if batch.TotalValue().Int64() != 5 {
		t.Errorf("TotalValue mutated: %s", batch.TotalValue())
	}
}

func TestNewQuote_Validation(t *testing.T) {
	req := NewBuyRequest(testToken, big.NewInt(1), 100, testSender, "")

	if _, err := NewQuote(req, QuoteParams{CallData: []byte{1}}); err == nil {
		t.Error("expected error for zero target")
	}
	if _, err := NewQuote(req, QuoteParams{Target: testToken}); err == nil {
		t.Error("expected error for empty calldata")
	}
	if _, err := NewQuote(req, QuoteParams{Target: testToken, CallData: []byte{1}, NativeValue: big.NewInt(-1)}); err == nil {
		t.Error("expected error for negative value")
	}

	q, err := NewQuote(req, QuoteParams{Target: testToken, CallData: []byte{1}})
	if err != nil {
		t.Fatalf("NewQuote() error = %v", err)
	}
	if q.NativeValue().Sign() != 0 {
		t.Errorf("nil value should default to zero, got %s", q.NativeValue())
	}
}

func TestNotExecutedOutcomes(t *testing.T) {
	b := NewBatchBuilder(false)
	b.AddQuote(newTestQuote(t, "a", 1))
	b.AddQuote(newTestQuote(t, "b", 2))
	batch, _ := b.Build()

	outcomes := NotExecutedOutcomes(batch, ErrSimulationFailed)
	if len(outcomes) != 2 {
		t.Fatalf("len = %d, want 2", len(outcomes))
	}
	for i, o := range outcomes {
		if o.Index != i || o.Status != StatusNotExecuted || !errors.Is(o.Err, ErrSimulationFailed) {
			t.Errorf("outcome %d = %+v", i, o)
		}
	}
}

func TestRunReport_Counts(t *testing.T) {
	hash := common.HexToHash("0xabc")
	r := &RunReport{Outcomes: []ExecutionOutcome{
		{Status: StatusSucceeded, TxHash: hash},
		{Status: StatusSucceeded, TxHash: hash},
		{Status: StatusFailed},
		{Status: StatusUnknown},
	}}
	if r.Succeeded() != 2 || r.Failed() != 1 || r.CountStatus(StatusUnknown) != 1 {
		t.Errorf("counts = %d/%d/%d", r.Succeeded(), r.Failed(), r.CountStatus(StatusUnknown))
	}
	if got := r.TxHashes(); len(got) != 1 || got[0] != hash.Hex() {
		t.Errorf("TxHashes() = %v", got)
	}
}
