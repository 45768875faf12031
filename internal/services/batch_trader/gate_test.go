package batch_trader

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/archon-research/stl-trade/internal/domain/entity"
	"github.com/archon-research/stl-trade/internal/ports/outbound"
	"github.com/archon-research/stl-trade/internal/testutil"
)

var testSpender = common.HexToAddress("0x0000000000001fF3684f28c67538d4D072C22734")

func newTestGate(t *testing.T, tokens *testutil.MockTokenClient, chain *testutil.MockChainClient, autoApprove bool) *Gate {
	t.Helper()
	gate, err := NewGate(GateConfig{
		Spender:     testSpender,
		AutoApprove: autoApprove,
	}, tokens, chain)
	if err != nil {
		t.Fatalf("NewGate() error = %v", err)
	}
	return gate
}

func TestNewGate_RequiresSpender(t *testing.T) {
	_, err := NewGate(GateConfig{}, testutil.NewMockTokenClient(), testutil.NewMockChainClient(testutil.TestSender))
	if err == nil {
		t.Fatal("expected error for missing spender")
	}
}

func TestGate_ReadyWhenAllowanceCoversBalance(t *testing.T) {
	token := testutil.TokenAddress(1)
	tokens := testutil.NewMockTokenClient()
	tokens.Balances[token] = big.NewInt(500)
	tokens.Allowances[token] = big.NewInt(500)
	tokens.SymbolFn = func(context.Context, common.Address) (string, error) { return "DEGEN", nil }

	result := newTestGate(t, tokens, testutil.NewMockChainClient(testutil.TestSender), true).Check(context.Background(), token)

	if result.State != entity.GateReady {
		t.Fatalf("state = %s, want %s (reason %v)", result.State, entity.GateReady, result.Reason)
	}
	if result.Allowance.Symbol != "DEGEN" {
		t.Errorf("symbol = %q, want DEGEN", result.Allowance.Symbol)
	}
	if len(tokens.Approvals) != 0 {
		t.Errorf("approvals = %d, want 0", len(tokens.Approvals))
	}
	if result.ApprovalTx != (common.Hash{}) {
		t.Errorf("ApprovalTx = %s, want zero", result.ApprovalTx.Hex())
	}
}

func TestGate_ZeroBalanceSkips(t *testing.T) {
	token := testutil.TokenAddress(1)
	tokens := testutil.NewMockTokenClient()

	result := newTestGate(t, tokens, testutil.NewMockChainClient(testutil.TestSender), true).Check(context.Background(), token)

	if result.State != entity.GateSkip {
		t.Fatalf("state = %s, want %s", result.State, entity.GateSkip)
	}
	if !errors.Is(result.Reason, entity.ErrZeroBalance) {
		t.Errorf("reason = %v, want ErrZeroBalance", result.Reason)
	}
	if result.SkippedAt != entity.GateCheckBalance {
		t.Errorf("skipped at = %s, want %s", result.SkippedAt, entity.GateCheckBalance)
	}
	if result.Allowance.Symbol != entity.UnknownSymbol {
		t.Errorf("symbol = %q, want %s", result.Allowance.Symbol, entity.UnknownSymbol)
	}
}

func TestGate_ApprovesMultipleOfBalance(t *testing.T) {
	token := testutil.TokenAddress(1)
	tokens := testutil.NewMockTokenClient()
	tokens.Balances[token] = big.NewInt(700)
	tokens.Allowances[token] = big.NewInt(10)
	chain := testutil.NewMockChainClient(testutil.TestSender)

	result := newTestGate(t, tokens, chain, true).Check(context.Background(), token)

	if result.State != entity.GateReady {
		t.Fatalf("state = %s, want %s (reason %v)", result.State, entity.GateReady, result.Reason)
	}
	if len(tokens.Approvals) != 1 {
		t.Fatalf("approvals = %d, want 1", len(tokens.Approvals))
	}
	approval := tokens.Approvals[0]
	if approval.Spender != testSpender {
		t.Errorf("spender = %s, want %s", approval.Spender.Hex(), testSpender.Hex())
	}
	if approval.Amount.Cmp(big.NewInt(1400)) != 0 {
		t.Errorf("approved amount = %s, want 1400", approval.Amount)
	}
	if result.ApprovalTx == (common.Hash{}) {
		t.Error("expected approval tx hash")
	}
	if len(chain.Waits) != 1 || chain.Waits[0] != result.ApprovalTx {
		t.Errorf("expected one wait for %s, got %v", result.ApprovalTx.Hex(), chain.Waits)
	}
	if result.Allowance.Allowance.Cmp(big.NewInt(1400)) != 0 {
		t.Errorf("re-read allowance = %s, want 1400", result.Allowance.Allowance)
	}
}

func TestGate_MultiplierNeverBelowTwo(t *testing.T) {
	token := testutil.TokenAddress(1)
	tokens := testutil.NewMockTokenClient()
	tokens.Balances[token] = big.NewInt(100)

	gate, err := NewGate(GateConfig{Spender: testSpender, ApprovalMultiplier: 1, AutoApprove: true}, tokens, testutil.NewMockChainClient(testutil.TestSender))
	if err != nil {
		t.Fatalf("NewGate() error = %v", err)
	}
	gate.Check(context.Background(), token)

	if len(tokens.Approvals) != 1 {
		t.Fatalf("approvals = %d, want 1", len(tokens.Approvals))
	}
	if tokens.Approvals[0].Amount.Cmp(big.NewInt(200)) != 0 {
		t.Errorf("approved amount = %s, want 200", tokens.Approvals[0].Amount)
	}
}

func TestGate_AutoApproveDisabled(t *testing.T) {
	token := testutil.TokenAddress(1)
	tokens := testutil.NewMockTokenClient()
	tokens.Balances[token] = big.NewInt(100)
	tokens.Allowances[token] = big.NewInt(99)

	result := newTestGate(t, tokens, testutil.NewMockChainClient(testutil.TestSender), false).Check(context.Background(), token)

	if !errors.Is(result.Reason, entity.ErrApprovalRequired) {
		t.Errorf("reason = %v, want ErrApprovalRequired", result.Reason)
	}
	if result.SkippedAt != entity.GateCheckAllowance {
		t.Errorf("skipped at = %s, want %s", result.SkippedAt, entity.GateCheckAllowance)
	}
	if len(tokens.Approvals) != 0 {
		t.Errorf("approvals = %d, want 0", len(tokens.Approvals))
	}
}

func TestGate_ApprovalFailures(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(tokens *testutil.MockTokenClient, chain *testutil.MockChainClient)
		reason error
		step   entity.GateState
	}{
		{
			name: "submission fails",
			setup: func(tokens *testutil.MockTokenClient, _ *testutil.MockChainClient) {
				tokens.ApproveFn = func(context.Context, common.Address, common.Address, *big.Int) (common.Hash, error) {
					return common.Hash{}, errors.New("insufficient funds for gas")
				}
			},
			reason: entity.ErrApprovalFailed,
			step:   entity.GateSubmitApproval,
		},
		{
			name: "approval reverts",
			setup: func(_ *testutil.MockTokenClient, chain *testutil.MockChainClient) {
				chain.WaitForReceiptFn = func(_ context.Context, hash common.Hash) (*outbound.Receipt, error) {
					return &outbound.Receipt{TxHash: hash, Success: false, BlockNumber: 5}, nil
				}
			},
			reason: entity.ErrApprovalFailed,
			step:   entity.GateAwaitApprovalConfirmation,
		},
		{
			name: "confirmation times out",
			setup: func(_ *testutil.MockTokenClient, chain *testutil.MockChainClient) {
				chain.WaitForReceiptFn = func(context.Context, common.Hash) (*outbound.Receipt, error) {
					return nil, context.DeadlineExceeded
				}
			},
			reason: entity.ErrApprovalFailed,
			step:   entity.GateAwaitApprovalConfirmation,
		},
		{
			name: "allowance unchanged after confirmation",
			setup: func(tokens *testutil.MockTokenClient, _ *testutil.MockChainClient) {
				tokens.ApproveFn = func(context.Context, common.Address, common.Address, *big.Int) (common.Hash, error) {
					return common.HexToHash("0xabc"), nil
				}
			},
			reason: entity.ErrApprovalFailed,
			step:   entity.GateAwaitApprovalConfirmation,
		},
		{
			name: "balance unreadable",
			setup: func(tokens *testutil.MockTokenClient, _ *testutil.MockChainClient) {
				tokens.BalanceOfFn = func(context.Context, common.Address, common.Address) (*big.Int, error) {
					return nil, errors.New("rpc down")
				}
			},
			reason: entity.ErrProviderError,
			step:   entity.GateCheckBalance,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := testutil.TokenAddress(1)
			tokens := testutil.NewMockTokenClient()
			tokens.Balances[token] = big.NewInt(100)
			chain := testutil.NewMockChainClient(testutil.TestSender)
			tt.setup(tokens, chain)

			result := newTestGate(t, tokens, chain, true).Check(context.Background(), token)

			if result.State != entity.GateSkip {
				t.Fatalf("state = %s, want %s", result.State, entity.GateSkip)
			}
			if !errors.Is(result.Reason, tt.reason) {
				t.Errorf("reason = %v, want %v", result.Reason, tt.reason)
			}
			if result.SkippedAt != tt.step {
				t.Errorf("skipped at = %s, want %s", result.SkippedAt, tt.step)
			}
		})
	}
}

func TestGate_RecordsMetrics(t *testing.T) {
	token := testutil.TokenAddress(1)
	tokens := testutil.NewMockTokenClient()
	tokens.Balances[token] = big.NewInt(100)
	metrics := testutil.NewMockMetrics()

	gate, _ := NewGate(GateConfig{Spender: testSpender, AutoApprove: true, Metrics: metrics}, tokens, testutil.NewMockChainClient(testutil.TestSender))
	gate.Check(context.Background(), token)
	gate.Check(context.Background(), testutil.TokenAddress(2))

	if metrics.Approvals[string(entity.GateReady)] != 1 {
		t.Errorf("ready = %d, want 1", metrics.Approvals[string(entity.GateReady)])
	}
	if metrics.Approvals[string(entity.GateSkip)] != 1 {
		t.Errorf("skip = %d, want 1", metrics.Approvals[string(entity.GateSkip)])
	}
}
