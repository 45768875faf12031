package batch_trader

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/archon-research/stl-trade/internal/domain/entity"
	"github.com/archon-research/stl-trade/internal/pkg/blockchain"
	"github.com/archon-research/stl-trade/internal/pkg/blockchain/multicall"
	"github.com/archon-research/stl-trade/internal/ports/outbound"
	"github.com/archon-research/stl-trade/internal/testutil"
)

func newTestCodec(t *testing.T) *multicall.Codec {
	t.Helper()
	codec, err := multicall.NewCodec()
	if err != nil {
		t.Fatalf("NewCodec() error = %v", err)
	}
	return codec
}

// newTestBatch builds a buy batch of n calls with values 1e15, 2e15, ...
func newTestBatch(t *testing.T, n int, allowFailure bool) *entity.Batch {
	t.Helper()
	builder := entity.NewBatchBuilder(allowFailure)
	for i := 0; i < n; i++ {
		req := entity.NewBuyRequest(testutil.TokenAddress(i), big.NewInt(int64(i+1)*1e15), 100, testutil.TestSender, "")
		builder.AddQuote(testutil.NewQuote(t, "0x", req))
	}
	batch, err := builder.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return batch
}

func TestSimulator_AtomicSimulatesWholeBatch(t *testing.T) {
	codec := newTestCodec(t)
	batch := newTestBatch(t, 3, false)
	chain := testutil.NewMockChainClient(testutil.TestSender)
	chain.CallContractFn = func(_ context.Context, msg outbound.CallMsg, block *big.Int) ([]byte, error) {
		if block != nil {
			t.Errorf("simulation should run against latest, got block %s", block)
		}
		return nil, nil
	}

	sim, err := NewSimulator(chain, codec, blockchain.Multicall3, nil)
	if err != nil {
		t.Fatalf("NewSimulator() error = %v", err)
	}
	if err := sim.Simulate(context.Background(), batch, entity.ModeAtomic); err != nil {
		t.Fatalf("Simulate() error = %v", err)
	}

	if len(chain.Calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(chain.Calls))
	}
	msg := chain.Calls[0]
	if msg.To != blockchain.Multicall3 {
		t.Errorf("to = %s, want multicall3", msg.To.Hex())
	}
	if msg.From != testutil.TestSender {
		t.Errorf("from = %s, want sender", msg.From.Hex())
	}
	if msg.Value.Cmp(big.NewInt(6e15)) != 0 {
		t.Errorf("value = %s, want 6e15", msg.Value)
	}
	decoded, err := codec.UnpackCalls(msg.Data)
	if err != nil {
		t.Fatalf("UnpackCalls() error = %v", err)
	}
	if len(decoded) != 3 {
		t.Errorf("decoded calls = %d, want 3", len(decoded))
	}
}

func TestSimulator_SequentialSimulatesEachCall(t *testing.T) {
	batch := newTestBatch(t, 2, true)
	chain := testutil.NewMockChainClient(testutil.TestSender)
	chain.CallContractFn = func(context.Context, outbound.CallMsg, *big.Int) ([]byte, error) {
		return nil, nil
	}

	sim, _ := NewSimulator(chain, newTestCodec(t), blockchain.Multicall3, nil)
	if err := sim.Simulate(context.Background(), batch, entity.ModeSequential); err != nil {
		t.Fatalf("Simulate() error = %v", err)
	}
	if len(chain.Calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(chain.Calls))
	}
	for i, msg := range chain.Calls {
		if msg.To != testutil.TestRouter {
			t.Errorf("call %d to = %s, want router", i, msg.To.Hex())
		}
		if msg.Value.Cmp(batch.Call(i).Value) != 0 {
			t.Errorf("call %d value = %s, want %s", i, msg.Value, batch.Call(i).Value)
		}
	}
}

func TestSimulator_RevertWrapsSimulationFailed(t *testing.T) {
	chain := testutil.NewMockChainClient(testutil.TestSender)
	chain.CallContractFn = func(context.Context, outbound.CallMsg, *big.Int) ([]byte, error) {
		return nil, errors.New("execution reverted: Multicall3: call failed")
	}

	sim, _ := NewSimulator(chain, newTestCodec(t), blockchain.Multicall3, nil)
	for _, mode := range []entity.ExecutionMode{entity.ModeAtomic, entity.ModeSequential} {
		err := sim.Simulate(context.Background(), newTestBatch(t, 2, mode.AllowFailure()), mode)
		if !errors.Is(err, entity.ErrSimulationFailed) {
			t.Errorf("%s: expected ErrSimulationFailed, got %v", mode, err)
		}
	}
}

func TestAtomicExecutor_SingleTransactionWithReplayedResults(t *testing.T) {
	codec := newTestCodec(t)
	batch := newTestBatch(t, 3, false)
	chain := testutil.NewMockChainClient(testutil.TestSender)
	chain.WaitForReceiptFn = func(_ context.Context, hash common.Hash) (*outbound.Receipt, error) {
		return &outbound.Receipt{TxHash: hash, Success: true, BlockNumber: 200, GasUsed: 450000}, nil
	}
	replayed, err := codec.PackResults([]multicall.Result{
		{Success: true, ReturnData: []byte{0x01}},
		{Success: true, ReturnData: []byte{0x02}},
		{Success: true, ReturnData: []byte{0x03}},
	})
	if err != nil {
		t.Fatalf("PackResults() error = %v", err)
	}
	chain.CallContractFn = func(_ context.Context, _ outbound.CallMsg, block *big.Int) ([]byte, error) {
		if block == nil || block.Uint64() != 199 {
			t.Errorf("replay block = %v, want 199", block)
		}
		return replayed, nil
	}

	exec, _ := NewAtomicExecutor(chain, codec, blockchain.Multicall3, time.Second, nil)
	outcomes, err := exec.Execute(context.Background(), batch)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if chain.SentCount() != 1 {
		t.Fatalf("sent = %d, want 1", chain.SentCount())
	}
	sent := chain.Sent[0]
	if sent.To != blockchain.Multicall3 {
		t.Errorf("to = %s, want multicall3", sent.To.Hex())
	}
	if sent.Value.Cmp(batch.TotalValue()) != 0 {
		t.Errorf("value = %s, want %s", sent.Value, batch.TotalValue())
	}

	if len(outcomes) != 3 {
		t.Fatalf("outcomes = %d, want 3", len(outcomes))
	}
	for i, o := range outcomes {
		if o.Status != entity.StatusSucceeded {
			t.Errorf("outcome %d status = %s, want succeeded", i, o.Status)
		}
		if o.TxHash != outcomes[0].TxHash {
			t.Errorf("outcome %d does not share the batch hash", i)
		}
		if o.BlockNumber != 200 || o.GasUsed != 450000 {
			t.Errorf("outcome %d block/gas = %d/%d", i, o.BlockNumber, o.GasUsed)
		}
		if len(o.ReturnData) != 1 || o.ReturnData[0] != byte(i+1) {
			t.Errorf("outcome %d return data = %x", i, o.ReturnData)
		}
	}
}

func TestAtomicExecutor_RevertedBatchFailsEveryCall(t *testing.T) {
	chain := testutil.NewMockChainClient(testutil.TestSender)
	chain.WaitForReceiptFn = func(_ context.Context, hash common.Hash) (*outbound.Receipt, error) {
		return &outbound.Receipt{TxHash: hash, Success: false, BlockNumber: 10}, nil
	}

	exec, _ := NewAtomicExecutor(chain, newTestCodec(t), blockchain.Multicall3, time.Second, nil)
	outcomes, err := exec.Execute(context.Background(), newTestBatch(t, 2, false))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	for i, o := range outcomes {
		if o.Status != entity.StatusFailed {
			t.Errorf("outcome %d status = %s, want failed", i, o.Status)
		}
		if !errors.Is(o.Err, entity.ErrTransactionReverted) {
			t.Errorf("outcome %d err = %v, want ErrTransactionReverted", i, o.Err)
		}
	}
}

func TestAtomicExecutor_FailedInnerCall(t *testing.T) {
	codec := newTestCodec(t)
	replayed, _ := codec.PackResults([]multicall.Result{
		{Success: true, ReturnData: []byte{}},
		{Success: false, ReturnData: []byte{}},
	})
	chain := testutil.NewMockChainClient(testutil.TestSender)
	chain.CallContractFn = func(context.Context, outbound.CallMsg, *big.Int) ([]byte, error) {
		return replayed, nil
	}

	exec, _ := NewAtomicExecutor(chain, codec, blockchain.Multicall3, time.Second, nil)
	outcomes, _ := exec.Execute(context.Background(), newTestBatch(t, 2, true))

	if outcomes[0].Status != entity.StatusSucceeded {
		t.Errorf("outcome 0 status = %s, want succeeded", outcomes[0].Status)
	}
	if outcomes[1].Status != entity.StatusFailed {
		t.Errorf("outcome 1 status = %s, want failed", outcomes[1].Status)
	}
}

func TestAtomicExecutor_ReplayUnavailable(t *testing.T) {
	chain := testutil.NewMockChainClient(testutil.TestSender)
	chain.CallContractFn = func(context.Context, outbound.CallMsg, *big.Int) ([]byte, error) {
		return nil, errors.New("missing trie node")
	}

	exec, _ := NewAtomicExecutor(chain, newTestCodec(t), blockchain.Multicall3, time.Second, nil)

	strict, _ := exec.Execute(context.Background(), newTestBatch(t, 2, false))
	for i, o := range strict {
		if o.Status != entity.StatusSucceeded {
			t.Errorf("strict outcome %d status = %s, want succeeded", i, o.Status)
		}
	}

	lenient, _ := exec.Execute(context.Background(), newTestBatch(t, 2, true))
	for i, o := range lenient {
		if o.Status != entity.StatusUnknown {
			t.Errorf("lenient outcome %d status = %s, want unknown", i, o.Status)
		}
	}
}

func TestAtomicExecutor_SubmissionAndWaitFailures(t *testing.T) {
	t.Run("send fails", func(t *testing.T) {
		chain := testutil.NewMockChainClient(testutil.TestSender)
		chain.SendTransactionFn = func(context.Context, outbound.TxRequest) (common.Hash, error) {
			return common.Hash{}, errors.New("nonce too low")
		}
		exec, _ := NewAtomicExecutor(chain, newTestCodec(t), blockchain.Multicall3, time.Second, nil)
		outcomes, err := exec.Execute(context.Background(), newTestBatch(t, 2, false))
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		for i, o := range outcomes {
			if o.Status != entity.StatusFailed {
				t.Errorf("outcome %d status = %s, want failed", i, o.Status)
			}
		}
	})

	t.Run("receipt times out", func(t *testing.T) {
		chain := testutil.NewMockChainClient(testutil.TestSender)
		chain.WaitForReceiptFn = func(context.Context, common.Hash) (*outbound.Receipt, error) {
			return nil, context.DeadlineExceeded
		}
		exec, _ := NewAtomicExecutor(chain, newTestCodec(t), blockchain.Multicall3, time.Second, nil)
		outcomes, _ := exec.Execute(context.Background(), newTestBatch(t, 2, false))
		for i, o := range outcomes {
			if o.Status != entity.StatusUnknown {
				t.Errorf("outcome %d status = %s, want unknown", i, o.Status)
			}
			if o.TxHash == (common.Hash{}) {
				t.Errorf("outcome %d should carry the pending hash", i)
			}
		}
	})
}

func TestSequentialExecutor_SubmitsInOrder(t *testing.T) {
	batch := newTestBatch(t, 3, true)
	chain := testutil.NewMockChainClient(testutil.TestSender)

	exec, _ := NewSequentialExecutor(chain, time.Second, nil)
	outcomes, err := exec.Execute(context.Background(), batch)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if chain.SentCount() != 3 {
		t.Fatalf("sent = %d, want 3", chain.SentCount())
	}
	seen := make(map[common.Hash]bool)
	for i, o := range outcomes {
		if o.Index != i {
			t.Errorf("outcome %d index = %d", i, o.Index)
		}
		if o.Status != entity.StatusSucceeded {
			t.Errorf("outcome %d status = %s, want succeeded", i, o.Status)
		}
		if seen[o.TxHash] {
			t.Errorf("outcome %d reuses hash %s", i, o.TxHash.Hex())
		}
		seen[o.TxHash] = true
		if chain.Sent[i].Value.Cmp(batch.Call(i).Value) != 0 {
			t.Errorf("call %d value = %s, want %s", i, chain.Sent[i].Value, batch.Call(i).Value)
		}
		if chain.Waits[i] != o.TxHash {
			t.Errorf("call %d was not awaited before the next submission", i)
		}
	}
}

func TestSequentialExecutor_FailureDoesNotStopLaterCalls(t *testing.T) {
	chain := testutil.NewMockChainClient(testutil.TestSender)
	chain.SendTransactionFn = func(_ context.Context, tx outbound.TxRequest) (common.Hash, error) {
		if tx.Value.Cmp(big.NewInt(1e15)) == 0 {
			return common.Hash{}, errors.New("replacement transaction underpriced")
		}
		return common.BytesToHash(tx.Value.Bytes()), nil
	}
	chain.WaitForReceiptFn = func(_ context.Context, hash common.Hash) (*outbound.Receipt, error) {
		// The 2e15 call reverts.
		return &outbound.Receipt{TxHash: hash, Success: hash != common.BytesToHash(big.NewInt(2e15).Bytes()), BlockNumber: 7}, nil
	}

	exec, _ := NewSequentialExecutor(chain, time.Second, nil)
	outcomes, _ := exec.Execute(context.Background(), newTestBatch(t, 3, true))

	want := []entity.OutcomeStatus{entity.StatusFailed, entity.StatusFailed, entity.StatusSucceeded}
	for i, o := range outcomes {
		if o.Status != want[i] {
			t.Errorf("outcome %d status = %s, want %s", i, o.Status, want[i])
		}
	}
	if !errors.Is(outcomes[1].Err, entity.ErrTransactionReverted) {
		t.Errorf("outcome 1 err = %v, want ErrTransactionReverted", outcomes[1].Err)
	}
}

func TestSequentialExecutor_TimeoutStopsRun(t *testing.T) {
	chain := testutil.NewMockChainClient(testutil.TestSender)
	chain.WaitForReceiptFn = func(ctx context.Context, hash common.Hash) (*outbound.Receipt, error) {
		if hash == common.BigToHash(big.NewInt(2)) {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return &outbound.Receipt{TxHash: hash, Success: true, BlockNumber: 9}, nil
	}

	exec, _ := NewSequentialExecutor(chain, 20*time.Millisecond, nil)
	outcomes, _ := exec.Execute(context.Background(), newTestBatch(t, 4, true))

	want := []entity.OutcomeStatus{entity.StatusSucceeded, entity.StatusUnknown, entity.StatusNotExecuted, entity.StatusNotExecuted}
	for i, o := range outcomes {
		if o.Status != want[i] {
			t.Errorf("outcome %d status = %s, want %s", i, o.Status, want[i])
		}
	}
	if chain.SentCount() != 2 {
		t.Errorf("sent = %d, want 2", chain.SentCount())
	}
}

func TestSequentialExecutor_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	chain := testutil.NewMockChainClient(testutil.TestSender)
	exec, _ := NewSequentialExecutor(chain, time.Second, nil)
	outcomes, _ := exec.Execute(ctx, newTestBatch(t, 2, true))

	for i, o := range outcomes {
		if o.Status != entity.StatusNotExecuted {
			t.Errorf("outcome %d status = %s, want not_executed", i, o.Status)
		}
	}
	if chain.SentCount() != 0 {
		t.Errorf("sent = %d, want 0", chain.SentCount())
	}
}
