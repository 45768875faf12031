package batch_trader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/archon-research/stl-trade/internal/domain/entity"
	"github.com/archon-research/stl-trade/internal/pkg/blockchain/multicall"
	"github.com/archon-research/stl-trade/internal/ports/outbound"
)

// Simulator dry-runs a batch with eth_call before anything is broadcast.
type Simulator struct {
	chain      outbound.ChainClient
	codec      *multicall.Codec
	multicall3 common.Address
	logger     *slog.Logger
}

// NewSimulator creates a simulator for the chain client's sender.
func NewSimulator(chain outbound.ChainClient, codec *multicall.Codec, multicall3 common.Address, logger *slog.Logger) (*Simulator, error) {
	if chain == nil {
		return nil, errors.New("chain is required")
	}
	if codec == nil {
		return nil, errors.New("codec is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Simulator{
		chain:      chain,
		codec:      codec,
		multicall3: multicall3,
		logger:     logger.With("component", "simulator"),
	}, nil
}

// Simulate returns nil when every call would succeed. In atomic mode the whole
// aggregate3Value call is simulated with the batch's total value; in
// sequential mode each call is simulated on its own against the latest state.
// Any failure wraps ErrSimulationFailed.
func (s *Simulator) Simulate(ctx context.Context, batch *entity.Batch, mode entity.ExecutionMode) error {
	sender := s.chain.Sender()

	if mode == entity.ModeAtomic {
		data, err := s.codec.Pack(toMulticallCalls(batch))
		if err != nil {
			return fmt.Errorf("%w: %v", entity.ErrSimulationFailed, err)
		}
		if _, err := s.chain.CallContract(ctx, outbound.CallMsg{
			From:  sender,
			To:    s.multicall3,
			Value: batch.TotalValue(),
			Data:  data,
		}, nil); err != nil {
			return fmt.Errorf("%w: batch of %d calls would revert: %v", entity.ErrSimulationFailed, batch.Len(), err)
		}
		s.logger.Info("simulation passed", "mode", mode, "calls", batch.Len(), "totalValue", batch.TotalValue().String())
		return nil
	}

	for i, call := range batch.Calls() {
		if _, err := s.chain.CallContract(ctx, outbound.CallMsg{
			From:  sender,
			To:    call.Target,
			Value: call.Value,
			Data:  call.CallData,
		}, nil); err != nil {
			return fmt.Errorf("%w: call %d (%s) would revert: %v", entity.ErrSimulationFailed, i, call.Request.Label(), err)
		}
	}
	s.logger.Info("simulation passed", "mode", mode, "calls", batch.Len())
	return nil
}
