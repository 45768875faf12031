package batch_trader

import (
	"github.com/archon-research/stl-trade/internal/domain/entity"
	"github.com/archon-research/stl-trade/internal/pkg/blockchain/multicall"
)

// toMulticallCalls converts batch calls into aggregate3Value entries, in order.
func toMulticallCalls(batch *entity.Batch) []multicall.Call {
	calls := batch.Calls()
	out := make([]multicall.Call, len(calls))
	for i, c := range calls {
		out[i] = multicall.Call{
			Target:       c.Target,
			AllowFailure: c.AllowFailure,
			Value:        c.Value,
			CallData:     c.CallData,
		}
	}
	return out
}
