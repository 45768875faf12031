// Package multicall encodes batches for Multicall3's aggregate3Value entry point
// and decodes its positional return array.
package multicall

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/archon-research/stl-trade/internal/pkg/blockchain/abis"
)

const aggregate3Value = "aggregate3Value"

// Codec packs and unpacks aggregate3Value calls.
type Codec struct {
	abi *abi.ABI
}

func NewCodec() (*Codec, error) {
	multicallABI, err := abis.GetMulticall3ABI()
	if err != nil {
		return nil, fmt.Errorf("failed to load multicall3 ABI: %w", err)
	}
	return &Codec{abi: multicallABI}, nil
}

// Pack encodes calls as aggregate3Value calldata. Nil values are encoded as zero.
func (c *Codec) Pack(calls []Call) ([]byte, error) {
	if len(calls) == 0 {
		return nil, fmt.Errorf("cannot pack an empty multicall")
	}

	normalized := make([]Call, len(calls))
	for i, call := range calls {
		normalized[i] = call
		if call.Value == nil {
			normalized[i].Value = new(big.Int)
		}
		if call.CallData == nil {
			normalized[i].CallData = []byte{}
		}
	}

	data, err := c.abi.Pack(aggregate3Value, normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to pack multicall: %w", err)
	}
	return data, nil
}

// Unpack decodes the aggregate3Value return data. wantLen is the number of
// calls that were packed; a different count is an error because results are
// matched to calls by position.
func (c *Codec) Unpack(data []byte, wantLen int) ([]Result, error) {
	unpacked, err := c.abi.Unpack(aggregate3Value, data)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack multicall response: %w", err)
	}
	if len(unpacked) != 1 {
		return nil, fmt.Errorf("unexpected multicall output count %d", len(unpacked))
	}

	resultsRaw, ok := unpacked[0].([]struct {
		Success    bool   `json:"success"`
		ReturnData []byte `json:"returnData"`
	})
	if !ok {
		return nil, fmt.Errorf("unexpected multicall output type %T", unpacked[0])
	}

	if len(resultsRaw) != wantLen {
		return nil, fmt.Errorf("multicall returned %d results for %d calls", len(resultsRaw), wantLen)
	}

	results := make([]Result, len(resultsRaw))
	for i, r := range resultsRaw {
		results[i] = Result{
			Success:    r.Success,
			ReturnData: r.ReturnData,
		}
	}
	return results, nil
}

// PackResults encodes results the way the contract returns them. It exists for
// fake nodes in tests and for tooling that replays batches.
func (c *Codec) PackResults(results []Result) ([]byte, error) {
	out, err := c.abi.Methods[aggregate3Value].Outputs.Pack(results)
	if err != nil {
		return nil, fmt.Errorf("failed to pack multicall results: %w", err)
	}
	return out, nil
}

// UnpackCalls decodes aggregate3Value calldata (including the selector) back
// into calls.
func (c *Codec) UnpackCalls(data []byte) ([]Call, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("calldata too short: %d bytes", len(data))
	}
	method, err := c.abi.MethodById(data[:4])
	if err != nil {
		return nil, fmt.Errorf("unknown selector %x: %w", data[:4], err)
	}
	if method.Name != aggregate3Value {
		return nil, fmt.Errorf("unexpected method %s", method.Name)
	}

	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, fmt.Errorf("failed to unpack calls: %w", err)
	}

	var calls []Call
	if err := method.Inputs.Copy(&calls, args); err != nil {
		return nil, fmt.Errorf("failed to copy calls: %w", err)
	}
	return calls, nil
}
