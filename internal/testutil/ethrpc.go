package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// JSONRPCRequest represents a JSON-RPC request.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      json.RawMessage `json:"id"`
}

// EthCall is the decoded first parameter of an eth_call.
type EthCall struct {
	From  common.Address
	To    common.Address
	Value *big.Int
	Data  []byte
	// Block is the raw block tag, e.g. "latest" or "0x63".
	Block string
}

// RevertError makes MockEthNode answer an eth_call with an execution revert.
type RevertError struct {
	Data []byte
}

func (e *RevertError) Error() string {
	return "execution reverted"
}

// MockEthNode is a fake JSON-RPC Ethereum node covering what the ethereum
// adapter uses: chain and fee queries, eth_call, raw transaction submission
// and receipts.
type MockEthNode struct {
	Server *httptest.Server

	mu          sync.Mutex
	chainID     int64
	nonce       uint64
	blockNumber uint64
	balance     *big.Int
	sent        []*types.Transaction
	receipts    map[common.Hash]uint64
	polls       map[common.Hash]int

	// CallFn answers eth_call. Returning a *RevertError produces a JSON-RPC
	// execution-reverted error; any other error produces a generic one.
	CallFn func(call EthCall) ([]byte, error)

	// StatusFn decides the receipt status of each sent transaction
	// (types.ReceiptStatusSuccessful when nil).
	StatusFn func(tx *types.Transaction) uint64

	// PendingPolls is how many receipt polls return null before a receipt appears.
	PendingPolls int

	// NeverMine keeps every receipt pending.
	NeverMine bool
}

// StartMockEthNode starts a fake node for chainID. The server is closed with the test.
func StartMockEthNode(t *testing.T, chainID int64) *MockEthNode {
	t.Helper()

	node := &MockEthNode{
		chainID:     chainID,
		blockNumber: 100,
		balance:     new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil),
		receipts:    make(map[common.Hash]uint64),
		polls:       make(map[common.Hash]int),
	}
	node.Server = httptest.NewServer(http.HandlerFunc(node.handle))
	t.Cleanup(node.Server.Close)
	return node
}

// URL returns the node's endpoint.
func (n *MockEthNode) URL() string {
	return n.Server.URL
}

// SentTransactions returns the decoded transactions received so far.
func (n *MockEthNode) SentTransactions() []*types.Transaction {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*types.Transaction(nil), n.sent...)
}

func (n *MockEthNode) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	w.Header().Set("Content-Type", "application/json")

	var req JSONRPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		WriteRPCError(w, json.RawMessage(`1`), -32700, "parse error")
		return
	}

	var params []json.RawMessage
	_ = json.Unmarshal(req.Params, &params)

	n.mu.Lock()
	defer n.mu.Unlock()

	switch req.Method {
	case "eth_chainId":
		writeHex(w, req.ID, big.NewInt(n.chainID))
	case "eth_blockNumber":
		writeHex(w, req.ID, new(big.Int).SetUint64(n.blockNumber))
	case "eth_getBalance":
		writeHex(w, req.ID, n.balance)
	case "eth_getTransactionCount":
		writeHex(w, req.ID, new(big.Int).SetUint64(n.nonce))
	case "eth_maxPriorityFeePerGas":
		writeHex(w, req.ID, big.NewInt(100_000_000))
	case "eth_gasPrice":
		writeHex(w, req.ID, big.NewInt(1_100_000_000))
	case "eth_estimateGas":
		writeHex(w, req.ID, big.NewInt(200_000))
	case "eth_getBlockByNumber":
		writeHeader(w, req.ID, n.blockNumber)
	case "eth_call":
		n.handleCall(w, req.ID, params)
	case "eth_sendRawTransaction":
		n.handleSendRaw(w, req.ID, params)
	case "eth_getTransactionReceipt":
		n.handleReceipt(w, req.ID, params)
	default:
		WriteRPCError(w, req.ID, -32601, "method not found: "+req.Method)
	}
}

func (n *MockEthNode) handleCall(w http.ResponseWriter, id json.RawMessage, params []json.RawMessage) {
	if len(params) < 1 {
		WriteRPCError(w, id, -32602, "missing call object")
		return
	}
	var obj struct {
		From  common.Address `json:"from"`
		To    common.Address `json:"to"`
		Value *hexutil.Big   `json:"value"`
		Data  *hexutil.Bytes `json:"data"`
		Input *hexutil.Bytes `json:"input"`
	}
	if err := json.Unmarshal(params[0], &obj); err != nil {
		WriteRPCError(w, id, -32602, "invalid call object")
		return
	}
	call := EthCall{From: obj.From, To: obj.To, Value: new(big.Int), Block: "latest"}
	if obj.Value != nil {
		call.Value = obj.Value.ToInt()
	}
	// go-ethereum may use "data" or "input" for the calldata field
	if obj.Input != nil {
		call.Data = *obj.Input
	} else if obj.Data != nil {
		call.Data = *obj.Data
	}
	if len(params) > 1 {
		_ = json.Unmarshal(params[1], &call.Block)
	}

	if n.CallFn == nil {
		WriteRPCError(w, id, -32000, "eth_call not configured")
		return
	}
	out, err := n.CallFn(call)
	if err != nil {
		if revert, ok := err.(*RevertError); ok {
			writeRevert(w, id, revert.Data)
			return
		}
		WriteRPCError(w, id, -32000, err.Error())
		return
	}
	resultJSON, _ := json.Marshal(hexutil.Bytes(out))
	WriteRPCResult(w, id, resultJSON)
}

func (n *MockEthNode) handleSendRaw(w http.ResponseWriter, id json.RawMessage, params []json.RawMessage) {
	var rawHex string
	if len(params) < 1 || json.Unmarshal(params[0], &rawHex) != nil {
		WriteRPCError(w, id, -32602, "missing raw transaction")
		return
	}
	raw, err := hexutil.Decode(rawHex)
	if err != nil {
		WriteRPCError(w, id, -32602, "invalid hex")
		return
	}
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		WriteRPCError(w, id, -32602, "invalid transaction: "+err.Error())
		return
	}
	if tx.Nonce() != n.nonce {
		WriteRPCError(w, id, -32000, fmt.Sprintf("nonce too low: have %d, want %d", tx.Nonce(), n.nonce))
		return
	}

	status := types.ReceiptStatusSuccessful
	if n.StatusFn != nil {
		status = n.StatusFn(tx)
	}
	n.nonce++
	n.sent = append(n.sent, tx)
	n.receipts[tx.Hash()] = status

	resultJSON, _ := json.Marshal(tx.Hash())
	WriteRPCResult(w, id, resultJSON)
}

func (n *MockEthNode) handleReceipt(w http.ResponseWriter, id json.RawMessage, params []json.RawMessage) {
	var hash common.Hash
	if len(params) < 1 || json.Unmarshal(params[0], &hash) != nil {
		WriteRPCError(w, id, -32602, "missing hash")
		return
	}
	status, ok := n.receipts[hash]
	n.polls[hash]++
	if !ok || n.NeverMine || n.polls[hash] <= n.PendingPolls {
		WriteRPCResult(w, id, json.RawMessage(`null`))
		return
	}

	n.blockNumber++
	receipt := map[string]interface{}{
		"type":              "0x2",
		"status":            hexutil.Uint64(status),
		"cumulativeGasUsed": "0x30d40",
		"gasUsed":           "0x30d40",
		"effectiveGasPrice": "0x3b9aca00",
		"logsBloom":         "0x" + strings.Repeat("0", 512),
		"logs":              []interface{}{},
		"transactionHash":   hash,
		"contractAddress":   nil,
		"blockHash":         common.BigToHash(new(big.Int).SetUint64(n.blockNumber)),
		"blockNumber":       hexutil.Uint64(n.blockNumber),
		"transactionIndex":  "0x0",
	}
	receiptJSON, _ := json.Marshal(receipt)
	WriteRPCResult(w, id, receiptJSON)
}

// WriteRPCResult writes a JSON-RPC success response.
func WriteRPCResult(w http.ResponseWriter, id, result json.RawMessage) {
	_ = json.NewEncoder(w).Encode(map[string]json.RawMessage{
		"jsonrpc": json.RawMessage(`"2.0"`),
		"id":      id,
		"result":  result,
	})
}

// WriteRPCError writes a JSON-RPC error response.
func WriteRPCError(w http.ResponseWriter, id json.RawMessage, code int, message string) {
	errJSON, _ := json.Marshal(map[string]interface{}{"code": code, "message": message})
	_ = json.NewEncoder(w).Encode(map[string]json.RawMessage{
		"jsonrpc": json.RawMessage(`"2.0"`),
		"id":      id,
		"error":   json.RawMessage(errJSON),
	})
}

func writeRevert(w http.ResponseWriter, id json.RawMessage, data []byte) {
	errJSON, _ := json.Marshal(map[string]interface{}{
		"code":    3,
		"message": "execution reverted",
		"data":    hexutil.Bytes(data),
	})
	_ = json.NewEncoder(w).Encode(map[string]json.RawMessage{
		"jsonrpc": json.RawMessage(`"2.0"`),
		"id":      id,
		"error":   json.RawMessage(errJSON),
	})
}

func writeHex(w http.ResponseWriter, id json.RawMessage, v *big.Int) {
	resultJSON, _ := json.Marshal((*hexutil.Big)(v))
	WriteRPCResult(w, id, resultJSON)
}

func writeHeader(w http.ResponseWriter, id json.RawMessage, blockNum uint64) {
	header := map[string]string{
		"parentHash":       fmt.Sprintf("0x%064x", blockNum-1),
		"sha3Uncles":       "0x1dcc4de8dec75d7aab85b567b6ccd41ad312451b948a7413f0a142fd40d49347",
		"miner":            "0x0000000000000000000000000000000000000000",
		"stateRoot":        "0x0000000000000000000000000000000000000000000000000000000000000000",
		"transactionsRoot": "0x56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421",
		"receiptsRoot":     "0x56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421",
		"logsBloom":        "0x" + strings.Repeat("0", 512),
		"difficulty":       "0x0",
		"number":           fmt.Sprintf("0x%x", blockNum),
		"gasLimit":         "0x1c9c380",
		"gasUsed":          "0x0",
		"timestamp":        fmt.Sprintf("0x%x", 1700000000+blockNum*2),
		"extraData":        "0x",
		"mixHash":          "0x0000000000000000000000000000000000000000000000000000000000000000",
		"nonce":            "0x0000000000000000",
		"baseFeePerGas":    "0x3b9aca00",
	}
	headerJSON, _ := json.Marshal(header)
	WriteRPCResult(w, id, headerJSON)
}
