package multicall

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Call is one entry of an aggregate3Value batch. Field names mirror the ABI
// tuple components so the struct packs directly.
type Call struct {
	Target       common.Address
	AllowFailure bool
	Value        *big.Int
	CallData     []byte
}

// Result is one entry of the aggregate3Value return array.
type Result struct {
	Success    bool
	ReturnData []byte
}
