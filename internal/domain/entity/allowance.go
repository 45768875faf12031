package entity

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// UnknownSymbol is reported when a token's symbol cannot be read.
const UnknownSymbol = "UNKNOWN"

// AllowanceState is a snapshot of one token position read from chain.
type AllowanceState struct {
	Token     common.Address
	Owner     common.Address
	Spender   common.Address
	Balance   *big.Int
	Allowance *big.Int
	Decimals  uint8
	Symbol    string
}

// Sufficient reports whether the spender may move the whole balance.
func (s AllowanceState) Sufficient() bool {
	if s.Balance == nil || s.Allowance == nil {
		return false
	}
	return s.Allowance.Cmp(s.Balance) >= 0
}

// GateState is a step of the balance/allowance gate.
type GateState string

const (
	GateCheckBalance              GateState = "CHECK_BALANCE"
	GateCheckAllowance            GateState = "CHECK_ALLOWANCE"
	GateSubmitApproval            GateState = "SUBMIT_APPROVAL"
	GateAwaitApprovalConfirmation GateState = "AWAIT_APPROVAL_CONFIRMATION"
	GateReady                     GateState = "READY"
	GateSkip                      GateState = "SKIP"
)

// GateResult is the terminal state of the gate for one token. Reason and
// SkippedAt are set when State is GateSkip. ApprovalTx is set when an
// approval was mined.
type GateResult struct {
	State      GateState
	SkippedAt  GateState
	Allowance  AllowanceState
	ApprovalTx common.Hash
	Reason     error
}

// Ready reports whether the token may be sold.
func (r GateResult) Ready() bool {
	return r.State == GateReady
}
