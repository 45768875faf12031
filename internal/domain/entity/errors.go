package entity

import "errors"

// Error taxonomy for a batch run. Every skipped item and every aborted run
// wraps exactly one of these.
var (
	// ErrQuoteUnavailable means the provider has no route for the pair. The item is skipped.
	ErrQuoteUnavailable = errors.New("quote unavailable")

	// ErrProviderError is an upstream HTTP or RPC failure. The item is skipped.
	ErrProviderError = errors.New("provider error")

	// ErrInvalidRequest is a malformed trade request. It aborts the run.
	ErrInvalidRequest = errors.New("invalid trade request")

	// ErrNoValidCalls means every item was skipped. It aborts the run before simulation.
	ErrNoValidCalls = errors.New("no valid calls to execute")

	// ErrSimulationFailed means the pre-flight dry run reverted. It aborts the run
	// before any transaction is broadcast.
	ErrSimulationFailed = errors.New("simulation failed")

	// ErrTransactionReverted marks a mined transaction with a failed receipt.
	ErrTransactionReverted = errors.New("transaction reverted")

	// ErrApprovalRequired means the token allowance is below the balance and
	// automatic approval is disabled.
	ErrApprovalRequired = errors.New("approval required")

	// ErrApprovalFailed means an approval could not be submitted or confirmed.
	ErrApprovalFailed = errors.New("approval failed")

	// ErrZeroBalance means there is nothing to sell.
	ErrZeroBalance = errors.New("zero balance")
)

var taxonomy = []error{
	ErrQuoteUnavailable,
	ErrProviderError,
	ErrInvalidRequest,
	ErrNoValidCalls,
	ErrSimulationFailed,
	ErrTransactionReverted,
	ErrApprovalRequired,
	ErrApprovalFailed,
	ErrZeroBalance,
}

// ErrorKind returns the taxonomy sentinel err wraps, or nil when it wraps none.
func ErrorKind(err error) error {
	for _, kind := range taxonomy {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// IsFatal reports whether err must abort the whole run rather than skip one item.
func IsFatal(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrNoValidCalls) ||
		errors.Is(err, ErrSimulationFailed)
}
