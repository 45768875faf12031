package abis

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// parseABI parses an embedded ABI definition. name only labels the error.
func parseABI(name, abiJSON string) (*abi.ABI, error) {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("parsing %s ABI: %w", name, err)
	}
	return &parsed, nil
}
