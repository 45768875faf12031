package entity

import "github.com/ethereum/go-ethereum/common"

// Coin is one entry of a coin discovery listing.
type Coin struct {
	Address       common.Address
	Name          string
	Symbol        string
	MarketCap     string
	Volume24h     string
	UniqueHolders int
}

// Label returns the symbol when present, else the address.
func (c Coin) Label() string {
	if c.Symbol != "" {
		return c.Symbol
	}
	return c.Address.Hex()
}
