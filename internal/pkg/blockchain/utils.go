package blockchain

import (
	"fmt"
	"math/big"
	"strings"
)

// FormatUnits renders a raw integer amount as an exact decimal string with
// trailing zeros trimmed, e.g. FormatUnits(1500000000000000000, 18) == "1.5".
func FormatUnits(amount *big.Int, decimals int) string {
	if amount == nil {
		return "0"
	}
	if decimals <= 0 {
		return amount.String()
	}

	neg := amount.Sign() < 0
	abs := new(big.Int).Abs(amount)
	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, frac := new(big.Int).QuoRem(abs, divisor, new(big.Int))

	out := whole.String()
	if frac.Sign() != 0 {
		fracStr := frac.String()
		fracStr = strings.Repeat("0", decimals-len(fracStr)) + fracStr
		out += "." + strings.TrimRight(fracStr, "0")
	}
	if neg {
		out = "-" + out
	}
	return out
}

// ParseUnits converts a decimal string such as "0.0001" into a raw integer
// amount with the given number of decimals. More fractional digits than
// decimals is an error rather than a silent truncation.
func ParseUnits(value string, decimals int) (*big.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("empty amount")
	}
	if strings.HasPrefix(value, "-") {
		return nil, fmt.Errorf("negative amount %q", value)
	}

	whole, frac, _ := strings.Cut(value, ".")
	if len(frac) > decimals {
		return nil, fmt.Errorf("amount %q has more than %d decimals", value, decimals)
	}
	if whole == "" {
		whole = "0"
	}
	frac += strings.Repeat("0", decimals-len(frac))

	out, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	return out, nil
}
