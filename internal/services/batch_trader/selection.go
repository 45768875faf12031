package batch_trader

import (
	"math/rand/v2"

	"github.com/ethereum/go-ethereum/common"

	"github.com/archon-research/stl-trade/internal/domain/entity"
)

// Target is a token chosen for trading.
type Target struct {
	Address common.Address
	Label   string
}

// SelectTargets returns the specific tokens in order followed by up to
// randomCount coins drawn from pool. Duplicates are dropped; addresses compare
// byte-wise, so hex case never matters. A nil rng uses the global source.
func SelectTargets(specific []common.Address, pool []entity.Coin, randomCount int, rng *rand.Rand) []Target {
	seen := make(map[common.Address]bool)
	var targets []Target

	for _, addr := range specific {
		if seen[addr] {
			continue
		}
		seen[addr] = true
		label := addr.Hex()
		for _, c := range pool {
			if c.Address == addr {
				label = c.Label()
				break
			}
		}
		targets = append(targets, Target{Address: addr, Label: label})
	}

	if randomCount <= 0 || len(pool) == 0 {
		return targets
	}

	candidates := make([]entity.Coin, 0, len(pool))
	for _, c := range pool {
		if !seen[c.Address] {
			seen[c.Address] = true
			candidates = append(candidates, c)
		}
	}
	swap := func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	}
	if rng != nil {
		rng.Shuffle(len(candidates), swap)
	} else {
		rand.Shuffle(len(candidates), swap)
	}
	if randomCount > len(candidates) {
		randomCount = len(candidates)
	}
	for _, c := range candidates[:randomCount] {
		targets = append(targets, Target{Address: c.Address, Label: c.Label()})
	}
	return targets
}
