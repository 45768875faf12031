package zora

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/archon-research/stl-trade/internal/domain/entity"
	"github.com/archon-research/stl-trade/internal/pkg/httpclient"
)

// ListMostValuable returns up to count coins ordered by market cap. Entries
// without a valid address are dropped.
func (c *Client) ListMostValuable(ctx context.Context, count int) ([]entity.Coin, error) {
	if count <= 0 {
		return nil, fmt.Errorf("count must be positive, got %d", count)
	}

	var response exploreResponse
	err := c.do(ctx, httpclient.Request{
		URL: c.config.BaseURL + "/explore",
		Query: url.Values{
			"listType": {"MOST_VALUABLE"},
			"count":    {strconv.Itoa(count)},
			"chainIds": {strconv.FormatInt(c.config.ChainID, 10)},
		},
	}, &response)
	if err != nil {
		return nil, err
	}

	coins := make([]entity.Coin, 0, len(response.ExploreList.Edges))
	for _, edge := range response.ExploreList.Edges {
		node := edge.Node
		if !common.IsHexAddress(node.Address) {
			c.logger.Warn("skipping coin with invalid address", "name", node.Name, "address", node.Address)
			continue
		}
		coins = append(coins, entity.Coin{
			Address:       common.HexToAddress(node.Address),
			Name:          node.Name,
			Symbol:        node.Symbol,
			MarketCap:     node.MarketCap,
			Volume24h:     node.Volume24h,
			UniqueHolders: node.UniqueHolders,
		})
		if len(coins) == count {
			break
		}
	}
	return coins, nil
}
