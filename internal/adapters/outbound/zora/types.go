package zora

// TokenRef identifies one side of a trade: {"type":"eth"} or
// {"type":"erc20","address":"0x..."}.
type TokenRef struct {
	Type    string `json:"type"`
	Address string `json:"address,omitempty"`
}

// TradeRequest is the body of POST /quote.
type TradeRequest struct {
	TokenIn  TokenRef `json:"tokenIn"`
	TokenOut TokenRef `json:"tokenOut"`
	AmountIn string   `json:"amountIn"`
	Slippage float64  `json:"slippage"`
	Sender   string   `json:"sender"`
	ChainID  int64    `json:"chainId"`
}

// TradeCallResponse is the response of POST /quote.
// Example response (truncated):
//
//	{
//	  "success": true,
//	  "call": {"target": "0x6ff5...", "data": "0x3593564c...", "value": "100000000000000"},
//	  "quote": {"amountOut": "52013781237161891", "slippage": 3},
//	  "trade": {"commands": "0x0b00", "inputs": ["0x...", "0x..."]}
//	}
type TradeCallResponse struct {
	Success bool `json:"success"`
	Call    struct {
		Target string `json:"target"`
		Data   string `json:"data"`
		Value  string `json:"value"`
	} `json:"call"`
	Quote struct {
		AmountOut string `json:"amountOut"`
	} `json:"quote"`
	Trade *struct {
		Commands string   `json:"commands"`
		Inputs   []string `json:"inputs"`
	} `json:"trade,omitempty"`
}

// exploreResponse is the response of GET /explore.
type exploreResponse struct {
	ExploreList struct {
		Edges []struct {
			Node exploreCoin `json:"node"`
		} `json:"edges"`
	} `json:"exploreList"`
}

type exploreCoin struct {
	Name          string `json:"name"`
	Symbol        string `json:"symbol"`
	Address       string `json:"address"`
	MarketCap     string `json:"marketCap"`
	Volume24h     string `json:"volume24h"`
	UniqueHolders int    `json:"uniqueHolders"`
}
