package zerox

// SwapQuoteResponse is the response of /swap/allowance-holder/quote.
// Example response (truncated):
//
//	{
//	  "liquidityAvailable": true,
//	  "buyAmount": "1249800000000000000000",
//	  "sellAmount": "10000000000000",
//	  "minBuyAmount": "1237302000000000000000",
//	  "transaction": {
//	    "to": "0x0000000000001ff3684f28c67538d4d072c22734",
//	    "data": "0x2213bc0b...",
//	    "gas": "288079",
//	    "gasPrice": "4203827",
//	    "value": "10000000000000"
//	  }
//	}
type SwapQuoteResponse struct {
	LiquidityAvailable *bool        `json:"liquidityAvailable"`
	BuyAmount          string       `json:"buyAmount"`
	SellAmount         string       `json:"sellAmount"`
	MinBuyAmount       string       `json:"minBuyAmount"`
	BuyToken           string       `json:"buyToken"`
	SellToken          string       `json:"sellToken"`
	Transaction        *Transaction `json:"transaction"`
	Issues             *Issues      `json:"issues,omitempty"`
}

// Transaction is the ready-to-send call in a quote.
type Transaction struct {
	To       string `json:"to"`
	Data     string `json:"data"`
	Gas      string `json:"gas"`
	GasPrice string `json:"gasPrice"`
	Value    string `json:"value"`
}

// Issues lists problems the API detected for the taker.
type Issues struct {
	Allowance *struct {
		Actual  string `json:"actual"`
		Spender string `json:"spender"`
	} `json:"allowance"`
	Balance *struct {
		Token    string `json:"token"`
		Actual   string `json:"actual"`
		Expected string `json:"expected"`
	} `json:"balance"`
	SimulationIncomplete bool `json:"simulationIncomplete"`
}
