package blockchain

import "github.com/ethereum/go-ethereum/common"

const (
	// Multicall3Address is deployed at the same address on every EVM chain.
	Multicall3Address = "0xcA11bde05977b3631167028862bE2a173976CA11"

	// NativeTokenAddress is the marker aggregator APIs use for the chain's native currency.
	NativeTokenAddress = "0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE"

	// ZeroXAllowanceHolderAddress is the spender 0x v2 allowance-holder quotes pull tokens through.
	ZeroXAllowanceHolderAddress = "0x0000000000001fF3684f28c67538d4D072C22734"

	// BaseChainID is the chain the trader runs against by default.
	BaseChainID int64 = 8453

	// NativeDecimals is the number of decimals of ETH.
	NativeDecimals = 18
)

var (
	Multicall3           = common.HexToAddress(Multicall3Address)
	NativeToken          = common.HexToAddress(NativeTokenAddress)
	ZeroXAllowanceHolder = common.HexToAddress(ZeroXAllowanceHolderAddress)
)
