package abis

import "github.com/ethereum/go-ethereum/accounts/abi"

// GetMulticall3ABI returns the payable aggregate3Value entry point of Multicall3.
func GetMulticall3ABI() (*abi.ABI, error) {
	return parseABI("Multicall3", `[
		{
			"inputs": [
				{
					"components": [
						{"name": "target", "type": "address"},
						{"name": "allowFailure", "type": "bool"},
						{"name": "value", "type": "uint256"},
						{"name": "callData", "type": "bytes"}
					],
					"name": "calls",
					"type": "tuple[]"
				}
			],
			"name": "aggregate3Value",
			"outputs": [
				{
					"components": [
						{"name": "success", "type": "bool"},
						{"name": "returnData", "type": "bytes"}
					],
					"name": "returnData",
					"type": "tuple[]"
				}
			],
			"stateMutability": "payable",
			"type": "function"
		}
	]`)
}
