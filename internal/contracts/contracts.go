// Package contracts holds the ABIs of the externally deployed contracts the
// client talks to, and the address bundle of one deployment.
package contracts

import (
	"bytes"
	_ "embed"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

var (
	//go:embed abi/erc20.json
	erc20JSON []byte
	//go:embed abi/wrapped_native.json
	wrappedNativeJSON []byte
	//go:embed abi/position_manager.json
	positionManagerJSON []byte
	//go:embed abi/quoter.json
	quoterJSON []byte
	//go:embed abi/aggregator.json
	aggregatorJSON []byte
)

var (
	ERC20           = mustParse("erc20", erc20JSON)
	WrappedNative   = mustParse("wrapped_native", wrappedNativeJSON)
	PositionManager = mustParse("position_manager", positionManagerJSON)
	Quoter          = mustParse("quoter", quoterJSON)
	Aggregator      = mustParse("aggregator", aggregatorJSON)
)

// Method names, grouped by contract.
const (
	MethodBalanceOf = "balanceOf"
	MethodApprove   = "approve"
	MethodDeposit   = "deposit"
	MethodDecimals  = "decimals"
	MethodSymbol    = "symbol"

	MethodTokenOfOwnerByIndex = "tokenOfOwnerByIndex"
	MethodPositions           = "positions"

	MethodQuoteExactInputSingle = "quoteExactInputSingle"
	MethodQuoteExactInput       = "quoteExactInput"

	MethodSwapNativeForToken = "swapNativeForToken"
	MethodSwapTokenForNative = "swapTokenForNative"
	MethodSwapTokens         = "swapTokens"
	MethodAddLiquidityNative = "addLiquidityNative"
	MethodAddLiquidity       = "addLiquidity"
	MethodCollectFees        = "collectFees"
	MethodRemoveAllLiquidity = "removeAllLiquidity"
)

// Deployment is the fixed address bundle of one DEX deployment.
type Deployment struct {
	Aggregator      common.Address
	PositionManager common.Address
	Quoter          common.Address
	WrappedNative   common.Address
}

func (d Deployment) Validate() error {
	zero := common.Address{}
	switch {
	case d.Aggregator == zero:
		return errors.New("deployment: aggregator address is empty")
	case d.PositionManager == zero:
		return errors.New("deployment: position manager address is empty")
	case d.Quoter == zero:
		return errors.New("deployment: quoter address is empty")
	case d.WrappedNative == zero:
		return errors.New("deployment: wrapped native address is empty")
	}
	return nil
}

func mustParse(name string, raw []byte) *abi.ABI {
	parsed, err := abi.JSON(bytes.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("contracts: parse %s abi: %v", name, err))
	}
	return &parsed
}
