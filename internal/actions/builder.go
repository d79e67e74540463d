package actions

import (
	"math/big"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/quantumauth-io/dex-client/internal/chain"
	"github.com/quantumauth-io/dex-client/internal/constants"
	"github.com/quantumauth-io/dex-client/internal/contracts"
	"github.com/quantumauth-io/dex-client/internal/positions"
	"github.com/quantumauth-io/dex-client/internal/tokens"
)

var (
	// ErrIncompleteInput blocks a plan before anything is submitted.
	ErrIncompleteInput  = errors.New("incomplete input")
	ErrSameToken        = errors.New("both sides are the same token")
	ErrNothingToCollect = errors.New("no fees to collect")
)

// Builder knows the deployment and turns intents into plans.
type Builder struct {
	registry   *tokens.Registry
	deployment contracts.Deployment
	fee        *big.Int
}

func NewBuilder(registry *tokens.Registry, deployment contracts.Deployment, feeTier uint32) *Builder {
	if feeTier == 0 {
		feeTier = constants.DefaultFeeTier
	}
	return &Builder{
		registry:   registry,
		deployment: deployment,
		fee:        new(big.Int).SetUint64(uint64(feeTier)),
	}
}

// Swap picks one of three entry points depending on which side is native.
// Native input is sent as value and needs no approval.
func (b *Builder) Swap(in, out tokens.Token, amountIn string) (Plan, error) {
	if b.registry.SameAsset(in, out) {
		return Plan{}, errors.Wrapf(ErrSameToken, "%s/%s", in.Symbol, out.Symbol)
	}
	raw, err := tokens.ParseAmount(amountIn, in.Decimals)
	if err != nil {
		return Plan{}, errors.Mark(err, ErrIncompleteInput)
	}

	agg := b.deployment.Aggregator
	switch {
	case in.IsNative():
		return Plan{Name: "swap", Steps: []chain.Call{
			b.aggregatorCall("swap "+in.Symbol+" for "+out.Symbol, raw, contracts.MethodSwapNativeForToken, out.Address, b.fee),
		}}, nil

	case out.IsNative():
		return Plan{Name: "swap", Steps: []chain.Call{
			approveERC20(in, agg, raw),
			b.aggregatorCall("swap "+in.Symbol+" for "+out.Symbol, nil, contracts.MethodSwapTokenForNative, in.Address, b.fee, raw),
		}}, nil

	default:
		return Plan{Name: "swap", Steps: []chain.Call{
			approveERC20(in, agg, raw),
			b.aggregatorCall("swap "+in.Symbol+" for "+out.Symbol, nil, contracts.MethodSwapTokens, in.Address, out.Address, b.fee, raw),
		}}, nil
	}
}

type LiquidityOptions struct {
	// WrapNative deposits the native side into the wrapped token first and
	// then adds liquidity as a plain two-token pair.
	WrapNative bool
}

// AddLiquidity needs both amounts. With one native side the native amount is
// sent as value; with two tokens both are approved.
func (b *Builder) AddLiquidity(tokA, tokB tokens.Token, amountA, amountB string, opt LiquidityOptions) (Plan, error) {
	if b.registry.SameAsset(tokA, tokB) {
		return Plan{}, errors.Wrapf(ErrSameToken, "%s/%s", tokA.Symbol, tokB.Symbol)
	}

	rawA, errA := tokens.ParseAmount(amountA, tokA.Decimals)
	rawB, errB := tokens.ParseAmount(amountB, tokB.Decimals)
	if errA != nil || errB != nil {
		return Plan{}, errors.Mark(
			errors.Wrapf(errors.CombineErrors(errA, errB), "add liquidity %s/%s", tokA.Symbol, tokB.Symbol),
			ErrIncompleteInput)
	}

	agg := b.deployment.Aggregator
	label := "add liquidity " + tokA.Symbol + "/" + tokB.Symbol

	if !tokA.IsNative() && !tokB.IsNative() {
		return Plan{Name: "add-liquidity", Steps: []chain.Call{
			approveERC20(tokA, agg, rawA),
			approveERC20(tokB, agg, rawB),
			b.aggregatorCall(label, nil, contracts.MethodAddLiquidity, tokA.Address, tokB.Address, rawA, rawB),
		}}, nil
	}

	nat, tok, rawNat, rawTok := tokA, tokB, rawA, rawB
	if tokB.IsNative() {
		nat, tok, rawNat, rawTok = tokB, tokA, rawB, rawA
	}

	if opt.WrapNative {
		wrapped := b.registry.Wrapped()
		return Plan{Name: "add-liquidity", Steps: []chain.Call{
			{
				Label:  "wrap " + nat.Symbol,
				To:     wrapped,
				ABI:    contracts.WrappedNative,
				Method: contracts.MethodDeposit,
				Value:  rawNat,
			},
			{
				Label:  "approve wrapped " + nat.Symbol,
				To:     wrapped,
				ABI:    contracts.WrappedNative,
				Method: contracts.MethodApprove,
				Args:   []any{agg, rawNat},
			},
			approveERC20(tok, agg, rawTok),
			b.aggregatorCall(label, nil, contracts.MethodAddLiquidity,
				b.registry.ContractAddress(tokA), b.registry.ContractAddress(tokB), rawA, rawB),
		}}, nil
	}

	return Plan{Name: "add-liquidity", Steps: []chain.Call{
		approveERC20(tok, agg, rawTok),
		b.aggregatorCall(label, rawNat, contracts.MethodAddLiquidityNative, tok.Address, rawTok),
	}}, nil
}

// Collect lets the aggregator operate the position token, then claims fees.
func (b *Builder) Collect(p positions.Position) (Plan, error) {
	if !p.CanCollect() {
		return Plan{}, errors.Wrapf(ErrNothingToCollect, "position %s", p.ID)
	}
	id, err := p.TokenID()
	if err != nil {
		return Plan{}, err
	}
	return Plan{Name: "collect", Steps: []chain.Call{
		b.approvePosition(id),
		b.aggregatorCall("collect fees #"+p.ID, nil, contracts.MethodCollectFees, id),
	}}, nil
}

// Remove withdraws the position's whole current liquidity. Whether zero
// liquidity is acceptable is up to the contract.
func (b *Builder) Remove(p positions.Position) (Plan, error) {
	id, err := p.TokenID()
	if err != nil {
		return Plan{}, err
	}
	liquidity, err := p.LiquidityRaw()
	if err != nil {
		return Plan{}, err
	}
	return Plan{Name: "remove-liquidity", Steps: []chain.Call{
		b.approvePosition(id),
		b.aggregatorCall("remove liquidity #"+p.ID, nil, contracts.MethodRemoveAllLiquidity, id, liquidity),
	}}, nil
}

func (b *Builder) aggregatorCall(label string, value *big.Int, method string, args ...any) chain.Call {
	return chain.Call{
		Label:  label,
		To:     b.deployment.Aggregator,
		ABI:    contracts.Aggregator,
		Method: method,
		Args:   args,
		Value:  value,
	}
}

func (b *Builder) approvePosition(id *big.Int) chain.Call {
	return chain.Call{
		Label:  "approve position #" + id.String(),
		To:     b.deployment.PositionManager,
		ABI:    contracts.PositionManager,
		Method: contracts.MethodApprove,
		Args:   []any{b.deployment.Aggregator, id},
	}
}

func approveERC20(t tokens.Token, spender common.Address, amount *big.Int) chain.Call {
	return chain.Call{
		Label:  "approve " + t.Symbol,
		To:     t.Address,
		ABI:    contracts.ERC20,
		Method: contracts.MethodApprove,
		Args:   []any{spender, amount},
	}
}
