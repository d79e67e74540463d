// Package quote prices hypothetical swaps through the external quoter
// contract. It never moves funds.
package quote

import (
	"context"
	"math/big"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/quantumauth-io/dex-client/internal/chain"
	"github.com/quantumauth-io/dex-client/internal/constants"
	"github.com/quantumauth-io/dex-client/internal/contracts"
	"github.com/quantumauth-io/dex-client/internal/tokens"
	"github.com/quantumauth-io/quantum-go-utils/log"
)

const (
	// ZeroDisplay is shown for empty or non-positive input.
	ZeroDisplay = "0.00"
	// NoPool is shown when the quoter cannot price the pair.
	NoPool = "No Pool"
)

// ErrNoQuotePath means the quoter reverted or returned nothing usable. It is
// a display outcome, not something to retry.
var ErrNoQuotePath = errors.New("no quote path")

// Viewer runs non-mutating contract calls.
type Viewer interface {
	CallView(ctx context.Context, contract common.Address, parsed *abi.ABI, method string, args ...any) ([]any, error)
}

type Route struct {
	// Hops is 1 for a direct pool, 2 when routed through the wrapped native token.
	Hops int
	Path []byte
}

type Result struct {
	AmountIn  *big.Int
	AmountOut *big.Int
	Route     Route
	Display   string
}

type Engine struct {
	viewer   Viewer
	registry *tokens.Registry
	quoter   common.Address
	fee      uint32
}

func NewEngine(viewer Viewer, registry *tokens.Registry, quoter common.Address, feeTier uint32) *Engine {
	if feeTier == 0 {
		feeTier = constants.DefaultFeeTier
	}
	return &Engine{viewer: viewer, registry: registry, quoter: quoter, fee: feeTier}
}

func (e *Engine) FeeTier() uint32 { return e.fee }

// Display is the value shown in the "you receive" field: ZeroDisplay for
// unusable input, NoPool when the pair cannot be priced, otherwise the
// formatted output amount.
func (e *Engine) Display(ctx context.Context, in, out tokens.Token, amountIn string) string {
	res, err := e.Compute(ctx, in, out, amountIn)
	switch {
	case err == nil:
		return res.Display
	case errors.Is(err, tokens.ErrInvalidAmount):
		return ZeroDisplay
	default:
		return NoPool
	}
}

// Compute validates amountIn, picks the route and calls the quoter.
// Invalid input fails with tokens.ErrInvalidAmount before any call is made.
func (e *Engine) Compute(ctx context.Context, in, out tokens.Token, amountIn string) (Result, error) {
	raw, err := tokens.ParseAmount(amountIn, in.Decimals)
	if err != nil {
		return Result{}, err
	}

	route, err := e.route(in, out)
	if err != nil {
		return Result{}, err
	}

	var res []any
	if route.Hops == 1 {
		res, err = e.viewer.CallView(ctx, e.quoter, contracts.Quoter, contracts.MethodQuoteExactInputSingle,
			e.registry.ContractAddress(in),
			e.registry.ContractAddress(out),
			new(big.Int).SetUint64(uint64(e.fee)),
			raw,
			new(big.Int),
		)
	} else {
		res, err = e.viewer.CallView(ctx, e.quoter, contracts.Quoter, contracts.MethodQuoteExactInput, route.Path, raw)
	}
	if err != nil {
		log.Info("quote unavailable", "in", in.Symbol, "out", out.Symbol, "hops", route.Hops, "error", err)
		return Result{}, errors.Mark(err, ErrNoQuotePath)
	}

	amountOut, err := chain.FirstBig(res)
	if err != nil {
		return Result{}, errors.Mark(err, ErrNoQuotePath)
	}

	return Result{
		AmountIn:  raw,
		AmountOut: amountOut,
		Route:     route,
		Display:   tokens.FormatUnits(amountOut, out.Decimals, constants.BalancePrecision),
	}, nil
}

// route quotes pairs touching the native or wrapped token against a single
// pool and routes everything else through the wrapped token with the same
// fee on both legs. Native against wrapped has no pool at all.
func (e *Engine) route(in, out tokens.Token) (Route, error) {
	if e.registry.SameAsset(in, out) {
		return Route{}, errors.Mark(errors.Newf("%s and %s are the same asset", in.Symbol, out.Symbol), ErrNoQuotePath)
	}
	if in.IsNative() || out.IsNative() || e.registry.IsWrapped(in) || e.registry.IsWrapped(out) {
		return Route{Hops: 1}, nil
	}

	path, err := EncodePath(
		[]common.Address{in.Address, e.registry.Wrapped(), out.Address},
		[]uint32{e.fee, e.fee},
	)
	if err != nil {
		return Route{}, err
	}
	return Route{Hops: 2, Path: path}, nil
}
