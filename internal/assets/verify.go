// Package assets checks the static token list against the deployed token
// contracts.
package assets

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/quantumauth-io/dex-client/internal/contracts"
	"github.com/quantumauth-io/dex-client/internal/tokens"
	"github.com/quantumauth-io/quantum-go-utils/log"
)

type Viewer interface {
	CallView(ctx context.Context, contract common.Address, parsed *abi.ABI, method string, args ...any) ([]any, error)
}

// Asset is what the token contract reports about itself.
type Asset struct {
	Address  common.Address `json:"address"`
	Symbol   string         `json:"symbol"`
	Decimals uint8          `json:"decimals"`
}

type Mismatch struct {
	Symbol string
	Issue  string
}

func (m Mismatch) String() string { return m.Symbol + ": " + m.Issue }

// FetchAsset reads symbol and decimals from an ERC20 contract.
func FetchAsset(ctx context.Context, v Viewer, addr common.Address) (Asset, error) {
	out, err := v.CallView(ctx, addr, contracts.ERC20, contracts.MethodDecimals)
	if err != nil {
		return Asset{}, fmt.Errorf("decimals: %w", err)
	}
	dec, ok := first[uint8](out)
	if !ok {
		return Asset{}, fmt.Errorf("decimals: unexpected result %v", out)
	}

	// symbol is optional in ERC20
	sym := ""
	if out, err := v.CallView(ctx, addr, contracts.ERC20, contracts.MethodSymbol); err == nil {
		sym, _ = first[string](out)
	}

	return Asset{Address: addr, Symbol: sym, Decimals: dec}, nil
}

// Verify compares every non-native registry entry with its contract.
// Decimals must match; a differing symbol is only reported.
func Verify(ctx context.Context, v Viewer, list []tokens.Token) []Mismatch {
	var out []Mismatch
	for _, t := range list {
		if t.IsNative() {
			continue
		}
		a, err := FetchAsset(ctx, v, t.Address)
		if err != nil {
			out = append(out, Mismatch{Symbol: t.Symbol, Issue: "unreadable: " + err.Error()})
			continue
		}
		if a.Decimals != t.Decimals {
			out = append(out, Mismatch{Symbol: t.Symbol, Issue: fmt.Sprintf("decimals configured %d, contract reports %d", t.Decimals, a.Decimals)})
		}
		if a.Symbol != "" && !strings.EqualFold(a.Symbol, t.Symbol) {
			out = append(out, Mismatch{Symbol: t.Symbol, Issue: fmt.Sprintf("contract symbol is %q", a.Symbol)})
		}
	}

	for _, m := range out {
		log.Warn("token list mismatch", "token", m.Symbol, "issue", m.Issue)
	}
	return out
}

func first[T any](out []any) (T, bool) {
	var zero T
	if len(out) == 0 {
		return zero, false
	}
	v, ok := out[0].(T)
	return v, ok
}
