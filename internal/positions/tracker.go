// Package positions lists the liquidity positions an account owns. It keeps
// nothing between calls: every List is a fresh projection of chain state.
package positions

import (
	"context"
	"encoding/json"
	"math/big"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/quantumauth-io/dex-client/internal/chain"
	"github.com/quantumauth-io/dex-client/internal/constants"
	"github.com/quantumauth-io/dex-client/internal/contracts"
	"github.com/quantumauth-io/dex-client/internal/tokens"
)

// output indexes of the positions(uint256) record
const (
	idxLiquidity   = 7
	idxTokensOwed0 = 10
	idxTokensOwed1 = 11
)

// Position is the projection of one positions(id) record. FeesOwed0/1 are
// for display only; the raw owed integers decide whether fees exist.
type Position struct {
	ID           string `json:"id"`
	Liquidity    string `json:"liquidity"`
	FeesOwed0    string `json:"feesOwed0"`
	FeesOwed1    string `json:"feesOwed1"`
	FeesOwed0Raw string `json:"feesOwed0Raw"`
	FeesOwed1Raw string `json:"feesOwed1Raw"`
}

// CanCollect is false when nothing has accrued on either side.
func (p Position) CanCollect() bool {
	return isNonZero(p.FeesOwed0Raw) || isNonZero(p.FeesOwed1Raw)
}

// MarshalJSON adds the collectable flag the UI gates its control on.
func (p Position) MarshalJSON() ([]byte, error) {
	type plain Position
	return json.Marshal(struct {
		plain
		Collectable bool `json:"collectable"`
	}{plain(p), p.CanCollect()})
}

func (p Position) TokenID() (*big.Int, error) {
	return parseUint("position id", p.ID)
}

func (p Position) LiquidityRaw() (*big.Int, error) {
	return parseUint("liquidity", p.Liquidity)
}

type Viewer interface {
	CallView(ctx context.Context, contract common.Address, parsed *abi.ABI, method string, args ...any) ([]any, error)
}

type Tracker struct {
	viewer  Viewer
	manager common.Address
}

func NewTracker(viewer Viewer, positionManager common.Address) *Tracker {
	return &Tracker{viewer: viewer, manager: positionManager}
}

// List enumerates owner's position tokens by index and reads each record.
func (t *Tracker) List(ctx context.Context, owner common.Address) ([]Position, error) {
	if owner == (common.Address{}) {
		return []Position{}, nil
	}

	out, err := t.viewer.CallView(ctx, t.manager, contracts.PositionManager, contracts.MethodBalanceOf, owner)
	if err != nil {
		return nil, errors.Wrap(err, "position count")
	}
	count, err := chain.FirstBig(out)
	if err != nil {
		return nil, errors.Wrap(err, "position count")
	}
	if !count.IsInt64() {
		return nil, errors.Newf("position count %s out of range", count)
	}

	n := count.Int64()
	list := make([]Position, 0, n)
	for i := int64(0); i < n; i++ {
		p, err := t.fetch(ctx, owner, big.NewInt(i))
		if err != nil {
			return nil, errors.Wrapf(err, "position #%d", i)
		}
		list = append(list, p)
	}
	return list, nil
}

func (t *Tracker) fetch(ctx context.Context, owner common.Address, index *big.Int) (Position, error) {
	out, err := t.viewer.CallView(ctx, t.manager, contracts.PositionManager, contracts.MethodTokenOfOwnerByIndex, owner, index)
	if err != nil {
		return Position{}, err
	}
	id, err := chain.FirstBig(out)
	if err != nil {
		return Position{}, err
	}

	rec, err := t.viewer.CallView(ctx, t.manager, contracts.PositionManager, contracts.MethodPositions, id)
	if err != nil {
		return Position{}, errors.Wrapf(err, "positions(%s)", id)
	}
	if len(rec) <= idxTokensOwed1 {
		return Position{}, errors.Newf("positions(%s): %d fields", id, len(rec))
	}

	liquidity, err1 := asBig(rec[idxLiquidity])
	owed0, err2 := asBig(rec[idxTokensOwed0])
	owed1, err3 := asBig(rec[idxTokensOwed1])
	if err := errors.CombineErrors(err1, errors.CombineErrors(err2, err3)); err != nil {
		return Position{}, errors.Wrapf(err, "positions(%s)", id)
	}

	return Position{
		ID:        id.String(),
		Liquidity: liquidity.String(),
		FeesOwed0: tokens.FormatUnits(owed0, constants.PositionFeeDecimals, constants.BalancePrecision),
		FeesOwed1: tokens.FormatUnits(owed1, constants.PositionFeeDecimals, constants.BalancePrecision),

		FeesOwed0Raw: owed0.String(),
		FeesOwed1Raw: owed1.String(),
	}, nil
}

func asBig(v any) (*big.Int, error) {
	b, ok := v.(*big.Int)
	if !ok || b == nil {
		return nil, errors.Newf("unexpected field type %T", v)
	}
	return b, nil
}

func parseUint(what, s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, errors.Newf("invalid %s %q", what, s)
	}
	return v, nil
}

func isNonZero(raw string) bool {
	v, ok := new(big.Int).SetString(raw, 10)
	return ok && v.Sign() != 0
}
