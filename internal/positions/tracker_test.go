package positions

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/quantumauth-io/dex-client/internal/contracts"
	"github.com/stretchr/testify/require"
)

type record struct {
	id        int64
	liquidity int64
	owed0     *big.Int
	owed1     *big.Int
}

type chainPositions struct {
	manager common.Address
	owned   map[common.Address][]record
	calls   []string
	failPos bool
}

func (c *chainPositions) CallView(_ context.Context, contract common.Address, _ *abi.ABI, method string, args ...any) ([]any, error) {
	c.calls = append(c.calls, method)
	if contract != c.manager {
		return nil, errors.New("wrong contract")
	}
	switch method {
	case contracts.MethodBalanceOf:
		return []any{big.NewInt(int64(len(c.owned[args[0].(common.Address)])))}, nil
	case contracts.MethodTokenOfOwnerByIndex:
		recs := c.owned[args[0].(common.Address)]
		return []any{big.NewInt(recs[args[1].(*big.Int).Int64()].id)}, nil
	case contracts.MethodPositions:
		if c.failPos {
			return nil, errors.New("execution reverted")
		}
		id := args[0].(*big.Int).Int64()
		for _, recs := range c.owned {
			for _, r := range recs {
				if r.id != id {
					continue
				}
				return []any{
					big.NewInt(0), common.Address{}, common.HexToAddress("0xa"), common.HexToAddress("0xb"),
					big.NewInt(3000), big.NewInt(-600), big.NewInt(600),
					big.NewInt(r.liquidity), big.NewInt(11), big.NewInt(12),
					r.owed0, r.owed1,
				}, nil
			}
		}
	}
	return nil, errors.Newf("unexpected %s", method)
}

func TestListProjectsPositions(t *testing.T) {
	owner := common.HexToAddress("0x1234")
	manager := common.HexToAddress("0xC36442b4a4522E871399CD717aBDD847Ab11FE88")
	halfEther, _ := new(big.Int).SetString("500000000000000000", 10)

	fake := &chainPositions{
		manager: manager,
		owned: map[common.Address][]record{
			owner: {
				{id: 41, liquidity: 1000, owed0: big.NewInt(0), owed1: big.NewInt(0)},
				{id: 77, liquidity: 0, owed0: halfEther, owed1: big.NewInt(0)},
			},
		},
	}

	list, err := NewTracker(fake, manager).List(context.Background(), owner)
	require.NoError(t, err)
	require.Equal(t, []Position{
		{ID: "41", Liquidity: "1000", FeesOwed0: "0.000000", FeesOwed1: "0.000000", FeesOwed0Raw: "0", FeesOwed1Raw: "0"},
		{ID: "77", Liquidity: "0", FeesOwed0: "0.500000", FeesOwed1: "0.000000", FeesOwed0Raw: "500000000000000000", FeesOwed1Raw: "0"},
	}, list)

	require.False(t, list[0].CanCollect())
	require.True(t, list[1].CanCollect())
}

func TestDustFeesAreCollectable(t *testing.T) {
	owner := common.HexToAddress("0x1234")
	manager := common.HexToAddress("0x01")
	fake := &chainPositions{
		manager: manager,
		owned: map[common.Address][]record{owner: {
			{id: 5, liquidity: 1, owed0: big.NewInt(1), owed1: big.NewInt(0)},
			{id: 6, liquidity: 1, owed0: big.NewInt(0), owed1: big.NewInt(400_000_000_000)},
			{id: 7, liquidity: 1, owed0: big.NewInt(0), owed1: big.NewInt(0)},
		}},
	}

	list, err := NewTracker(fake, manager).List(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, list, 3)

	require.Equal(t, "0.000000", list[0].FeesOwed0)
	require.Equal(t, "1", list[0].FeesOwed0Raw)
	require.True(t, list[0].CanCollect())

	require.Equal(t, "0.000000", list[1].FeesOwed1)
	require.True(t, list[1].CanCollect())

	require.False(t, list[2].CanCollect())
}

func TestPositionJSONCarriesCollectable(t *testing.T) {
	raw, err := json.Marshal(Position{ID: "5", Liquidity: "1", FeesOwed0: "0.000000", FeesOwed1: "0.000000", FeesOwed0Raw: "1", FeesOwed1Raw: "0"})
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"5","liquidity":"1","feesOwed0":"0.000000","feesOwed1":"0.000000","feesOwed0Raw":"1","feesOwed1Raw":"0","collectable":true}`, string(raw))

	var back Position
	require.NoError(t, json.Unmarshal(raw, &back))
	require.True(t, back.CanCollect())
}

func TestListEmptyAccount(t *testing.T) {
	manager := common.HexToAddress("0x01")
	fake := &chainPositions{manager: manager, owned: map[common.Address][]record{}}

	list, err := NewTracker(fake, manager).List(context.Background(), common.HexToAddress("0x99"))
	require.NoError(t, err)
	require.Empty(t, list)

	list, err = NewTracker(fake, manager).List(context.Background(), common.Address{})
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestListFailsOnUnreadableRecord(t *testing.T) {
	owner := common.HexToAddress("0x1234")
	manager := common.HexToAddress("0x01")
	fake := &chainPositions{
		manager: manager,
		failPos: true,
		owned:   map[common.Address][]record{owner: {{id: 1, owed0: big.NewInt(0), owed1: big.NewInt(0)}}},
	}

	_, err := NewTracker(fake, manager).List(context.Background(), owner)
	require.ErrorContains(t, err, "position #0")
}

func TestPositionHelpers(t *testing.T) {
	p := Position{ID: "12", Liquidity: "340282366920938463463374607431768211455", FeesOwed0Raw: "0", FeesOwed1Raw: "0"}
	require.False(t, p.CanCollect())
	require.False(t, Position{ID: "12"}.CanCollect())

	id, err := p.TokenID()
	require.NoError(t, err)
	require.Equal(t, int64(12), id.Int64())

	liq, err := p.LiquidityRaw()
	require.NoError(t, err)
	require.Equal(t, p.Liquidity, liq.String())

	_, err = Position{ID: "x"}.TokenID()
	require.Error(t, err)
}
