package session

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/quantumauth-io/dex-client/internal/actions"
	"github.com/quantumauth-io/dex-client/internal/chain"
	"github.com/quantumauth-io/dex-client/internal/contracts"
	"github.com/quantumauth-io/dex-client/internal/positions"
	"github.com/quantumauth-io/dex-client/internal/tokens"
	"github.com/quantumauth-io/dex-client/internal/wallet"
	"github.com/stretchr/testify/require"
)

func TestNewSessionDefaults(t *testing.T) {
	h := newHarness(t, nil)
	st := h.s.Snapshot()

	require.Equal(t, TabSwap, st.Tab)
	require.Equal(t, "KII", st.TokenIn)
	require.Equal(t, "SLVR", st.TokenOut)
	require.False(t, st.Connected())
	require.Empty(t, st.Balances)
}

func TestConnectWithoutWalletNotifies(t *testing.T) {
	h := newHarness(t, nil)

	_, err := h.s.Connect(context.Background())
	require.True(t, errors.Is(err, wallet.ErrWalletUnavailable))

	st := h.s.Snapshot()
	require.False(t, st.Connected())
	require.Len(t, st.Notifications, 1)
	require.Equal(t, LevelError, st.Notifications[0].Level)
}

func TestConnectLoadsBalances(t *testing.T) {
	h := connected(t)

	st := h.s.Snapshot()
	require.Equal(t, account, st.Account)
	require.Equal(t, map[string]string{"KII": "1.000000", "SLVR": "1.000000", "GOLD": "1.000000"}, st.Balances)
	require.Zero(t, h.positions.calls)
}

func TestBalanceRefreshFailureKeepsPreviousSnapshot(t *testing.T) {
	h := connected(t)
	h.balances.err = errors.New("rpc down")

	require.Error(t, h.s.RefreshBalances(context.Background()))
	st := h.s.Snapshot()
	require.Len(t, st.Balances, 3)
	require.False(t, st.LoadingBalances)
}

func TestSwitchToPoolLoadsPositions(t *testing.T) {
	h := connected(t)
	h.positions.list = []positions.Position{{ID: "7", Liquidity: "100", FeesOwed0: "0", FeesOwed1: "0"}}

	require.NoError(t, h.s.SwitchTab(context.Background(), TabPool))
	st := h.s.Snapshot()
	require.Equal(t, TabPool, st.Tab)
	require.Len(t, st.Positions, 1)

	require.Error(t, h.s.SwitchTab(context.Background(), Tab("farm")))
}

func TestDebouncedQuotePublishesLatest(t *testing.T) {
	h := newHarness(t, nil)

	h.s.SetAmountIn("1")
	h.s.SetAmountIn("12")
	h.s.SetAmountIn("123")

	require.Eventually(t, func() bool {
		return h.s.Snapshot().AmountOut == "out:123"
	}, time.Second, 5*time.Millisecond)
	require.False(t, h.s.Snapshot().Quoting)
}

func TestStaleQuoteIsNotPublished(t *testing.T) {
	h := newHarness(t, nil)
	h.quotes.delay["1"] = 200 * time.Millisecond

	h.s.SetAmountIn("1")
	time.Sleep(40 * time.Millisecond) // first quote is now in flight
	h.s.SetAmountIn("12")

	require.Eventually(t, func() bool {
		return h.s.Snapshot().AmountOut == "out:12"
	}, time.Second, 5*time.Millisecond)

	time.Sleep(250 * time.Millisecond)
	require.Equal(t, "out:12", h.s.Snapshot().AmountOut)
}

func TestFlipClearsAmountsAndDropsPendingQuote(t *testing.T) {
	h := newHarness(t, nil)
	h.quotes.delay["5"] = 100 * time.Millisecond

	h.s.SetAmountIn("5")
	time.Sleep(30 * time.Millisecond)
	h.s.FlipTokens()

	st := h.s.Snapshot()
	require.Equal(t, "SLVR", st.TokenIn)
	require.Equal(t, "KII", st.TokenOut)
	require.Empty(t, st.AmountIn)
	require.Empty(t, st.AmountOut)

	time.Sleep(150 * time.Millisecond)
	require.Empty(t, h.s.Snapshot().AmountOut)
}

func TestSelectPair(t *testing.T) {
	h := newHarness(t, nil)

	require.NoError(t, h.s.SelectPair("gold", "slvr"))
	st := h.s.Snapshot()
	require.Equal(t, "GOLD", st.TokenIn)
	require.Equal(t, "SLVR", st.TokenOut)

	require.True(t, errors.Is(h.s.SelectPair("GOLD", "GOLD"), actions.ErrSameToken))
	require.Error(t, h.s.SelectPair("DOGE", "GOLD"))
}

func TestSelectNativeAgainstWrappedIsRejected(t *testing.T) {
	wkii := tokens.Token{Symbol: "WKII", Address: deployment.WrappedNative, Decimals: 18}
	reg, err := tokens.NewRegistry([]tokens.Token{kii, slvr, wkii}, deployment.WrappedNative)
	require.NoError(t, err)
	s := New(context.Background(), Deps{
		Registry: reg,
		Builder:  actions.NewBuilder(reg, deployment, 0),
		Debounce: 10 * time.Millisecond,
	})
	t.Cleanup(s.Close)

	require.True(t, errors.Is(s.SelectPair("KII", "WKII"), actions.ErrSameToken))
	require.True(t, errors.Is(s.SelectPoolPair("WKII", "KII"), actions.ErrSameToken))
	require.NoError(t, s.SelectPair("WKII", "SLVR"))
	require.Equal(t, "WKII", s.Snapshot().TokenIn)
}

func TestSwapRequiresConnection(t *testing.T) {
	h := newHarness(t, nil)
	h.s.SetAmountIn("1")

	_, err := h.s.Swap(context.Background())
	require.True(t, errors.Is(err, ErrNotConnected))
	require.Empty(t, h.runner.Plans())
}

func TestSwapRunsPlanAndRefreshes(t *testing.T) {
	h := connected(t)
	before := h.balances.calls
	require.NoError(t, h.s.SelectPair("SLVR", "KII"))
	h.s.SetAmountIn("2.5")

	_, err := h.s.Swap(context.Background())
	require.NoError(t, err)

	plans := h.runner.Plans()
	require.Len(t, plans, 1)
	require.Equal(t, []string{contracts.MethodApprove, contracts.MethodSwapTokenForNative}, methodsOf(plans[0]))

	st := h.s.Snapshot()
	require.False(t, st.Busy)
	require.Empty(t, st.AmountIn)
	require.Greater(t, h.balances.calls, before)
	last := st.Notifications[len(st.Notifications)-1]
	require.Equal(t, LevelSuccess, last.Level)
}

func TestSwapFailureClearsBusyAndNotifies(t *testing.T) {
	h := connected(t)
	h.runner.err = errors.Mark(errors.New("user rejected"), chain.ErrTransactionFailed)
	h.s.SetAmountIn("1")

	_, err := h.s.Swap(context.Background())
	require.True(t, errors.Is(err, chain.ErrTransactionFailed))

	st := h.s.Snapshot()
	require.False(t, st.Busy)
	require.Equal(t, "1", st.AmountIn)
	last := st.Notifications[len(st.Notifications)-1]
	require.Equal(t, LevelError, last.Level)
	require.Equal(t, "Swap failed", last.Message)
}

func TestSecondActionWhileBusyIsRejected(t *testing.T) {
	h := connected(t)
	h.runner.gate = make(chan struct{})
	h.runner.started = make(chan struct{})
	h.s.SetAmountIn("1")

	done := make(chan error, 1)
	go func() {
		_, err := h.s.Swap(context.Background())
		done <- err
	}()
	<-h.runner.started
	require.True(t, h.s.Snapshot().Busy)

	_, err := h.s.Swap(context.Background())
	require.True(t, errors.Is(err, ErrBusy))

	close(h.runner.gate)
	require.NoError(t, <-done)
	require.Len(t, h.runner.Plans(), 1)
	require.False(t, h.s.Snapshot().Busy)
}

func TestActionOutlivesCallerCancellation(t *testing.T) {
	h := connected(t)
	h.runner.gate = make(chan struct{})
	h.runner.started = make(chan struct{})
	h.s.SetAmountIn("1")
	before := h.balances.calls

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := h.s.Swap(ctx)
		done <- err
	}()
	<-h.runner.started
	cancel()

	require.True(t, h.s.Snapshot().Busy)
	_, err := h.s.Swap(context.Background())
	require.True(t, errors.Is(err, ErrBusy))

	close(h.runner.gate)
	require.NoError(t, <-done)

	st := h.s.Snapshot()
	require.False(t, st.Busy)
	require.Equal(t, "Swap complete", st.Notifications[len(st.Notifications)-1].Message)
	require.Greater(t, h.balances.calls, before)
	require.Len(t, h.runner.Plans(), 1)
}

func TestAddLiquidityIncompleteInputSubmitsNothing(t *testing.T) {
	h := connected(t)
	require.NoError(t, h.s.SelectPoolPair("SLVR", "GOLD"))
	h.s.SetLiquidityAmounts("10", "")

	_, err := h.s.AddLiquidity(context.Background(), actions.LiquidityOptions{})
	require.True(t, errors.Is(err, actions.ErrIncompleteInput))
	require.Empty(t, h.runner.Plans())
	require.False(t, h.s.Snapshot().Busy)
}

func TestAddLiquidityNativePair(t *testing.T) {
	h := connected(t)
	h.s.SetLiquidityAmounts("1", "100")

	_, err := h.s.AddLiquidity(context.Background(), actions.LiquidityOptions{})
	require.NoError(t, err)

	plans := h.runner.Plans()
	require.Len(t, plans, 1)
	require.Equal(t, []string{contracts.MethodApprove, contracts.MethodAddLiquidityNative}, methodsOf(plans[0]))
	st := h.s.Snapshot()
	require.Empty(t, st.AmountA)
	require.Empty(t, st.AmountB)
	require.Equal(t, 1, h.positions.calls)
}

func TestCollectAndRemoveByPositionID(t *testing.T) {
	h := connected(t)
	h.positions.list = []positions.Position{
		{ID: "3", Liquidity: "500", FeesOwed0Raw: "0", FeesOwed1Raw: "0"},
		{ID: "4", Liquidity: "900", FeesOwed0Raw: "100000000000000000", FeesOwed1Raw: "0"},
	}
	require.NoError(t, h.s.SwitchTab(context.Background(), TabPool))

	_, err := h.s.Collect(context.Background(), "3")
	require.True(t, errors.Is(err, actions.ErrNothingToCollect))

	_, err = h.s.Collect(context.Background(), "4")
	require.NoError(t, err)

	_, err = h.s.Remove(context.Background(), "3")
	require.NoError(t, err)

	_, err = h.s.Remove(context.Background(), "99")
	require.True(t, errors.Is(err, ErrUnknownPosition))

	plans := h.runner.Plans()
	require.Len(t, plans, 2)
	require.Equal(t, []string{contracts.MethodApprove, contracts.MethodCollectFees}, methodsOf(plans[0]))
	require.Equal(t, []string{contracts.MethodApprove, contracts.MethodRemoveAllLiquidity}, methodsOf(plans[1]))
	require.Equal(t, 3, h.positions.calls)
}

func TestNotificationsAreCapped(t *testing.T) {
	h := newHarness(t, fakeWallet{accounts: []common.Address{}})
	for i := 0; i < 30; i++ {
		_, _ = h.s.Connect(context.Background())
	}
	st := h.s.Snapshot()
	require.Len(t, st.Notifications, 20)

	h.s.DismissNotification(st.Notifications[0].ID)
	require.Len(t, h.s.Snapshot().Notifications, 19)
}
