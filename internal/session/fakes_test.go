package session

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/quantumauth-io/dex-client/internal/actions"
	"github.com/quantumauth-io/dex-client/internal/constants"
	"github.com/quantumauth-io/dex-client/internal/contracts"
	"github.com/quantumauth-io/dex-client/internal/positions"
	"github.com/quantumauth-io/dex-client/internal/tokens"
	"github.com/quantumauth-io/dex-client/internal/wallet"
	"github.com/stretchr/testify/require"
)

var (
	deployment = contracts.Deployment{
		Aggregator:      common.HexToAddress("0x0aEa13Db0b307a541E22cd272BB34f8e6FeE7c52"),
		PositionManager: common.HexToAddress("0xC36442b4a4522E871399CD717aBDD847Ab11FE88"),
		Quoter:          common.HexToAddress("0x61fFE014bA17989E743c5F6cB21bF9697530B21e"),
		WrappedNative:   common.HexToAddress("0x5B8832c0087c2E1F2Df579567A93B8d1420329B0"),
	}
	kii     = tokens.Token{Symbol: "KII", Address: common.HexToAddress(constants.NativeAddr), Decimals: 18}
	slvr    = tokens.Token{Symbol: "SLVR", Address: common.HexToAddress("0x571e42E46AFd658471d609B19448bd0ef910E777"), Decimals: 18}
	gold    = tokens.Token{Symbol: "GOLD", Address: common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F"), Decimals: 6}
	account = common.HexToAddress("0x00000000000000000000000000000000000000a1")
)

type fakeWallet struct {
	accounts []common.Address
	err      error
}

func (f fakeWallet) RequestAccounts(context.Context) ([]common.Address, error) {
	return f.accounts, f.err
}

func (f fakeWallet) SignTx(context.Context, common.Address, *types.Transaction, *big.Int) (*types.Transaction, error) {
	return nil, errors.New("not used")
}

type fakeBalances struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeBalances) ReadBalance(_ context.Context, _ common.Address, _ tokens.Token) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "1.000000", nil
}

// fakeQuotes echoes the amount back, optionally after a per-amount delay.
type fakeQuotes struct {
	delay map[string]time.Duration
}

func (f *fakeQuotes) Display(ctx context.Context, _, _ tokens.Token, amountIn string) string {
	if d := f.delay[amountIn]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
		}
	}
	return "out:" + amountIn
}

type fakeRunner struct {
	mu    sync.Mutex
	plans []actions.Plan
	err   error
	// gate, when set, blocks Run until closed.
	gate    chan struct{}
	started chan struct{}
}

func (f *fakeRunner) Run(ctx context.Context, _ common.Address, plan actions.Plan) (actions.Outcome, error) {
	f.mu.Lock()
	f.plans = append(f.plans, plan)
	gate, started := f.gate, f.started
	f.mu.Unlock()

	if started != nil {
		close(started)
	}
	if gate != nil {
		<-gate
	}
	// a real runner waiting for receipts would give up here
	if err := ctx.Err(); err != nil {
		return actions.Outcome{Plan: plan.Name}, errors.Wrap(err, "wait for receipt")
	}
	if f.err != nil {
		return actions.Outcome{Plan: plan.Name}, f.err
	}
	return actions.Outcome{Plan: plan.Name}, nil
}

func (f *fakeRunner) Plans() []actions.Plan {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]actions.Plan(nil), f.plans...)
}

type fakePositions struct {
	mu    sync.Mutex
	list  []positions.Position
	calls int
}

func (f *fakePositions) List(context.Context, common.Address) ([]positions.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return append([]positions.Position(nil), f.list...), nil
}

type harness struct {
	s         *Session
	balances  *fakeBalances
	quotes    *fakeQuotes
	runner    *fakeRunner
	positions *fakePositions
}

func newHarness(t *testing.T, w wallet.Provider) *harness {
	t.Helper()
	reg, err := tokens.NewRegistry([]tokens.Token{kii, slvr, gold}, deployment.WrappedNative)
	require.NoError(t, err)

	h := &harness{
		balances:  &fakeBalances{},
		quotes:    &fakeQuotes{delay: map[string]time.Duration{}},
		runner:    &fakeRunner{},
		positions: &fakePositions{},
	}
	h.s = New(context.Background(), Deps{
		Wallet:    w,
		Registry:  reg,
		Balances:  h.balances,
		Quotes:    h.quotes,
		Builder:   actions.NewBuilder(reg, deployment, 0),
		Runner:    h.runner,
		Positions: h.positions,
		Debounce:  10 * time.Millisecond,
	})
	t.Cleanup(h.s.Close)
	return h
}

func connected(t *testing.T) *harness {
	t.Helper()
	h := newHarness(t, fakeWallet{accounts: []common.Address{account}})
	_, err := h.s.Connect(context.Background())
	require.NoError(t, err)
	return h
}

func methodsOf(plan actions.Plan) []string {
	out := make([]string, len(plan.Steps))
	for i, step := range plan.Steps {
		out[i] = step.Method
	}
	return out
}
