package session

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/quantumauth-io/dex-client/internal/actions"
	"github.com/quantumauth-io/dex-client/internal/positions"
	"github.com/quantumauth-io/quantum-go-utils/log"
)

// actionDef describes one orchestrated action. build runs under the session
// lock against the current state; after runs once the plan has landed.
type actionDef struct {
	pending string
	done    string
	failed  string
	build   func(st *State) (actions.Plan, error)
	after   func(ctx context.Context)
}

// Swap sells AmountIn of TokenIn for TokenOut.
func (s *Session) Swap(ctx context.Context) (actions.Outcome, error) {
	return s.runAction(ctx, actionDef{
		pending: "Swapping...",
		done:    "Swap complete",
		failed:  "Swap failed",
		build: func(st *State) (actions.Plan, error) {
			in, err := s.deps.Registry.BySymbol(st.TokenIn)
			if err != nil {
				return actions.Plan{}, err
			}
			out, err := s.deps.Registry.BySymbol(st.TokenOut)
			if err != nil {
				return actions.Plan{}, err
			}
			return s.deps.Builder.Swap(in, out, st.AmountIn)
		},
		after: func(ctx context.Context) {
			s.mu.Lock()
			s.clearSwapAmountsLocked()
			s.mu.Unlock()
			s.logRefresh(s.RefreshBalances(ctx), "balances")
		},
	})
}

// AddLiquidity deposits AmountA of PoolTokenA and AmountB of PoolTokenB.
func (s *Session) AddLiquidity(ctx context.Context, opt actions.LiquidityOptions) (actions.Outcome, error) {
	return s.runAction(ctx, actionDef{
		pending: "Adding liquidity...",
		done:    "Liquidity added",
		failed:  "Adding liquidity failed",
		build: func(st *State) (actions.Plan, error) {
			a, err := s.deps.Registry.BySymbol(st.PoolTokenA)
			if err != nil {
				return actions.Plan{}, err
			}
			b, err := s.deps.Registry.BySymbol(st.PoolTokenB)
			if err != nil {
				return actions.Plan{}, err
			}
			return s.deps.Builder.AddLiquidity(a, b, st.AmountA, st.AmountB, opt)
		},
		after: func(ctx context.Context) {
			s.SetLiquidityAmounts("", "")
			s.logRefresh(s.RefreshBalances(ctx), "balances")
			s.logRefresh(s.RefreshPositions(ctx), "positions")
		},
	})
}

// Collect claims the owed fees of a listed position.
func (s *Session) Collect(ctx context.Context, id string) (actions.Outcome, error) {
	return s.runAction(ctx, actionDef{
		pending: "Collecting fees...",
		done:    "Fees collected",
		failed:  "Collecting fees failed",
		build: func(st *State) (actions.Plan, error) {
			p, err := findPosition(st.Positions, id)
			if err != nil {
				return actions.Plan{}, err
			}
			return s.deps.Builder.Collect(p)
		},
		after: s.afterPositionChange,
	})
}

// Remove withdraws all liquidity of a listed position.
func (s *Session) Remove(ctx context.Context, id string) (actions.Outcome, error) {
	return s.runAction(ctx, actionDef{
		pending: "Removing liquidity...",
		done:    "Liquidity removed",
		failed:  "Removing liquidity failed",
		build: func(st *State) (actions.Plan, error) {
			p, err := findPosition(st.Positions, id)
			if err != nil {
				return actions.Plan{}, err
			}
			return s.deps.Builder.Remove(p)
		},
		after: s.afterPositionChange,
	})
}

func (s *Session) afterPositionChange(ctx context.Context) {
	s.logRefresh(s.RefreshPositions(ctx), "positions")
	s.logRefresh(s.RefreshBalances(ctx), "balances")
}

func (s *Session) logRefresh(err error, what string) {
	if err != nil {
		log.Warn("refresh after action failed", "what", what, "error", err)
	}
}

// runAction is the single entry point for anything that submits
// transactions. It refuses to start while Busy is set, and a plan that
// cannot be built never sets Busy. Once started the plan runs to the end
// even if the caller goes away; only the caller's values are kept.
func (s *Session) runAction(ctx context.Context, act actionDef) (actions.Outcome, error) {
	s.mu.Lock()
	if s.state.Busy {
		s.mu.Unlock()
		return actions.Outcome{}, ErrBusy
	}
	if !s.state.Connected() {
		s.notifyLocked(LevelError, "Connect a wallet first")
		s.mu.Unlock()
		return actions.Outcome{}, ErrNotConnected
	}
	plan, err := act.build(&s.state)
	if err != nil {
		s.notifyLocked(LevelError, buildFailureMessage(err))
		s.mu.Unlock()
		return actions.Outcome{}, err
	}
	s.state.Busy = true
	account := s.state.Account
	noteID := s.notifyLocked(LevelLoading, act.pending)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.state.Busy = false
		s.mu.Unlock()
	}()

	ctx = context.WithoutCancel(ctx)

	outcome, err := s.deps.Runner.Run(ctx, account, plan)
	if err != nil {
		s.mu.Lock()
		s.resolveLocked(noteID, LevelError, act.failed)
		s.mu.Unlock()
		return outcome, err
	}

	s.mu.Lock()
	s.resolveLocked(noteID, LevelSuccess, act.done)
	s.mu.Unlock()

	if act.after != nil {
		act.after(ctx)
	}
	return outcome, nil
}

func buildFailureMessage(err error) string {
	switch {
	case errors.Is(err, actions.ErrIncompleteInput):
		return "Enter valid amounts"
	case errors.Is(err, actions.ErrSameToken):
		return "Pick two different tokens"
	case errors.Is(err, actions.ErrNothingToCollect):
		return "No fees to collect"
	case errors.Is(err, ErrUnknownPosition):
		return "Position not found"
	default:
		return "Action could not be prepared"
	}
}

func findPosition(list []positions.Position, id string) (positions.Position, error) {
	for _, p := range list {
		if p.ID == id {
			return p, nil
		}
	}
	return positions.Position{}, errors.Wrapf(ErrUnknownPosition, "#%s", id)
}

// Account returns the connected account, zero when disconnected.
func (s *Session) Account() common.Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Account
}
