// Package session owns the in-memory view state of one client instance and
// drives the chain, quote and action layers from it.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/quantumauth-io/dex-client/internal/actions"
	"github.com/quantumauth-io/dex-client/internal/constants"
	"github.com/quantumauth-io/dex-client/internal/positions"
	"github.com/quantumauth-io/dex-client/internal/quote"
	"github.com/quantumauth-io/dex-client/internal/tokens"
	"github.com/quantumauth-io/dex-client/internal/wallet"
	"github.com/quantumauth-io/quantum-go-utils/log"
)

var (
	// ErrBusy rejects an action while another one is still in flight.
	ErrBusy            = errors.New("another action is in progress")
	ErrNotConnected    = errors.New("wallet not connected")
	ErrUnknownPosition = errors.New("unknown position")
	ErrUnknownTab      = errors.New("unknown tab")
)

const quoteKey = "amountIn"

type BalanceReader interface {
	ReadBalance(ctx context.Context, owner common.Address, t tokens.Token) (string, error)
}

type Quoter interface {
	Display(ctx context.Context, in, out tokens.Token, amountIn string) string
}

type PlanRunner interface {
	Run(ctx context.Context, from common.Address, plan actions.Plan) (actions.Outcome, error)
}

type PositionLister interface {
	List(ctx context.Context, owner common.Address) ([]positions.Position, error)
}

type Deps struct {
	Wallet    wallet.Provider
	Registry  *tokens.Registry
	Balances  BalanceReader
	Quotes    Quoter
	Builder   *actions.Builder
	Runner    PlanRunner
	Positions PositionLister
	// Debounce defaults to constants.QuoteDebounce.
	Debounce time.Duration
}

type Session struct {
	deps      Deps
	debouncer *quote.Debouncer
	// ctx bounds debounced quote work; it is the session's lifetime.
	ctx context.Context

	mu       sync.Mutex
	state    State
	quoteSeq uint64
}

// New starts a session on the swap tab with native -> first token selected
// on both the swap and pool forms.
func New(ctx context.Context, deps Deps) *Session {
	if deps.Wallet == nil {
		deps.Wallet = wallet.Unavailable{}
	}
	delay := deps.Debounce
	if delay <= 0 {
		delay = constants.QuoteDebounce
	}

	native := deps.Registry.Native()
	other := native
	for _, t := range deps.Registry.All() {
		if !t.IsNative() {
			other = t
			break
		}
	}

	return &Session{
		deps:      deps,
		debouncer: quote.NewDebouncer(delay),
		ctx:       ctx,
		state: State{
			Tab:        TabSwap,
			TokenIn:    native.Symbol,
			TokenOut:   other.Symbol,
			PoolTokenA: native.Symbol,
			PoolTokenB: other.Symbol,
			Balances:   map[string]string{},
			Positions:  []positions.Position{},
		},
	}
}

// Close stops pending quote work.
func (s *Session) Close() {
	s.debouncer.Stop()
}

func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Connect asks the wallet for accounts and adopts the first one. There is no
// disconnect.
func (s *Session) Connect(ctx context.Context) (common.Address, error) {
	accounts, err := s.deps.Wallet.RequestAccounts(ctx)
	if err == nil && len(accounts) == 0 {
		err = errors.Wrap(wallet.ErrWalletUnavailable, "wallet returned no accounts")
	}
	if err != nil {
		s.mu.Lock()
		if errors.Is(err, wallet.ErrWalletUnavailable) {
			s.notifyLocked(LevelError, "No wallet available. Create or import one first.")
		} else {
			s.notifyLocked(LevelError, "Wallet connection failed")
		}
		s.mu.Unlock()
		return common.Address{}, err
	}

	account := accounts[0]
	s.mu.Lock()
	changed := s.state.Account != account
	s.state.Account = account
	tab := s.state.Tab
	s.mu.Unlock()

	log.Info("wallet connected", "account", account.Hex())

	if changed {
		s.refreshForTab(ctx, tab)
	}
	return account, nil
}

// SwitchTab changes the visible form and refreshes what it shows.
func (s *Session) SwitchTab(ctx context.Context, tab Tab) error {
	if tab != TabSwap && tab != TabPool {
		return errors.Wrapf(ErrUnknownTab, "%q", tab)
	}
	s.mu.Lock()
	s.state.Tab = tab
	s.mu.Unlock()

	s.refreshForTab(ctx, tab)
	return nil
}

func (s *Session) refreshForTab(ctx context.Context, tab Tab) {
	if err := s.RefreshBalances(ctx); err != nil {
		log.Warn("balance refresh failed", "error", err)
	}
	if tab == TabPool {
		if err := s.RefreshPositions(ctx); err != nil {
			log.Warn("position refresh failed", "error", err)
		}
	}
}

// RefreshBalances re-reads every registered token for the account and
// replaces the whole snapshot. On failure the previous snapshot stays.
func (s *Session) RefreshBalances(ctx context.Context) error {
	s.mu.Lock()
	account := s.state.Account
	if account == (common.Address{}) {
		s.mu.Unlock()
		return nil
	}
	s.state.LoadingBalances = true
	s.mu.Unlock()

	fresh := make(map[string]string)
	var err error
	for _, t := range s.deps.Registry.All() {
		bal, readErr := s.deps.Balances.ReadBalance(ctx, account, t)
		if readErr != nil {
			err = errors.Wrapf(readErr, "balance of %s", t.Symbol)
			break
		}
		fresh[t.Symbol] = bal
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LoadingBalances = false
	if err != nil {
		return err
	}
	// the account may have changed while reading
	if s.state.Account == account {
		s.state.Balances = fresh
	}
	return nil
}

// RefreshPositions re-enumerates the account's positions from scratch.
func (s *Session) RefreshPositions(ctx context.Context) error {
	s.mu.Lock()
	account := s.state.Account
	if account == (common.Address{}) {
		s.mu.Unlock()
		return nil
	}
	s.state.LoadingPositions = true
	s.mu.Unlock()

	list, err := s.deps.Positions.List(ctx, account)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LoadingPositions = false
	if err != nil {
		return err
	}
	if s.state.Account == account {
		s.state.Positions = list
	}
	return nil
}

// SelectPair sets the swap direction. Amounts are cleared.
func (s *Session) SelectPair(in, out string) error {
	tin, err := s.deps.Registry.BySymbol(in)
	if err != nil {
		return err
	}
	tout, err := s.deps.Registry.BySymbol(out)
	if err != nil {
		return err
	}
	if s.deps.Registry.SameAsset(tin, tout) {
		return actions.ErrSameToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.TokenIn, s.state.TokenOut = tin.Symbol, tout.Symbol
	s.clearSwapAmountsLocked()
	return nil
}

// SelectPoolPair sets the two sides of the add-liquidity form.
func (s *Session) SelectPoolPair(a, b string) error {
	ta, err := s.deps.Registry.BySymbol(a)
	if err != nil {
		return err
	}
	tb, err := s.deps.Registry.BySymbol(b)
	if err != nil {
		return err
	}
	if s.deps.Registry.SameAsset(ta, tb) {
		return actions.ErrSameToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.PoolTokenA, s.state.PoolTokenB = ta.Symbol, tb.Symbol
	s.state.AmountA, s.state.AmountB = "", ""
	return nil
}

// FlipTokens swaps input and output and clears both amount fields so no
// amount typed for one token is shown against the other.
func (s *Session) FlipTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.TokenIn, s.state.TokenOut = s.state.TokenOut, s.state.TokenIn
	s.clearSwapAmountsLocked()
}

func (s *Session) clearSwapAmountsLocked() {
	s.quoteSeq++
	s.debouncer.Cancel(quoteKey)
	s.state.AmountIn = ""
	s.state.AmountOut = ""
	s.state.Quoting = false
}

// SetAmountIn records the typed amount and schedules a quote once typing
// has settled. Only the latest schedule may update AmountOut.
func (s *Session) SetAmountIn(amount string) {
	s.mu.Lock()
	s.quoteSeq++
	seq := s.quoteSeq
	s.state.AmountIn = amount
	s.state.Quoting = true
	in, errIn := s.deps.Registry.BySymbol(s.state.TokenIn)
	out, errOut := s.deps.Registry.BySymbol(s.state.TokenOut)
	s.mu.Unlock()

	if errIn != nil || errOut != nil {
		return
	}

	s.debouncer.Schedule(s.ctx, quoteKey, func(ctx context.Context) func() {
		display := s.deps.Quotes.Display(ctx, in, out, amount)
		return func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.quoteSeq != seq {
				return
			}
			s.state.AmountOut = display
			s.state.Quoting = false
		}
	})
}

// SetLiquidityAmounts records the two add-liquidity inputs.
func (s *Session) SetLiquidityAmounts(amountA, amountB string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.AmountA, s.state.AmountB = amountA, amountB
}

func (s *Session) notifyLocked(level Level, msg string) string {
	n := Notification{ID: uuid.NewString(), Level: level, Message: msg, At: time.Now().UTC()}
	s.state.Notifications = append(s.state.Notifications, n)
	if over := len(s.state.Notifications) - constants.MaxNotifications; over > 0 {
		s.state.Notifications = s.state.Notifications[over:]
	}
	return n.ID
}

// resolveLocked replaces a loading notification; if it has been evicted a
// new one is appended.
func (s *Session) resolveLocked(id string, level Level, msg string) {
	for i := range s.state.Notifications {
		if s.state.Notifications[i].ID == id {
			s.state.Notifications[i].Level = level
			s.state.Notifications[i].Message = msg
			s.state.Notifications[i].At = time.Now().UTC()
			return
		}
	}
	s.notifyLocked(level, msg)
}

// DismissNotification drops a notification by id.
func (s *Session) DismissNotification(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.state.Notifications[:0]
	for _, n := range s.state.Notifications {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	s.state.Notifications = kept
}
