package session

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/quantumauth-io/dex-client/internal/positions"
)

type Tab string

const (
	TabSwap Tab = "swap"
	TabPool Tab = "pool"
)

type Level string

const (
	LevelLoading Level = "loading"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Notification is a transient message for the UI. A loading notification
// is later resolved in place under the same ID.
type Notification struct {
	ID      string    `json:"id"`
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// State is everything the UI renders. All of it is rebuilt from chain reads;
// nothing survives a restart.
type State struct {
	Tab     Tab            `json:"tab"`
	Account common.Address `json:"account"`

	TokenIn   string `json:"tokenIn"`
	TokenOut  string `json:"tokenOut"`
	AmountIn  string `json:"amountIn"`
	AmountOut string `json:"amountOut"`

	PoolTokenA string `json:"poolTokenA"`
	PoolTokenB string `json:"poolTokenB"`
	AmountA    string `json:"amountA"`
	AmountB    string `json:"amountB"`

	Balances  map[string]string    `json:"balances"`
	Positions []positions.Position `json:"positions"`

	Busy             bool           `json:"busy"`
	Quoting          bool           `json:"quoting"`
	LoadingBalances  bool           `json:"loadingBalances"`
	LoadingPositions bool           `json:"loadingPositions"`
	Notifications    []Notification `json:"notifications"`
}

func (s State) Connected() bool { return s.Account != (common.Address{}) }

func (s State) clone() State {
	out := s
	out.Balances = make(map[string]string, len(s.Balances))
	for k, v := range s.Balances {
		out.Balances[k] = v
	}
	out.Positions = append([]positions.Position{}, s.Positions...)
	out.Notifications = append([]Notification{}, s.Notifications...)
	return out
}
