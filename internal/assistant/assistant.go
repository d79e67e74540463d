// Package assistant answers questions about the current session. It is
// gated on an API key; with no key configured every request is refused.
// Answers are built locally from the session snapshot, nothing is sent out.
package assistant

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/quantumauth-io/dex-client/internal/session"
)

var ErrDisabled = errors.New("assistant disabled: no API key configured")

type Assistant struct {
	apiKey string
}

func New(apiKey string) *Assistant {
	return &Assistant{apiKey: strings.TrimSpace(apiKey)}
}

func (a *Assistant) Enabled() bool { return a != nil && a.apiKey != "" }

type Reply struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Ask returns a short summary of st relevant to question.
func (a *Assistant) Ask(question string, st session.State) (Reply, error) {
	if !a.Enabled() {
		return Reply{}, ErrDisabled
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return Reply{}, errors.New("empty question")
	}

	q := strings.ToLower(question)
	var answer string
	switch {
	case !st.Connected():
		answer = "Connect a wallet to see balances and positions."
	case strings.Contains(q, "balance"):
		answer = describeBalances(st.Balances)
	case strings.Contains(q, "position") || strings.Contains(q, "pool"):
		answer = describePositions(st)
	case strings.Contains(q, "quote") || strings.Contains(q, "price"):
		answer = describeQuote(st)
	default:
		answer = fmt.Sprintf("Account %s on the %s tab. %s", st.Account.Hex(), st.Tab, describeQuote(st))
	}
	return Reply{Question: question, Answer: answer}, nil
}

func describeBalances(b map[string]string) string {
	if len(b) == 0 {
		return "No balances loaded yet."
	}
	symbols := make([]string, 0, len(b))
	for s := range b {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	parts := make([]string, len(symbols))
	for i, s := range symbols {
		parts[i] = b[s] + " " + s
	}
	return "Balances: " + strings.Join(parts, ", ") + "."
}

func describePositions(st session.State) string {
	if len(st.Positions) == 0 {
		return "No liquidity positions."
	}
	collectable := 0
	for _, p := range st.Positions {
		if p.CanCollect() {
			collectable++
		}
	}
	return fmt.Sprintf("%d position(s), %d with fees to collect.", len(st.Positions), collectable)
}

func describeQuote(st session.State) string {
	if st.AmountIn == "" {
		return fmt.Sprintf("No amount entered for %s -> %s.", st.TokenIn, st.TokenOut)
	}
	if st.Quoting || st.AmountOut == "" {
		return fmt.Sprintf("Quoting %s %s -> %s.", st.AmountIn, st.TokenIn, st.TokenOut)
	}
	return fmt.Sprintf("%s %s -> %s %s.", st.AmountIn, st.TokenIn, st.AmountOut, st.TokenOut)
}
