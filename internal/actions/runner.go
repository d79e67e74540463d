// Package actions turns user intents into ordered lists of contract calls
// and runs them one at a time.
package actions

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/quantumauth-io/dex-client/internal/chain"
	"github.com/quantumauth-io/quantum-go-utils/log"
)

// Plan is an ordered list of steps. Each step is included on chain before
// the next is sent.
type Plan struct {
	Name  string
	Steps []chain.Call
}

func (p Plan) Labels() []string {
	out := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		out[i] = s.Label
	}
	return out
}

type Submitter interface {
	Submit(ctx context.Context, from common.Address, call chain.Call) (*types.Receipt, error)
}

type StepResult struct {
	Label  string      `json:"label"`
	TxHash common.Hash `json:"txHash"`
}

type Outcome struct {
	Plan      string       `json:"plan"`
	Completed []StepResult `json:"completed"`
}

type Runner struct {
	submitter Submitter
}

func NewRunner(s Submitter) *Runner {
	return &Runner{submitter: s}
}

// Run executes plan from account from. The first failing step aborts the
// rest; steps that already landed (an approval, say) stay as they are.
func (r *Runner) Run(ctx context.Context, from common.Address, plan Plan) (Outcome, error) {
	outcome := Outcome{Plan: plan.Name, Completed: make([]StepResult, 0, len(plan.Steps))}

	for i, step := range plan.Steps {
		log.Info("running step", "plan", plan.Name, "step", step.Label, "index", i+1, "of", len(plan.Steps))

		receipt, err := r.submitter.Submit(ctx, from, step)
		if err != nil {
			log.Error("step failed", "plan", plan.Name, "step", step.Label, "error", err)
			return outcome, errors.Wrapf(err, "%s: step %d/%d (%s)", plan.Name, i+1, len(plan.Steps), step.Label)
		}
		outcome.Completed = append(outcome.Completed, StepResult{Label: step.Label, TxHash: receipt.TxHash})
	}

	log.Info("plan complete", "plan", plan.Name, "steps", len(plan.Steps))
	return outcome, nil
}
