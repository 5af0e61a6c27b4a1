package agent

import (
	"context"
	"fmt"

	"github.com/rahul/creator/internal/observability"
	"github.com/rahul/creator/internal/store"
)

// PlanExecutor applies a plan and returns the relative paths it wrote.
type PlanExecutor interface {
	Execute(ctx context.Context, plan store.Plan) ([]string, error)
}

// RunLedger persists one record per completed round.
type RunLedger interface {
	Append(goal string, plan store.Plan, critique string) error
	Path() string
}

// Reporter receives the summary of every completed round.
type Reporter interface {
	Report(ctx context.Context, s observability.Summary) error
}

// Loop drives the plan, execute, critique rounds for one goal.
type Loop struct {
	Reasoner  Reasoner
	Executor  PlanExecutor
	Critic    Critic
	Ledger    RunLedger
	Reporters []Reporter
	Logger    *observability.Logger
}

func NewLoop(reasoner Reasoner, executor PlanExecutor, ledger RunLedger, logger *observability.Logger, reporters ...Reporter) *Loop {
	if logger == nil {
		logger = observability.Nop()
	}
	return &Loop{
		Reasoner:  reasoner,
		Executor:  executor,
		Critic:    ReadmeCritic{},
		Ledger:    ledger,
		Reporters: reporters,
		Logger:    logger,
	}
}

// Run executes exactly iterations rounds. Any failure stops the run and the
// failed round is not recorded in the ledger.
func (l *Loop) Run(ctx context.Context, goal string, iterations int) error {
	if iterations < 1 {
		return fmt.Errorf("iterations must be at least 1, got %d", iterations)
	}

	critique := ""
	for round := 1; round <= iterations; round++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("iteration %d: %w", round, err)
		}

		proposed, err := l.Reasoner.Think(ctx, goal, critique)
		if err != nil {
			return fmt.Errorf("iteration %d: think: %w", round, err)
		}
		plan := proposed.Only(store.ActionCreateFile)
		l.Logger.LogPlan(round, len(plan), len(proposed)-len(plan))

		written, err := l.Executor.Execute(ctx, plan)
		if err != nil {
			return fmt.Errorf("iteration %d: execute: %w", round, err)
		}

		critique = l.Critic.Assess(goal, written)
		l.Logger.LogCritique(round, written, critique)

		if err := l.Ledger.Append(goal, plan, critique); err != nil {
			return fmt.Errorf("iteration %d: ledger: %w", round, err)
		}
		l.Logger.LogLedger(round, l.Ledger.Path())

		summary := observability.Summary{
			Round:    round,
			Total:    iterations,
			Written:  written,
			Critique: critique,
		}
		for _, r := range l.Reporters {
			if err := r.Report(ctx, summary); err != nil {
				return fmt.Errorf("iteration %d: report: %w", round, err)
			}
		}
	}
	return nil
}
