package tools

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rahul/creator/internal/governance"
	"github.com/rahul/creator/internal/observability"
	"github.com/rahul/creator/internal/store"
)

// Executor applies plans to the workspace through the sandbox.
type Executor struct {
	Sandbox  *Sandbox
	Registry *Registry
	Policy   governance.PolicyEngine
	Logger   *observability.Logger
}

// NewExecutor returns an executor with the create_file tool registered.
// policy and logger may be nil.
func NewExecutor(sandbox *Sandbox, policy governance.PolicyEngine, logger *observability.Logger) *Executor {
	registry := NewRegistry()
	registry.Register(NewCreateFileTool())
	if logger == nil {
		logger = observability.Nop()
	}
	return &Executor{
		Sandbox:  sandbox,
		Registry: registry,
		Policy:   policy,
		Logger:   logger,
	}
}

// Execute applies plan in order and returns the relative paths written, in
// step order. The first failing step aborts the call; files written by earlier
// steps stay on disk.
func (e *Executor) Execute(ctx context.Context, plan store.Plan) ([]string, error) {
	written := make([]string, 0, len(plan))

	for i, step := range plan {
		tool := e.Registry.Get(string(step.Action))
		if tool == nil {
			e.Logger.LogStep(i+1, string(step.Action), step.Path, "skipped: unknown action")
			continue
		}
		rel := strings.TrimSpace(step.Path)
		if rel == "" {
			e.Logger.LogStep(i+1, string(step.Action), step.Path, "skipped: empty path")
			continue
		}

		target, err := e.Sandbox.Resolve(rel)
		if err != nil {
			outcome := "failed"
			var escape *PathEscapeError
			if errors.As(err, &escape) {
				outcome = "blocked: outside workspace"
			}
			e.Logger.LogStep(i+1, string(step.Action), rel, outcome)
			return written, err
		}

		if err := e.checkPolicy(ctx, string(step.Action), target); err != nil {
			return written, err
		}

		step.Path = rel
		if err := tool.Execute(ctx, step, target); err != nil {
			e.Logger.LogStep(i+1, string(step.Action), rel, "failed")
			return written, err
		}

		e.Logger.LogStep(i+1, string(step.Action), rel, "written")
		written = append(written, rel)
	}

	return written, nil
}

func (e *Executor) checkPolicy(ctx context.Context, action, target string) error {
	if e.Policy == nil {
		return nil
	}

	rel, err := filepath.Rel(e.Sandbox.Root(), target)
	if err != nil {
		return fmt.Errorf("relativize %s: %w", target, err)
	}
	rel = filepath.ToSlash(rel)

	res, err := e.Policy.Evaluate(ctx, governance.Request{Action: action, Path: rel})
	if err != nil {
		return fmt.Errorf("policy evaluation: %w", err)
	}
	e.Logger.LogPolicyCheck(action, rel, string(res.Effect), res.Reason)
	if res.Effect == governance.EffectDeny {
		return &governance.PolicyDeniedError{Action: action, Path: rel, Reason: res.Reason}
	}
	return nil
}
