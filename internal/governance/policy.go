package governance

import (
	"context"
	"fmt"
	"regexp"
)

// Effect defines the result of a policy evaluation.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Request describes one plan step about to touch the workspace.
type Request struct {
	Action string
	Path   string // workspace-relative, slash separated
}

// Result contains the outcome of a policy evaluation.
type Result struct {
	Effect Effect
	Reason string
}

// PolicyDeniedError is returned by callers that refuse a step after a deny result.
type PolicyDeniedError struct {
	Action string
	Path   string
	Reason string
}

func (e *PolicyDeniedError) Error() string {
	return fmt.Sprintf("policy denied %s %s: %s", e.Action, e.Path, e.Reason)
}

// PolicyEngine evaluates plan steps against a set of rules.
type PolicyEngine interface {
	Evaluate(ctx context.Context, req Request) (Result, error)
}

// DefaultPolicyEngine denies by action name or by path pattern.
type DefaultPolicyEngine struct {
	DeniedActions map[string]bool
	DeniedPaths   []*regexp.Regexp
}

func NewDefaultPolicyEngine() *DefaultPolicyEngine {
	return &DefaultPolicyEngine{
		DeniedActions: make(map[string]bool),
		DeniedPaths:   make([]*regexp.Regexp, 0),
	}
}

func (e *DefaultPolicyEngine) DenyAction(name string) {
	e.DeniedActions[name] = true
}

func (e *DefaultPolicyEngine) DenyPath(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	e.DeniedPaths = append(e.DeniedPaths, re)
	return nil
}

func (e *DefaultPolicyEngine) Evaluate(ctx context.Context, req Request) (Result, error) {
	if e.DeniedActions[req.Action] {
		return Result{
			Effect: EffectDeny,
			Reason: fmt.Sprintf("Action '%s' is restricted by workspace policy", req.Action),
		}, nil
	}

	for _, re := range e.DeniedPaths {
		if re.MatchString(req.Path) {
			return Result{
				Effect: EffectDeny,
				Reason: fmt.Sprintf("Path matches restricted pattern: %s", re.String()),
			}, nil
		}
	}

	return Result{
		Effect: EffectAllow,
		Reason: "Approved by default policy",
	}, nil
}
