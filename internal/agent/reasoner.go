package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/rahul/creator/internal/store"
)

// Reasoner turns a goal and the previous round's critique into a plan.
type Reasoner interface {
	Think(ctx context.Context, goal, critique string) (store.Plan, error)
}

// TemplateReasoner produces a fixed project skeleton without calling a model.
type TemplateReasoner struct{}

func NewTemplateReasoner() *TemplateReasoner {
	return &TemplateReasoner{}
}

func (r *TemplateReasoner) Think(ctx context.Context, goal, critique string) (store.Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	goal = strings.TrimSpace(goal)
	plan := store.Plan{
		{Action: store.ActionCreateFile, Path: "README.md", Content: templateReadme(goal)},
		{Action: store.ActionCreateFile, Path: "NOTES.md", Content: templateNotes(goal, critique)},
	}

	if asksForQuality(critique) {
		plan = append(plan, store.Step{
			Action:  store.ActionCreateFile,
			Path:    "TODO.md",
			Content: templateTodo(goal),
		})
	}
	return plan, nil
}

func asksForQuality(critique string) bool {
	c := strings.ToLower(critique)
	return strings.Contains(c, "quality") || strings.Contains(c, "test")
}

func templateReadme(goal string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", goal)
	fmt.Fprintf(&b, "This project was scaffolded for the goal: %s.\n\n", goal)
	b.WriteString("## Usage\n\n")
	b.WriteString("Read NOTES.md for the current plan and open questions.\n")
	return b.String()
}

func templateNotes(goal, critique string) string {
	var b strings.Builder
	b.WriteString("# Notes\n\n")
	fmt.Fprintf(&b, "Goal: %s\n\n", goal)
	if critique == "" {
		b.WriteString("First round: no feedback yet.\n")
	} else {
		fmt.Fprintf(&b, "Previous critique: %s\n", critique)
	}
	return b.String()
}

func templateTodo(goal string) string {
	return fmt.Sprintf(`# TODO

- [ ] Break "%s" into modules
- [ ] Add tests for each module
- [ ] Document setup and usage in README.md
`, goal)
}
