package agent

import (
	"fmt"
	"slices"
)

// Critic assesses the files written in a round and returns feedback for the next.
type Critic interface {
	Assess(goal string, written []string) string
}

// ReadmeCritic asks for a README.md until one has been written in the round.
type ReadmeCritic struct{}

func (ReadmeCritic) Assess(goal string, written []string) string {
	if !slices.Contains(written, "README.md") {
		return fmt.Sprintf("For goal '%s', include README.md for usage context.", goal)
	}
	return "Output includes core project files; next round can improve quality and tests."
}
