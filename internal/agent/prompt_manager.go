package agent

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultPlannerPrompt is used when no prompt directory provides planner.md.
const DefaultPlannerPrompt = `You are an autonomous project creator. You turn a goal into the files of a small, working project.

Reply with a plan: an ordered list of steps, each
{"action": "create_file", "path": "<path relative to the project root>", "content": "<full file contents>"}.

Rules:
- Call the propose_plan tool, or reply with only a JSON object {"plan": [...]}.
- Paths are relative; never use absolute paths or "..".
- Every step writes the complete file; there are no partial edits.
- When a previous critique is given, address it first.`

type PromptManager struct {
	Directory string
}

func NewPromptManager(dir string) *PromptManager {
	return &PromptManager{Directory: dir}
}

// GetSystemPrompt joins the markdown fragments of the prompt directory,
// falling back to DefaultPlannerPrompt when the directory has no planner.md.
func (pm *PromptManager) GetSystemPrompt() (string, error) {
	if pm.Directory == "" {
		return DefaultPlannerPrompt, nil
	}

	files, err := os.ReadDir(pm.Directory)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultPlannerPrompt, nil
		}
		return "", fmt.Errorf("failed to read prompts directory: %w", err)
	}

	// identity, soul, capabilities, planner, user; anything else alphabetically after
	order := map[string]int{
		"identity.md":     1,
		"soul.md":         2,
		"capabilities.md": 3,
		"planner.md":      4,
		"user.md":         5,
	}

	sort.Slice(files, func(i, j int) bool {
		oi, okI := order[files[i].Name()]
		oj, okJ := order[files[j].Name()]
		if okI && okJ {
			return oi < oj
		}
		if okI {
			return true
		}
		if okJ {
			return false
		}
		return files[i].Name() < files[j].Name()
	})

	var contents []string
	hasPlanner := false
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".md") {
			continue
		}
		path := filepath.Join(pm.Directory, f.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read prompt file %s: %w", path, err)
		}
		if f.Name() == "planner.md" {
			hasPlanner = true
		}
		contents = append(contents, string(data))
	}

	if !hasPlanner {
		contents = append([]string{DefaultPlannerPrompt}, contents...)
	}

	return strings.Join(contents, "\n\n---\n\n"), nil
}
