package agent

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPromptManager_GetSystemPrompt(t *testing.T) {
	tempDir := t.TempDir()

	files := map[string]string{
		"identity.md":     "Identity Content",
		"soul.md":         "Soul Content",
		"capabilities.md": "Capabilities Content",
		"planner.md":      "Planner Content",
		"user.md":         "User Content",
		"extra.md":        "Extra Content",
		"ignored.txt":     "Ignored Content",
	}

	for name, content := range files {
		err := os.WriteFile(filepath.Join(tempDir, name), []byte(content), 0644)
		if err != nil {
			t.Fatal(err)
		}
	}

	pm := NewPromptManager(tempDir)
	prompt, err := pm.GetSystemPrompt()
	if err != nil {
		t.Fatal(err)
	}

	expectedParts := []string{
		"Identity Content",
		"Soul Content",
		"Capabilities Content",
		"Planner Content",
		"User Content",
		"Extra Content",
	}

	for _, part := range expectedParts {
		if !strings.Contains(prompt, part) {
			t.Errorf("Prompt missing expected part: %s", part)
		}
	}
	if strings.Contains(prompt, "Ignored Content") {
		t.Error("non-markdown file was included")
	}
	if strings.Contains(prompt, DefaultPlannerPrompt) {
		t.Error("default planner prompt used despite planner.md")
	}

	// Verify order
	if strings.Index(prompt, "Identity Content") >= strings.Index(prompt, "Soul Content") {
		t.Error("Identity should be before Soul")
	}
	if strings.Index(prompt, "Capabilities Content") >= strings.Index(prompt, "Planner Content") {
		t.Error("Capabilities should be before Planner")
	}
	if strings.Index(prompt, "User Content") >= strings.Index(prompt, "Extra Content") {
		t.Error("User should be before Extra")
	}
}

func TestPromptManager_Defaults(t *testing.T) {
	for name, dir := range map[string]string{
		"unset":   "",
		"missing": filepath.Join(t.TempDir(), "nope"),
	} {
		t.Run(name, func(t *testing.T) {
			prompt, err := NewPromptManager(dir).GetSystemPrompt()
			if err != nil {
				t.Fatal(err)
			}
			if prompt != DefaultPlannerPrompt {
				t.Errorf("expected default prompt, got %q", prompt)
			}
		})
	}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "user.md"), []byte("Prefer Go"), 0644); err != nil {
		t.Fatal(err)
	}
	prompt, err := NewPromptManager(dir).GetSystemPrompt()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(prompt, DefaultPlannerPrompt) || !strings.HasSuffix(prompt, "Prefer Go") {
		t.Errorf("expected default planner followed by user fragment, got %q", prompt)
	}
}
