package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rahul/creator/internal/store"
)

// WriteError reports a storage failure while applying a step.
type WriteError struct {
	Path  string
	Cause error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Path, e.Cause)
}

func (e *WriteError) Unwrap() error { return e.Cause }

// CreateFileTool writes a step's content as the full contents of its file.
type CreateFileTool struct{}

func NewCreateFileTool() *CreateFileTool {
	return &CreateFileTool{}
}

func (f *CreateFileTool) Name() string {
	return string(store.ActionCreateFile)
}

func (f *CreateFileTool) Description() string {
	return "Create or overwrite a file in the workspace with the given content."
}

func (f *CreateFileTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"action": map[string]any{
				"type": "string",
				"enum": []string{string(store.ActionCreateFile)},
			},
			"path": map[string]any{
				"type":        "string",
				"description": "File path relative to the workspace root",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "Full file contents",
			},
		},
		"required": []string{"action", "path", "content"},
	}
}

func (f *CreateFileTool) Execute(ctx context.Context, step store.Step, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return &WriteError{Path: step.Path, Cause: fmt.Errorf("create parent directories: %w", err)}
	}
	if err := os.WriteFile(target, []byte(step.Content), 0o644); err != nil {
		return &WriteError{Path: step.Path, Cause: err}
	}
	return nil
}
