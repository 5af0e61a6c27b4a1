package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// RunsDir is the ledger directory, relative to the workspace root.
	RunsDir    = ".runs"
	LedgerFile = "memory.json"

	timestampLayout = "2006-01-02T15:04:05.000000Z"
)

// LedgerCorruptError reports an existing ledger that cannot be decoded.
type LedgerCorruptError struct {
	Path  string
	Cause error
}

func (e *LedgerCorruptError) Error() string {
	return fmt.Sprintf("ledger %s is corrupt: %v", e.Path, e.Cause)
}

func (e *LedgerCorruptError) Unwrap() error { return e.Cause }

// Ledger is the append-only run history of a workspace. History is re-read on
// every call; nothing is cached between appends.
type Ledger struct {
	path string
	now  func() time.Time
}

// NewLedger returns the ledger stored under workspace/.runs/memory.json.
func NewLedger(workspace string) *Ledger {
	return &Ledger{
		path: filepath.Join(workspace, RunsDir, LedgerFile),
		now:  time.Now,
	}
}

// Path returns the ledger file location.
func (l *Ledger) Path() string {
	return l.path
}

// Load returns every record in insertion order. A missing ledger is empty history.
func (l *Ledger) Load() ([]RunRecord, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []RunRecord{}, nil
		}
		return nil, fmt.Errorf("read ledger: %w", err)
	}

	// The ledger is always an array; null or an object would be overwritten by the next append.
	if trimmed := bytes.TrimSpace(data); len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, &LedgerCorruptError{Path: l.path, Cause: errors.New("not a JSON array")}
	}

	var history []RunRecord
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, &LedgerCorruptError{Path: l.path, Cause: err}
	}
	return history, nil
}

// Append records one iteration and rewrites the ledger in a single rename.
func (l *Ledger) Append(goal string, plan Plan, critique string) error {
	history, err := l.Load()
	if err != nil {
		return err
	}

	if plan == nil {
		plan = Plan{}
	}
	history = append(history, RunRecord{
		Timestamp: l.now().UTC().Format(timestampLayout),
		Goal:      goal,
		Plan:      plan,
		Critique:  critique,
	})

	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}
	return writeFileAtomic(l.path, data, 0o644)
}

// writeFileAtomic writes to a temp file beside path, syncs it and renames it
// into place so readers never see a partial ledger.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create ledger directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}

	success = true
	return nil
}
