package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLedger_LoadMissing(t *testing.T) {
	l := NewLedger(t.TempDir())

	history, err := l.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("expected empty history, got %d records", len(history))
	}
}

func TestLedger_AppendGrowth(t *testing.T) {
	ws := t.TempDir()
	l := NewLedger(ws)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	tick := 0
	l.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Millisecond)
	}

	goals := []string{"todo app", "todo app", "blog"}
	for i, g := range goals {
		plan := Plan{{Action: ActionCreateFile, Path: "f.txt", Content: g}}
		if err := l.Append(g, plan, "critique"); err != nil {
			t.Fatalf("Append %d failed: %v", i, err)
		}

		history, err := l.Load()
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if len(history) != i+1 {
			t.Fatalf("expected %d records, got %d", i+1, len(history))
		}
	}

	history, _ := l.Load()
	for i, rec := range history {
		if rec.Goal != goals[i] {
			t.Errorf("record %d goal = %q, want %q", i, rec.Goal, goals[i])
		}
		if !strings.HasSuffix(rec.Timestamp, "Z") {
			t.Errorf("record %d timestamp %q lacks trailing Z", i, rec.Timestamp)
		}
		if _, err := time.Parse(time.RFC3339Nano, rec.Timestamp); err != nil {
			t.Errorf("record %d timestamp %q is not ISO-8601: %v", i, rec.Timestamp, err)
		}
		if i > 0 && rec.Timestamp < history[i-1].Timestamp {
			t.Errorf("timestamps decrease: %q after %q", rec.Timestamp, history[i-1].Timestamp)
		}
	}
	if !strings.HasPrefix(history[0].Timestamp, "2026-03-01T11:00:00") {
		t.Errorf("timestamp not converted to UTC: %q", history[0].Timestamp)
	}
}

func TestLedger_NilPlanPersistsAsArray(t *testing.T) {
	ws := t.TempDir()
	l := NewLedger(ws)
	if err := l.Append("goal", nil, "c"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	data, err := os.ReadFile(l.Path())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"plan": []`) {
		t.Errorf("expected empty plan array in ledger, got:\n%s", data)
	}
}

func TestLedger_Corrupt(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", "{not json"},
		{"null document", "null"},
		{"object document", ` {"goal": "x"}`},
		{"empty file", "  \n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLedger(t.TempDir())
			if err := os.MkdirAll(filepath.Dir(l.Path()), 0o755); err != nil {
				t.Fatal(err)
			}
			if err := os.WriteFile(l.Path(), []byte(tt.body), 0o644); err != nil {
				t.Fatal(err)
			}

			_, err := l.Load()
			var corrupt *LedgerCorruptError
			if !errors.As(err, &corrupt) {
				t.Fatalf("expected LedgerCorruptError from Load, got %v", err)
			}

			err = l.Append("goal", Plan{}, "c")
			if !errors.As(err, &corrupt) {
				t.Fatalf("expected LedgerCorruptError from Append, got %v", err)
			}

			data, _ := os.ReadFile(l.Path())
			if string(data) != tt.body {
				t.Errorf("corrupt ledger was modified: %q", data)
			}
		})
	}
}

func TestLedger_NoTempFilesLeft(t *testing.T) {
	ws := t.TempDir()
	l := NewLedger(ws)
	for i := 0; i < 3; i++ {
		if err := l.Append("goal", Plan{}, "c"); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := os.ReadDir(filepath.Join(ws, RunsDir))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != LedgerFile {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("expected only %s in runs dir, got %v", LedgerFile, names)
	}
}
