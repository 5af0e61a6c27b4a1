package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

// EventType defines the category of the log event.
type EventType string

const (
	EventTypePlan        EventType = "plan"
	EventTypeStep        EventType = "step"
	EventTypePolicyCheck EventType = "policy_check"
	EventTypeLLM         EventType = "llm"
	EventTypeCritique    EventType = "critique"
	EventTypeLedger      EventType = "ledger"
	EventTypeNotify      EventType = "notify"
)

// EventsFile is the JSON event log, relative to the runs directory.
const EventsFile = "events.jsonl"

const defaultMaxSize = 10 * 1024 * 1024 // 10MB

// Event represents a structured log entry.
type Event struct {
	Type  EventType
	Level slog.Level
	Round int
	Data  map[string]any
}

// Options configures NewLogger.
type Options struct {
	Level      string
	Console    io.Writer // human readable output; nil disables it
	EventsPath string    // JSON lines file; empty disables it
	RunID      string
}

// Logger handles structured logging. Events go to every configured sink.
type Logger struct {
	logger *slog.Logger
	file   *os.File
}

// NewLogger builds a logger that fans events out to the console and the
// workspace event file.
func NewLogger(opts Options) (*Logger, error) {
	lvl := ParseLevel(opts.Level)
	var handlers []slog.Handler
	if opts.Console != nil {
		handlers = append(handlers, slog.NewTextHandler(opts.Console, &slog.HandlerOptions{Level: lvl}))
	}

	l := &Logger{}
	if opts.EventsPath != "" {
		f, err := openEventsFile(opts.EventsPath, defaultMaxSize)
		if err != nil {
			return nil, err
		}
		l.file = f
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	var h slog.Handler = slog.DiscardHandler
	if len(handlers) > 0 {
		h = slogmulti.Fanout(handlers...)
	}
	logger := slog.New(h)
	if opts.RunID != "" {
		logger = logger.With(slog.String("run_id", opts.RunID))
	}
	l.logger = logger
	return l, nil
}

// Nop returns a logger that drops everything.
func Nop() *Logger {
	return &Logger{logger: slog.New(slog.DiscardHandler)}
}

// Close releases the event file.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Slog exposes the underlying logger for packages that log free-form messages.
func (l *Logger) Slog() *slog.Logger {
	return l.logger
}

// Log emits a structured event.
func (l *Logger) Log(evt Event) {
	attrs := make([]slog.Attr, 0, len(evt.Data)+1)
	if evt.Round > 0 {
		attrs = append(attrs, slog.Int("round", evt.Round))
	}
	for k, v := range evt.Data {
		attrs = append(attrs, slog.Any(k, v))
	}
	l.logger.LogAttrs(context.Background(), evt.Level, string(evt.Type), attrs...)
}

// Helper methods for common events

func (l *Logger) LogPlan(round, steps, dropped int) {
	l.Log(Event{
		Type:  EventTypePlan,
		Level: slog.LevelInfo,
		Round: round,
		Data: map[string]any{
			"steps":   steps,
			"dropped": dropped,
		},
	})
}

func (l *Logger) LogStep(index int, action, path, status string) {
	l.Log(Event{
		Type:  EventTypeStep,
		Level: slog.LevelDebug,
		Data: map[string]any{
			"index":  index,
			"action": action,
			"path":   path,
			"status": status,
		},
	})
}

func (l *Logger) LogPolicyCheck(action, path, effect, reason string) {
	level := slog.LevelDebug
	if effect != "allow" {
		level = slog.LevelWarn
	}
	l.Log(Event{
		Type:  EventTypePolicyCheck,
		Level: level,
		Data: map[string]any{
			"action": action,
			"path":   path,
			"effect": effect,
			"reason": reason,
		},
	})
}

func (l *Logger) LogLLM(model string, prompt any, response string) {
	l.Log(Event{
		Type:  EventTypeLLM,
		Level: slog.LevelDebug,
		Data: map[string]any{
			"model":    model,
			"prompt":   prompt,
			"response": response,
		},
	})
}

func (l *Logger) LogCritique(round int, written []string, critique string) {
	l.Log(Event{
		Type:  EventTypeCritique,
		Level: slog.LevelInfo,
		Round: round,
		Data: map[string]any{
			"written":  written,
			"critique": critique,
		},
	})
}

func (l *Logger) LogLedger(round int, path string) {
	l.Log(Event{
		Type:  EventTypeLedger,
		Level: slog.LevelDebug,
		Round: round,
		Data:  map[string]any{"path": path},
	})
}

func (l *Logger) LogNotifyFailure(gateway string, err error) {
	l.Log(Event{
		Type:  EventTypeNotify,
		Level: slog.LevelWarn,
		Data: map[string]any{
			"gateway": gateway,
			"error":   err.Error(),
		},
	})
}

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openEventsFile(path string, maxSize int64) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	// Simple rotation: keep one .old file
	if info, err := os.Stat(path); err == nil && info.Size() > maxSize {
		oldPath := path + ".old"
		_ = os.Remove(oldPath)
		_ = os.Rename(path, oldPath)
	}

	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
}
