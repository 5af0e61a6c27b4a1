package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/glebarez/go-sqlite"
	"github.com/tmc/langchaingo/llms"
)

// TranscriptFile is the reasoner transcript database, relative to the workspace root.
const TranscriptFile = "transcript.db"

// HistoryStore keeps the raw reasoner exchanges of every run.
type HistoryStore struct {
	DB *sql.DB
}

func NewHistoryStore(dbPath string) (*HistoryStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create transcript directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	query := `CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT,
		role TEXT,
		content TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := db.Exec(query); err != nil {
		db.Close()
		return nil, err
	}

	return &HistoryStore{DB: db}, nil
}

func (h *HistoryStore) AddMessage(runID string, role string, content string) error {
	query := `INSERT INTO messages (run_id, role, content) VALUES (?, ?, ?)`
	_, err := h.DB.Exec(query, runID, role, content)
	return err
}

// GetHistory returns up to limit of the most recent messages of a run, oldest first.
func (h *HistoryStore) GetHistory(runID string, limit int) ([]llms.MessageContent, error) {
	query := `SELECT role, content FROM messages WHERE run_id = ? ORDER BY id DESC LIMIT ?`
	rows, err := h.DB.Query(query, runID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []llms.MessageContent
	for rows.Next() {
		var role, content string
		if err := rows.Scan(&role, &content); err != nil {
			return nil, err
		}

		var msgRole llms.ChatMessageType
		switch role {
		case "human":
			msgRole = llms.ChatMessageTypeHuman
		case "ai":
			msgRole = llms.ChatMessageTypeAI
		case "system":
			msgRole = llms.ChatMessageTypeSystem
		default:
			msgRole = llms.ChatMessageTypeHuman
		}

		history = append(history, llms.MessageContent{
			Role: msgRole,
			Parts: []llms.ContentPart{
				llms.TextPart(content),
			},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to get chronological order
	for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
		history[i], history[j] = history[j], history[i]
	}

	return history, nil
}

func (h *HistoryStore) Close() error {
	return h.DB.Close()
}
