package gateway

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rahul/creator/internal/observability"
)

// maxMessageLen fits the smaller of the Telegram (4096) and Discord (2000) limits.
const maxMessageLen = 2000

// Messenger defines the interface for notification gateways (Telegram, Discord, etc.)
type Messenger interface {
	// Name identifies the gateway in logs
	Name() string
	// Send delivers a plain text message to the configured chat
	Send(ctx context.Context, text string) error
}

// Broadcaster forwards iteration summaries to every configured messenger.
// Delivery failures are logged and never returned.
type Broadcaster struct {
	Goal       string
	Messengers []Messenger
	Logger     *observability.Logger
	policy     *bluemonday.Policy
}

func NewBroadcaster(goal string, logger *observability.Logger, messengers ...Messenger) *Broadcaster {
	if logger == nil {
		logger = observability.Nop()
	}
	return &Broadcaster{
		Goal:       goal,
		Messengers: messengers,
		Logger:     logger,
		policy:     bluemonday.StrictPolicy(),
	}
}

func (b *Broadcaster) Report(ctx context.Context, s observability.Summary) error {
	if len(b.Messengers) == 0 {
		return nil
	}
	text := b.Format(s)
	for _, m := range b.Messengers {
		if err := m.Send(ctx, text); err != nil {
			b.Logger.LogNotifyFailure(m.Name(), err)
		}
	}
	return nil
}

// Format renders a summary as plain text with any markup removed.
func (b *Broadcaster) Format(s observability.Summary) string {
	files := "none"
	if len(s.Written) > 0 {
		files = strings.Join(s.Written, ", ")
	}
	text := fmt.Sprintf("%s\nIteration %d/%d\nWrote files: %s\nCritique: %s",
		b.Goal, s.Round, s.Total, files, s.Critique)

	// StrictPolicy escapes what it keeps; messages are sent as plain text.
	text = html.UnescapeString(b.policy.Sanitize(text))
	if r := []rune(text); len(r) > maxMessageLen {
		text = string(r[:maxMessageLen-3]) + "..."
	}
	return text
}
