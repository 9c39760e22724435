// Package notify is the outbound message contract used by the workflows.
package notify

import (
	"context"
	"log/slog"
	"strings"

	"github.com/psds-microservice/helpdesk-service/internal/action"
	"github.com/psds-microservice/helpdesk-service/internal/logging"
)

// Button is an inline button that triggers a.
type Button struct {
	Label  string
	Action action.Action
}

// Markup is optional message decoration. Inline buttons are bound to the
// message and Menu replaces the user's reply keyboard.
type Markup struct {
	Inline [][]Button
	Menu   [][]string
}

// Notifier delivers a message to a user or chat. Callers treat failures as
// non-fatal: they log and carry on.
type Notifier interface {
	Send(ctx context.Context, recipientID int64, text string, markup *Markup) error
}

// LogNotifier writes messages to the log instead of delivering them. It is
// used when no chat transport is configured.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: logging.OrDefault(log).With("component", "notify")}
}

func (n *LogNotifier) Send(_ context.Context, recipientID int64, text string, markup *Markup) error {
	attrs := []any{"recipient", recipientID, "text", text}
	if markup != nil {
		var labels []string
		for _, row := range markup.Inline {
			for _, b := range row {
				labels = append(labels, b.Label+"="+action.Encode(b.Action))
			}
		}
		if len(labels) > 0 {
			attrs = append(attrs, "buttons", strings.Join(labels, ","))
		}
	}
	n.log.Info("message", attrs...)
	return nil
}

// Best sends a message and logs a failure at WARN without returning it.
// It reports whether delivery succeeded.
func Best(ctx context.Context, n Notifier, log *slog.Logger, recipientID int64, text string, markup *Markup) bool {
	if err := n.Send(ctx, recipientID, text, markup); err != nil {
		logging.OrDefault(log).Warn("notification failed", "recipient", recipientID, "error", err)
		return false
	}
	return true
}
