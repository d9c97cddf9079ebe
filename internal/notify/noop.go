package notify

import (
	"context"
	"log/slog"
)

// NoOpNotifier implements Notifier by logging discarded events. It is
// used when no push backend is configured; users still receive
// notifications via polling.
type NoOpNotifier struct {
	log *slog.Logger
}

// NewNoOpNotifier creates a notifier that discards events with a log message.
func NewNoOpNotifier(log *slog.Logger) *NoOpNotifier {
	return &NoOpNotifier{log: log}
}

// Publish logs and discards the event.
func (n *NoOpNotifier) Publish(_ context.Context, ev Event) error {
	n.log.Debug("notification discarded (no push backend configured)",
		"user_id", ev.UserID,
		"alert_id", ev.AlertID,
		"sighting_id", ev.SightingID,
	)
	return nil
}
