// Package notify shows desktop notifications.
package notify

import (
	"log/slog"

	"github.com/gen2brain/beeep"
)

// AppName is the title prefix used for every notification.
const AppName = "pushtalk"

// Notifier sends notifications through beeep. A disabled notifier only logs.
type Notifier struct {
	enabled bool
	send    func(title, message string) error
}

// New creates a notifier.
func New(enabled bool) *Notifier {
	return &Notifier{
		enabled: enabled,
		send: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
	}
}

// Notify shows title and message. Failures are logged and dropped.
func (n *Notifier) Notify(title, message string) {
	slog.Info("notification", "title", title, "message", message)
	if !n.enabled {
		return
	}
	if err := n.send(AppName+" · "+title, message); err != nil {
		slog.Warn("notification failed", "error", err)
	}
}
