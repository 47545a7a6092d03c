package notify

import (
	"context"
	"log/slog"

	"github.com/bnema/modal-accounts-cli/internal/domain"
	"github.com/bnema/modal-accounts-cli/internal/ports"
)

// LogNotifier writes notifications to the structured log. It is the
// fallback when no webhook is configured.
type LogNotifier struct {
	logger *slog.Logger
}

var _ ports.Notifier = (*LogNotifier)(nil)

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, notification domain.Notification) error {
	logger := n.logger
	if logger == nil {
		logger = slog.Default()
	}

	level := slog.LevelInfo
	if notification.Terminal() || notification.Kind == domain.NotifySetupFailed {
		level = slog.LevelError
	} else if notification.Kind == domain.NotifyLowBalance {
		level = slog.LevelWarn
	}

	logger.Log(ctx, level, notification.Title,
		"kind", string(notification.Kind),
		"account", notification.Username,
		"message", notification.Message,
	)

	return nil
}
