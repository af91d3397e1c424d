package notify

import (
	"context"
	"log/slog"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

var _ port.Notifier = (*LogNotifier)(nil)

// A LogNotifier writes user notifications to the structured log.
//
// There is nobody to ask, so Confirm answers with the configured decision.
type LogNotifier struct {
	log         *slog.Logger
	autoConfirm bool
}

func NewLogNotifier(log *slog.Logger, autoConfirm bool) LogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return LogNotifier{
		log:         log.With("op", "LogNotifier"),
		autoConfirm: autoConfirm,
	}
}

func (n LogNotifier) Notify(ctx context.Context, kind domain.NotificationKind, msg string) {
	n.log.Log(ctx, levelOf(kind), msg, "kind", kind)
}

func (n LogNotifier) Confirm(ctx context.Context, msg string) bool {
	n.log.InfoContext(ctx, msg,
		"kind", domain.NotifyConfirm, "confirmed", n.autoConfirm)
	return n.autoConfirm
}

func levelOf(kind domain.NotificationKind) slog.Level {
	switch kind {
	case domain.NotifyError:
		return slog.LevelError
	case domain.NotifyWarning:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
