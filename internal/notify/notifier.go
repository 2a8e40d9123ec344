package notify

import (
	"context"
	"log/slog"
)

// Scope names the audience of an announcement.
type Scope string

const (
	ScopeClub    Scope = "club"
	ScopeCollege Scope = "college"
)

// Announcement is the delivery-agnostic payload handed to a Notifier.
type Announcement struct {
	Scope    Scope
	ClubID   uint
	SenderID uint
	Subject  string
	Body     string
}

// Notifier is the outbound port for announcements. Delivery transports
// (push, mail, webhooks) plug in behind it; the core never waits on
// delivery outcomes.
type Notifier interface {
	Announce(ctx context.Context, a Announcement) error
}

// LogNotifier writes announcements to the structured log. It is the
// default transport in development and a safe fallback in production.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Announce(ctx context.Context, a Announcement) error {
	n.logger.InfoContext(ctx, "announcement",
		slog.String("scope", string(a.Scope)),
		slog.Uint64("club_id", uint64(a.ClubID)),
		slog.Uint64("sender_id", uint64(a.SenderID)),
		slog.String("subject", a.Subject),
	)
	return nil
}
