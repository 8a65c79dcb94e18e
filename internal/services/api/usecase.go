package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/NordCoder/Studiobell/internal/domain"
	"github.com/NordCoder/Studiobell/internal/domain/entity"
	"github.com/NordCoder/Studiobell/internal/domain/notification"
	"github.com/NordCoder/Studiobell/internal/domain/signal"
	"github.com/NordCoder/Studiobell/internal/signals"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

type Store interface {
	ListUnread(ctx context.Context, recipientID int64, limit int) ([]*notification.Notification, error)
	CountUnread(ctx context.Context, recipientID int64) (int, error)
	MarkRead(ctx context.Context, recipientID, id int64) error
	MarkAllRead(ctx context.Context, recipientID int64) (int64, error)
}

type Usecase struct {
	Entities entity.Reader
	Store    Store
	Settings notification.SettingsRepo
	Clock    notification.Clock
}

// Alerts recomputes the dashboard summaries from the recipient's current entities.
func (u *Usecase) Alerts(ctx context.Context, recipientID int64) ([]signal.AlertSummary, error) {
	ctx, span := otel.Tracer("api").Start(ctx, "api.alerts")
	defer span.End()
	span.SetAttributes(attribute.Int64("recipient.id", recipientID))

	c, err := u.Entities.Collections(ctx, recipientID)
	if err != nil {
		return nil, fmt.Errorf("load collections: %w", err)
	}
	out := signals.Aggregate(c, u.Clock.Now())
	if out == nil {
		out = []signal.AlertSummary{}
	}
	return out, nil
}

func (u *Usecase) Badges(ctx context.Context, recipientID int64, kind entity.Kind, id int64) ([]signal.Badge, error) {
	s, err := u.Entities.Get(ctx, recipientID, kind, id)
	if err != nil {
		return nil, fmt.Errorf("load %s %d: %w", kind, id, err)
	}
	out := signals.Evaluate(s, u.Clock.Now())
	if out == nil {
		out = []signal.Badge{}
	}
	return out, nil
}

// NotificationSettings returns the stored switches. A recipient without a row
// sees every category off, which is what the scheduler assumes too.
func (u *Usecase) NotificationSettings(ctx context.Context, recipientID int64) (*notification.Settings, error) {
	s, err := u.Settings.Get(ctx, recipientID)
	if errors.Is(err, domain.ErrNotFound) {
		s = &notification.Settings{RecipientID: recipientID, SoundsEnabled: true}
	} else if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	flags := make(map[notification.Category]bool, len(notification.Categories))
	for _, c := range notification.Categories {
		flags[c] = s.Enabled(c)
	}
	s.Flags = flags
	return s, nil
}

type SettingsInput struct {
	Flags         map[notification.Category]bool `json:"flags"`
	SoundsEnabled *bool                          `json:"sounds_enabled"`
}

// PutNotificationSettings replaces the category switches. Omitted categories
// are off; an omitted sounds_enabled keeps the stored value.
func (u *Usecase) PutNotificationSettings(ctx context.Context, recipientID int64, in SettingsInput) (*notification.Settings, error) {
	for c := range in.Flags {
		if !c.Known() {
			return nil, fmt.Errorf("%w: unknown category %q", domain.ErrInvalid, c)
		}
	}
	cur, err := u.NotificationSettings(ctx, recipientID)
	if err != nil {
		return nil, err
	}

	next := &notification.Settings{
		RecipientID:   recipientID,
		Flags:         map[notification.Category]bool{},
		SoundsEnabled: cur.SoundsEnabled,
		UpdatedAt:     u.Clock.Now(),
	}
	if in.SoundsEnabled != nil {
		next.SoundsEnabled = *in.SoundsEnabled
	}
	for _, c := range notification.Categories {
		next.Flags[c] = in.Flags[c]
	}
	if err := u.Settings.Upsert(ctx, next); err != nil {
		return nil, fmt.Errorf("save settings: %w", err)
	}
	return next, nil
}
