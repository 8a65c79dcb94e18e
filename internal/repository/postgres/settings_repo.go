package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/NordCoder/Studiobell/internal/domain/notification"
)

var _ notification.SettingsRepo = (*SettingsRepo)(nil)

type SettingsRepo struct{ db *DB }

func NewSettingsRepo(db *DB) *SettingsRepo { return &SettingsRepo{db: db} }

const (
	qSettingsGet = `
SELECT recipient_id, flags, sounds_enabled, updated_at
FROM notification_settings
WHERE recipient_id = $1;
`
	qSettingsUpsert = `
INSERT INTO notification_settings (recipient_id, flags, sounds_enabled, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (recipient_id) DO UPDATE
SET flags = EXCLUDED.flags,
    sounds_enabled = EXCLUDED.sounds_enabled,
    updated_at = now()
RETURNING updated_at;
`
)

// Get returns ErrNotFound when the recipient has no settings row.
func (r *SettingsRepo) Get(ctx context.Context, recipientID int64) (*notification.Settings, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var s notification.Settings
	err := r.db.Pool.QueryRow(ctx, qSettingsGet, recipientID).
		Scan(&s.RecipientID, &s.Flags, &s.SoundsEnabled, &s.UpdatedAt)
	if err != nil {
		if errors.Is(mapErr(err), ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return &s, nil
}

func (r *SettingsRepo) Upsert(ctx context.Context, s *notification.Settings) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	flags := s.Flags
	if flags == nil {
		flags = map[notification.Category]bool{}
	}
	if err := r.db.Pool.QueryRow(ctx, qSettingsUpsert, s.RecipientID, flags, s.SoundsEnabled).Scan(&s.UpdatedAt); err != nil {
		return fmt.Errorf("upsert settings: %w", mapErr(err))
	}
	return nil
}
