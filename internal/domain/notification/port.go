package notification

import (
	"context"
	"time"
)

type Repo interface {
	// Create inserts n unless a record with the same recipient, type, dedup key and
	// dedup day exists. created is false in that case and n is left untouched.
	Create(ctx context.Context, n *Notification) (created bool, err error)
	Exists(ctx context.Context, recipientID int64, typ Category, dedupKey string, day time.Time) (bool, error)
	MarkRead(ctx context.Context, recipientID, id int64) error
	MarkAllRead(ctx context.Context, recipientID int64) (int64, error)
	ListUnread(ctx context.Context, recipientID int64, limit int) ([]*Notification, error)
	CountUnread(ctx context.Context, recipientID int64) (int, error)
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type SettingsRepo interface {
	Get(ctx context.Context, recipientID int64) (*Settings, error)
	Upsert(ctx context.Context, s *Settings) error
}
