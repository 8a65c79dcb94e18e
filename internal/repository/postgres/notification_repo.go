package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NordCoder/Studiobell/internal/domain/notification"
	"github.com/jackc/pgx/v5"
)

var _ notification.Repo = (*NotificationRepoImpl)(nil)

type NotificationRepoImpl struct{ db *DB }

func NewNotificationRepo(db *DB) *NotificationRepoImpl { return &NotificationRepoImpl{db: db} }

const (
	qNotifInsert = `
INSERT INTO notifications (recipient_id, type, payload, dedup_key, dedup_day, created_at)
VALUES ($1, $2, $3, $4, $5, COALESCE($6, now()))
ON CONFLICT (recipient_id, type, dedup_key, dedup_day) DO NOTHING
RETURNING id, read, created_at;
`
	qNotifExists = `
SELECT EXISTS (
    SELECT 1 FROM notifications
    WHERE recipient_id = $1 AND type = $2 AND dedup_key = $3 AND dedup_day = $4
);
`
	qNotifMarkRead = `
UPDATE notifications SET read = TRUE
WHERE id = $1 AND recipient_id = $2;
`
	qNotifMarkAllRead = `
UPDATE notifications SET read = TRUE
WHERE recipient_id = $1 AND read = FALSE;
`
	qNotifUnread = `
SELECT id, recipient_id, type, payload, read, created_at, dedup_key, dedup_day
FROM notifications
WHERE recipient_id = $1 AND read = FALSE
ORDER BY created_at DESC, id DESC
LIMIT $2;
`
	qNotifCountUnread = `
SELECT count(*) FROM notifications
WHERE recipient_id = $1 AND read = FALSE;
`
	qNotifSweep = `
DELETE FROM notifications
WHERE read = TRUE AND created_at < $1;
`
)

func (r *NotificationRepoImpl) Create(ctx context.Context, n *notification.Notification) (bool, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	payload := n.Payload
	if payload == nil {
		payload = map[string]any{}
	}

	eq := r.db.execQueryer(ctx)
	err := eq.QueryRow(ctx, qNotifInsert,
		n.RecipientID,
		string(n.Type),
		payload,
		n.DedupKey,
		n.DedupDay,
		nullTime(n.CreatedAt),
	).Scan(&n.ID, &n.Read, &n.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert notification: %w", mapErr(err))
	}
	return true, nil
}

func (r *NotificationRepoImpl) Exists(ctx context.Context, recipientID int64, typ notification.Category, dedupKey string, day time.Time) (bool, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var ok bool
	if err := r.db.execQueryer(ctx).QueryRow(ctx, qNotifExists, recipientID, string(typ), dedupKey, day).Scan(&ok); err != nil {
		return false, fmt.Errorf("notification exists: %w", err)
	}
	return ok, nil
}

func (r *NotificationRepoImpl) MarkRead(ctx context.Context, recipientID, id int64) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	cmd, err := r.db.Pool.Exec(ctx, qNotifMarkRead, id, recipientID)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *NotificationRepoImpl) MarkAllRead(ctx context.Context, recipientID int64) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	cmd, err := r.db.Pool.Exec(ctx, qNotifMarkAllRead, recipientID)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return cmd.RowsAffected(), nil
}

func (r *NotificationRepoImpl) ListUnread(ctx context.Context, recipientID int64, limit int) ([]*notification.Notification, error) {
	if limit <= 0 {
		limit = 50
	}

	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qNotifUnread, recipientID, limit)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	out := make([]*notification.Notification, 0, limit)
	for rows.Next() {
		var (
			n   notification.Notification
			typ string
		)
		if err := rows.Scan(&n.ID, &n.RecipientID, &typ, &n.Payload, &n.Read, &n.CreatedAt, &n.DedupKey, &n.DedupDay); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Type = notification.Category(typ)
		out = append(out, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (r *NotificationRepoImpl) CountUnread(ctx context.Context, recipientID int64) (int, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var n int
	if err := r.db.Pool.QueryRow(ctx, qNotifCountUnread, recipientID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

func (r *NotificationRepoImpl) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	cmd, err := r.db.Pool.Exec(ctx, qNotifSweep, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep notifications: %w", err)
	}
	return cmd.RowsAffected(), nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
