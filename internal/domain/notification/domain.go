package notification

import (
	"time"
)

type Notification struct {
	ID          int64          `json:"id"`
	RecipientID int64          `json:"recipient_id"`
	Type        Category       `json:"type"`
	Payload     map[string]any `json:"payload"`
	Read        bool           `json:"read"`
	CreatedAt   time.Time      `json:"created_at"`
	DedupKey    string         `json:"dedup_key"`
	DedupDay    time.Time      `json:"-"`
}

// Message is the human readable body carried in the payload, if any.
func (n *Notification) Message() string {
	if n == nil || n.Payload == nil {
		return ""
	}
	s, _ := n.Payload["message"].(string)
	return s
}

type Clock interface {
	Now() time.Time
}

type SystemClock struct{ Loc *time.Location }

func (c SystemClock) Now() time.Time {
	if c.Loc == nil {
		return time.Now().UTC()
	}
	return time.Now().In(c.Loc)
}
