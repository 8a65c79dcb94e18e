package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NordCoder/Studiobell/internal/domain/kafka"
	"github.com/NordCoder/Studiobell/internal/domain/notification"
	"google.golang.org/protobuf/types/known/structpb"
)

// EventNotificationCreated is the event name carried in every change-stream message.
const EventNotificationCreated = "notification.created"

type NotificationEventsKafka struct {
	p *Producer
}

func NewNotificationEventsKafka(p *Producer) *NotificationEventsKafka {
	return &NotificationEventsKafka{p: p}
}

var _ kafka.NotificationEvents = (*NotificationEventsKafka)(nil)

// PublishNotificationCreated keys the message by recipient so that a single
// recipient's events stay on one partition, in order.
func (e *NotificationEventsKafka) PublishNotificationCreated(ctx context.Context, n *notification.Notification) error {
	msg, err := EncodeNotification(n)
	if err != nil {
		return err
	}
	return e.p.PublishProto(ctx, EventNotificationCreated, KeyFromInt64(n.RecipientID), msg)
}

func EncodeNotification(n *notification.Notification) (*structpb.Struct, error) {
	if n == nil {
		return nil, errors.New("nil notification")
	}
	payload := n.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	s, err := structpb.NewStruct(map[string]any{
		"event":        EventNotificationCreated,
		"id":           n.ID,
		"recipient_id": n.RecipientID,
		"type":         string(n.Type),
		"payload":      payload,
		"read":         n.Read,
		"created_at":   n.CreatedAt.UTC().Format(time.RFC3339Nano),
		"dedup_key":    n.DedupKey,
	})
	if err != nil {
		return nil, fmt.Errorf("encode notification: %w", err)
	}
	return s, nil
}

// DecodeNotification is the inverse of EncodeNotification. Numbers travel as
// float64 inside a Struct; ids stay well below 2^53.
func DecodeNotification(s *structpb.Struct) (*notification.Notification, error) {
	if s == nil {
		return nil, errors.New("nil event")
	}
	m := s.AsMap()
	if ev, _ := m["event"].(string); ev != EventNotificationCreated {
		return nil, fmt.Errorf("unexpected event %q", ev)
	}

	id, _ := m["id"].(float64)
	recipient, _ := m["recipient_id"].(float64)
	typ, _ := m["type"].(string)
	if recipient <= 0 || typ == "" {
		return nil, errors.New("event without recipient or type")
	}

	n := &notification.Notification{
		ID:          int64(id),
		RecipientID: int64(recipient),
		Type:        notification.Category(typ),
	}
	n.Payload, _ = m["payload"].(map[string]any)
	n.Read, _ = m["read"].(bool)
	n.DedupKey, _ = m["dedup_key"].(string)
	if ts, ok := m["created_at"].(string); ok && ts != "" {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("created_at: %w", err)
		}
		n.CreatedAt = t
	}
	return n, nil
}
