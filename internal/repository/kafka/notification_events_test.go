package kafka

import (
	"testing"
	"time"

	"github.com/NordCoder/Studiobell/internal/domain/notification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestNotificationEvent_SurvivesWire(t *testing.T) {
	created := time.Date(2025, 3, 10, 9, 30, 0, 123456789, time.FixedZone("CET", 3600))
	in := &notification.Notification{
		ID: 42, RecipientID: 7, Type: notification.PaymentOverdue, DedupKey: "payment:9",
		Payload:   map[string]any{"message": "A payment is 14 days overdue", "days": 14, "entity": map[string]any{"kind": "payment", "id": 9}},
		CreatedAt: created,
	}
	msg, err := EncodeNotification(in)
	require.NoError(t, err)
	raw, err := proto.Marshal(msg)
	require.NoError(t, err)

	var back structpb.Struct
	require.NoError(t, proto.Unmarshal(raw, &back))
	out, err := DecodeNotification(&back)
	require.NoError(t, err)

	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, in.RecipientID, out.RecipientID)
	assert.Equal(t, in.Type, out.Type)
	assert.Equal(t, in.DedupKey, out.DedupKey)
	assert.True(t, created.Equal(out.CreatedAt))
	assert.Equal(t, "A payment is 14 days overdue", out.Message())
	// numbers come back as float64
	assert.Equal(t, float64(14), out.Payload["days"])
	assert.Equal(t, "payment", out.Payload["entity"].(map[string]any)["kind"])
}

func TestDecodeNotification_Rejects(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]any
	}{
		{"other event", map[string]any{"event": "run.finished", "recipient_id": 1, "type": "job_reminder"}},
		{"no recipient", map[string]any{"event": EventNotificationCreated, "type": "job_reminder"}},
		{"no type", map[string]any{"event": EventNotificationCreated, "recipient_id": 1}},
		{"bad time", map[string]any{"event": EventNotificationCreated, "recipient_id": 1, "type": "job_reminder", "created_at": "yesterday"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := structpb.NewStruct(tt.in)
			require.NoError(t, err)
			_, err = DecodeNotification(s)
			assert.Error(t, err)
		})
	}
	_, err := DecodeNotification(nil)
	assert.Error(t, err)
}

func TestKeyFromInt64(t *testing.T) {
	assert.Equal(t, []byte("7"), KeyFromInt64(7))
}
