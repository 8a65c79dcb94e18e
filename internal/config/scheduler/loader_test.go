package scheduler_config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, cfg.Sched.Tick)
	assert.Equal(t, 10*time.Minute, cfg.Sched.RunTimeout)
	assert.Equal(t, 7, cfg.Sched.PaymentCadenceDays)
	assert.Equal(t, 720*time.Hour, cfg.Inbox.Retention)
	assert.Equal(t, 100, cfg.Outbox.BatchSize)
	assert.False(t, cfg.Redis.Enable)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"cadence", "SCHED_PAYMENT_CADENCE_DAYS", "0"},
		{"timezone", "APP_TIMEZONE", "Mars/Olympus"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load("")
			require.Error(t, err)
		})
	}
}
