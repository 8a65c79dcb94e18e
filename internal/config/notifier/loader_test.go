package notifier_config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "0123456789abcdef")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8081", cfg.Server.HTTPAddr)
	assert.Equal(t, 64, cfg.Stream.QueueSize)
	assert.Equal(t, 50, cfg.Stream.InboxLimit)
	assert.Equal(t, 25*time.Second, cfg.Stream.Heartbeat)
	assert.Equal(t, "studiobell.notifications", cfg.Kafka.Topic)
	assert.NotEmpty(t, cfg.Stream.Instance)
	assert.Equal(t, "studiobell-notifier-"+cfg.Stream.Instance, cfg.Kafka.GroupID)
}

func TestLoad_GroupPerInstance(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "0123456789abcdef")

	t.Setenv("STREAM_INSTANCE", "replica-a")
	a, err := Load("")
	require.NoError(t, err)
	t.Setenv("STREAM_INSTANCE", "replica-b")
	b, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "studiobell-notifier-replica-a", a.Kafka.GroupID)
	assert.NotEqual(t, a.Kafka.GroupID, b.Kafka.GroupID)

	t.Setenv("KAFKA_GROUP_ID", "pinned")
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "pinned", c.Kafka.GroupID)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notifier.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  timezone: Europe/Berlin
stream:
  queue_size: 8
  heartbeat: 5s
auth:
  jwt_secret: from-file-0123456789
`), 0o600))
	t.Setenv("STREAM_QUEUE_SIZE", "16")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Stream.QueueSize)
	assert.Equal(t, 5*time.Second, cfg.Stream.Heartbeat)
	assert.Equal(t, "from-file-0123456789", cfg.Auth.JWTSecret)
	loc, err := cfg.App.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())
}

func TestLoad_RequiresSecret(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "short")
	_, err := Load("")
	require.Error(t, err)
}
