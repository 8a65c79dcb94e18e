package notifier_config

import (
	"time"

	"github.com/NordCoder/Studiobell/internal/config/common"
	"github.com/NordCoder/Studiobell/internal/httpx"
	pginfra "github.com/NordCoder/Studiobell/internal/repository/postgres"
	"github.com/NordCoder/Studiobell/internal/services/delivery"
)

type StreamCfg struct {
	delivery.HubConfig `mapstructure:",squash"`
	Heartbeat          time.Duration `mapstructure:"heartbeat"`
	// Instance names this replica. Every replica needs the whole change
	// stream for the clients connected to it, so each one consumes in its
	// own group, studiobell-notifier-<instance>, unless kafka.group_id is set.
	Instance string `mapstructure:"instance"`
}

type Config struct {
	App    common.App      `mapstructure:"app"`
	Server httpx.ServerCfg `mapstructure:"server"`
	DB     pginfra.Config  `mapstructure:"db"`
	Kafka  common.KafkaCfg `mapstructure:"kafka"`
	Stream StreamCfg       `mapstructure:"stream"`
	Auth   common.Auth     `mapstructure:"auth"`
	OTEL   common.OTEL     `mapstructure:"otel"`
	Log    common.Log      `mapstructure:"log"`
}
