package scheduler_config

import (
	"time"

	"github.com/NordCoder/Studiobell/internal/config/common"
	"github.com/NordCoder/Studiobell/internal/outbox"
	pginfra "github.com/NordCoder/Studiobell/internal/repository/postgres"
	redisx "github.com/NordCoder/Studiobell/internal/repository/redis"
)

type SchedCfg struct {
	Tick               time.Duration `mapstructure:"tick"`
	RunTimeout         time.Duration `mapstructure:"run_timeout"`
	PaymentCadenceDays int           `mapstructure:"payment_cadence_days"`
	Recipients         []int64       `mapstructure:"recipients"`
	MetricsAddr        string        `mapstructure:"metrics_addr"`
}

type InboxCfg struct {
	Retention time.Duration `mapstructure:"retention"`
}

type Config struct {
	App    common.App      `mapstructure:"app"`
	DB     pginfra.Config  `mapstructure:"db"`
	Kafka  common.KafkaCfg `mapstructure:"kafka"`
	Redis  redisx.Config   `mapstructure:"redis"`
	Sched  SchedCfg        `mapstructure:"sched"`
	Outbox outbox.Config   `mapstructure:"outbox"`
	Inbox  InboxCfg        `mapstructure:"inbox"`
	OTEL   common.OTEL     `mapstructure:"otel"`
	Log    common.Log      `mapstructure:"log"`
}
