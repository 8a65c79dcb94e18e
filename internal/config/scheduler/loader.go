package scheduler_config

import (
	"github.com/NordCoder/Studiobell/internal/config/common"
)

func Load(path string) (*Config, error) {
	v := common.NewViper(path, "scheduler")

	v.SetDefault("redis.enable", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("sched.tick", "1h")
	v.SetDefault("sched.run_timeout", "10m")
	v.SetDefault("sched.payment_cadence_days", 7)
	v.SetDefault("sched.recipients", []int64{})
	v.SetDefault("sched.metrics_addr", ":8082")

	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("outbox.wait_time", "1s")
	v.SetDefault("outbox.in_progress_ttl", "1m")

	v.SetDefault("inbox.retention", "720h")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := common.ValidateDB(cfg.DB); err != nil {
		return nil, err
	}
	if cfg.Sched.PaymentCadenceDays <= 0 {
		return nil, common.ErrConfig("sched.payment_cadence_days must be positive")
	}
	if _, err := cfg.App.Location(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
