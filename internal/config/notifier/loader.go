package notifier_config

import (
	"os"

	"github.com/NordCoder/Studiobell/internal/config/common"
	"github.com/google/uuid"
)

func defaultInstance() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return uuid.NewString()
}

func Load(path string) (*Config, error) {
	v := common.NewViper(path, "notifier")
	common.SetServerDefaults(v, ":8081", ":8084")

	v.SetDefault("stream.queue_size", 64)
	v.SetDefault("stream.inbox_limit", 50)
	v.SetDefault("stream.heartbeat", "25s")
	v.SetDefault("stream.instance", defaultInstance())
	v.SetDefault("kafka.group_id", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := common.ValidateDB(cfg.DB); err != nil {
		return nil, err
	}
	if err := common.ValidateServer(cfg.Server, cfg.Auth); err != nil {
		return nil, err
	}
	if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.Topic == "" {
		return nil, common.ErrConfig("kafka.brokers and kafka.topic are required")
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "studiobell-notifier-" + cfg.Stream.Instance
	}
	if cfg.Stream.QueueSize <= 0 {
		return nil, common.ErrConfig("stream.queue_size must be positive")
	}
	return &cfg, nil
}
