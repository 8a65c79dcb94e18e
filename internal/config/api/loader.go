package api_config

import (
	"github.com/NordCoder/Studiobell/internal/config/common"
)

func Load(path string) (*Config, error) {
	v := common.NewViper(path, "api")
	common.SetServerDefaults(v, ":8080", ":8083")

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
	if _, err := cfg.App.Location(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
