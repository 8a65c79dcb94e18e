package api_config

import (
	"github.com/NordCoder/Studiobell/internal/config/common"
	"github.com/NordCoder/Studiobell/internal/httpx"
	pginfra "github.com/NordCoder/Studiobell/internal/repository/postgres"
)

type Config struct {
	App    common.App      `mapstructure:"app"`
	Server httpx.ServerCfg `mapstructure:"server"`
	DB     pginfra.Config  `mapstructure:"db"`
	Auth   common.Auth     `mapstructure:"auth"`
	OTEL   common.OTEL     `mapstructure:"otel"`
	Log    common.Log      `mapstructure:"log"`
}
