package common

import (
	"github.com/NordCoder/Studiobell/internal/httpx"
	"github.com/spf13/viper"
)

type Auth struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// SetServerDefaults covers the http server and auth sections of the HTTP binaries.
func SetServerDefaults(v *viper.Viper, httpAddr, metricsAddr string) {
	v.SetDefault("server.http_addr", httpAddr)
	v.SetDefault("server.metrics_addr", metricsAddr)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "0s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.graceful_timeout", "10s")
	v.SetDefault("auth.jwt_secret", "")
}

func ValidateServer(s httpx.ServerCfg, a Auth) error {
	if s.HTTPAddr == "" {
		return ErrConfig("server.http_addr is empty")
	}
	if len(a.JWTSecret) < 16 {
		return ErrConfig("auth.jwt_secret must be at least 16 bytes")
	}
	return nil
}
