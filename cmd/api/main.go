package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/NordCoder/Studiobell/internal/config/api"
	"github.com/NordCoder/Studiobell/internal/domain/notification"
	"github.com/NordCoder/Studiobell/internal/httpx"
	"github.com/NordCoder/Studiobell/internal/obs"
	pg "github.com/NordCoder/Studiobell/internal/repository/postgres"
	"github.com/NordCoder/Studiobell/internal/services/api"
	"github.com/NordCoder/Studiobell/internal/services/inbox"
	"github.com/gin-gonic/gin"

	"go.uber.org/zap"
)

func main() {
	cfgPath := flag.String("config", "config/api.yaml", "path to config file")
	flag.Parse()

	// init
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}
	loc, _ := cfg.App.Location()

	// logger
	l, err := obs.NewLogger(cfg.Log.AsLoggerConfig(cfg.App))
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = l.Sync() }()
	l.Info("starting api", zap.String("http_addr", cfg.Server.HTTPAddr), zap.String("timezone", loc.String()))

	// otel
	otelCloser, err := obs.SetupOTel(ctx, cfg.OTEL.AsOTELConfig(cfg.App))
	if err != nil {
		l.Warn("otel init", zap.Error(err))
	}
	defer func() { _ = otelCloser.Shutdown(context.Background()) }()

	// db
	db, err := pg.NewDB(ctx, cfg.DB)
	if err != nil {
		l.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	probes := []obs.Probe{{Name: "postgres", Check: db.Ping}}

	// metrics
	ms := obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, l, probes...)

	// wiring
	clock := notification.SystemClock{Loc: loc}
	store := inbox.New(pg.NewNotificationRepo(db), pg.NewOutboxRepo(db), pg.NewTransactor(db, l), clock, l)
	uc := &api.Usecase{
		Entities: pg.NewEntityRepo(db),
		Store:    store,
		Settings: pg.NewSettingsRepo(db),
		Clock:    clock,
	}

	r := httpx.NewEngine(l)
	r.GET("/healthz", gin.WrapH(obs.HealthHandler(probes...)))
	api.NewServer(l, uc).Register(r.Group("/", httpx.Auth([]byte(cfg.Auth.JWTSecret))))
	srv := httpx.NewServer(cfg.Server, r, "api")

	errCh := make(chan error, 1)
	go func() {
		l.Info("http listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		l.Info("shutdown signal")
	case err := <-errCh:
		l.Error("http server error", zap.Error(err))
	}

	// graceful shutdown
	obs.Shutdown(srv, cfg.Server.GracefulTimeout, l)
	obs.Shutdown(ms, 3*time.Second, l)
	l.Info("bye")
}
