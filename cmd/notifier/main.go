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

	config "github.com/NordCoder/Studiobell/internal/config/notifier"
	"github.com/NordCoder/Studiobell/internal/domain/notification"
	"github.com/NordCoder/Studiobell/internal/httpx"
	"github.com/NordCoder/Studiobell/internal/obs"
	"github.com/NordCoder/Studiobell/internal/repository/kafka"
	pg "github.com/NordCoder/Studiobell/internal/repository/postgres"
	"github.com/NordCoder/Studiobell/internal/services/delivery"
	"github.com/NordCoder/Studiobell/internal/services/inbox"
	"github.com/gin-gonic/gin"

	"go.uber.org/zap"
)

func main() {
	cfgPath := flag.String("config", "config/notifier.yaml", "path to config file")
	flag.Parse()

	// init
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
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
	l.Info("starting notifier",
		zap.Any("kafka_in", cfg.Kafka),
		zap.String("http_addr", cfg.Server.HTTPAddr),
		zap.String("metrics_addr", cfg.Server.MetricsAddr),
	)

	// otel
	otelCloser, err := obs.SetupOTel(rootCtx, cfg.OTEL.AsOTELConfig(cfg.App))
	if err != nil {
		l.Warn("otel init", zap.Error(err))
	}
	defer func() { _ = otelCloser.Shutdown(context.Background()) }()

	// db
	db, err := pg.NewDB(rootCtx, cfg.DB)
	if err != nil {
		l.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	probes := []obs.Probe{{Name: "postgres", Check: db.Ping}}

	// metrics
	ms := obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, l, probes...)

	// kafka
	cons, err := kafka.BootstrapConsumer(rootCtx, cfg.Kafka.AsConsumerConfig(), l)
	if err != nil {
		l.Fatal("kafka consumer", zap.Error(err))
	}
	defer func() { _ = cons.Close() }()

	// wiring
	store := inbox.New(pg.NewNotificationRepo(db), pg.NewOutboxRepo(db), pg.NewTransactor(db, l), notification.SystemClock{Loc: loc}, l)
	hub := delivery.NewHub(store, cfg.Stream.HubConfig, l)
	defer hub.Close()
	ctrl := &delivery.Controller{Log: obs.Component(l, "delivery.controller"), Sub: cons, Hub: hub}

	r := httpx.NewEngine(l)
	r.GET("/healthz", gin.WrapH(obs.HealthHandler(probes...)))
	authed := r.Group("/", httpx.Auth([]byte(cfg.Auth.JWTSecret)))
	(&delivery.Handlers{
		Log:       obs.Component(l, "delivery.http"),
		Hub:       hub,
		Settings:  pg.NewSettingsRepo(db),
		Heartbeat: cfg.Stream.Heartbeat,
	}).Register(authed)
	srv := httpx.NewServer(cfg.Server, r, "notifier")

	// start
	errCh := make(chan error, 2)
	go func() {
		l.Info("controller starting")
		errCh <- ctrl.Run(rootCtx)
	}()
	go func() {
		l.Info("http listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// main loop
	select {
	case <-rootCtx.Done():
		l.Info("shutdown signal")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			l.Error("notifier error", zap.Error(err))
		}
		stop()
	}

	// graceful shutdown; open streams end with their request contexts
	hub.Close()
	obs.Shutdown(srv, cfg.Server.GracefulTimeout, l)
	obs.Shutdown(ms, 3*time.Second, l)
	l.Info("bye")
}
