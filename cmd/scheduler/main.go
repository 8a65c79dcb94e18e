package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/NordCoder/Studiobell/internal/config/scheduler"
	"github.com/NordCoder/Studiobell/internal/domain/notification"
	"github.com/NordCoder/Studiobell/internal/obs"
	"github.com/NordCoder/Studiobell/internal/obs/retry"
	"github.com/NordCoder/Studiobell/internal/outbox"
	kafkaRepo "github.com/NordCoder/Studiobell/internal/repository/kafka"
	pg "github.com/NordCoder/Studiobell/internal/repository/postgres"
	redisx "github.com/NordCoder/Studiobell/internal/repository/redis"
	"github.com/NordCoder/Studiobell/internal/services/inbox"
	"github.com/NordCoder/Studiobell/internal/services/scheduler"
	"github.com/NordCoder/Studiobell/internal/services/scheduler/repo"

	"go.uber.org/zap"
)

func main() {
	cfgPath := flag.String("config", "config/scheduler.yaml", "path to config file")
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
	l.Info("starting scheduler",
		zap.Any("kafka_out", cfg.Kafka),
		zap.String("timezone", loc.String()),
		zap.Duration("tick", cfg.Sched.Tick),
		zap.String("metrics_addr", cfg.Sched.MetricsAddr),
	)

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

	// redis fast-path dedup, optional
	var opts []inbox.Option
	if cfg.Redis.Enable {
		rdb, err := redisx.NewClient(ctx, cfg.Redis)
		if err != nil {
			l.Warn("redis unavailable, dedup relies on postgres only", zap.Error(err))
		} else {
			defer func() { _ = rdb.Close() }()
			opts = append(opts, inbox.WithGate(redisx.NewDedupGate(rdb, l), redisx.DedupKey))
			probes = append(probes, obs.Probe{Name: "redis", Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }})
		}
	}
	opts = append(opts, inbox.WithRetention(cfg.Inbox.Retention))

	// kafka
	if err := kafkaRepo.EnsureTopic(ctx, cfg.Kafka.Brokers, cfg.Kafka.TopicSpec(), l); err != nil {
		l.Warn("ensure topic", zap.Error(err))
	}
	kafkaProd := kafkaRepo.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic).WithLogger(l)
	defer func() { _ = kafkaProd.Close() }()
	publisher := kafkaRepo.NewNotificationEventsKafka(kafkaProd)

	// metrics
	ms := obs.BootstrapMetricsServer(cfg.Sched.MetricsAddr, l, probes...)

	// wiring
	clock := notification.SystemClock{Loc: loc}
	entities := pg.NewEntityRepo(db)
	outboxRepo := pg.NewOutboxRepo(db)
	tx := pg.NewTransactor(db, l)
	store := inbox.New(pg.NewNotificationRepo(db), outboxRepo, tx, clock, l, opts...)

	uc := &scheduler.Usecase{
		Tx:                 tx,
		Entities:           entities,
		Invoices:           entities,
		Settings:           pg.NewSettingsRepo(db),
		Store:              store,
		Recipients:         repo.Recipients{Static: cfg.Sched.Recipients, R: entities},
		Clock:              clock,
		Log:                l,
		PaymentCadenceDays: cfg.Sched.PaymentCadenceDays,
	}
	runner := scheduler.New(l, uc, &cfg.Sched)

	dispatch := outbox.MakeGlobalOutboxHandler(publisher, retry.DefaultKafkaPolicy(l))
	ob := outbox.NewOutboxRunner(l, outboxRepo, dispatch, cfg.Outbox)

	// run
	ob.Start(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- runner.Run(ctx) }()

	l.Info("scheduler started")

	// loop
	select {
	case <-ctx.Done():
		l.Info("shutdown signal")
	case err = <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			l.Error("runner error", zap.Error(err))
		}
		stop()
	}

	// graceful shutdown
	ob.Wait()
	obs.Shutdown(ms, 3*time.Second, l)
	l.Info("bye")
}
