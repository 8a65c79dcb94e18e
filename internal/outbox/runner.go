package outbox

import (
	"context"
	"sync"
	"time"

	"github.com/NordCoder/Studiobell/internal/domain/outbox"
	"github.com/NordCoder/Studiobell/internal/obs"
	"github.com/NordCoder/Studiobell/internal/obs/retry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Config has no worker count: one picker per process keeps each recipient's
// messages in creation order.
type Config struct {
	BatchSize     int           `mapstructure:"batch_size"`
	WaitTime      time.Duration `mapstructure:"wait_time"`
	InProgressTTL time.Duration `mapstructure:"in_progress_ttl"`
}

var (
	mPicked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outbox_picked_total", Help: "Messages picked into processing.",
	})
	mOk = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outbox_processed_ok_total", Help: "Messages processed successfully.",
	})
	mErr = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outbox_processed_err_total", Help: "Handler errors.",
	})
	mTickDur = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "outbox_tick_duration_seconds", Help: "Tick duration.",
		Buckets: prometheus.DefBuckets,
	})
	mBatchSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "outbox_last_batch_size", Help: "Size of last picked batch.",
	})
)

type Runner struct {
	log      *zap.Logger
	repo     outbox.Repository
	dispatch outbox.GlobalHandler

	batchSize     int
	waitTime      time.Duration
	inProgressTTL time.Duration

	wg sync.WaitGroup
}

func NewOutboxRunner(log *zap.Logger, repo outbox.Repository, dispatch outbox.GlobalHandler, cfg Config) *Runner {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.WaitTime <= 0 {
		cfg.WaitTime = time.Second
	}
	if cfg.InProgressTTL <= 0 {
		cfg.InProgressTTL = time.Minute
	}
	return &Runner{
		log: log.With(zap.String("component", "outbox.runner")), repo: repo, dispatch: dispatch,
		batchSize: cfg.BatchSize, waitTime: cfg.WaitTime, inProgressTTL: cfg.InProgressTTL,
	}
}

// Start launches the picker; it stops when ctx is cancelled. Wait blocks until it has.
func (r *Runner) Start(ctx context.Context) {
	r.wg.Add(1)
	go r.worker(ctx)
}

func (r *Runner) Wait() { r.wg.Wait() }

func (r *Runner) worker(ctx context.Context) {
	defer r.wg.Done()
	r.log.Info("outbox worker started", zap.Duration("wait", r.waitTime))

	ticker := time.NewTicker(r.waitTime)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("outbox worker stop")
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

// tick picks one batch and publishes it in creation order. A transient failure
// stops the batch: the failed message and everything after it go back to
// CREATED, so the next tick resends them before anything newer. Messages that
// can never succeed (unknown kind, permanent error) stay IN_PROGRESS and are
// looked at again once inProgressTTL elapses.
func (r *Runner) tick(ctx context.Context) {
	t0 := time.Now()
	defer func() { mTickDur.Observe(time.Since(t0).Seconds()) }()

	tr := otel.Tracer("outbox.runner")
	prop := otel.GetTextMapPropagator()

	ctxSpan, span := tr.Start(ctx, "outbox.tick")
	defer span.End()
	span.SetAttributes(
		attribute.Int("batch.limit", r.batchSize),
		attribute.String("in_progress_ttl", r.inProgressTTL.String()),
	)

	messages, err := r.repo.PickBatch(ctxSpan, r.batchSize, r.inProgressTTL)
	if err != nil {
		span.RecordError(err)
		mErr.Inc()
		obs.WithTrace(ctxSpan, r.log).Error("outbox pick error", zap.Error(err))
		return
	}
	mPicked.Add(float64(len(messages)))
	mBatchSize.Set(float64(len(messages)))

	okKeys := make([]string, 0, len(messages))
	var retryKeys []string
	for i, m := range messages {
		parent := prop.Extract(ctx, propagation.MapCarrier(m.TraceCarrier()))
		msgCtx, msgSpan := tr.Start(parent, "outbox.dispatch",
			trace.WithAttributes(
				attribute.String("outbox.key", m.IdempotencyKey),
				attribute.String("outbox.kind", string(m.Kind)),
			),
		)
		log := obs.WithTrace(msgCtx, r.log).With(zap.String("kind", string(m.Kind)), zap.String("key", m.IdempotencyKey))

		handler, herr := r.dispatch(m.Kind)
		if herr != nil {
			msgSpan.RecordError(herr)
			msgSpan.End()
			mErr.Inc()
			log.Error("no handler for kind", zap.Error(herr))
			continue
		}

		err := handler(msgCtx, m.Data)
		if err != nil {
			msgSpan.RecordError(err)
		}
		msgSpan.End()
		if err == nil {
			okKeys = append(okKeys, m.IdempotencyKey)
			mOk.Inc()
			continue
		}
		mErr.Inc()
		if retry.IsPermanent(err) {
			log.Error("message parked", zap.Error(err))
			continue
		}
		log.Warn("publish failed; batch stopped", zap.Int("held_back", len(messages)-i), zap.Error(err))
		for _, rest := range messages[i:] {
			retryKeys = append(retryKeys, rest.IdempotencyKey)
		}
		break
	}

	if err := r.repo.MarkSuccess(ctxSpan, okKeys); err != nil {
		span.RecordError(err)
		mErr.Inc()
		obs.WithTrace(ctxSpan, r.log).Error("mark success error", zap.Error(err))
	}
	if len(retryKeys) == 0 {
		return
	}
	if err := r.repo.Release(context.WithoutCancel(ctxSpan), retryKeys); err != nil {
		span.RecordError(err)
		mErr.Inc()
		obs.WithTrace(ctxSpan, r.log).Error("release error", zap.Error(err))
	}
}
