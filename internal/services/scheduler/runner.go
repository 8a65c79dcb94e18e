package scheduler

import (
	"context"
	"time"

	config "github.com/NordCoder/Studiobell/internal/config/scheduler"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	mRecipients = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_recipients_total", Help: "Recipients visited by scheduler runs",
	})
	mTransitions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_invoice_transitions_total", Help: "Invoices moved from issued to overdue",
	})
	mCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_notifications_created_total", Help: "Notifications created by the scheduler",
	})
	mDuplicates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_notifications_skipped_total", Help: "Notifications skipped as same-day duplicates",
	})
	mErr = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_errors_total", Help: "Errors in scheduler runs",
	})
	mLoopDur = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "scheduler_loop_duration_seconds", Help: "Scheduler run duration",
		Buckets: prometheus.DefBuckets,
	})
)

type Ticker interface {
	Tick(ctx context.Context) (Stats, error)
}

type Runner struct {
	Log *zap.Logger
	UC  Ticker
	Cfg *config.SchedCfg
}

func New(log *zap.Logger, uc Ticker, cfg *config.SchedCfg) *Runner {
	return &Runner{Log: log.With(zap.String("component", "scheduler.runner")), UC: uc, Cfg: cfg}
}

func (r *Runner) tick(ctx context.Context) {
	start := time.Now()
	defer func() { mLoopDur.Observe(time.Since(start).Seconds()) }()

	if r.Cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Cfg.RunTimeout)
		defer cancel()
	}

	st, err := r.UC.Tick(ctx)
	if err != nil {
		mErr.Inc()
		r.Log.Warn("tick error", zap.Error(err))
	}
	mRecipients.Add(float64(st.Recipients))
	mTransitions.Add(float64(st.Transitions))
	mCreated.Add(float64(st.Created))
	mDuplicates.Add(float64(st.Duplicates))
	mErr.Add(float64(st.Errors))

	r.Log.Info("scheduler run",
		zap.Int("recipients", st.Recipients),
		zap.Int("skipped", st.Skipped),
		zap.Int("transitions", st.Transitions),
		zap.Int("created", st.Created),
		zap.Int("duplicates", st.Duplicates),
		zap.Int("errors", st.Errors),
		zap.Duration("took", time.Since(start)),
	)
}

// Run ticks once immediately and then on every cfg.Tick until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	every := r.Cfg.Tick
	if every <= 0 {
		every = time.Hour
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	r.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}
