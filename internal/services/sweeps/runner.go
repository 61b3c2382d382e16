package sweeps

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BearBump/ComplianceBox/internal/broker/messages"
	"github.com/pkg/errors"
)

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

// Outcome — итог одного прохода движка.
type Outcome struct {
	Processed int
	Changed   int
	Alerts    []messages.ComplianceAlert
}

// Job — один автоматический проход. Движки чистые, всю обвязку
// (расписание, статистику, публикацию) несёт Runner.
type Job interface {
	Engine() string
	RunOnce(ctx context.Context, now time.Time) (Outcome, error)
}

type Runner struct {
	job      Job
	producer Producer

	alertsTopic string
	sweepsTopic string

	interval time.Duration

	triggerCh chan struct{}

	startedAtUnixNano   int64
	lastCycleUnixNano   atomic.Int64
	lastTriggerUnixNano atomic.Int64
	totalProcessed      atomic.Int64
	totalChanged        atomic.Int64
	totalAlerts         atomic.Int64
	totalErrors         atomic.Int64
	lastErrorMu         sync.Mutex
	lastError           string
}

func NewRunner(job Job, producer Producer, alertsTopic, sweepsTopic string) *Runner {
	return &Runner{
		job:         job,
		producer:    producer,
		alertsTopic: alertsTopic,
		sweepsTopic: sweepsTopic,
		interval:    30 * time.Second,
		triggerCh:   make(chan struct{}, 1),

		startedAtUnixNano: time.Now().UTC().UnixNano(),
	}
}

func (r *Runner) WithInterval(interval time.Duration) *Runner {
	if interval > 0 {
		r.interval = interval
	}
	return r
}

// Trigger forces an immediate sweep cycle (best-effort, non-blocking).
func (r *Runner) Trigger() {
	r.lastTriggerUnixNano.Store(time.Now().UTC().UnixNano())
	select {
	case r.triggerCh <- struct{}{}:
	default:
	}
}

type Stats struct {
	Engine         string     `json:"engine"`
	StartedAt      time.Time  `json:"startedAt"`
	LastCycleAt    *time.Time `json:"lastCycleAt,omitempty"`
	LastTriggerAt  *time.Time `json:"lastTriggerAt,omitempty"`
	TotalProcessed int64      `json:"totalProcessed"`
	TotalChanged   int64      `json:"totalChanged"`
	TotalAlerts    int64      `json:"totalAlerts"`
	TotalErrors    int64      `json:"totalErrors"`
	LastError      string     `json:"lastError,omitempty"`
}

func (r *Runner) Stats() Stats {
	st := Stats{
		Engine:         r.job.Engine(),
		StartedAt:      time.Unix(0, r.startedAtUnixNano).UTC(),
		TotalProcessed: r.totalProcessed.Load(),
		TotalChanged:   r.totalChanged.Load(),
		TotalAlerts:    r.totalAlerts.Load(),
		TotalErrors:    r.totalErrors.Load(),
	}
	if n := r.lastCycleUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastCycleAt = &t
	}
	if n := r.lastTriggerUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastTriggerAt = &t
	}
	r.lastErrorMu.Lock()
	st.LastError = r.lastError
	r.lastErrorMu.Unlock()
	return st
}

func (r *Runner) Run(ctx context.Context) error {
	t := time.NewTicker(r.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			r.runOnce(ctx)
		case <-r.triggerCh:
			r.runOnce(ctx)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) {
	now := time.Now().UTC()
	r.lastCycleUnixNano.Store(now.UnixNano())

	out, err := r.job.RunOnce(ctx, now)
	if err != nil {
		r.totalErrors.Add(1)
		r.lastErrorMu.Lock()
		r.lastError = err.Error()
		r.lastErrorMu.Unlock()
		slog.Error("sweep cycle", "engine", r.job.Engine(), "error", err.Error())
	}
	r.totalProcessed.Add(int64(out.Processed))
	r.totalChanged.Add(int64(out.Changed))
	r.totalAlerts.Add(int64(len(out.Alerts)))

	for _, a := range out.Alerts {
		if pubErr := r.publish(ctx, r.alertsTopic, []byte(a.EventID), a); pubErr != nil {
			slog.Error("publish alert", "engine", r.job.Engine(), "error", pubErr.Error())
		}
	}

	done := messages.SweepCompleted{
		Engine:    r.job.Engine(),
		SweptAt:   now,
		Processed: out.Processed,
		Changed:   out.Changed,
		Alerts:    len(out.Alerts),
	}
	if err != nil {
		e := err.Error()
		done.Error = &e
	}
	if pubErr := r.publish(ctx, r.sweepsTopic, []byte(r.job.Engine()), done); pubErr != nil {
		slog.Error("publish sweep result", "engine", r.job.Engine(), "error", pubErr.Error())
	}
}

func (r *Runner) publish(ctx context.Context, topic string, key []byte, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "marshal kafka msg")
	}

	// Kafka может быть не готова сразу после старта docker compose.
	// Для демо/устойчивости делаем небольшой retry.
	var pubErr error
	for i := 0; i < 10; i++ {
		if pubErr = r.producer.Publish(ctx, topic, key, b); pubErr == nil {
			return nil
		}
		time.Sleep(time.Duration(150*(i+1)) * time.Millisecond)
	}
	return pubErr
}
