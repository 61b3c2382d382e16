package sweeps

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/BearBump/ComplianceBox/internal/broker/messages"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type recordingProducer struct {
	mu     sync.Mutex
	topics []string
	values [][]byte
}

func (p *recordingProducer) Publish(ctx context.Context, topic string, key, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.values = append(p.values, value)
	return nil
}

func (p *recordingProducer) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string{}, p.topics...)
}

type fakeJob struct {
	mu    sync.Mutex
	calls int
	out   Outcome
	err   error
}

func (j *fakeJob) Engine() string { return "delivery" }

func (j *fakeJob) RunOnce(ctx context.Context, now time.Time) (Outcome, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls++
	return j.out, j.err
}

func (j *fakeJob) callCount() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.calls
}

func TestRunner_Run_StopsOnContextCancel(t *testing.T) {
	job := &fakeJob{}
	r := NewRunner(job, &recordingProducer{}, "alerts", "sweeps").WithInterval(5 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(25 * time.Millisecond)
		cancel()
	}()

	err := r.Run(ctx)
	require.Error(t, err)
	require.GreaterOrEqual(t, job.callCount(), 1)
}

func TestRunner_Trigger_ForcesCycle(t *testing.T) {
	job := &fakeJob{out: Outcome{
		Processed: 3,
		Changed:   1,
		Alerts: []messages.ComplianceAlert{
			newAlert("delivery", "high", "message", 7, "overdue", "stuck", time.Now().UTC()),
		},
	}}
	prod := &recordingProducer{}
	r := NewRunner(job, prod, "alerts", "sweeps").WithInterval(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	r.Trigger()
	require.Eventually(t, func() bool { return job.callCount() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	st := r.Stats()
	require.Equal(t, "delivery", st.Engine)
	require.Equal(t, int64(3), st.TotalProcessed)
	require.Equal(t, int64(1), st.TotalChanged)
	require.Equal(t, int64(1), st.TotalAlerts)
	require.Zero(t, st.TotalErrors)
	require.NotNil(t, st.LastTriggerAt)

	// Алерт уходит в свой топик, итог прохода — в свой.
	require.Equal(t, []string{"alerts", "sweeps"}, prod.published())
}

func TestRunner_RecordsJobError(t *testing.T) {
	job := &fakeJob{err: errors.New("gateway down")}
	prod := &recordingProducer{}
	r := NewRunner(job, prod, "alerts", "sweeps").WithInterval(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	r.Trigger()
	require.Eventually(t, func() bool { return job.callCount() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	st := r.Stats()
	require.Equal(t, int64(1), st.TotalErrors)
	require.Equal(t, "gateway down", st.LastError)
	// Итог прохода публикуется и при ошибке.
	require.Equal(t, []string{"sweeps"}, prod.published())
}
