package sweeps

import "time"

type PlannerConfig struct {
	Backoff1 time.Duration // default: 5 minutes
	Backoff2 time.Duration // default: 15 minutes
	Backoff3 time.Duration // default: 30 minutes

	HoldDelay      time.Duration // default: 15 minutes
	ExhaustedDelay time.Duration // default: 24 hours
}

func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{
		Backoff1: 5 * time.Minute,
		Backoff2: 15 * time.Minute,
		Backoff3: 30 * time.Minute,

		HoldDelay:      15 * time.Minute,
		ExhaustedDelay: 24 * time.Hour,
	}
}

// Planner решает, когда сообщение снова станет видно свипу.
type Planner struct {
	cfg PlannerConfig
}

func NewPlanner(cfg PlannerConfig) *Planner {
	def := DefaultPlannerConfig()
	if cfg.Backoff1 <= 0 {
		cfg.Backoff1 = def.Backoff1
	}
	if cfg.Backoff2 <= 0 {
		cfg.Backoff2 = def.Backoff2
	}
	if cfg.Backoff3 <= 0 {
		cfg.Backoff3 = def.Backoff3
	}
	if cfg.HoldDelay <= 0 {
		cfg.HoldDelay = def.HoldDelay
	}
	if cfg.ExhaustedDelay <= 0 {
		cfg.ExhaustedDelay = def.ExhaustedDelay
	}
	return &Planner{cfg: cfg}
}

func DefaultPlanner() *Planner {
	return NewPlanner(DefaultPlannerConfig())
}

// BackoffDelay — пауза перед следующей попыткой после очередного отказа.
func (p *Planner) BackoffDelay(retryCount int32) time.Duration {
	switch {
	case retryCount <= 1:
		return p.cfg.Backoff1
	case retryCount == 2:
		return p.cfg.Backoff2
	default:
		return p.cfg.Backoff3
	}
}

// HoldDelay — пауза для pending-сообщений, не прошедших окно маршрутизации.
func (p *Planner) HoldDelay() time.Duration {
	return p.cfg.HoldDelay
}

// ExhaustedDelay — пауза для терминально упавших сообщений: они остаются
// видимыми в отчётах, но свип их больше не дёргает каждую итерацию.
func (p *Planner) ExhaustedDelay() time.Duration {
	return p.cfg.ExhaustedDelay
}
