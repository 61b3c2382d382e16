package main

import (
	"context"
	"fmt"
	"time"

	"github.com/BearBump/ComplianceBox/config"
	"github.com/BearBump/ComplianceBox/internal/broker/kafka"
	"github.com/BearBump/ComplianceBox/internal/cache/rediscache"
	"github.com/BearBump/ComplianceBox/internal/integrations/edigateway"
	"github.com/BearBump/ComplianceBox/internal/integrations/edigateway/fake"
	"github.com/BearBump/ComplianceBox/internal/integrations/edigateway/vanhttp"
	"github.com/BearBump/ComplianceBox/internal/ratetable"
	"github.com/BearBump/ComplianceBox/internal/services/sweeps"
	"github.com/BearBump/ComplianceBox/internal/storage/pgcompliance"
)

// workerRepository — всё, что нужно четырём свипам от хранилища.
type workerRepository interface {
	sweeps.DeliveryRepo
	sweeps.ClearanceRepo
	sweeps.FTZRepo
	sweeps.FilingsRepo
}

type workerFactories struct {
	newStorage       func(cfg *config.Config) (repo workerRepository, closeFn func(), err error)
	newProducer      func(cfg *config.Config) sweeps.Producer
	newRateLimiter   func(cfg *config.Config) sweeps.RateLimiter
	newGatewayClient func(cfg *config.Config) edigateway.Client
}

func defaultWorkerFactories() workerFactories {
	return workerFactories{
		newStorage: func(cfg *config.Config) (workerRepository, func(), error) {
			sslMode := cfg.Database.SSLMode
			if sslMode == "" {
				sslMode = "disable"
			}
			connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
				cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
			st, err := pgcompliance.New(connString)
			if err != nil {
				return nil, nil, err
			}
			return st, st.Close, nil
		},
		newProducer: func(cfg *config.Config) sweeps.Producer {
			brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
			return kafka.NewProducer(brokers)
		},
		newRateLimiter: func(cfg *config.Config) sweeps.RateLimiter {
			redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
			return rediscache.NewRateLimiter(redisAddr)
		},
		newGatewayClient: func(cfg *config.Config) edigateway.Client {
			// VAN-шлюз, если задан base_url; иначе локальный fake для демо.
			if cfg.ComplianceBox.EDIGatewayBaseURL != "" && cfg.ComplianceBox.EDIGatewayMode == "van" {
				return vanhttp.New(cfg.ComplianceBox.EDIGatewayBaseURL, cfg.ComplianceBox.EDIGatewayAPIKey)
			}
			return fake.New()
		},
	}
}

func sweepInterval(seconds int, def time.Duration) time.Duration {
	if seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return def
}

func buildRunners(cfg *config.Config, repo workerRepository, producer sweeps.Producer, rl sweeps.RateLimiter, gw edigateway.Client) map[string]*sweeps.Runner {
	cb := cfg.ComplianceBox

	alertsTopic := cfg.Kafka.AlertsTopicName
	if alertsTopic == "" {
		alertsTopic = "compliance.alerts"
	}
	sweepsTopic := cfg.Kafka.SweepsTopicName
	if sweepsTopic == "" {
		sweepsTopic = "compliance.sweeps"
	}

	batchSize := cb.WorkerBatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	lease := time.Duration(cb.WorkerLeaseSeconds) * time.Second
	if lease <= 0 {
		lease = 120 * time.Second
	}
	rlPerMin := int64(cb.WorkerRateLimitPerMinute)
	if rlPerMin <= 0 {
		rlPerMin = 120
	}

	deliveryJob := sweeps.NewDeliverySweep(repo, gw, rl, rlPerMin).
		WithSettings(batchSize, lease, sweeps.PlannerConfig{
			Backoff1:       time.Duration(cb.WorkerBackoff1Seconds) * time.Second,
			Backoff2:       time.Duration(cb.WorkerBackoff2Seconds) * time.Second,
			Backoff3:       time.Duration(cb.WorkerBackoff3Seconds) * time.Second,
			HoldDelay:      time.Duration(cb.WorkerHoldSeconds) * time.Second,
			ExhaustedDelay: time.Duration(cb.WorkerExhaustedSeconds) * time.Second,
		})

	jobs := []struct {
		job      sweeps.Job
		interval time.Duration
	}{
		{deliveryJob, sweepInterval(cb.WorkerDeliveryIntervalSeconds, 30*time.Second)},
		{sweeps.NewClearanceSweep(repo, ratetable.New()), sweepInterval(cb.WorkerClearanceIntervalSeconds, time.Minute)},
		{sweeps.NewFTZSweep(repo), sweepInterval(cb.WorkerFTZIntervalSeconds, 5*time.Minute)},
		{sweeps.NewFilingsSweep(repo), sweepInterval(cb.WorkerFilingsIntervalSeconds, time.Minute)},
	}

	runners := make(map[string]*sweeps.Runner, len(jobs))
	for _, j := range jobs {
		runners[j.job.Engine()] = sweeps.NewRunner(j.job, producer, alertsTopic, sweepsTopic).WithInterval(j.interval)
	}
	return runners
}

func RunComplianceWorker(ctx context.Context, cfg *config.Config, f workerFactories, httpOpts workerHTTPOpts) error {
	repo, closeFn, err := f.newStorage(cfg)
	if err != nil {
		return err
	}
	if closeFn != nil {
		defer closeFn()
	}

	producer := f.newProducer(cfg)
	rl := f.newRateLimiter(cfg)
	gw := f.newGatewayClient(cfg)

	runners := buildRunners(cfg, repo, producer, rl, gw)

	runErr := make(chan error, len(runners)+1)
	for _, r := range runners {
		r := r
		go func() { runErr <- r.Run(ctx) }()
	}

	httpOpts.runners = runners
	httpOpts.cfg = cfg
	go func() { runErr <- runWorkerHTTPServer(ctx, httpOpts) }()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-runErr:
		return err
	}
}
