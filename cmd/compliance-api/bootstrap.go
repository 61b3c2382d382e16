package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BearBump/ComplianceBox/config"
	"github.com/BearBump/ComplianceBox/internal/broker/kafka"
	"github.com/BearBump/ComplianceBox/internal/cache/rediscache"
	"github.com/BearBump/ComplianceBox/internal/ratetable"
	"github.com/BearBump/ComplianceBox/internal/services/compliance"
	"github.com/BearBump/ComplianceBox/internal/storage/pgcompliance"
)

type complianceAPIApp struct {
	ctx      context.Context
	cancel   context.CancelFunc
	opts     complianceAPIOpts
	svc      *compliance.Service
	consumer *kafka.Consumer
	closeDB  func()
}

func mustBootstrapComplianceAPI() *complianceAPIApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}

	httpAddr := cfg.ComplianceBox.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	consumerGroup := cfg.Kafka.AlertsConsumerGroup
	if consumerGroup == "" {
		consumerGroup = "compliance-api"
	}
	topic := cfg.Kafka.AlertsTopicName
	if topic == "" {
		topic = "compliance.alerts"
	}

	reportTTL := time.Duration(cfg.ComplianceBox.ReportTTLSeconds) * time.Second
	if reportTTL <= 0 {
		reportTTL = 10 * time.Minute
	}

	sslMode := cfg.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
	st := mustOpenPostgresWithRetry(connString, 60*time.Second)

	redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
	rc := rediscache.New(redisAddr)

	svc := compliance.New(st, rc, ratetable.New(), reportTTL)

	brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
	consumer := kafka.NewConsumer(brokers, topic, consumerGroup)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	return &complianceAPIApp{
		ctx:    ctx,
		cancel: cancel,
		opts: complianceAPIOpts{
			httpAddr:      httpAddr,
			swaggerPath:   os.Getenv("swaggerPath"),
			topic:         topic,
			consumerGroup: consumerGroup,
		},
		svc:      svc,
		consumer: consumer,
		closeDB:  st.Close,
	}
}

// Postgres в docker compose поднимается позже приложения, ждём его.
func mustOpenPostgresWithRetry(connString string, wait time.Duration) *pgcompliance.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgcompliance.New(connString)
		if err == nil {
			return st
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}

func (a *complianceAPIApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.consumer != nil {
		_ = a.consumer.Close()
	}
	if a.closeDB != nil {
		a.closeDB()
	}
}

func (a *complianceAPIApp) Run() error {
	return runComplianceAPI(a.ctx, a.opts, a.svc, a.consumer)
}
