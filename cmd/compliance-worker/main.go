package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/BearBump/ComplianceBox/config"
)

func main() {
	cfg, err := config.LoadConfig(os.Getenv("configPath"))
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	httpOpts := workerHTTPOpts{
		httpAddr:    cfg.ComplianceBox.WorkerHTTPAddr,
		swaggerPath: os.Getenv("swaggerPath"),
	}

	if err := RunComplianceWorker(ctx, cfg, defaultWorkerFactories(), httpOpts); err != nil && err != context.Canceled {
		panic(err)
	}
}
