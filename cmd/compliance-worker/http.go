package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/BearBump/ComplianceBox/config"
	"github.com/BearBump/ComplianceBox/internal/services/sweeps"
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"
)

type workerHTTPOpts struct {
	httpAddr    string
	swaggerPath string
	onListen    func(httpAddr string)

	runners map[string]*sweeps.Runner
	cfg     *config.Config
}

func runWorkerHTTPServer(ctx context.Context, opts workerHTTPOpts) error {
	if opts.httpAddr == "" {
		opts.httpAddr = ":8082"
	}

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		out := make(map[string]sweeps.Stats, len(opts.runners))
		for engine, runner := range opts.runners {
			out[engine] = runner.Stats()
		}
		_ = json.NewEncoder(w).Encode(out)
	})

	r.Get("/config", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if opts.cfg == nil {
			_, _ = w.Write([]byte(`{"error":"config not wired"}`))
			return
		}
		// Секреты не показываем, только операционные настройки воркера.
		cb := opts.cfg.ComplianceBox
		out := map[string]any{
			"deliveryIntervalSeconds":  cb.WorkerDeliveryIntervalSeconds,
			"clearanceIntervalSeconds": cb.WorkerClearanceIntervalSeconds,
			"ftzIntervalSeconds":       cb.WorkerFTZIntervalSeconds,
			"filingsIntervalSeconds":   cb.WorkerFilingsIntervalSeconds,
			"batchSize":                cb.WorkerBatchSize,
			"leaseSeconds":             cb.WorkerLeaseSeconds,
			"rateLimitPerMinute":       cb.WorkerRateLimitPerMinute,
			"gatewayMode":              cb.EDIGatewayMode,
		}
		_ = json.NewEncoder(w).Encode(out)
	})

	r.Post("/trigger/{engine}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		engine := chi.URLParam(r, "engine")
		runner, ok := opts.runners[engine]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"unknown engine"}`))
			return
		}
		runner.Trigger()
		_ = json.NewEncoder(w).Encode(map[string]any{"engine": engine, "triggered": true})
	})

	// Swagger опционален: воркер живёт и без выкаченной спеки.
	if opts.swaggerPath != "" {
		if _, err := os.Stat(opts.swaggerPath); err == nil {
			r.Get("/swagger.json", func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Cache-Control", "no-store")
				http.ServeFile(w, r, opts.swaggerPath)
			})
			swaggerURL := "/swagger.json"
			if fi, err := os.Stat(opts.swaggerPath); err == nil {
				swaggerURL = fmt.Sprintf("/swagger.json?v=%d", fi.ModTime().Unix())
			}
			r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL(swaggerURL)))
		}
	}

	srv := &http.Server{Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = lis.Close()
	}()

	err = srv.Serve(lis)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
