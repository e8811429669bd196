// Worker runs the background jobs of the auth service:
//   - the session sweeper deletes expired Postgres sessions every SESSION_SWEEP_INTERVAL
//     (needs DATABASE_URL; skipped with SESSION_STORE=redis, which expires keys by TTL);
//   - the event forwarder consumes TELEMETRY_KAFKA_TOPIC and pushes to Loki
//     (needs KAFKA_BROKERS and LOKI_URL).
//
// At least one job must be configured.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"social-auth/backend/internal/config"
	"social-auth/backend/internal/db"
	"social-auth/backend/internal/metrics"
	sessionrepo "social-auth/backend/internal/session/repository"
	"social-auth/backend/internal/session/sweeper"
	"social-auth/backend/internal/telemetry"
	"social-auth/backend/internal/telemetry/forwarder"
	"social-auth/backend/internal/telemetry/loki"
	telemetryotel "social-auth/backend/internal/telemetry/otel"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	sweep := cfg.SessionStore != config.SessionStoreRedis && cfg.DatabaseURL != ""
	brokers := cfg.TelemetryKafkaBrokersList()
	forward := len(brokers) > 0 && cfg.LokiURL != ""
	if !sweep && !forward {
		log.Fatal("worker: nothing to do; set DATABASE_URL (postgres session store) or KAFKA_BROKERS and LOKI_URL")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("worker: shutting down...")
		cancel()
	}()

	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Options{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.ServiceName + "-worker",
		Environment: cfg.Env,
		Insecure:    cfg.OTLPInsecure,
	})
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	events := telemetry.NewAsync(telemetryotel.NewEventEmitter(providers.LoggerProvider))

	reg := metrics.NewRegistry()
	m := metrics.New(reg)
	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(reg))
		metricsSrv = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("worker: metrics: %v", err)
			}
		}()
	}

	var wg sync.WaitGroup
	if sweep {
		database, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db: %v", err)
		}
		defer database.Close()
		interval := cfg.SweepEvery()
		log.Printf("worker: sweeping expired sessions every %s", interval)
		sw := sweeper.New(sessionrepo.NewPostgresRepository(database), m, events)
		wg.Add(1)
		go func() {
			defer wg.Done()
			sw.Run(ctx, interval)
		}()
	}
	if forward {
		lokiClient, err := loki.NewClient(cfg.LokiURL, nil)
		if err != nil {
			log.Fatalf("loki: %v", err)
		}
		reader := forwarder.NewReader(brokers, cfg.TelemetryKafkaTopic, cfg.KafkaGroupID)
		defer reader.Close()
		log.Printf("worker: forwarding %s (group %s) to %s", cfg.TelemetryKafkaTopic, cfg.KafkaGroupID, cfg.LokiURL)
		wg.Add(1)
		go func() {
			defer wg.Done()
			forwarder.New(reader, lokiClient).Run(ctx)
		}()
	}
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	if err := events.Drain(shutdownCtx); err != nil {
		log.Printf("worker: telemetry drain: %v", err)
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("worker: otel shutdown: %v", err)
	}
	log.Println("worker: stopped")
}
