package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"social-auth/backend/internal/audit"
	auditrepo "social-auth/backend/internal/audit/repository"
	authservice "social-auth/backend/internal/auth/service"
	"social-auth/backend/internal/config"
	"social-auth/backend/internal/db"
	"social-auth/backend/internal/db/migrate"
	healthhandler "social-auth/backend/internal/health/handler"
	"social-auth/backend/internal/identity/manager"
	identityrepo "social-auth/backend/internal/identity/repository"
	identityservice "social-auth/backend/internal/identity/service"
	"social-auth/backend/internal/metrics"
	"social-auth/backend/internal/policy/engine"
	"social-auth/backend/internal/security"
	"social-auth/backend/internal/server"
	"social-auth/backend/internal/server/interceptors"
	sessionrepo "social-auth/backend/internal/session/repository"
	"social-auth/backend/internal/telemetry"
	telemetryotel "social-auth/backend/internal/telemetry/otel"
	"social-auth/backend/internal/telemetry/producer"
	userrepo "social-auth/backend/internal/user/repository"
)

const (
	healthInterval  = 15 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Options{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Env,
		Insecure:    cfg.OTLPInsecure,
	})
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()
	emitters := []telemetry.EventEmitter{telemetryotel.NewEventEmitter(providers.LoggerProvider)}
	kafkaProducer := producer.NewKafkaProducer(cfg.TelemetryKafkaBrokersList(), cfg.TelemetryKafkaTopic)
	if kafkaProducer != nil {
		emitters = append(emitters, kafkaProducer)
		log.Printf("telemetry: publishing events to kafka topic %s", cfg.TelemetryKafkaTopic)
	}
	events := telemetry.NewAsync(telemetry.NewFanout(emitters...))

	reg := metrics.NewRegistry()
	m := metrics.New(reg)

	var database *sql.DB
	if cfg.DatabaseURL != "" {
		database, err = db.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db: %v", err)
		}
		defer database.Close()
		if cfg.MigrateOnStart {
			if err := migrate.Run(cfg.DatabaseURL, migrate.Up); err != nil {
				log.Fatalf("migrate: %v", err)
			}
		}
	} else {
		log.Println("db: DATABASE_URL not set; auth, user, session and audit RPCs are unavailable")
	}

	modules, err := engine.LoadPolicyModules(cfg.AuthzPolicyFile)
	if err != nil {
		log.Fatalf("policy: %v", err)
	}
	evaluator, err := engine.NewOPAEvaluator(ctx, modules)
	if err != nil {
		log.Fatalf("policy: %v", err)
	}

	deps := server.Deps{
		Authorizer: evaluator,
		Events:     events,
		Metrics:    m,
	}
	var pinger healthhandler.Pinger
	if database != nil {
		pinger = database
		users := userrepo.NewPostgresRepository(database)
		audits := auditrepo.NewPostgresRepository(database)
		sessions, closeSessions := openSessionStore(cfg, database)
		defer closeSessions()

		deps.UserRepo = users
		deps.SessionRepo = sessions
		deps.AuditRepo = audits
		deps.AuditLogger = audit.NewLogger(audits, interceptors.ClientIP)

		if cfg.AuthEnabled() {
			key, err := security.LoadSigningKey(cfg.JWTSigningKey)
			if err != nil {
				log.Fatalf("jwt: %v", err)
			}
			tokens := security.NewTokenService(key, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())
			identities := manager.New(identityrepo.NewPostgresRepository(database), security.NewHasher(cfg.BcryptCost))
			identitySvc := identityservice.NewIdentityService(identities, sessions, security.SHA256Hasher{}, tokens)
			deps.Tokens = tokens
			deps.Auth = authservice.NewAuthService(users, identitySvc, tokens)
		} else {
			log.Println("auth: JWT_SIGNING_KEY not set; AuthService is disabled")
		}
	}
	health := healthhandler.NewServer(pinger, evaluator)
	deps.Health = health

	s := server.NewGRPCServer(deps)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}
	defer lis.Close()

	go health.Run(ctx, healthInterval)
	go func() {
		log.Printf("gRPC server listening on %s", cfg.GRPCAddr)
		if err := s.Serve(lis); err != nil {
			log.Fatalf("serve: %v", err)
		}
	}()

	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(reg))
		metricsSrv = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.Printf("metrics listening on %s", cfg.MetricsAddr)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("metrics: %v", err)
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down gRPC server...")
	health.Shutdown()
	s.GracefulStop()
	cancel()
	log.Println("gRPC server stopped")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	if err := events.Drain(shutdownCtx); err != nil {
		log.Printf("telemetry: drain: %v", err)
	}
	if err := kafkaProducer.Close(); err != nil {
		log.Printf("telemetry: kafka close: %v", err)
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("otel: shutdown: %v", err)
	}
}

// openSessionStore returns the session repository selected by SESSION_STORE and a close func.
func openSessionStore(cfg *config.Config, database *sql.DB) (sessionrepo.Repository, func()) {
	if cfg.SessionStore != config.SessionStoreRedis {
		return sessionrepo.NewPostgresRepository(database), func() {}
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Fatalf("redis: %v", err)
	}
	log.Printf("session store: redis")
	return sessionrepo.NewRedisRepository(client, ""), func() { _ = client.Close() }
}
