package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"burogate/internal/bureau"
	"burogate/internal/consent"
	consenthandler "burogate/internal/consent/handler"
	"burogate/internal/entity"
	"burogate/internal/inquiry"
	inquiryhandler "burogate/internal/inquiry/handler"
	"burogate/internal/jwtauth"
	"burogate/internal/platform/config"
	"burogate/internal/platform/httpserver"
	"burogate/internal/platform/logger"
	"burogate/internal/platform/metrics"
	"burogate/internal/platform/middleware"
	platformredis "burogate/internal/platform/redis"
	"burogate/internal/querylog"
	queryloghandler "burogate/internal/querylog/handler"
	"burogate/internal/querylog/publisher"
	"burogate/internal/quota"
	"burogate/internal/scoring"
	"burogate/pkg/platform/circuit"
)

const jwtIssuer = "burogate"

// main wires the dependency graph and owns the process lifecycle. Business
// rules live in the internal service packages; nothing here should make a
// domain decision.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Error("opening database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	m := metrics.New()
	jwtService := jwtauth.NewService(cfg.JWTSigningKey, jwtIssuer)

	var bureauClient bureau.Client = bureau.NewHTTPClient(
		cfg.Bureau.BaseURL, cfg.Bureau.APIKey, cfg.Bureau.Timeout,
		bureau.WithMetrics(m),
		bureau.WithBreaker(circuit.New("bureau")),
	)
	if redisClient != nil {
		bureauClient = bureau.NewCachedClient(bureauClient, redisClient, cfg.Redis.CacheTTL, log)
	}

	entityStore := entity.NewPostgresStore(db)
	consentStore := consent.NewPostgresStore(db)
	quotaStore := quota.NewPostgresStore(db)
	querylogStore := querylog.NewPostgresStore(db)
	scoringStore := scoring.NewPostgresStore(db)

	consentService := consent.NewService(consentStore, entityStore, consent.WithLogger(log))
	authorizer := consent.NewAuthorizer(consentStore, consent.WithAuthorizerLogger(log))
	quotaService := quota.New(quotaStore, quota.WithLogger(log), quota.WithMetrics(m))

	querylogOpts := []querylog.Option{
		querylog.WithLogger(log),
		querylog.WithUsageRecorder(consentStore),
	}
	if len(cfg.Kafka.Brokers) > 0 {
		kafka, err := publisher.NewKafka(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			log.Error("connecting to kafka", "error", err)
			os.Exit(1)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			kafka.Close(ctx)
		}()
		querylogOpts = append(querylogOpts, querylog.WithPublisher(kafka))
	}
	querylogService := querylog.New(querylogStore, querylogOpts...)

	scoringService := scoring.New(bureauClient, scoringStore,
		scoring.WithLogger(log), scoring.WithMetrics(m))
	inquiryService := inquiry.New(entityStore, authorizer, quotaService, querylogService,
		bureauClient, scoringService,
		inquiry.WithLogger(log), inquiry.WithMetrics(m))

	router := chi.NewRouter()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID)
	router.Use(middleware.ClientIP)
	router.Use(middleware.Logger(log))
	router.Use(middleware.Metrics(m))
	router.Use(middleware.Timeout(cfg.Bureau.Timeout + cfg.Bureau.Timeout/2))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(jwtService, log))
		r.Use(middleware.ContentTypeJSON)
		consenthandler.New(consentService, log).Register(r)
		inquiryhandler.New(inquiryService, log).Register(r)
		queryloghandler.New(querylogService, log).Register(r)
	})

	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("starting burogate", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
