package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	boothhandler "stamprally/internal/booth/handler"
	boothservice "stamprally/internal/booth/service"
	boothstore "stamprally/internal/booth/store"
	participantstore "stamprally/internal/participant/store"
	"stamprally/internal/platform/config"
	"stamprally/internal/platform/httpserver"
	"stamprally/internal/platform/logger"
	"stamprally/internal/platform/metrics"
	"stamprally/internal/platform/middleware"
	"stamprally/internal/platform/postgres"
	platformredis "stamprally/internal/platform/redis"
	ratelimitmw "stamprally/internal/ratelimit/middleware"
	ratelimitstore "stamprally/internal/ratelimit/store"
	reporthandler "stamprally/internal/report/handler"
	reportservice "stamprally/internal/report/service"
	scanhandler "stamprally/internal/scan/handler"
	scanservice "stamprally/internal/scan/service"
	visitstore "stamprally/internal/visit/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		db     *sql.DB
		booths interface {
			boothservice.BoothStore
			scanservice.BoothStore
			reportservice.BoothStore
		}
		participants interface {
			scanservice.ParticipantStore
			reportservice.ParticipantStore
		}
		visits interface {
			scanservice.VisitStore
			reportservice.VisitStore
			boothservice.VisitCounter
		}
	)

	if cfg.DatabaseURL != "" {
		var err error
		db, err = postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			return err
		}
		booths = boothstore.NewPostgres(db)
		participants = participantstore.NewPostgres(db)
		visits = visitstore.NewPostgres(db)
		log.Info("using postgres storage")
	} else {
		booths = boothstore.NewInMemory()
		participants = participantstore.NewInMemory()
		visits = visitstore.NewInMemory()
		log.Info("no DATABASE_URL set, using in-memory storage")
	}

	if cfg.SeedBooths {
		created, err := boothstore.SeedDefaultBooths(ctx, booths, time.Now())
		if err != nil {
			return fmt.Errorf("seed booths: %w", err)
		}
		log.Info("seeded default booths", "created", created)
	}

	var limiter ratelimitmw.Limiter = ratelimitstore.NewInMemory()
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		limiter = ratelimitstore.NewRedis(redisClient.Client)
		log.Info("using redis rate limiting")
	}

	boothSvc := boothservice.New(booths, visits, boothservice.WithLogger(log))
	scanSvc := scanservice.New(booths, participants, visits,
		scanservice.WithLogger(log),
		scanservice.WithMetrics(m),
	)
	reportOpts := []reportservice.Option{reportservice.WithLogger(log)}
	if db != nil {
		reportOpts = append(reportOpts, reportservice.WithPinger(db))
	}
	reportSvc := reportservice.New(participants, visits, booths, reportOpts...)

	scanLimit := ratelimitmw.New(limiter, cfg.ScanLimit.Requests, cfg.ScanLimit.Window, log)

	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(middleware.RequestMetrics(m))
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.ContentTypeJSON)

	scanhandler.New(scanSvc, log, scanhandler.WithRateLimit(scanLimit.Limit)).Register(r)
	boothHandler := boothhandler.New(boothSvc, log)
	boothHandler.RegisterPublic(r)

	r.Route("/admin/api", func(ar chi.Router) {
		ar.Use(middleware.RequireAdminToken(cfg.AdminToken, log))
		boothHandler.RegisterAdmin(ar)
		reporthandler.New(reportSvc, log).RegisterAdmin(ar)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Addr, r)

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpserver.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
