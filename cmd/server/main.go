// medgate serves purpose-scoped disclosure of patient records with consent
// verification and a mandatory audit trail.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"medgate/internal/access"
	accesshandler "medgate/internal/access/handler"
	"medgate/internal/audit"
	"medgate/internal/consent"
	"medgate/internal/patient"
	"medgate/internal/phi"
	"medgate/internal/platform/config"
	"medgate/internal/platform/httpserver"
	"medgate/internal/platform/logger"
	"medgate/internal/platform/metrics"
	"medgate/internal/platform/middleware"
	"medgate/internal/platform/redis"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	var db *sql.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("ping database", "error", err)
			os.Exit(1)
		}
	} else {
		log.Warn("no database configured, using in-memory stores")
	}

	var patients patient.Store
	var consentStore consent.Store
	var auditStore audit.Store
	if db != nil {
		patients = patient.NewPostgres(db)
		consentStore = consent.NewPostgres(db)
		auditStore = audit.NewPostgres(db)
	} else {
		patients = patient.NewInMemoryStore()
		consentStore = consent.NewInMemoryStore()
		auditStore = audit.NewInMemoryStore()
	}

	cache, err := redis.New(cfg.RedisURL)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if cache != nil {
		defer cache.Close()
		consentStore = consent.NewCachedStore(consentStore, cache, cfg.ConsentCacheTTL, log)
	}

	auditor := audit.NewService(auditStore, log, m)

	var publisher *audit.KafkaPublisher
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err = audit.NewKafkaPublisher(cfg.KafkaBrokers, cfg.AuditTopic, log)
		if err != nil {
			log.Error("connect kafka", "error", err)
			os.Exit(1)
		}
		auditor.WithSink(publisher)
	}

	svc := access.NewService(
		phi.NewAuthorizer(phi.DefaultPermissions()),
		phi.NewFilter(phi.DefaultPolicy()),
		patients,
		consent.NewService(consentStore),
		auditor,
		m,
	)

	router := chi.NewRouter()
	accesshandler.New(svc, middleware.NewJWTValidator(cfg.JWTSigningKey), log, m).Register(router)
	router.Get("/healthz", healthz(db, cache))
	router.Handle("/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting medgate", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if publisher != nil {
		g.Go(func() error {
			if err := publisher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

// healthz reports process liveness plus the state of configured backends.
func healthz(db *sql.DB, cache *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				http.Error(w, `{"status":"degraded","database":"down"}`, http.StatusServiceUnavailable)
				return
			}
		}
		if cache != nil {
			if err := cache.Health(r.Context()); err != nil {
				http.Error(w, `{"status":"degraded","redis":"down"}`, http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
