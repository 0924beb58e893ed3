// cmd/tools-service/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shoptools/internal/audit"
	"shoptools/internal/policy"
	"shoptools/internal/ratelimit"
	"shoptools/internal/shopify"
	"shoptools/internal/tools"
	"shoptools/pkg/config"
	"shoptools/pkg/db"
	"shoptools/pkg/logger"
	"shoptools/pkg/middleware"
	"shoptools/pkg/problems"
)

const (
	serviceName = "shoptools"
	version     = "1.0.0"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env, serviceName)
	if err := cfg.Validate(); err != nil {
		log.Fatalw("config", "err", err)
	}
	problems.SetBase(cfg.ProblemBaseURL)

	ctx := context.Background()
	shutdownTracing, tracing := middleware.InitTracing(ctx, serviceName, log)

	client, err := shopify.New(shopify.Config{
		AccessToken: cfg.ShopifyAccessToken,
		StoreDomain: cfg.ShopDomain,
		APIVersion:  cfg.APIVersion,
		Timeout:     cfg.RequestTimeout,
		MaxAttempts: cfg.MaxAttempts,
	}, shopify.WithLogger(log), shopify.WithMetrics(shopify.NewMetrics(prometheus.DefaultRegisterer)))
	if err != nil {
		log.Fatalw("shopify client", "err", err)
	}

	guard, err := policy.Load(ctx, cfg.PolicyFile, log)
	if err != nil {
		log.Fatalw("policy", "err", err)
	}

	rdb, err := db.Redis(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Warnw("redis unavailable, rate limiting in memory", "err", err)
	}

	var recorder audit.Recorder = audit.Nop{}
	pool, err := db.Postgres(ctx, cfg.DatabaseURL, log)
	if err != nil {
		log.Warnw("postgres unavailable, audit disabled", "err", err)
	}
	if pool != nil {
		defer pool.Close()
		pg := audit.NewPostgres(pool, log)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Fatalw("audit schema", "err", err)
		}
		recorder = pg
	}

	reg, err := tools.NewRegistry(client, tools.Builtin(),
		tools.WithLogger(log),
		tools.WithPolicy(guard),
		tools.WithLimiter(ratelimit.New(rdb, cfg.RateLimitPerMinute, log)),
		tools.WithAudit(recorder),
		tools.WithRegisterer(prometheus.DefaultRegisterer),
	)
	if err != nil {
		log.Fatalw("tools", "err", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID())
	r.Use(middleware.Recover(log))
	r.Use(middleware.AccessLog(log))
	// Agents may call from browser-based tooling.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := r.Header.Get("Origin"); origin != "" {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
			} else {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-Id")
			w.Header().Set("Access-Control-Max-Age", "86400")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
	r.Use(middleware.Tracing(tracing))
	r.Use(middleware.JWTAuth(cfg))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	tokenURL := ""
	if cfg.Issuer != "" {
		tokenURL = strings.TrimRight(cfg.Issuer, "/") + "/oauth/token"
	}
	r.Get("/.well-known/openapi.json", reg.OpenAPI().ServeHandler(serviceName, version, tokenURL))
	reg.Mount(r)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Infow("tools-service listening", "addr", cfg.HTTPAddr, "store", cfg.ShopDomain, "tools", len(reg.Tools()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("ListenAndServe", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(sctx)
	_ = shutdownTracing(sctx)
	if rdb != nil {
		_ = rdb.Close()
	}
	_ = log.Sync()
	fmt.Println("tools-service stopped")
}
