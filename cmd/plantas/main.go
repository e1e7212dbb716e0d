package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/api"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/assignments"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/auth"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/cache"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/config"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/dashboard"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/incidents"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/maintenance"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/middleware"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/models"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/observability"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/plantdata"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/plants"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/reports"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/scope"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/storage"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/storage/postgres"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	db, err := postgres.Open(postgres.ConnectionConfig{
		URL:         cfg.Database.URL,
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		Timeout:     cfg.Database.Timeout,
		MaxLifetime: cfg.Database.MaxLifetime,
		MaxIdleTime: cfg.Database.MaxIdleTime,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()

	var dashCache cache.Cache
	var redisCache *cache.Redis
	switch cfg.Cache.Backend {
	case "redis":
		redisCache, err = cache.NewRedis(cfg.Cache.RedisURL, cfg.Cache.RedisPassword, cfg.Cache.RedisDB, cfg.Cache.TTL)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to redis")
		}
		defer redisCache.Close()
		dashCache = redisCache
	default:
		memCache, err := cache.NewMemory(cfg.Cache.MaxEntries, cfg.Cache.TTL)
		if err != nil {
			log.WithError(err).Fatal("failed to create memory cache")
		}
		dashCache = memCache
	}

	blobs, err := storage.New(cfg.Storage)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize blob storage")
	}

	memberStore := assignments.NewStore(db)
	plantSvc := plants.NewService(db, dashCache)
	readingSvc := plantdata.NewService(db)
	incidentSvc := incidents.NewService(db, blobs)
	maintenanceSvc := maintenance.NewService(db)
	reportSvc := reports.NewService(db, blobs, reports.NewCSVGenerator())
	dashboardSvc := dashboard.NewService(dashCache, plantSvc, readingSvc, incidentSvc, log)
	workflow := assignments.NewWorkflow(db, memberStore, plantSvc, dashCache, log)
	resolver := scope.NewResolver(memberStore, memberStore)

	validator, err := staticValidatorFromEnv()
	if err != nil {
		log.WithError(err).Fatal("failed to load auth tokens")
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	authMW := middleware.NewAuthMiddleware(validator, resolver, log)

	server := api.NewServer(api.Deps{
		Plants:      plantSvc,
		Readings:    readingSvc,
		Incidents:   incidentSvc,
		Maintenance: maintenanceSvc,
		Reports:     reportSvc,
		Dashboard:   dashboardSvc,
		Assignments: workflow,
		Members:     memberStore,
		Auth:        authMW,
		Log:         log,
		Middleware: []mux.MiddlewareFunc{
			middleware.Recovery(log),
			middleware.RequestLogging(log),
			observability.HTTPMetricsMiddleware(metrics, routeTemplate),
		},
	})

	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			metrics.CollectDBStats(db)
			if mem, ok := dashCache.(*cache.Memory); ok {
				mem.Sweep()
			}
			if stats, err := dashCache.Stats(context.Background()); err == nil {
				metrics.CollectCacheStats(stats.Hits, stats.Misses, stats.Entries)
			}
		}
	}()

	var redisClient = redisClientOf(redisCache)
	health := observability.NewHealthChecker(db, redisClient)

	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", health.Liveness)
	healthMux.HandleFunc("/readyz", health.Readiness)
	healthMux.Handle("/metrics", observability.Handler(registry))

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	healthServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler: healthMux,
	}

	go func() {
		log.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("health server failed")
		}
	}()
	go func() {
		log.WithField("addr", apiServer.Addr).Info("API server listening")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("API server failed")
		}
	}()

	sm := observability.NewShutdownManager(log, cfg.Server.ShutdownTimeout, apiServer, healthServer)
	if err := sm.WaitForShutdown(); err != nil {
		log.WithError(err).Error("shutdown finished with errors")
		os.Exit(1)
	}
}

// routeTemplate resolves the mux route template for metric labels.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

func redisClientOf(c *cache.Redis) *redis.Client {
	if c == nil {
		return nil
	}
	return c.Client()
}

// staticValidatorFromEnv parses PLANTAS_AUTH_TOKENS, a comma-separated
// list of token=userID:role entries. Token issuance lives in the
// credential service; this maps pre-issued tokens for deployments that
// validate locally.
func staticValidatorFromEnv() (auth.TokenValidator, error) {
	raw := os.Getenv("PLANTAS_AUTH_TOKENS")
	if raw == "" {
		return nil, fmt.Errorf("PLANTAS_AUTH_TOKENS is required")
	}

	tokens := make(map[string]auth.Identity)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		token, rest, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("invalid token entry %q", entry)
		}
		idStr, roleStr, ok := strings.Cut(rest, ":")
		if !ok {
			return nil, fmt.Errorf("invalid token entry %q", entry)
		}
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user id in token entry %q", entry)
		}
		role := models.Role(roleStr)
		if !role.Valid() {
			return nil, fmt.Errorf("invalid role in token entry %q", entry)
		}
		tokens[token] = auth.Identity{ID: id, Role: role, Verified: true}
	}
	return &auth.StaticValidator{Tokens: tokens}, nil
}
