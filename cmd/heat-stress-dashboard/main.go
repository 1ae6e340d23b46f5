package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	httpapi "github.com/i474232898/heat-stress-dashboard/internal/api/http"
	"github.com/i474232898/heat-stress-dashboard/internal/choropleth"
	"github.com/i474232898/heat-stress-dashboard/internal/config"
	"github.com/i474232898/heat-stress-dashboard/internal/geocode"
	"github.com/i474232898/heat-stress-dashboard/internal/scheduler"
	"github.com/i474232898/heat-stress-dashboard/internal/source"
	"github.com/i474232898/heat-stress-dashboard/internal/store"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	logrus.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// In-memory result cache, optionally backed by redis.
	var cache choropleth.Cache = store.NewMemoryStore(cfg.CacheMaxEntries)
	if rc := store.OpenRedis(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB); rc != nil {
		defer rc.Close()
		cache = store.Tiered{cache, store.NewRedisStore(rc, cfg.RedisTTL)}
		logrus.Infof("redis result cache enabled at %s", cfg.RedisAddr)
	}

	var geocoder choropleth.Geocoder
	if gc := geocode.New(geocode.Config{APIKey: cfg.GeocoderAPIKey, State: cfg.GeocoderState, Country: cfg.GeocoderCountry}); gc != nil {
		geocoder = gc
	}

	service := choropleth.NewService(choropleth.Config{
		IDField:     cfg.Regions.IDField,
		EmptyPolicy: cfg.EmptyPolicy,
	}, cache, geocoder)

	fetcher, err := source.NewFetcher(ctx, cfg.Source())
	if err != nil {
		logrus.Fatalf("failed to configure dataset source: %v", err)
	}

	// Initial load is synchronous; the scheduler only refreshes.
	sched := scheduler.New(fetcher, service, scheduler.DiskLoader(cfg.Snapshot("")), cfg.ReloadInterval)
	if _, err := sched.Reload(ctx); err != nil {
		logrus.Fatalf("failed to load dataset: %v", err)
	}
	if err := sched.Start(); err != nil {
		logrus.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "heat-stress-dashboard",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}?${queryParams}\n",
	}))
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		resp := fiber.Map{
			"status":  "ok",
			"service": "heat-stress-dashboard",
		}
		if snap := service.Snapshot(); snap != nil {
			resp["version"] = snap.Version()
			resp["loadedAt"] = snap.LoadedAt()
		}
		return c.JSON(resp)
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// API routes.
	httpapi.RegisterRoutes(app, service)

	go func() {
		logrus.Infof("listening on :%s", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			logrus.Errorf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logrus.Errorf("error during shutdown: %v", err)
	}
}
