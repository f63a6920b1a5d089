package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/weather-dashboard/internal/api/http"
	"github.com/i474232898/weather-dashboard/internal/config"
	"github.com/i474232898/weather-dashboard/internal/location"
	"github.com/i474232898/weather-dashboard/internal/radar"
	"github.com/i474232898/weather-dashboard/internal/scheduler"
	"github.com/i474232898/weather-dashboard/internal/session"
	"github.com/i474232898/weather-dashboard/internal/store"
	"github.com/i474232898/weather-dashboard/internal/weather"
	"github.com/i474232898/weather-dashboard/internal/weather/providers"
)

// stores is what the service needs from a persistence backend.
type stores interface {
	weather.CacheStore
	weather.PreferenceStore
	weather.SavedLocationStore
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}
	restyClient := providers.NewRestyClient(cfg.HTTPTimeout)

	var db stores
	if cfg.DBPath == "" {
		log.Println("INFO: DB_PATH not set; using in-memory stores")
		db = store.NewMemoryStore()
	} else {
		sqlite, err := store.NewSQLite(cfg.DBPath)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		defer sqlite.Close()
		db = sqlite
	}

	// Providers with resilience (backoff + circuit breaker).
	openMeteo := providers.NewOpenMeteoProvider(httpClient)
	alerts := providers.NewNWSAlertProvider(httpClient, cfg.NWSUserAgent)
	airQuality := providers.NewAirQualityProvider(httpClient)
	geocoder := providers.NewGoogleReverseGeocoder(cfg.GeocoderAPIKey, cfg.HTTPTimeout)
	geolocator := providers.NewIPGeolocator(restyClient, cfg.IPGeoURL, cfg.LocationPermission)

	acquirer := weather.NewAcquirer(openMeteo, db, geocoder, openMeteo)
	resolver := location.NewResolver(geolocator, location.Config{
		Attempts:       cfg.LocationAttempts,
		RetryDelay:     cfg.LocationRetryDelay,
		AttemptTimeout: cfg.LocationAttemptTimeout,
	})

	controller := session.NewController(session.Deps{
		Resolver:   resolver,
		Acquirer:   acquirer,
		Alerts:     alerts,
		AirQuality: airQuality,
		Prefs:      db,
		Locations:  db,
	})
	defer controller.Close()

	initCtx, cancelInit := context.WithTimeout(context.Background(), 10*time.Second)
	if err := controller.Init(initCtx); err != nil {
		log.Printf("WARN: session init failed: %v", err)
	}
	cancelInit()

	player := radar.NewPlayer(radar.NewRainViewerSource(restyClient))
	defer player.Close()

	// Scheduler that refreshes the session, warms saved locations and prunes the cache.
	sched := scheduler.New(scheduler.Config{
		RefreshInterval: cfg.RefreshInterval,
		CacheMaxAge:     cfg.CacheMaxAge,
		WarmConcurrency: cfg.WarmConcurrency,
	}, controller, acquirer, db, db)
	sched.EnableAlertCheck(alerts, db)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Session loads wait for location retries plus the forecast fetch.
	app := fiber.New(fiber.Config{
		AppName:               "weather-dashboard",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          cfg.HTTPTimeout + 40*time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-dashboard",
		})
	})

	httpapi.RegisterRoutes(app, httpapi.Deps{
		Session:    controller,
		Radar:      player,
		Searcher:   openMeteo,
		Permission: geolocator,
		Prefs:      db,
		Alerts:     sched,
	})

	go func() {
		log.Printf("INFO: listening on :%s", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
