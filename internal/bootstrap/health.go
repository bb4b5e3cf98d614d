package bootstrap

import (
	"context"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/yassir2222/Wild-Fire-Detection/internal/detector"
	"github.com/yassir2222/Wild-Fire-Detection/internal/health"
	"github.com/yassir2222/Wild-Fire-Detection/internal/livefeed"
	"github.com/yassir2222/Wild-Fire-Detection/internal/mediaref"
	"github.com/yassir2222/Wild-Fire-Detection/internal/submission"
	"go.uber.org/fx"
)

func ProvideHealthHandler(
	cfg *Config,
	redisClient *redis.Client,
	detectorClient *detector.Client,
	feed *livefeed.Controller,
	manager *submission.Manager,
	registry *mediaref.Registry,
) *health.Handler {
	return health.NewHandler(
		redisClient,
		detectorClient,
		feed,
		manager,
		registry,
		cfg.Version,
	)
}

func ProvideWatchdog(
	cfg *Config,
	detectorClient *detector.Client,
	manager *submission.Manager,
	logger *slog.Logger,
) (*health.Watchdog, error) {
	return health.NewWatchdog(detectorClient, manager, health.WatchdogConfig{
		ProbeInterval: time.Duration(cfg.ProbeIntervalSeconds) * time.Second,
		SweepInterval: time.Duration(cfg.SweepIntervalSeconds) * time.Second,
		SessionTTL:    time.Duration(cfg.SessionTTLMinutes) * time.Minute,
		Log:           logger,
	})
}

func StartWatchdog(lc fx.Lifecycle, watchdog *health.Watchdog) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return watchdog.Start()
		},
		OnStop: func(ctx context.Context) error {
			return watchdog.Shutdown()
		},
	})
}

func metricsMiddleware(h *health.Handler) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h.IncrementRequests()
			h.IncrementConnections()
			defer h.DecrementConnections()
			return next(c)
		}
	}
}

func RegisterHealthRoutes(e *echo.Echo, h *health.Handler) {
	e.Use(metricsMiddleware(h))
	h.RegisterRoutes(e)
}

var HealthModule = fx.Options(
	fx.Provide(
		ProvideHealthHandler,
		ProvideWatchdog,
	),
	fx.Invoke(RegisterHealthRoutes),
	fx.Invoke(StartWatchdog),
)
