package bootstrap

import (
	"log/slog"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"
	"github.com/yassir2222/Wild-Fire-Detection/internal/alert"
	"github.com/yassir2222/Wild-Fire-Detection/internal/console"
	"github.com/yassir2222/Wild-Fire-Detection/internal/livefeed"
	"github.com/yassir2222/Wild-Fire-Detection/internal/mediaref"
	"github.com/yassir2222/Wild-Fire-Detection/internal/metrics"
	"github.com/yassir2222/Wild-Fire-Detection/internal/submission"
	"go.uber.org/fx"
)

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func ProvideLogger(cfg *Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
}

func ProvideConsoleHandler(manager *submission.Manager, registry *mediaref.Registry, m *metrics.Metrics, logger *slog.Logger) *console.Handler {
	return console.NewHandler(manager, registry, m, logger)
}

func ProvideFeedHandler(feed *livefeed.Controller, frames *livefeed.Store, notifier *alert.Notifier, m *metrics.Metrics, logger *slog.Logger) *console.FeedHandler {
	return console.NewFeedHandler(feed, frames, notifier, m, logger)
}

type HandlerParams struct {
	fx.In

	ConsoleHandler *console.Handler
	FeedHandler    *console.FeedHandler
	EventHub       *console.EventHub
	Registry       *prometheus.Registry
}

func RegisterRoutes(e *echo.Echo, params HandlerParams) {
	api := e.Group("/api/v1")

	params.ConsoleHandler.RegisterRoutes(api)
	params.FeedHandler.RegisterRoutes(api)
	params.EventHub.RegisterRoutes(api)

	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(params.Registry, promhttp.HandlerOpts{})))
	e.GET("/swagger/*", echoSwagger.EchoWrapHandler())
}

var HandlersModule = fx.Options(
	fx.Provide(
		ProvideLogger,
		ProvideConsoleHandler,
		ProvideFeedHandler,
	),
	fx.Invoke(RegisterRoutes),
)
