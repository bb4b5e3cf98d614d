package bootstrap

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/yassir2222/Wild-Fire-Detection/internal/alert"
	"github.com/yassir2222/Wild-Fire-Detection/internal/detector"
	"github.com/yassir2222/Wild-Fire-Detection/internal/metrics"
	"go.uber.org/fx"
)

func ProvideRedisClient(cfg *Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

func ProvideDetectorClient(cfg *Config) *detector.Client {
	return detector.NewClient(detector.Config{
		BaseURL: cfg.DetectorURL,
		Timeout: cfg.DetectorTimeout(),
	})
}

func ProvideNotifier(cfg *Config, logger *slog.Logger) *alert.Notifier {
	return alert.New(alert.Config{
		BotToken: cfg.BotToken,
		ChatID:   cfg.ChatID,
		Cooldown: time.Duration(cfg.AlertCooldownSeconds) * time.Second,
		Log:      logger,
	})
}

func ProvidePrometheusRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func ProvideMetrics(reg *prometheus.Registry) *metrics.Metrics {
	return metrics.New(reg)
}

var InfrastructureModule = fx.Options(
	fx.Provide(
		ProvideRedisClient,
		ProvideDetectorClient,
		ProvideNotifier,
		ProvidePrometheusRegistry,
		ProvideMetrics,
	),
)
