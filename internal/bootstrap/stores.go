package bootstrap

import (
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yassir2222/Wild-Fire-Detection/internal/livefeed"
	"github.com/yassir2222/Wild-Fire-Detection/internal/mediaref"
	"go.uber.org/fx"
)

func ProvideMediaRegistry() *mediaref.Registry {
	return mediaref.NewRegistry()
}

func ProvideFrameStore(cfg *Config, redisClient *redis.Client) *livefeed.Store {
	return livefeed.NewStore(
		redisClient,
		time.Duration(cfg.SnapshotTTLSeconds)*time.Second,
		time.Duration(cfg.SnapshotMinGapMs)*time.Millisecond,
	)
}

var StoresModule = fx.Options(
	fx.Provide(
		ProvideMediaRegistry,
		ProvideFrameStore,
	),
)
