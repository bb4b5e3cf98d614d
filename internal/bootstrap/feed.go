package bootstrap

import (
	"context"
	"log/slog"
	"time"

	"github.com/yassir2222/Wild-Fire-Detection/internal/alert"
	"github.com/yassir2222/Wild-Fire-Detection/internal/console"
	"github.com/yassir2222/Wild-Fire-Detection/internal/detector"
	"github.com/yassir2222/Wild-Fire-Detection/internal/livefeed"
	"github.com/yassir2222/Wild-Fire-Detection/internal/mediaref"
	"github.com/yassir2222/Wild-Fire-Detection/internal/metrics"
	"github.com/yassir2222/Wild-Fire-Detection/internal/shared"
	"github.com/yassir2222/Wild-Fire-Detection/internal/submission"
	"go.uber.org/fx"
)

const fireAlertMessage = "\U0001F525 FIRE DETECTED! Immediate action required."

const frameCacheTimeout = 2 * time.Second

// ProvideLiveFeed builds the feed controller and the event hub
// together. The two reference each other: the hub pushes feed
// transitions it learns about through the controller's callbacks, and
// the callbacks only fire once the connection is live, after both
// values exist.
func ProvideLiveFeed(
	cfg *Config,
	client *detector.Client,
	frames *livefeed.Store,
	m *metrics.Metrics,
	logger *slog.Logger,
) (*livefeed.Controller, *console.EventHub) {
	var hub *console.EventHub

	feed := livefeed.New(livefeed.Config{
		Open: func(ctx context.Context) (livefeed.Stream, error) {
			return client.OpenFeed(ctx)
		},
		AutoReconnect: cfg.FeedAutoReconnect,
		Backoff: shared.BackoffConfig{
			Initial:     time.Duration(cfg.FeedBackoffInitialMs) * time.Millisecond,
			MaxAttempts: cfg.FeedBackoffMaxAttempts,
			MaxDelay:    time.Duration(cfg.FeedBackoffMaxDelayMs) * time.Millisecond,
		},
		Callbacks: livefeed.Callbacks{
			OnFrame: func(frame []byte) {
				m.FrameReceived()
				ctx, cancel := context.WithTimeout(context.Background(), frameCacheTimeout)
				defer cancel()
				if err := frames.Put(ctx, frame); err != nil {
					logger.Warn("failed to cache feed frame", "error", err)
				}
			},
			OnStateChange: func(state livefeed.State) {
				m.SetFeedConnected(state == livefeed.StateConnected)
				hub.FeedState(state)
			},
		},
		Log: logger,
	})

	hub = console.NewEventHub(feed, logger)
	return feed, hub
}

func ProvideSubmissionManager(
	client *detector.Client,
	registry *mediaref.Registry,
	hub *console.EventHub,
	notifier *alert.Notifier,
	m *metrics.Metrics,
	logger *slog.Logger,
) *submission.Manager {
	return submission.NewManager(submission.ManagerConfig{
		Client:   client,
		Registry: registry,
		OnState: func(sessionID string, state submission.State) {
			hub.SubmissionState(sessionID, state)
		},
		OnDetections: func(sessionID string, detections []submission.Detection) {
			hub.Detections(sessionID, detections)
			for _, d := range detections {
				if submission.IsFireLabel(d.Label) {
					go sendFireAlert(notifier, m, logger)
					return
				}
			}
		},
		Log: logger,
	})
}

// sendFireAlert is fire and forget: the submission outcome never waits
// on, or learns about, the notifier.
func sendFireAlert(notifier *alert.Notifier, m *metrics.Metrics, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := notifier.Send(ctx, fireAlertMessage); err != nil {
		logger.Error("fire alert failed", "error", err)
		return
	}
	m.AlertSent()
}

func StartLiveFeed(lc fx.Lifecycle, feed *livefeed.Controller, hub *console.EventHub, manager *submission.Manager) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			feed.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := hub.Close(); err != nil {
				return err
			}
			if err := manager.Close(); err != nil {
				return err
			}
			return feed.Close()
		},
	})
}

var FeedModule = fx.Options(
	fx.Provide(
		ProvideLiveFeed,
		ProvideSubmissionManager,
	),
	fx.Invoke(StartLiveFeed),
)
