package health

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/yassir2222/Wild-Fire-Detection/internal/detector"
	"github.com/yassir2222/Wild-Fire-Detection/internal/submission"
)

const (
	defaultProbeInterval = 30 * time.Second
	defaultSweepInterval = time.Minute
	defaultSessionTTL    = 30 * time.Minute
	probeTimeout         = 5 * time.Second
)

type WatchdogConfig struct {
	ProbeInterval time.Duration
	SweepInterval time.Duration
	SessionTTL    time.Duration
	Log           *slog.Logger
}

// Watchdog runs the console's periodic upkeep: probing the detection
// service so availability flips are visible in the logs, and expiring
// submission sessions that operators abandoned.
type Watchdog struct {
	scheduler gocron.Scheduler
	detector  *detector.Client
	manager   *submission.Manager
	log       *slog.Logger

	probeInterval time.Duration
	sweepInterval time.Duration
	sessionTTL    time.Duration

	mu        sync.Mutex
	probed    bool
	available bool
}

func NewWatchdog(detectorClient *detector.Client, manager *submission.Manager, cfg WatchdogConfig) (*Watchdog, error) {
	if cfg.ProbeInterval <= 0 {
		cfg.ProbeInterval = defaultProbeInterval
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaultSessionTTL
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &Watchdog{
		scheduler:     scheduler,
		detector:      detectorClient,
		manager:       manager,
		log:           cfg.Log.With("component", "watchdog"),
		probeInterval: cfg.ProbeInterval,
		sweepInterval: cfg.SweepInterval,
		sessionTTL:    cfg.SessionTTL,
	}, nil
}

func (w *Watchdog) Start() error {
	if _, err := w.scheduler.NewJob(
		gocron.DurationJob(w.probeInterval),
		gocron.NewTask(w.probeDetector),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		return fmt.Errorf("failed to schedule detector probe: %w", err)
	}

	if _, err := w.scheduler.NewJob(
		gocron.DurationJob(w.sweepInterval),
		gocron.NewTask(w.sweepSessions),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		return fmt.Errorf("failed to schedule session sweep: %w", err)
	}

	w.scheduler.Start()
	return nil
}

func (w *Watchdog) Shutdown() error {
	return w.scheduler.Shutdown()
}

// Available reports the result of the most recent probe. It is false
// until the first probe completes.
func (w *Watchdog) Available() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.probed && w.available
}

func (w *Watchdog) probeDetector() {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	available := w.detector.IsAvailable(ctx)

	w.mu.Lock()
	changed := !w.probed || available != w.available
	w.probed = true
	w.available = available
	w.mu.Unlock()

	if !changed {
		return
	}
	if available {
		w.log.Info("detection service available")
		return
	}
	w.log.Warn("detection service unavailable")
}

func (w *Watchdog) sweepSessions() {
	if removed := w.manager.Sweep(w.sessionTTL); removed > 0 {
		w.log.Info("expired idle submission sessions", "count", removed)
	}
}
