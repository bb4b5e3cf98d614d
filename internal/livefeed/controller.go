package livefeed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/yassir2222/Wild-Fire-Detection/internal/shared"
)

type State string

const (
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
)

type reconnectState int

const (
	reconnectIdle reconnectState = iota
	reconnectInProgress

	subscriberBuffer = 8
)

// Stream yields successive frames from one live feed connection.
type Stream interface {
	Next() ([]byte, error)
	Close() error
}

// OpenFunc dials one new feed connection.
type OpenFunc func(ctx context.Context) (Stream, error)

type Callbacks struct {
	OnFrame       func(frame []byte)
	OnStateChange func(state State)
}

type Config struct {
	Open          OpenFunc
	AutoReconnect bool
	Backoff       shared.BackoffConfig
	Callbacks     Callbacks
	Log           *slog.Logger
}

// Status is a point-in-time view of the feed for the status endpoint
// and health checks.
type Status struct {
	State         State  `json:"state"`
	AutoReconnect bool   `json:"auto_reconnect"`
	LastError     string `json:"last_error,omitempty"`
	Frames        uint64 `json:"frames"`
	Reconnects    uint64 `json:"reconnects"`
	Subscribers   int    `json:"subscribers"`
	LastFrameMs   int64  `json:"last_frame_ms,omitempty"`
}

// Controller owns the single continuous connection to the annotated
// frame stream. It starts connected, the optimistic default for a
// protocol with no handshake, and flips to disconnected only on a
// delivery failure: an open error, a read error, or end of stream.
// Success never changes the state. Recovery is a manual Reconnect,
// plus an optional automatic retry loop with exponential backoff.
type Controller struct {
	open          OpenFunc
	autoReconnect bool
	backoff       shared.BackoffConfig
	cb            Callbacks
	log           *slog.Logger

	mu             sync.Mutex
	state          State
	lastError      string
	lastFrameAt    time.Time
	frames         uint64
	reconnects     uint64
	active         bool
	reconnectState reconnectState
	closed         bool
	subscribers    map[string]chan []byte

	ctx    context.Context
	cancel context.CancelFunc
}

func New(cfg Config) *Controller {
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Controller{
		open:          cfg.Open,
		autoReconnect: cfg.AutoReconnect,
		backoff:       normalizeBackoff(cfg.Backoff),
		cb:            cfg.Callbacks,
		log:           cfg.Log.With("component", "livefeed_controller"),
		state:         StateConnected,
		subscribers:   make(map[string]chan []byte),
		ctx:           ctx,
		cancel:        cancel,
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := Status{
		State:         c.state,
		AutoReconnect: c.autoReconnect,
		LastError:     c.lastError,
		Frames:        c.frames,
		Reconnects:    c.reconnects,
		Subscribers:   len(c.subscribers),
	}
	if !c.lastFrameAt.IsZero() {
		status.LastFrameMs = c.lastFrameAt.UnixMilli()
	}
	return status
}

// Start opens the initial connection.
func (c *Controller) Start() {
	c.dialIfIdle(false)
}

// Reconnect re-attempts the feed connection. Safe to call any number
// of times from any state: while a connection or retry loop is live it
// is a no-op, and it never panics.
func (c *Controller) Reconnect() {
	c.dialIfIdle(true)
}

func (c *Controller) dialIfIdle(isReconnect bool) {
	c.mu.Lock()
	if c.closed || c.active || c.reconnectState == reconnectInProgress {
		c.mu.Unlock()
		return
	}
	c.active = true
	if isReconnect {
		c.reconnects++
	}
	changed := c.state != StateConnected
	c.state = StateConnected
	c.lastError = ""
	ctx := c.ctx
	c.mu.Unlock()

	if changed {
		c.notifyState(StateConnected)
	}
	go c.dial(ctx)
}

func (c *Controller) dial(ctx context.Context) {
	stream, err := c.open(ctx)
	if err != nil {
		if ctx.Err() != nil {
			c.clearActive()
			return
		}
		c.deliveryFailure(err)
		return
	}

	c.mu.Lock()
	if c.closed {
		c.active = false
		c.mu.Unlock()
		stream.Close()
		return
	}
	c.mu.Unlock()

	c.consume(ctx, stream)
}

func (c *Controller) consume(ctx context.Context, stream Stream) {
	defer stream.Close()

	for {
		frame, err := stream.Next()
		if err != nil {
			if ctx.Err() != nil {
				c.clearActive()
				return
			}
			c.deliveryFailure(err)
			return
		}
		c.dispatch(frame)
	}
}

func (c *Controller) dispatch(frame []byte) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.frames++
	c.lastFrameAt = time.Now()
	for id, ch := range c.subscribers {
		select {
		case ch <- frame:
		default:
			c.log.Warn("subscriber buffer full, dropping frame", "subscriber_id", id)
		}
	}
	c.mu.Unlock()

	if c.cb.OnFrame != nil {
		c.cb.OnFrame(frame)
	}
}

func (c *Controller) deliveryFailure(err error) {
	c.mu.Lock()
	c.active = false
	c.lastError = err.Error()
	changed := c.state != StateDisconnected
	c.state = StateDisconnected
	retry := c.autoReconnect && !c.closed && c.reconnectState == reconnectIdle
	if retry {
		c.reconnectState = reconnectInProgress
	}
	ctx := c.ctx
	c.mu.Unlock()

	c.log.Warn("feed delivery failure", "error", err)
	if changed {
		c.notifyState(StateDisconnected)
	}
	if retry {
		go c.reconnectLoop(ctx)
	}
}

func (c *Controller) reconnectLoop(ctx context.Context) {
	cfg := c.backoff
	backoff := cfg.Initial

	defer func() {
		c.mu.Lock()
		c.reconnectState = reconnectIdle
		c.mu.Unlock()
	}()

	for attempts := 0; attempts < cfg.MaxAttempts; attempts++ {
		select {
		case <-ctx.Done():
			return
		default:
		}

		stream, err := c.open(ctx)
		if err != nil {
			c.log.Warn("feed reconnect attempt failed",
				"attempt", attempts+1,
				"max_attempts", cfg.MaxAttempts,
				"error", err)

			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = minDuration(backoff*2, cfg.MaxDelay)
			continue
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			stream.Close()
			return
		}
		c.active = true
		c.state = StateConnected
		c.lastError = ""
		c.reconnects++
		c.mu.Unlock()

		c.log.Info("feed reconnected", "attempts", attempts+1)
		c.notifyState(StateConnected)
		go c.consume(ctx, stream)
		return
	}

	// Attempts exhausted: the feed stays disconnected until an
	// operator asks for a reconnect.
	c.log.Error("feed reconnect attempts exhausted", "attempts", cfg.MaxAttempts)
}

// Subscribe registers a frame consumer. Slow consumers lose frames
// rather than stall the feed.
func (c *Controller) Subscribe() (string, <-chan []byte) {
	id := shared.NewID("sub_")
	ch := make(chan []byte, subscriberBuffer)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		close(ch)
		return id, ch
	}
	c.subscribers[id] = ch
	c.mu.Unlock()

	return id, ch
}

func (c *Controller) Unsubscribe(id string) {
	c.mu.Lock()
	ch, ok := c.subscribers[id]
	if ok {
		delete(c.subscribers, id)
	}
	c.mu.Unlock()

	if ok {
		close(ch)
	}
}

func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	subs := c.subscribers
	c.subscribers = make(map[string]chan []byte)
	c.mu.Unlock()

	c.cancel()
	for _, ch := range subs {
		close(ch)
	}
	return nil
}

func (c *Controller) clearActive() {
	c.mu.Lock()
	c.active = false
	c.mu.Unlock()
}

func (c *Controller) notifyState(state State) {
	if c.cb.OnStateChange != nil {
		c.cb.OnStateChange(state)
	}
}

func normalizeBackoff(cfg shared.BackoffConfig) shared.BackoffConfig {
	if cfg.Initial <= 0 {
		cfg.Initial = time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	return cfg
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
