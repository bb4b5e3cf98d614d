package console

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/yassir2222/Wild-Fire-Detection/internal/livefeed"
	"github.com/yassir2222/Wild-Fire-Detection/internal/shared"
	"github.com/yassir2222/Wild-Fire-Detection/internal/submission"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
	eventBuffer    = 128
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	EventSubmissionState = "submission_state"
	EventDetections      = "detections"
	EventFeedState       = "feed_state"
)

// Event is one push notification to a connected console. Exactly the
// fields for its type are set; the rest stay empty.
type Event struct {
	Type       string              `json:"type"`
	SessionID  string              `json:"session_id,omitempty"`
	State      string              `json:"state,omitempty"`
	Detections []DetectionResponse `json:"detections,omitempty"`
	Timestamp  time.Time           `json:"timestamp"`
}

// EventHub fans submission and feed transitions out to every connected
// console over websocket. Delivery is best effort: a client that cannot
// keep up loses events rather than stalling the rest.
type EventHub struct {
	feed   *livefeed.Controller
	logger *slog.Logger

	mu     sync.RWMutex
	conns  map[string]*eventConn
	closed bool
}

func NewEventHub(feed *livefeed.Controller, logger *slog.Logger) *EventHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventHub{
		feed:   feed,
		logger: logger.With("component", "event_hub"),
		conns:  make(map[string]*eventConn),
	}
}

func (h *EventHub) RegisterRoutes(g *echo.Group) {
	g.GET("/events", h.HandleEvents)
}

func (h *EventHub) SubmissionState(sessionID string, state submission.State) {
	h.broadcast(Event{
		Type:      EventSubmissionState,
		SessionID: sessionID,
		State:     string(state),
	})
}

func (h *EventHub) Detections(sessionID string, detections []submission.Detection) {
	h.broadcast(Event{
		Type:       EventDetections,
		SessionID:  sessionID,
		Detections: toDetectionResponses(detections),
	})
}

func (h *EventHub) FeedState(state livefeed.State) {
	h.broadcast(Event{
		Type:  EventFeedState,
		State: string(state),
	})
}

func (h *EventHub) broadcast(evt Event) {
	evt.Timestamp = time.Now()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, conn := range h.conns {
		conn.enqueue(evt)
	}
}

func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *EventHub) HandleEvents(c echo.Context) error {
	ws, err := wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return err
	}

	conn := newEventConn(ws, h.logger)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = ws.Close()
		return nil
	}
	id := shared.NewID("evt_")
	h.conns[id] = conn
	h.mu.Unlock()

	// The current feed state goes out first, so a console that just
	// attached renders the right banner without waiting for a transition.
	conn.enqueue(Event{
		Type:      EventFeedState,
		State:     string(h.feed.State()),
		Timestamp: time.Now(),
	})

	h.logger.Info("events client connected", "client_id", id)

	go conn.writePump()
	conn.readPump()

	h.mu.Lock()
	delete(h.conns, id)
	h.mu.Unlock()
	conn.close()

	h.logger.Info("events client disconnected", "client_id", id)
	return nil
}

func (h *EventHub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	conns := h.conns
	h.conns = make(map[string]*eventConn)
	h.mu.Unlock()

	for _, conn := range conns {
		conn.close()
	}
	return nil
}

type eventConn struct {
	ws     *websocket.Conn
	logger *slog.Logger
	send   chan Event
	done   chan struct{}

	mu     sync.Mutex
	closed bool
}

func newEventConn(ws *websocket.Conn, logger *slog.Logger) *eventConn {
	return &eventConn{
		ws:     ws,
		logger: logger,
		send:   make(chan Event, eventBuffer),
		done:   make(chan struct{}),
	}
}

func (c *eventConn) enqueue(evt Event) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	select {
	case c.send <- evt:
	default:
		c.logger.Warn("event buffer full, dropping event", "type", evt.Type)
	}
}

func (c *eventConn) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.done)
	c.mu.Unlock()

	_ = c.ws.Close()
}

func (c *eventConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case evt := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			data, err := json.Marshal(evt)
			if err != nil {
				c.logger.Error("failed to marshal event", "error", err)
				continue
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// readPump drains inbound frames. The events stream is push only, so
// reads exist to run the pong handler and to notice the client going
// away; any payload the client sends is discarded.
func (c *eventConn) readPump() {
	defer c.close()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket read error", "error", err)
			}
			return
		}
	}
}
