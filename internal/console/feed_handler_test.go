package console

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/yassir2222/Wild-Fire-Detection/internal/alert"
	"github.com/yassir2222/Wild-Fire-Detection/internal/livefeed"
	"github.com/yassir2222/Wild-Fire-Detection/internal/metrics"
)

// stubStream delivers frames pushed by the test. Like the real feed
// stream, Next unblocks with an error once the dial context ends.
type stubStream struct {
	ctx    context.Context
	frames chan []byte
}

func (s *stubStream) Next() ([]byte, error) {
	select {
	case frame := <-s.frames:
		return frame, nil
	case <-s.ctx.Done():
		return nil, s.ctx.Err()
	}
}

func (s *stubStream) Close() error { return nil }

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// idleFeed is a controller that has never dialed; it reports connected
// and serves no frames.
func idleFeed(t *testing.T) *livefeed.Controller {
	t.Helper()
	ctrl := livefeed.New(livefeed.Config{
		Open: func(ctx context.Context) (livefeed.Stream, error) {
			return nil, errors.New("no upstream")
		},
		Log: testLogger(),
	})
	t.Cleanup(func() { ctrl.Close() })
	return ctrl
}

func streamingFeed(t *testing.T) (*livefeed.Controller, *stubStream) {
	t.Helper()
	stream := &stubStream{frames: make(chan []byte, 16)}
	ctrl := livefeed.New(livefeed.Config{
		Open: func(ctx context.Context) (livefeed.Stream, error) {
			stream.ctx = ctx
			return stream, nil
		},
		Log: testLogger(),
	})
	ctrl.Start()
	t.Cleanup(func() { ctrl.Close() })
	return ctrl, stream
}

func newFrameStore(t *testing.T) *livefeed.Store {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return livefeed.NewStore(client, time.Minute, time.Nanosecond)
}

func disabledNotifier() *alert.Notifier {
	return alert.New(alert.Config{Log: testLogger()})
}

func TestFeedHandler_Status(t *testing.T) {
	h := NewFeedHandler(idleFeed(t), newFrameStore(t), disabledNotifier(), metrics.New(prometheus.NewRegistry()), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	if err := h.HandleStatus(c); err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var status livefeed.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("failed to unmarshal status: %v", err)
	}
	if status.State != livefeed.StateConnected {
		t.Errorf("expected connected state, got %s", status.State)
	}
	if status.Frames != 0 {
		t.Errorf("expected 0 frames, got %d", status.Frames)
	}
}

func TestFeedHandler_Reconnect(t *testing.T) {
	h := NewFeedHandler(idleFeed(t), newFrameStore(t), disabledNotifier(), metrics.New(prometheus.NewRegistry()), testLogger())

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	if err := h.HandleReconnect(c); err != nil {
		t.Fatalf("reconnect failed: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d", rec.Code)
	}

	var status livefeed.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("failed to unmarshal status: %v", err)
	}
	if status.Reconnects != 1 {
		t.Errorf("expected 1 reconnect, got %d", status.Reconnects)
	}
}

func TestFeedHandler_Feed_StreamsFrames(t *testing.T) {
	ctrl, stream := streamingFeed(t)
	h := NewFeedHandler(ctrl, newFrameStore(t), disabledNotifier(), metrics.New(prometheus.NewRegistry()), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	done := make(chan error, 1)
	go func() { done <- h.HandleFeed(c) }()

	waitFor(t, "relay subscription", func() bool { return ctrl.Status().Subscribers == 1 })

	stream.frames <- []byte("frame-one")
	stream.frames <- []byte("frame-two")
	waitFor(t, "frame dispatch", func() bool { return ctrl.Status().Frames == 2 })

	// Closing the controller closes the subscriber channel; the relay
	// drains the buffered frames and returns.
	ctrl.Close()
	if err := <-done; err != nil {
		t.Fatalf("relay returned error: %v", err)
	}

	if ct := rec.Header().Get("Content-Type"); ct != "multipart/x-mixed-replace; boundary=frame" {
		t.Fatalf("unexpected content type %q", ct)
	}

	reader := multipart.NewReader(rec.Body, "frame")
	for i, want := range []string{"frame-one", "frame-two"} {
		part, err := reader.NextPart()
		if err != nil {
			t.Fatalf("failed to read part %d: %v", i, err)
		}
		if ct := part.Header.Get("Content-Type"); ct != "image/jpeg" {
			t.Errorf("part %d: expected image/jpeg, got %q", i, ct)
		}
		data, err := io.ReadAll(part)
		if err != nil {
			t.Fatalf("failed to read part %d body: %v", i, err)
		}
		if string(data) != want {
			t.Errorf("part %d: expected %q, got %q", i, want, data)
		}
	}
}

func TestFeedHandler_Feed_ClientDisconnect(t *testing.T) {
	ctrl, _ := streamingFeed(t)
	h := NewFeedHandler(ctrl, newFrameStore(t), disabledNotifier(), metrics.New(prometheus.NewRegistry()), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	done := make(chan error, 1)
	go func() { done <- h.HandleFeed(c) }()

	waitFor(t, "relay subscription", func() bool { return ctrl.Status().Subscribers == 1 })

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("relay returned error: %v", err)
	}
	waitFor(t, "subscription released", func() bool { return ctrl.Status().Subscribers == 0 })
}

func TestFeedHandler_Snapshot(t *testing.T) {
	store := newFrameStore(t)
	if err := store.Put(context.Background(), []byte("cached-frame")); err != nil {
		t.Fatalf("failed to seed frame: %v", err)
	}

	h := NewFeedHandler(idleFeed(t), store, disabledNotifier(), metrics.New(prometheus.NewRegistry()), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	if err := h.HandleSnapshot(c); err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if rec.Body.String() != "cached-frame" {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %q", ct)
	}
	if rec.Header().Get("Last-Modified") == "" {
		t.Error("expected a Last-Modified header")
	}
}

func TestFeedHandler_Snapshot_Empty(t *testing.T) {
	h := NewFeedHandler(idleFeed(t), newFrameStore(t), disabledNotifier(), metrics.New(prometheus.NewRegistry()), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	assertHTTPError(t, h.HandleSnapshot(c), http.StatusNotFound, "no_frame")
}

func TestFeedHandler_TestAlert_Disabled(t *testing.T) {
	h := NewFeedHandler(idleFeed(t), newFrameStore(t), disabledNotifier(), metrics.New(prometheus.NewRegistry()), testLogger())

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	assertHTTPError(t, h.HandleTestAlert(c), http.StatusServiceUnavailable, "alerts_disabled")
}

func TestFeedHandler_TestAlert_Sends(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(server.Close)

	notifier := alert.New(alert.Config{
		BotToken: "123:abc",
		ChatID:   "42",
		APIBase:  server.URL,
		Log:      testLogger(),
	})
	h := NewFeedHandler(idleFeed(t), newFrameStore(t), notifier, metrics.New(prometheus.NewRegistry()), testLogger())

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	if err := h.HandleTestAlert(c); err != nil {
		t.Fatalf("test alert failed: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 API call, got %d", calls.Load())
	}
}

func TestFeedHandler_RegisterRoutes(t *testing.T) {
	h := NewFeedHandler(idleFeed(t), newFrameStore(t), disabledNotifier(), metrics.New(prometheus.NewRegistry()), testLogger())

	e := echo.New()
	h.RegisterRoutes(e.Group("/api/v1"))

	want := map[string]bool{
		"GET /api/v1/feed":            false,
		"GET /api/v1/feed/status":     false,
		"POST /api/v1/feed/reconnect": false,
		"GET /api/v1/feed/snapshot":   false,
		"POST /api/v1/alerts/test":    false,
	}
	for _, route := range e.Routes() {
		key := route.Method + " " + route.Path
		if _, ok := want[key]; ok {
			want[key] = true
		}
	}
	for key, seen := range want {
		if !seen {
			t.Errorf("route %s not registered", key)
		}
	}
}
