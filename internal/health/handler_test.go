package health

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/yassir2222/Wild-Fire-Detection/internal/detector"
	"github.com/yassir2222/Wild-Fire-Detection/internal/livefeed"
	"github.com/yassir2222/Wild-Fire-Detection/internal/mediaref"
	"github.com/yassir2222/Wild-Fire-Detection/internal/submission"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func healthyDetectorServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","model_loaded":true}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func connectedFeed(t *testing.T) *livefeed.Controller {
	t.Helper()
	feed := livefeed.New(livefeed.Config{
		Open: func(ctx context.Context) (livefeed.Stream, error) {
			return nil, errors.New("not dialed in tests")
		},
		Log: testLogger(),
	})
	t.Cleanup(func() { feed.Close() })
	return feed
}

func disconnectedFeed(t *testing.T) *livefeed.Controller {
	t.Helper()
	feed := livefeed.New(livefeed.Config{
		Open: func(ctx context.Context) (livefeed.Stream, error) {
			return nil, errors.New("feed upstream down")
		},
		Log: testLogger(),
	})
	t.Cleanup(func() { feed.Close() })

	feed.Start()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if feed.State() == livefeed.StateDisconnected {
			return feed
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("feed did not disconnect in time")
	return nil
}

func newTestHandler(t *testing.T, detectorURL string, feed *livefeed.Controller) (*Handler, *submission.Manager) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	detectorClient := detector.NewClient(detector.Config{BaseURL: detectorURL})
	registry := mediaref.NewRegistry()
	manager := submission.NewManager(submission.ManagerConfig{
		Client:   detectorClient,
		Registry: registry,
		Log:      testLogger(),
	})
	t.Cleanup(func() { manager.Close() })

	return NewHandler(redisClient, detectorClient, feed, manager, registry, "test"), manager
}

func TestHandler_RegisterRoutes(t *testing.T) {
	h, _ := newTestHandler(t, "http://127.0.0.1:1", connectedFeed(t))
	e := echo.New()

	h.RegisterRoutes(e)

	expectedPaths := []string{
		"/health",
		"/health/ready",
		"/health/sessions",
		"/health/detector",
	}

	routePaths := make(map[string]bool)
	for _, r := range e.Routes() {
		routePaths[r.Path] = true
	}

	for _, path := range expectedPaths {
		if !routePaths[path] {
			t.Errorf("expected route %s to be registered", path)
		}
	}
}

func TestHandler_Liveness(t *testing.T) {
	h, _ := newTestHandler(t, "http://127.0.0.1:1", connectedFeed(t))
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Liveness(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("expected ok body, got %s", rec.Body.String())
	}
}

func TestHandler_Readiness_AllHealthy(t *testing.T) {
	server := healthyDetectorServer(t)
	h, _ := newTestHandler(t, server.URL, connectedFeed(t))
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Readiness(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	if resp.Status != StatusHealthy {
		t.Errorf("expected overall status healthy, got %s", resp.Status)
	}
	if resp.Version != "test" {
		t.Errorf("expected version test, got %s", resp.Version)
	}
	for _, name := range []string{"detector", "redis", "feed"} {
		component, ok := resp.Components[name]
		if !ok {
			t.Fatalf("expected component %s in response", name)
		}
		if component.Status != StatusHealthy {
			t.Errorf("expected component %s healthy, got %s", name, component.Status)
		}
	}
	if resp.Stats.Runtime.Goroutines == 0 {
		t.Error("expected runtime stats to be populated")
	}
}

func TestHandler_Readiness_DetectorDown(t *testing.T) {
	h, _ := newTestHandler(t, "http://127.0.0.1:1", connectedFeed(t))
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Readiness(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Status != StatusUnhealthy {
		t.Errorf("expected overall status unhealthy, got %s", resp.Status)
	}
	if resp.Components["detector"].Status != StatusUnhealthy {
		t.Errorf("expected detector unhealthy, got %s", resp.Components["detector"].Status)
	}
}

func TestHandler_Readiness_ModelNotLoaded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","model_loaded":false}`))
	}))
	defer server.Close()

	h, _ := newTestHandler(t, server.URL, connectedFeed(t))
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Readiness(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Status != StatusDegraded {
		t.Errorf("expected overall status degraded, got %s", resp.Status)
	}
	if resp.Components["detector"].Status != StatusDegraded {
		t.Errorf("expected detector degraded, got %s", resp.Components["detector"].Status)
	}
}

func TestHandler_Readiness_FeedDisconnected(t *testing.T) {
	server := healthyDetectorServer(t)
	h, _ := newTestHandler(t, server.URL, disconnectedFeed(t))
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Readiness(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected a degraded feed to keep the console ready, got %d", rec.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Status != StatusDegraded {
		t.Errorf("expected overall status degraded, got %s", resp.Status)
	}
	if resp.Components["feed"].Status != StatusDegraded {
		t.Errorf("expected feed degraded, got %s", resp.Components["feed"].Status)
	}
	if resp.Components["feed"].Error == "" {
		t.Error("expected feed component to carry the last error")
	}
}

func TestHandler_Sessions(t *testing.T) {
	h, manager := newTestHandler(t, "http://127.0.0.1:1", connectedFeed(t))
	manager.Create()
	manager.Create()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health/sessions", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Sessions(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var resp SessionsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	if resp.Total != 2 {
		t.Fatalf("expected 2 sessions, got %d", resp.Total)
	}
	for _, s := range resp.Sessions {
		if !strings.HasPrefix(s.SessionID, "sess_") {
			t.Errorf("expected session ID prefix sess_, got %s", s.SessionID)
		}
		if s.State != "idle" {
			t.Errorf("expected fresh session state idle, got %s", s.State)
		}
		if s.Mode != "image" {
			t.Errorf("expected default mode image, got %s", s.Mode)
		}
	}
}

func TestHandler_Detector_Healthy(t *testing.T) {
	server := healthyDetectorServer(t)
	h, _ := newTestHandler(t, server.URL, connectedFeed(t))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health/detector", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Detector(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var resp DetectorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Status != StatusHealthy {
		t.Errorf("expected healthy, got %s", resp.Status)
	}
	if !resp.ModelLoaded {
		t.Error("expected model_loaded true")
	}
}

func TestHandler_Detector_Unreachable(t *testing.T) {
	h, _ := newTestHandler(t, "http://127.0.0.1:1", connectedFeed(t))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health/detector", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Detector(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}

	var resp DetectorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Status != StatusUnhealthy {
		t.Errorf("expected unhealthy, got %s", resp.Status)
	}
	if resp.Error == "" {
		t.Error("expected error detail")
	}
}

func TestComputeOverallStatus(t *testing.T) {
	h := &Handler{}

	tests := []struct {
		name       string
		components map[string]ComponentStatus
		want       Status
	}{
		{
			name: "all healthy",
			components: map[string]ComponentStatus{
				"detector": {Status: StatusHealthy},
				"redis":    {Status: StatusHealthy},
				"feed":     {Status: StatusHealthy},
			},
			want: StatusHealthy,
		},
		{
			name: "detector unhealthy is critical",
			components: map[string]ComponentStatus{
				"detector": {Status: StatusUnhealthy},
				"redis":    {Status: StatusHealthy},
				"feed":     {Status: StatusHealthy},
			},
			want: StatusUnhealthy,
		},
		{
			name: "redis unhealthy only degrades",
			components: map[string]ComponentStatus{
				"detector": {Status: StatusHealthy},
				"redis":    {Status: StatusUnhealthy},
				"feed":     {Status: StatusHealthy},
			},
			want: StatusDegraded,
		},
		{
			name: "feed degraded degrades overall",
			components: map[string]ComponentStatus{
				"detector": {Status: StatusHealthy},
				"redis":    {Status: StatusHealthy},
				"feed":     {Status: StatusDegraded},
			},
			want: StatusDegraded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := h.computeOverallStatus(tt.components); got != tt.want {
				t.Errorf("computeOverallStatus() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestHandler_RequestCounters(t *testing.T) {
	h, _ := newTestHandler(t, "http://127.0.0.1:1", connectedFeed(t))

	h.IncrementRequests()
	h.IncrementRequests()
	h.IncrementConnections()
	h.IncrementConnections()
	h.DecrementConnections()

	if h.totalRequests != 2 {
		t.Errorf("expected 2 total requests, got %d", h.totalRequests)
	}
	if h.activeConnections != 1 {
		t.Errorf("expected 1 active connection, got %d", h.activeConnections)
	}
}
