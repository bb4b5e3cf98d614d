package submission

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yassir2222/Wild-Fire-Detection/internal/mediaref"
)

func newTestManager() *Manager {
	return NewManager(ManagerConfig{
		Client:   &fakeSubmitter{resp: okImageResponse(`{}`)},
		Registry: mediaref.NewRegistry(),
		Log:      testLogger(),
	})
}

func TestManager_Create(t *testing.T) {
	m := newTestManager()

	sess := m.Create()
	if !strings.HasPrefix(sess.ID, "sess_") {
		t.Errorf("expected sess_ prefix, got '%s'", sess.ID)
	}
	if sess.Controller == nil {
		t.Fatal("expected controller")
	}
	if sess.Controller.State() != StateIdle {
		t.Errorf("expected idle controller, got %s", sess.Controller.State())
	}
	if m.Count() != 1 {
		t.Errorf("expected count 1, got %d", m.Count())
	}
}

func TestManager_Get(t *testing.T) {
	m := newTestManager()
	sess := m.Create()

	got, ok := m.Get(sess.ID)
	if !ok {
		t.Fatal("expected session to be found")
	}
	if got.ID != sess.ID {
		t.Errorf("expected id '%s', got '%s'", sess.ID, got.ID)
	}

	if _, ok := m.Get("sess_missing"); ok {
		t.Error("expected missing session to not be found")
	}
}

func TestManager_Remove(t *testing.T) {
	m := newTestManager()
	sess := m.Create()

	if !m.Remove(sess.ID) {
		t.Fatal("expected Remove to report true")
	}
	if m.Count() != 0 {
		t.Errorf("expected count 0, got %d", m.Count())
	}
	if err := sess.Controller.Select("x.jpg", "image/jpeg", []byte("x")); !errors.Is(err, ErrClosed) {
		t.Errorf("expected removed session's controller to be closed, got %v", err)
	}
	if m.Remove(sess.ID) {
		t.Error("expected second Remove to report false")
	}
}

func TestManager_Sweep(t *testing.T) {
	m := newTestManager()
	stale := m.Create()
	fresh := m.Create()

	stale.mu.Lock()
	stale.lastActive = time.Now().Add(-time.Hour)
	stale.mu.Unlock()

	removed := m.Sweep(30 * time.Minute)
	if removed != 1 {
		t.Fatalf("expected 1 session swept, got %d", removed)
	}
	if _, ok := m.Get(stale.ID); ok {
		t.Error("expected stale session to be gone")
	}
	if _, ok := m.Get(fresh.ID); !ok {
		t.Error("expected fresh session to survive")
	}
	if err := stale.Controller.Clear(); !errors.Is(err, ErrClosed) {
		t.Errorf("expected swept controller to be closed, got %v", err)
	}
}

func TestManager_Get_TouchesSession(t *testing.T) {
	m := newTestManager()
	sess := m.Create()

	sess.mu.Lock()
	sess.lastActive = time.Now().Add(-time.Hour)
	sess.mu.Unlock()

	m.Get(sess.ID)

	if m.Sweep(30*time.Minute) != 0 {
		t.Error("expected recent Get to keep the session alive")
	}
}

func TestManager_Close(t *testing.T) {
	m := newTestManager()
	first := m.Create()
	second := m.Create()

	if err := m.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if m.Count() != 0 {
		t.Errorf("expected count 0, got %d", m.Count())
	}
	for _, sess := range []*Session{first, second} {
		if err := sess.Controller.Clear(); !errors.Is(err, ErrClosed) {
			t.Errorf("expected closed controller, got %v", err)
		}
	}
}

func TestManager_CallbacksCarrySessionID(t *testing.T) {
	var mu sync.Mutex
	var gotSession string
	var gotState State

	m := NewManager(ManagerConfig{
		Client:   &fakeSubmitter{resp: okImageResponse(`{}`)},
		Registry: mediaref.NewRegistry(),
		OnState: func(sessionID string, state State) {
			mu.Lock()
			gotSession = sessionID
			gotState = state
			mu.Unlock()
		},
		Log: testLogger(),
	})

	sess := m.Create()
	sess.Controller.Select("scene.jpg", "image/jpeg", []byte("payload"))

	mu.Lock()
	defer mu.Unlock()
	if gotSession != sess.ID {
		t.Errorf("expected session id '%s', got '%s'", sess.ID, gotSession)
	}
	if gotState != StateReady {
		t.Errorf("expected ready, got %s", gotState)
	}
}
