package submission

import (
	"log/slog"
	"sync"
	"time"

	"github.com/yassir2222/Wild-Fire-Detection/internal/mediaref"
	"github.com/yassir2222/Wild-Fire-Detection/internal/shared"
)

// Session pairs one operator with one controller instance. Sessions are
// in-memory only; past submissions are not persisted.
type Session struct {
	ID         string
	Controller *Controller
	CreatedAt  time.Time

	mu         sync.Mutex
	lastActive time.Time
}

func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
}

func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	client       Submitter
	registry     *mediaref.Registry
	onState      func(sessionID string, state State)
	onDetections func(sessionID string, detections []Detection)
	log          *slog.Logger
}

type ManagerConfig struct {
	Client       Submitter
	Registry     *mediaref.Registry
	OnState      func(sessionID string, state State)
	OnDetections func(sessionID string, detections []Detection)
	Log          *slog.Logger
}

func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	return &Manager{
		sessions:     make(map[string]*Session),
		client:       cfg.Client,
		registry:     cfg.Registry,
		onState:      cfg.OnState,
		onDetections: cfg.OnDetections,
		log:          cfg.Log.With("component", "submission_manager"),
	}
}

func (m *Manager) Create() *Session {
	id := shared.NewID("sess_")

	var cb Callbacks
	if m.onState != nil {
		cb.OnStateChange = func(state State) { m.onState(id, state) }
	}
	if m.onDetections != nil {
		cb.OnDetections = func(detections []Detection) { m.onDetections(id, detections) }
	}

	sess := &Session{
		ID:         id,
		Controller: NewController(m.client, m.registry, cb, m.log),
		CreatedAt:  time.Now(),
		lastActive: time.Now(),
	}

	m.mu.Lock()
	m.sessions[id] = sess
	m.mu.Unlock()

	m.log.Info("submission session created", "session_id", id)
	return sess
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		sess.Touch()
	}
	return sess, ok
}

func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if sess != nil {
		sess.Controller.Close()
		m.log.Info("submission session removed", "session_id", id)
	}
	return ok
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// SessionInfo summarizes one session for introspection endpoints.
type SessionInfo struct {
	SessionID  string
	State      State
	Mode       string
	CreatedAt  time.Time
	LastActive time.Time
}

func (m *Manager) List() []SessionInfo {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		sessions = append(sessions, sess)
	}
	m.mu.RUnlock()

	infos := make([]SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		snap := sess.Controller.Snapshot()
		infos = append(infos, SessionInfo{
			SessionID:  sess.ID,
			State:      snap.State,
			Mode:       snap.Mode.String(),
			CreatedAt:  sess.CreatedAt,
			LastActive: sess.LastActive(),
		})
	}
	return infos
}

// Sweep removes sessions idle for longer than maxIdle and returns how
// many were dropped. An in-flight response for a swept session is
// discarded by its controller.
func (m *Manager) Sweep(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	m.mu.Lock()
	var expired []*Session
	for id, sess := range m.sessions {
		if sess.LastActive().Before(cutoff) {
			delete(m.sessions, id)
			expired = append(expired, sess)
		}
	}
	m.mu.Unlock()

	for _, sess := range expired {
		sess.Controller.Close()
		m.log.Info("submission session expired", "session_id", sess.ID)
	}
	return len(expired)
}

func (m *Manager) Close() error {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		sessions = append(sessions, sess)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, sess := range sessions {
		sess.Controller.Close()
	}
	return nil
}
