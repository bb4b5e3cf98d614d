package mediaref

import (
	"sync"
	"time"

	"github.com/yassir2222/Wild-Fire-Detection/internal/shared"
)

// Ref is a locally materialized binary handle: a selection preview or a
// processed video payload. Refs are owned by exactly one component, which
// must release them on replacement or teardown.
type Ref struct {
	ID        string
	MIME      string
	Data      []byte
	CreatedAt time.Time
}

type Registry struct {
	mu   sync.RWMutex
	refs map[string]*Ref
}

func NewRegistry() *Registry {
	return &Registry{refs: make(map[string]*Ref)}
}

func (r *Registry) Allocate(data []byte, mime string) *Ref {
	ref := &Ref{
		ID:        shared.NewID("ref_"),
		MIME:      mime,
		Data:      data,
		CreatedAt: time.Now(),
	}

	r.mu.Lock()
	r.refs[ref.ID] = ref
	r.mu.Unlock()

	return ref
}

// Release invalidates a ref. Safe to call with nil or with a ref that was
// already released.
func (r *Registry) Release(ref *Ref) {
	if ref == nil {
		return
	}
	r.mu.Lock()
	delete(r.refs, ref.ID)
	r.mu.Unlock()
}

func (r *Registry) Get(id string) (*Ref, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ref, ok := r.refs[id]
	return ref, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.refs)
}
