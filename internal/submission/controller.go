package submission

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/yassir2222/Wild-Fire-Detection/internal/detector"
	"github.com/yassir2222/Wild-Fire-Detection/internal/mediaref"
)

const genericUploadError = "upload failed"

// Submitter issues one upload to the detection service. Transport
// faults come back as errors; status interpretation stays with the
// controller.
type Submitter interface {
	Submit(ctx context.Context, mode detector.Mode, filename, mime string, data []byte) (*detector.Response, error)
}

// Controller runs the submission lifecycle for one operator session:
//
//	idle -> ready -> in_flight -> succeeded | failed
//
// ready, succeeded, and failed re-enter ready on a new selection or
// Retry, and fall back to idle on Clear. Exactly one state is active at
// a time; at most one request is in flight per controller, and a second
// Submit during flight is a guarded no-op.
type Controller struct {
	mu        sync.Mutex
	state     State
	mode      detector.Mode
	selection *Selection
	result    *Result
	failure   string
	closed    bool

	client    Submitter
	registry  *mediaref.Registry
	projector *Projector
	cb        Callbacks
	log       *slog.Logger
}

func NewController(client Submitter, registry *mediaref.Registry, cb Callbacks, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		state:     StateIdle,
		mode:      detector.ModeImage,
		client:    client,
		registry:  registry,
		projector: NewProjector(registry),
		cb:        cb,
		log:       log.With("component", "submission_controller"),
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Mode() detector.Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// SetMode picks the endpoint and response interpretation for the next
// submit. Rejected while a request is in flight.
func (c *Controller) SetMode(mode detector.Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("invalid mode %q", mode)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.state == StateInFlight {
		return ErrBusy
	}
	c.mode = mode
	return nil
}

// Select stages a new file, replacing any existing selection. The prior
// preview ref is retired before the new one is allocated, and any stale
// result or error is discarded.
func (c *Controller) Select(filename, mime string, data []byte) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state == StateInFlight {
		c.mu.Unlock()
		return ErrBusy
	}

	c.releaseLocked()
	c.selection = newSelection(c.registry, filename, mime, data)
	c.state = StateReady
	c.mu.Unlock()

	c.notifyState(StateReady)
	return nil
}

// Clear drops the selection and every held local ref, returning the
// controller to idle.
func (c *Controller) Clear() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state == StateInFlight {
		c.mu.Unlock()
		return ErrBusy
	}

	c.releaseLocked()
	c.selection = nil
	c.state = StateIdle
	c.mu.Unlock()

	c.notifyState(StateIdle)
	return nil
}

// Retry re-arms the current selection after a terminal attempt,
// discarding its result or error.
func (c *Controller) Retry() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}

	switch c.state {
	case StateInFlight:
		c.mu.Unlock()
		return ErrBusy
	case StateIdle:
		c.mu.Unlock()
		return ErrNotReady
	case StateReady:
		c.mu.Unlock()
		return nil
	}

	c.projector.ReleaseResult(c.result)
	c.result = nil
	c.failure = ""
	c.state = StateReady
	c.mu.Unlock()

	c.notifyState(StateReady)
	return nil
}

// Submit runs exactly one upload for the staged selection and blocks
// until it completes. The outcome lands in the controller state, never
// in the return value: a failed attempt surfaces its message through
// the failed state. The error return only reports precondition
// violations, for which no request is issued.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state != StateReady {
		c.mu.Unlock()
		return ErrNotReady
	}
	media := c.selection
	mode := c.mode
	c.state = StateInFlight
	c.mu.Unlock()

	c.notifyState(StateInFlight)

	resp, err := c.client.Submit(ctx, mode, media.Filename, media.MIME, media.Data)

	c.mu.Lock()
	if c.closed {
		// Teardown raced the response. Nothing has been projected or
		// allocated yet, so the late payload is simply dropped.
		c.mu.Unlock()
		return ErrClosed
	}

	var detections []Detection
	next := StateFailed
	switch {
	case err != nil:
		c.failure = err.Error()
		c.log.Warn("submission transport failure", "mode", mode, "error", err)
	case !resp.OK():
		msg, ok := ExtractError(resp.Body)
		if !ok {
			msg = genericUploadError
		}
		c.failure = msg
		c.log.Warn("submission rejected", "mode", mode, "status", resp.Status, "error", msg)
	default:
		result, perr := c.projector.Project(mode, resp.Body, c.result)
		if perr != nil {
			c.failure = perr.Error()
			c.log.Warn("submission failed", "mode", mode, "error", perr)
		} else {
			c.result = result
			c.failure = ""
			detections = result.Detections
			next = StateSucceeded
			c.log.Info("submission succeeded", "mode", mode, "detections", len(detections))
		}
	}
	c.state = next
	c.mu.Unlock()

	c.notifyState(next)
	if next == StateSucceeded && len(detections) > 0 {
		c.notifyDetections(detections)
	}
	return nil
}

// Snapshot is a point-in-time copy of the observable controller state.
type Snapshot struct {
	State       State
	Mode        detector.Mode
	Filename    string
	MIME        string
	Size        int
	PreviewID   string
	Failure     string
	ImageSource string
	Detections  []Detection
	VideoID     string
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		State:   c.state,
		Mode:    c.mode,
		Failure: c.failure,
	}
	if c.selection != nil {
		snap.Filename = c.selection.Filename
		snap.MIME = c.selection.MIME
		snap.Size = c.selection.Size
		if c.selection.Preview != nil {
			snap.PreviewID = c.selection.Preview.ID
		}
	}
	if c.result != nil {
		snap.ImageSource = c.result.ImageSource
		snap.Detections = c.result.Detections
		if c.result.VideoRef != nil {
			snap.VideoID = c.result.VideoRef.ID
		}
	}
	return snap
}

// Close tears the controller down, releasing every held ref. A response
// still in flight is discarded when it arrives.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.releaseLocked()
	c.selection = nil
	c.mu.Unlock()
}

// releaseLocked retires the preview and result refs and clears the
// failure text. Caller holds c.mu.
func (c *Controller) releaseLocked() {
	if c.selection != nil && c.selection.Preview != nil {
		c.registry.Release(c.selection.Preview)
		c.selection.Preview = nil
	}
	c.projector.ReleaseResult(c.result)
	c.result = nil
	c.failure = ""
}

func (c *Controller) notifyState(state State) {
	if c.cb.OnStateChange != nil {
		c.cb.OnStateChange(state)
	}
}

func (c *Controller) notifyDetections(detections []Detection) {
	if c.cb.OnDetections != nil {
		c.cb.OnDetections(detections)
	}
}
