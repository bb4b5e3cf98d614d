package submission

import (
	"errors"

	"github.com/yassir2222/Wild-Fire-Detection/internal/detector"
	"github.com/yassir2222/Wild-Fire-Detection/internal/mediaref"
)

var (
	// ErrNotReady guards Submit: no staged selection, or the previous
	// attempt has not been cleared.
	ErrNotReady = errors.New("submission not ready")
	// ErrBusy rejects selection changes while a request is in flight.
	ErrBusy = errors.New("submission in flight")
	// ErrClosed is returned by every operation after teardown.
	ErrClosed = errors.New("controller closed")
)

type State string

const (
	StateIdle      State = "idle"
	StateReady     State = "ready"
	StateInFlight  State = "in_flight"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Detection is one labeled, confidence-scored object reported by the
// detection service for a submitted image. Sequence order and raw
// confidence values are server-supplied and kept as received.
type Detection struct {
	Label      string  `json:"class"`
	Confidence float64 `json:"confidence"`
}

// Selection is the operator's staged file plus its short-lived local
// preview reference. The preview ref is owned here and retired whenever
// the selection is replaced or cleared.
type Selection struct {
	Filename string
	MIME     string
	Size     int
	Data     []byte
	Preview  *mediaref.Ref
}

// Result is the display-ready projection of one successful submission.
// Image mode fills ImageSource and Detections; video mode fills
// VideoRef. Never both.
type Result struct {
	Mode        detector.Mode
	ImageSource string
	Detections  []Detection
	VideoRef    *mediaref.Ref
}

// ServiceError is a failure the detection service reports inside an
// otherwise well-formed response body.
type ServiceError struct {
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

type Callbacks struct {
	OnStateChange func(state State)
	OnDetections  func(detections []Detection)
}
