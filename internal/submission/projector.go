package submission

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yassir2222/Wild-Fire-Detection/internal/detector"
	"github.com/yassir2222/Wild-Fire-Detection/internal/mediaref"
)

// imageEnvelope is the detection service's image-mode response body. A
// non-empty Error means the service failed despite HTTP success.
type imageEnvelope struct {
	Image      string      `json:"image"`
	Detections []Detection `json:"detections"`
	Count      int         `json:"count"`
	Error      string      `json:"error"`
}

type errorEnvelope struct {
	Error string `json:"error"`
}

// Projector interprets raw success payloads strictly by submission
// mode; it never sniffs the payload shape to infer one.
type Projector struct {
	registry *mediaref.Registry
}

func NewProjector(registry *mediaref.Registry) *Projector {
	return &Projector{registry: registry}
}

// Project converts a success body into a renderable result. prior is
// the result being superseded: any playable ref it still holds is
// released before the replacement is allocated.
//
// Image mode decodes the JSON envelope, surfaces an embedded error as
// *ServiceError, and otherwise keeps the detection sequence exactly as
// received. Video mode wraps the payload as a locally owned playable
// ref without attempting any parsing.
func (p *Projector) Project(mode detector.Mode, body []byte, prior *Result) (*Result, error) {
	if mode == detector.ModeVideo {
		p.ReleaseResult(prior)
		return &Result{
			Mode:     mode,
			VideoRef: p.registry.Allocate(body, "video/mp4"),
		}, nil
	}

	var envelope imageEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode detection response: %w", err)
	}
	if envelope.Error != "" {
		return nil, &ServiceError{Message: envelope.Error}
	}

	p.ReleaseResult(prior)
	return &Result{
		Mode:        mode,
		ImageSource: "data:image/jpeg;base64," + envelope.Image,
		Detections:  envelope.Detections,
	}, nil
}

// ReleaseResult retires the refs a result owns. Safe on nil.
func (p *Projector) ReleaseResult(result *Result) {
	if result == nil {
		return
	}
	if result.VideoRef != nil {
		p.registry.Release(result.VideoRef)
		result.VideoRef = nil
	}
}

// ExtractError pulls the service-reported error text out of a failure
// body, if there is one.
func ExtractError(body []byte) (string, bool) {
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", false
	}
	if envelope.Error == "" {
		return "", false
	}
	return envelope.Error, true
}

// IsFireLabel reports whether a detection label is fire-related, by
// case-insensitive substring match. Display classification only; it
// never alters detection data.
func IsFireLabel(label string) bool {
	return strings.Contains(strings.ToLower(label), "fire")
}
