package detector

import "time"

type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Mode selects the upstream endpoint and, downstream, how its response
// body is interpreted.
type Mode string

const (
	ModeImage Mode = "image"
	ModeVideo Mode = "video"
)

func (m Mode) Valid() bool {
	return m == ModeImage || m == ModeVideo
}

func (m Mode) String() string {
	return string(m)
}

func (m Mode) endpoint() string {
	if m == ModeVideo {
		return "/detect/video"
	}
	return "/detect/image"
}

// Response carries the raw upstream status and body. Interpreting the
// status and parsing the body belong to the caller; a non-nil error from
// Submit covers transport faults only.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

type HealthStatus struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}
