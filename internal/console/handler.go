package console

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/yassir2222/Wild-Fire-Detection/internal/detector"
	"github.com/yassir2222/Wild-Fire-Detection/internal/mediaref"
	"github.com/yassir2222/Wild-Fire-Detection/internal/metrics"
	"github.com/yassir2222/Wild-Fire-Detection/internal/shared"
	"github.com/yassir2222/Wild-Fire-Detection/internal/submission"
)

const (
	maxUploadSize   = 200 * 1024 * 1024
	mediaPathPrefix = "/api/v1/media/"
)

type Handler struct {
	manager  *submission.Manager
	registry *mediaref.Registry
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewHandler(manager *submission.Manager, registry *mediaref.Registry, m *metrics.Metrics, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		manager:  manager,
		registry: registry,
		metrics:  m,
		logger:   logger.With("handler", "console"),
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/sessions", h.HandleCreateSession)
	g.GET("/sessions/:id", h.HandleGetSession)
	g.DELETE("/sessions/:id", h.HandleDeleteSession)
	g.POST("/sessions/:id/media", h.HandleSelectMedia)
	g.DELETE("/sessions/:id/media", h.HandleClearMedia)
	g.POST("/sessions/:id/mode", h.HandleSetMode)
	g.POST("/sessions/:id/detect", h.HandleDetect)
	g.POST("/sessions/:id/retry", h.HandleRetry)
	g.GET("/media/:id", h.HandleMedia)
}

type SessionResponse struct {
	SessionID string             `json:"session_id"`
	State     string             `json:"state"`
	Mode      string             `json:"mode"`
	Selection *SelectionResponse `json:"selection,omitempty"`
	Result    *ResultResponse    `json:"result,omitempty"`
	Error     string             `json:"error,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

type SelectionResponse struct {
	Filename   string `json:"filename"`
	MimeType   string `json:"mime_type"`
	Size       int    `json:"size"`
	PreviewURL string `json:"preview_url,omitempty"`
}

// DetectionResponse mirrors one detection as reported by the detection
// service. FireRelated is derived for display and never alters the
// label or confidence underneath it.
type DetectionResponse struct {
	Label       string  `json:"label"`
	Confidence  float64 `json:"confidence"`
	FireRelated bool    `json:"fire_related"`
}

type ResultResponse struct {
	ImageSource string              `json:"image_source,omitempty"`
	Detections  []DetectionResponse `json:"detections,omitempty"`
	Count       int                 `json:"count"`
	VideoURL    string              `json:"video_url,omitempty"`
}

type ModeRequest struct {
	Mode string `json:"mode"`
}

func toDetectionResponses(detections []submission.Detection) []DetectionResponse {
	out := make([]DetectionResponse, 0, len(detections))
	for _, d := range detections {
		out = append(out, DetectionResponse{
			Label:       d.Label,
			Confidence:  d.Confidence,
			FireRelated: submission.IsFireLabel(d.Label),
		})
	}
	return out
}

func sessionToResponse(sess *submission.Session) SessionResponse {
	snap := sess.Controller.Snapshot()

	resp := SessionResponse{
		SessionID: sess.ID,
		State:     string(snap.State),
		Mode:      snap.Mode.String(),
		CreatedAt: sess.CreatedAt,
	}

	if snap.Filename != "" {
		sel := &SelectionResponse{
			Filename: snap.Filename,
			MimeType: snap.MIME,
			Size:     snap.Size,
		}
		if snap.PreviewID != "" {
			sel.PreviewURL = mediaPathPrefix + snap.PreviewID
		}
		resp.Selection = sel
	}

	if snap.State == submission.StateFailed {
		resp.Error = snap.Failure
	}

	if snap.State == submission.StateSucceeded {
		result := &ResultResponse{
			ImageSource: snap.ImageSource,
			Detections:  toDetectionResponses(snap.Detections),
			Count:       len(snap.Detections),
		}
		if snap.VideoID != "" {
			result.VideoURL = mediaPathPrefix + snap.VideoID
		}
		resp.Result = result
	}

	return resp
}

// submissionError maps controller guard sentinels onto API errors. Guard
// violations are state conflicts, not bad requests: the request was well
// formed, the session just cannot honor it right now.
func submissionError(err error) error {
	switch {
	case errors.Is(err, submission.ErrBusy):
		return shared.Conflict("submission_in_flight", "A detection request is already in flight")
	case errors.Is(err, submission.ErrNotReady):
		return shared.Conflict("not_ready", "No selection is staged for submission")
	case errors.Is(err, submission.ErrClosed):
		return shared.NotFound("session_not_found", "Session no longer exists")
	}
	return shared.InternalError("submission_failed", err.Error())
}

func (h *Handler) lookupSession(c echo.Context) (*submission.Session, error) {
	sess, ok := h.manager.Get(c.Param("id"))
	if !ok {
		return nil, shared.NotFound("session_not_found", "Session not found")
	}
	return sess, nil
}

// HandleCreateSession opens a new operator session
// @Summary      Create a session
// @Description  Creates an independent detection-submission session. Each session owns its own selection, mode, and result; sessions idle past the configured TTL are reclaimed.
// @Tags         sessions
// @Produce      json
// @Success      201 {object} SessionResponse "Created session, idle with no selection"
// @Router       /sessions [post]
func (h *Handler) HandleCreateSession(c echo.Context) error {
	sess := h.manager.Create()
	h.metrics.SetActiveSessions(h.manager.Count())
	return c.JSON(http.StatusCreated, sessionToResponse(sess))
}

func (h *Handler) HandleGetSession(c echo.Context) error {
	sess, err := h.lookupSession(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sessionToResponse(sess))
}

func (h *Handler) HandleDeleteSession(c echo.Context) error {
	if !h.manager.Remove(c.Param("id")) {
		return shared.NotFound("session_not_found", "Session not found")
	}
	h.metrics.SetActiveSessions(h.manager.Count())
	return c.NoContent(http.StatusNoContent)
}

// HandleSelectMedia stages a file for detection
// @Summary      Select media
// @Description  Stages an image or video for the next detection request, replacing any previous selection and discarding its result. The payload is held verbatim; the detection service stays authoritative on whether it is processable.
// @Tags         sessions
// @Accept       multipart/form-data
// @Produce      json
// @Param        id path string true "Session ID"
// @Param        file formData file true "Media file to stage"
// @Param        mode formData string false "Submission mode to switch to (image or video)"
// @Success      200 {object} SessionResponse "Session with the staged selection"
// @Failure      400 {object} shared.APIError "Missing file or invalid mode"
// @Failure      404 {object} shared.APIError "Unknown session"
// @Failure      409 {object} shared.APIError "A request is in flight"
// @Failure      413 {object} shared.APIError "File too large"
// @Router       /sessions/{id}/media [post]
func (h *Handler) HandleSelectMedia(c echo.Context) error {
	sess, err := h.lookupSession(c)
	if err != nil {
		return err
	}

	file, err := c.FormFile("file")
	if err != nil {
		return shared.BadRequest("missing_file", "File is required")
	}
	if file.Size > maxUploadSize {
		return shared.NewAPIError("file_too_large", "File too large (max 200MB)").ToHTTP(http.StatusRequestEntityTooLarge)
	}

	if mode := c.FormValue("mode"); mode != "" {
		if !detector.Mode(mode).Valid() {
			return shared.BadRequest("invalid_mode", "Mode must be image or video")
		}
		if err := sess.Controller.SetMode(detector.Mode(mode)); err != nil {
			return submissionError(err)
		}
	}

	src, err := file.Open()
	if err != nil {
		return shared.InternalError("file_error", "Failed to open file")
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return shared.InternalError("file_error", "Failed to read file")
	}

	mimeType := file.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	if err := sess.Controller.Select(file.Filename, mimeType, data); err != nil {
		return submissionError(err)
	}

	h.logger.Info("media selected",
		"session_id", sess.ID,
		"filename", file.Filename,
		"mime_type", mimeType,
		"size", file.Size)

	return c.JSON(http.StatusOK, sessionToResponse(sess))
}

func (h *Handler) HandleClearMedia(c echo.Context) error {
	sess, err := h.lookupSession(c)
	if err != nil {
		return err
	}

	if err := sess.Controller.Clear(); err != nil {
		return submissionError(err)
	}
	return c.JSON(http.StatusOK, sessionToResponse(sess))
}

func (h *Handler) HandleSetMode(c echo.Context) error {
	sess, err := h.lookupSession(c)
	if err != nil {
		return err
	}

	var req ModeRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_request", "Invalid request body")
	}
	if !detector.Mode(req.Mode).Valid() {
		return shared.BadRequest("invalid_mode", "Mode must be image or video")
	}

	if err := sess.Controller.SetMode(detector.Mode(req.Mode)); err != nil {
		return submissionError(err)
	}
	return c.JSON(http.StatusOK, sessionToResponse(sess))
}

// HandleDetect submits the staged selection to the detection service
// @Summary      Run detection
// @Description  Uploads the staged file to the detection service and blocks until the attempt resolves. The outcome lands in the session state: succeeded carries the rendered result, failed carries the reason and keeps the selection for a retry. The response is 200 either way; only precondition violations produce an error status.
// @Tags         sessions
// @Produce      json
// @Param        id path string true "Session ID"
// @Success      200 {object} SessionResponse "Session after the attempt, succeeded or failed"
// @Failure      404 {object} shared.APIError "Unknown session"
// @Failure      409 {object} shared.APIError "Nothing staged, or a request is already in flight"
// @Router       /sessions/{id}/detect [post]
func (h *Handler) HandleDetect(c echo.Context) error {
	sess, err := h.lookupSession(c)
	if err != nil {
		return err
	}

	mode := sess.Controller.Mode()
	if err := sess.Controller.Submit(c.Request().Context()); err != nil {
		return submissionError(err)
	}

	outcome := "failed"
	if sess.Controller.State() == submission.StateSucceeded {
		outcome = "succeeded"
	}
	h.metrics.ObserveSubmission(mode.String(), outcome)

	return c.JSON(http.StatusOK, sessionToResponse(sess))
}

func (h *Handler) HandleRetry(c echo.Context) error {
	sess, err := h.lookupSession(c)
	if err != nil {
		return err
	}

	if err := sess.Controller.Retry(); err != nil {
		return submissionError(err)
	}
	return c.JSON(http.StatusOK, sessionToResponse(sess))
}

// HandleMedia serves a locally materialized ref: a selection preview or
// a processed video. Refs disappear when the owning session replaces or
// clears them, so a 404 here means the link went stale, not that the
// upload was lost.
func (h *Handler) HandleMedia(c echo.Context) error {
	ref, ok := h.registry.Get(c.Param("id"))
	if !ok {
		return shared.NotFound("media_not_found", "Media reference not found or expired")
	}
	return c.Blob(http.StatusOK, ref.MIME, ref.Data)
}
