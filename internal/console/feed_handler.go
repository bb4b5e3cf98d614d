package console

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/yassir2222/Wild-Fire-Detection/internal/alert"
	"github.com/yassir2222/Wild-Fire-Detection/internal/livefeed"
	"github.com/yassir2222/Wild-Fire-Detection/internal/metrics"
	"github.com/yassir2222/Wild-Fire-Detection/internal/shared"
)

const (
	feedBoundary     = "frame"
	testAlertMessage = "\U0001F525 Test alert: wildfire console notifications are configured correctly."
)

type FeedHandler struct {
	feed     *livefeed.Controller
	frames   *livefeed.Store
	notifier *alert.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewFeedHandler(feed *livefeed.Controller, frames *livefeed.Store, notifier *alert.Notifier, m *metrics.Metrics, logger *slog.Logger) *FeedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedHandler{
		feed:     feed,
		frames:   frames,
		notifier: notifier,
		metrics:  m,
		logger:   logger.With("handler", "feed"),
	}
}

func (h *FeedHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/feed", h.HandleFeed)
	g.GET("/feed/status", h.HandleStatus)
	g.POST("/feed/reconnect", h.HandleReconnect)
	g.GET("/feed/snapshot", h.HandleSnapshot)
	g.POST("/alerts/test", h.HandleTestAlert)
}

// HandleFeed relays the annotated detection stream to the operator
// @Summary      Live detection feed
// @Description  Re-streams annotated frames from the detection service as an MJPEG stream. The relay runs until the client disconnects; an upstream drop pauses frames without ending the response, and frames resume once the feed reconnects.
// @Tags         feed
// @Produce      multipart/x-mixed-replace
// @Success      200 {string} string "MJPEG frame stream"
// @Router       /feed [get]
func (h *FeedHandler) HandleFeed(c echo.Context) error {
	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		return http.ErrNotSupported
	}

	id, frames := h.feed.Subscribe()
	defer h.feed.Unsubscribe(id)

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "multipart/x-mixed-replace; boundary="+feedBoundary)
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("X-Accel-Buffering", "no")
	resp.WriteHeader(http.StatusOK)
	flusher.Flush()

	h.logger.Debug("feed client attached", "subscriber_id", id)

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case frame, ok := <-frames:
			if !ok {
				return nil
			}
			if err := writeFrame(resp, frame); err != nil {
				return nil
			}
			flusher.Flush()
		}
	}
}

func writeFrame(w io.Writer, frame []byte) error {
	if _, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", feedBoundary, len(frame)); err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\r\n")
	return err
}

func (h *FeedHandler) HandleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, h.feed.Status())
}

// HandleReconnect asks the feed controller for a fresh connection. The
// attempt itself runs in the background, so the response reports the
// accepted request, not its outcome; /feed/status has the rest.
func (h *FeedHandler) HandleReconnect(c echo.Context) error {
	h.feed.Reconnect()
	h.metrics.ReconnectRequested()
	h.logger.Info("feed reconnect requested")
	return c.JSON(http.StatusAccepted, h.feed.Status())
}

// HandleSnapshot serves the newest cached feed frame
// @Summary      Latest feed frame
// @Description  Returns the most recently cached annotated frame as a JPEG still. Useful for a preview without holding a stream open. 404 until the feed has delivered at least one frame within the cache TTL.
// @Tags         feed
// @Produce      image/jpeg
// @Success      200 {file} binary "JPEG frame"
// @Failure      404 {object} shared.APIError "No frame cached"
// @Router       /feed/snapshot [get]
func (h *FeedHandler) HandleSnapshot(c echo.Context) error {
	frame, capturedAt, err := h.frames.Latest(c.Request().Context())
	if err != nil {
		h.logger.Error("snapshot lookup failed", "error", err)
		return shared.InternalError("snapshot_failed", "Failed to read cached frame")
	}
	if frame == nil {
		return shared.NotFound("no_frame", "No frame has been cached yet")
	}

	c.Response().Header().Set("Last-Modified", time.UnixMilli(capturedAt).UTC().Format(http.TimeFormat))
	return c.Blob(http.StatusOK, "image/jpeg", frame)
}

func (h *FeedHandler) HandleTestAlert(c echo.Context) error {
	if !h.notifier.Enabled() {
		return shared.ServiceUnavailable("alerts_disabled", "Telegram alerts are not configured")
	}

	if err := h.notifier.Send(c.Request().Context(), testAlertMessage); err != nil {
		h.logger.Error("test alert failed", "error", err)
		return shared.InternalError("alert_failed", "Failed to send test alert")
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}
