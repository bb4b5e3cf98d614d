package detector

import (
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
)

const defaultFeedBoundary = "frame"

// FeedStream is one long-lived connection to the detection service's
// annotated frame stream. It does not complete on its own; it ends when
// closed, when the context is cancelled, or on a delivery failure.
type FeedStream struct {
	body   io.ReadCloser
	reader *multipart.Reader
}

func (c *Client) OpenFeed(ctx context.Context) (*FeedStream, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/video_feed", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.feedClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open feed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	boundary := feedBoundary(resp.Header.Get("Content-Type"))
	return &FeedStream{
		body:   resp.Body,
		reader: multipart.NewReader(resp.Body, boundary),
	}, nil
}

func feedBoundary(contentType string) string {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return defaultFeedBoundary
	}
	if b := params["boundary"]; b != "" {
		return b
	}
	return defaultFeedBoundary
}

// Next blocks until the next frame arrives. Any error, io.EOF included,
// means the stream can no longer deliver.
func (s *FeedStream) Next() ([]byte, error) {
	part, err := s.reader.NextPart()
	if err != nil {
		return nil, err
	}
	frame, err := io.ReadAll(part)
	if err != nil {
		return nil, err
	}
	return frame, nil
}

func (s *FeedStream) Close() error {
	return s.body.Close()
}
