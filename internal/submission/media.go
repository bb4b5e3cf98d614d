package submission

import (
	"bytes"
	"image"
	"image/jpeg"
	"strings"

	_ "image/gif"
	_ "image/png"

	"github.com/disintegration/imaging"
	"github.com/yassir2222/Wild-Fire-Detection/internal/mediaref"
)

const (
	previewMaxWidth  = 320
	previewMaxHeight = 240
	previewQuality   = 80
)

func newSelection(registry *mediaref.Registry, filename, mime string, data []byte) *Selection {
	return &Selection{
		Filename: filename,
		MIME:     mime,
		Size:     len(data),
		Data:     data,
		Preview:  newPreview(registry, mime, data),
	}
}

// newPreview materializes the local preview for a staged payload.
// Decodable images become a bounded JPEG thumbnail; everything else,
// videos included, shares the raw payload under its declared MIME.
// Preview building is best effort and never rejects a selection; the
// detection service stays authoritative on payload validity.
func newPreview(registry *mediaref.Registry, mime string, data []byte) *mediaref.Ref {
	if strings.HasPrefix(mime, "image/") {
		if thumb, err := thumbnailJPEG(data); err == nil {
			return registry.Allocate(thumb, "image/jpeg")
		}
	}
	return registry.Allocate(data, mime)
}

func thumbnailJPEG(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	thumb := imaging.Fit(img, previewMaxWidth, previewMaxHeight, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: previewQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
