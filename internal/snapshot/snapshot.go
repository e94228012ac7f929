// Package snapshot prepares captured camera frames for the extractor:
// decode, sanity-check, and downscale before shipping them over the wire.
package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// MaxUploadBytes bounds the accepted frame size (8 MB).
const MaxUploadBytes = 8 << 20

// maxExtractorEdge is the longest edge sent to the extractor. Larger frames
// only slow detection down without improving the descriptor.
const maxExtractorEdge = 1280

// ErrNotAnImage is returned when the uploaded data cannot be decoded.
var ErrNotAnImage = errors.New("uploaded data is not a decodable image")

// Prepare decodes a captured frame and re-encodes it as a bounded JPEG.
// Frames already within bounds are still re-encoded for a consistent format.
func Prepare(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrNotAnImage
	}
	if len(data) > MaxUploadBytes {
		return nil, fmt.Errorf("frame too large: %d bytes", len(data))
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAnImage, err)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width <= maxExtractorEdge && height <= maxExtractorEdge {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
			return nil, fmt.Errorf("failed to encode image: %w", err)
		}
		return buf.Bytes(), nil
	}

	// Calculate new dimensions preserving aspect ratio.
	var newWidth, newHeight int
	if width > height {
		newWidth = maxExtractorEdge
		newHeight = int(float64(height) * float64(maxExtractorEdge) / float64(width))
	} else {
		newHeight = maxExtractorEdge
		newWidth = int(float64(width) * float64(maxExtractorEdge) / float64(height))
	}

	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("failed to encode resized image: %w", err)
	}
	return buf.Bytes(), nil
}
