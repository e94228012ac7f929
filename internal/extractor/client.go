// Package extractor talks to the external face feature extraction service.
// The service accepts one or two still images and returns a fixed-length
// face descriptor per image, plus a precomputed inter-image distance when
// two images are sent. Model lifecycle and detection quality are entirely
// the service's concern.
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

const defaultExtractorURL = "http://localhost:5000"

// ErrNoFace is returned when the service detects no face in a submitted
// image. The caller decides whether that is a user-facing rejection.
var ErrNoFace = errors.New("no face detected")

// Client computes face descriptors using the extractor service.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a new extractor client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultExtractorURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Features describes one image's extraction result.
type Features struct {
	Encoding   []float32 `json:"face_encoding"`
	FacesCount int       `json:"faces_count"`
}

// The reference extractor omits faces_count and always encodes the first
// detected face, so a present encoding implies one reported face.
func (f *Features) fillCount() {
	if f != nil && f.FacesCount == 0 && len(f.Encoding) > 0 {
		f.FacesCount = 1
	}
}

// PairResult is the result of a two-image extraction.
type PairResult struct {
	Image1   Features
	Image2   Features
	Distance float64
}

// extractResponse mirrors the service's JSON response.
type extractResponse struct {
	Image1Features *Features `json:"image1_features"`
	Image2Features *Features `json:"image2_features"`
	FaceDistance   *float64  `json:"face_distance"`
	Error          string    `json:"error"`
}

// Extract computes the descriptor for a single captured frame.
// Returns the descriptor and the number of faces the service detected.
func (c *Client) Extract(ctx context.Context, imageData []byte) ([]float32, int, error) {
	resp, err := c.post(ctx, map[string][]byte{"image1": imageData})
	if err != nil {
		return nil, 0, err
	}
	if resp.Image1Features == nil || len(resp.Image1Features.Encoding) == 0 {
		return nil, 0, ErrNoFace
	}
	return resp.Image1Features.Encoding, resp.Image1Features.FacesCount, nil
}

// ExtractPair computes descriptors for two captures and the service's
// precomputed distance between them.
func (c *Client) ExtractPair(ctx context.Context, image1, image2 []byte) (*PairResult, error) {
	resp, err := c.post(ctx, map[string][]byte{"image1": image1, "image2": image2})
	if err != nil {
		return nil, err
	}
	if resp.Image1Features == nil || resp.Image2Features == nil || resp.FaceDistance == nil {
		return nil, ErrNoFace
	}
	return &PairResult{
		Image1:   *resp.Image1Features,
		Image2:   *resp.Image2Features,
		Distance: *resp.FaceDistance,
	}, nil
}

// post ships the images as a multipart form to /extract-features.
func (c *Client) post(ctx context.Context, images map[string][]byte) (*extractResponse, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for field, data := range images {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename="capture.jpg"`, field))
		h.Set("Content-Type", detectMIMEType(data))
		part, err := writer.CreatePart(h)
		if err != nil {
			return nil, fmt.Errorf("failed to create form file: %w", err)
		}
		if _, err := part.Write(data); err != nil {
			return nil, fmt.Errorf("failed to write image data: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/extract-features", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var parsed extractResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("extractor error (status %d): %s", resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if strings.Contains(strings.ToLower(parsed.Error), "no face") {
			return nil, ErrNoFace
		}
		return nil, fmt.Errorf("extractor error (status %d): %s", resp.StatusCode, parsed.Error)
	}

	parsed.Image1Features.fillCount()
	parsed.Image2Features.fillCount()
	return &parsed, nil
}

// detectMIMEType detects the MIME type from image data.
func detectMIMEType(data []byte) string {
	if len(data) < 8 {
		return "application/octet-stream"
	}
	// JPEG: FF D8 FF
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "image/jpeg"
	}
	// PNG: 89 50 4E 47
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "image/png"
	}
	return "application/octet-stream"
}
