// Package capture talks to the face detection and embedding sidecar and to
// the kiosk camera. It turns raw frames into the face embeddings the rest
// of the system matches and stores.
package capture

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

const (
	defaultBaseURL = "http://localhost:8000"
	defaultModel   = "facenet"

	// MinFaceWidthPx filters out detections too small to carry a reliable
	// embedding (background bystanders, reflections in glass).
	MinFaceWidthPx = 35

	requestTimeout = 30 * time.Second
)

// ErrNoFace means the frame contained no usable face detection. The caller
// retries with a fresh frame.
var ErrNoFace = errors.New("no face detected")

// Face is a single detection returned by the sidecar.
type Face struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2] in raw pixel coordinates
	DetScore  float64   `json:"det_score"`
}

// FaceResponse is the sidecar response for one frame.
type FaceResponse struct {
	FacesCount int    `json:"faces_count"`
	Faces      []Face `json:"faces"`
	Model      string `json:"model"`
}

// Client computes face embeddings using the detection sidecar.
type Client struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewClient creates a sidecar client. Empty arguments fall back to the
// local default server and model.
func NewClient(baseURL, model string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = defaultModel
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: requestTimeout},
	}
}

// Model returns the model name being used.
func (c *Client) Model() string {
	return c.model
}

// DetectFaces sends a frame to the sidecar and returns every detection.
func (c *Client) DetectFaces(ctx context.Context, imageData []byte) (*FaceResponse, error) {
	body, err := c.postMultipartImage(ctx, "/embed/face", imageData)
	if err != nil {
		return nil, err
	}

	var faceResp FaceResponse
	if err := json.Unmarshal(body, &faceResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &faceResp, nil
}

// EmbedLargestFace detects faces in a frame and returns the dominant one.
// Attendance works one person at a time, so when several people are in
// view the face closest to the camera wins.
func (c *Client) EmbedLargestFace(ctx context.Context, imageData []byte) (*Face, error) {
	resp, err := c.DetectFaces(ctx, imageData)
	if err != nil {
		return nil, err
	}
	return LargestFace(resp)
}

// LargestFace picks the detection with the largest bounding box area,
// skipping boxes below the minimum usable width. Returns ErrNoFace when
// nothing qualifies.
func LargestFace(resp *FaceResponse) (*Face, error) {
	if resp == nil || len(resp.Faces) == 0 {
		return nil, ErrNoFace
	}

	best := -1
	bestArea := 0.0
	for i, face := range resp.Faces {
		if len(face.BBox) != 4 {
			continue
		}
		width := face.BBox[2] - face.BBox[0]
		height := face.BBox[3] - face.BBox[1]
		if width < MinFaceWidthPx {
			continue
		}
		area := width * height
		if area > bestArea {
			best = i
			bestArea = area
		}
	}

	if best < 0 {
		return nil, ErrNoFace
	}
	face := resp.Faces[best]
	return &face, nil
}

// postMultipartImage constructs a multipart form with the image data and
// posts it to the given endpoint. The part carries an explicit Content-Type
// based on magic byte detection so the sidecar does not have to sniff.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="frame.jpg"`)
	h.Set("Content-Type", detectMIMEType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
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

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// detectMIMEType detects the MIME type from image data
func detectMIMEType(data []byte) string {
	if len(data) < 8 {
		return "application/octet-stream"
	}
	// JPEG: FF D8 FF
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "image/jpeg"
	}
	// PNG: 89 50 4E 47 0D 0A 1A 0A
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "image/png"
	}
	// WebP: 52 49 46 46 ... 57 45 42 50
	if len(data) >= 12 && data[0] == 0x52 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x46 &&
		data[8] == 0x57 && data[9] == 0x45 && data[10] == 0x42 && data[11] == 0x50 {
		return "image/webp"
	}
	return "application/octet-stream"
}
