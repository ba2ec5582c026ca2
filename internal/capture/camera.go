package capture

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const snapshotTimeout = 10 * time.Second

// Camera fetches still frames from an IP camera style snapshot endpoint.
// Most kiosk cameras expose one (/snapshot.jpg or similar) that returns the
// current frame as a JPEG on each GET.
type Camera struct {
	url    string
	client *http.Client
}

// NewCamera creates a camera client for the given snapshot URL.
func NewCamera(url string) *Camera {
	return &Camera{
		url:    url,
		client: &http.Client{Timeout: snapshotTimeout},
	}
}

// Snapshot grabs the current frame. The returned bytes are the raw encoded
// image as served by the camera.
func (c *Camera) Snapshot(ctx context.Context) ([]byte, error) {
	if c.url == "" {
		return nil, fmt.Errorf("camera URL not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("snapshot request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("camera returned status %d", resp.StatusCode)
	}

	frame, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame: %w", err)
	}
	if len(frame) == 0 {
		return nil, fmt.Errorf("camera returned an empty frame")
	}

	return frame, nil
}
