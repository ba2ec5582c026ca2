package capture

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png" // register PNG decoding for camera frames

	"github.com/google/uuid"
	"golang.org/x/image/draw"
)

const (
	// maxAnnotatedSize caps the longest edge of saved snapshots. Kiosk
	// cameras commonly deliver 4K frames; full size is wasted on an
	// audit trail image.
	maxAnnotatedSize = 1280

	boxLineWidth    = 3
	boxPadding      = 8
	snapshotQuality = 90
)

// Annotate decodes a frame, draws a box around the given face and returns
// the result re-encoded as JPEG. Used for the audit snapshots saved on
// successful scans.
func Annotate(imageData []byte, bbox []float64) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}

	annotated := drawBoundingBox(img, bbox, boxLineWidth, boxPadding)
	annotated = resizeToFit(annotated, maxAnnotatedSize)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, annotated, &jpeg.Options{Quality: snapshotQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// SnapshotFilename returns a collision free name for a saved snapshot.
func SnapshotFilename() string {
	return fmt.Sprintf("scan_%s.jpg", uuid.NewString())
}

// resizeToFit scales the image down so that the longest edge is at most
// maxSize pixels, preserving aspect ratio. Smaller images pass through.
func resizeToFit(img image.Image, maxSize int) image.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width <= maxSize && height <= maxSize {
		return img
	}

	var newWidth, newHeight int
	if width > height {
		newWidth = maxSize
		newHeight = int(float64(height) * float64(maxSize) / float64(width))
	} else {
		newHeight = maxSize
		newWidth = int(float64(width) * float64(maxSize) / float64(height))
	}

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// drawBoundingBox draws a red rectangle around the detected face with some
// padding so the box does not clip the chin and forehead.
func drawBoundingBox(img image.Image, bbox []float64, lineWidth, padding int) image.Image {
	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)

	if len(bbox) != 4 {
		return rgba
	}

	x1 := int(bbox[0]) - padding
	y1 := int(bbox[1]) - padding
	x2 := int(bbox[2]) + padding
	y2 := int(bbox[3]) + padding

	red := color.RGBA{255, 0, 0, 255}
	for w := 0; w < lineWidth; w++ {
		drawHLine(rgba, x1, x2, y1+w, red)
		drawHLine(rgba, x1, x2, y2-w, red)
		drawVLine(rgba, x1+w, y1, y2, red)
		drawVLine(rgba, x2-w, y1, y2, red)
	}

	return rgba
}

func drawHLine(img *image.RGBA, x1, x2, y int, col color.RGBA) {
	for x := x1; x <= x2; x++ {
		if x >= 0 && x < img.Bounds().Dx() && y >= 0 && y < img.Bounds().Dy() {
			img.Set(x, y, col)
		}
	}
}

func drawVLine(img *image.RGBA, x, y1, y2 int, col color.RGBA) {
	for y := y1; y <= y2; y++ {
		if x >= 0 && x < img.Bounds().Dx() && y >= 0 && y < img.Bounds().Dy() {
			img.Set(x, y, col)
		}
	}
}
