package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"io"

	"github.com/disintegration/imaging"
)

// CropResult contains the cropped image data
type CropResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// Crop extracts a rectangular region from an image and returns it as base64 PNG.
// A scale other than 1 resizes the cropped region with Lanczos resampling.
func Crop(img image.Image, x1, y1, x2, y2 int, scale float64) (*CropResult, error) {
	cropped, err := CropImage(img, x1, y1, x2, y2, scale)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := EncodePNG(&buf, cropped); err != nil {
		return nil, err
	}

	return &CropResult{
		Width:       cropped.Bounds().Dx(),
		Height:      cropped.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// CropImage is Crop without the encoding step.
func CropImage(img image.Image, x1, y1, x2, y2 int, scale float64) (*image.NRGBA, error) {
	bounds := img.Bounds()

	if x1 < bounds.Min.X || y1 < bounds.Min.Y || x2 > bounds.Max.X || y2 > bounds.Max.Y {
		return nil, fmt.Errorf("crop region (%d,%d)-(%d,%d) outside image bounds (%d,%d)-(%d,%d)",
			x1, y1, x2, y2, bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}
	if x1 >= x2 || y1 >= y2 {
		return nil, fmt.Errorf("invalid crop region: x1 must be < x2, y1 must be < y2")
	}

	cropped := imaging.Crop(img, image.Rect(x1, y1, x2, y2))

	if scale != 1.0 && scale > 0 {
		newWidth := int(float64(cropped.Bounds().Dx()) * scale)
		newHeight := int(float64(cropped.Bounds().Dy()) * scale)
		cropped = imaging.Resize(cropped, newWidth, newHeight, imaging.Lanczos)
	}
	return cropped, nil
}

// CropDetection crops the box (x, y, w, h) of a detection, grown by padding
// pixels on every side. Unlike Crop, the region is clipped to the image rather
// than rejected, because detector boxes routinely run past the right and bottom
// edges.
func CropDetection(img image.Image, x, y, w, h, padding int, scale float64) (*CropResult, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid detection box: width and height must be positive")
	}
	if padding < 0 {
		padding = 0
	}

	r := image.Rect(x-padding, y-padding, x+w+padding, y+h+padding).Intersect(img.Bounds())
	if r.Empty() {
		return nil, fmt.Errorf("detection box (%d,%d %dx%d) lies outside the image", x, y, w, h)
	}
	return Crop(img, r.Min.X, r.Min.Y, r.Max.X, r.Max.Y, scale)
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}
