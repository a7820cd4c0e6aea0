package ocr

import (
	"bytes"
	"fmt"
	"image"
	"strings"
	"unicode"

	"github.com/otiai10/gosseract/v2"

	"github.com/ironsheep/yolo-annotate/internal/annotate"
	"github.com/ironsheep/yolo-annotate/internal/imaging"
)

// LabelUpscale is the factor label crops are enlarged by before recognition.
// Labels are drawn at roughly 12px, well below the text height Tesseract is
// tuned for.
const LabelUpscale = 3.0

// Bounds represents a rectangular bounding box in pixel coordinates.
type Bounds struct {
	X1 int `json:"x1"` // Left edge
	Y1 int `json:"y1"` // Top edge
	X2 int `json:"x2"` // Right edge
	Y2 int `json:"y2"` // Bottom edge
}

// TextRegion represents a word with its location and OCR confidence.
type TextRegion struct {
	// Text is the recognized text content.
	Text string `json:"text"`

	// Confidence is the OCR confidence score (0.0 to 1.0).
	Confidence float64 `json:"confidence"`

	// Bounds is the bounding box around this text in the image.
	Bounds Bounds `json:"bounds"`
}

// OCRResult contains the complete results of text extraction from an image.
type OCRResult struct {
	// FullText is all recognized text as a single string with original spacing/newlines.
	FullText string `json:"full_text"`

	// Regions contains individual words with their bounding boxes and confidence scores.
	// May be empty if bounding box extraction fails (text will still be in FullText).
	Regions []TextRegion `json:"regions"`
}

// Version returns the version of the linked Tesseract library.
func Version() string {
	return gosseract.Version()
}

// ExtractText performs OCR on an entire image file and returns recognized text.
//
// Parameters:
//   - imagePath: Path to the image file. Supports PNG, JPEG, TIFF, BMP.
//   - language: Tesseract language code (e.g., "eng"). The corresponding
//     language data must be installed on the system.
//
// If word-level bounding box extraction fails, the full text is still returned
// with an empty Regions slice.
func ExtractText(imagePath string, language string) (*OCRResult, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(language); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}

	if err := client.SetImage(imagePath); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return &OCRResult{
			FullText: text,
			Regions:  []TextRegion{},
		}, nil
	}

	regions := make([]TextRegion, 0, len(boxes))
	for _, box := range boxes {
		if box.Word == "" {
			continue
		}
		regions = append(regions, TextRegion{
			Text:       box.Word,
			Confidence: float64(box.Confidence) / 100.0,
			Bounds: Bounds{
				X1: box.Box.Min.X,
				Y1: box.Box.Min.Y,
				X2: box.Box.Max.X,
				Y2: box.Box.Max.Y,
			},
		})
	}

	return &OCRResult{
		FullText: text,
		Regions:  regions,
	}, nil
}

// LabelCheck is the recognition result for one drawn label.
type LabelCheck struct {
	// Label is the text that was drawn, "<name>: <prob>".
	Label string `json:"label"`

	// Recognized is what Tesseract read back, trimmed.
	Recognized string `json:"recognized"`

	// Legible is true when the recognized text contains the class name,
	// ignoring case, spacing and punctuation.
	Legible bool `json:"legible"`

	// Error is set when the label could not be checked at all, for example
	// because it was drawn entirely outside the image.
	Error string `json:"error,omitempty"`
}

// VerifyLabels reads back every label drawn on img and reports whether each
// one is legible.
//
// Labels that lie partly outside the image are clipped before recognition;
// labels entirely outside are reported with Error set. The returned error is
// only for failures that affect every label, such as a missing language pack.
func VerifyLabels(img image.Image, labels []annotate.LabelPlacement, language string) ([]LabelCheck, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(language); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}

	checks := make([]LabelCheck, 0, len(labels))
	for _, l := range labels {
		check := LabelCheck{Label: l.Text}

		r := l.Rect.Intersect(img.Bounds())
		if r.Empty() {
			check.Error = "label lies outside the image"
			checks = append(checks, check)
			continue
		}

		crop, err := imaging.CropImage(img, r.Min.X, r.Min.Y, r.Max.X, r.Max.Y, LabelUpscale)
		if err != nil {
			check.Error = err.Error()
			checks = append(checks, check)
			continue
		}

		var buf bytes.Buffer
		if err := imaging.EncodePNG(&buf, crop); err != nil {
			return nil, err
		}
		if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
			return nil, fmt.Errorf("failed to set image: %w", err)
		}
		text, err := client.Text()
		if err != nil {
			return nil, fmt.Errorf("OCR failed: %w", err)
		}

		check.Recognized = strings.TrimSpace(text)
		check.Legible = Matches(check.Recognized, ClassName(l.Text))
		checks = append(checks, check)
	}
	return checks, nil
}

// ClassName returns the class part of a "<name>: <prob>" label.
func ClassName(label string) string {
	if i := strings.LastIndex(label, ": "); i >= 0 {
		return label[:i]
	}
	return label
}

// Matches reports whether recognized contains want once both are reduced to
// lower-case letters and digits.
func Matches(recognized, want string) bool {
	w := normalize(want)
	if w == "" {
		return false
	}
	return strings.Contains(normalize(recognized), w)
}

func normalize(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
