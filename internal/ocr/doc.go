// Package ocr reads text back out of images using Tesseract.
//
// This package wraps the Tesseract OCR engine (via gosseract/v2). Its main use
// is VerifyLabels, which checks that the labels drawn by the annotate package
// can actually be read: each label rectangle is cropped from the annotated
// image, enlarged by LabelUpscale, recognized as a single text line and
// compared against the class name. ExtractText runs OCR over a whole file.
//
// # Prerequisites
//
// Tesseract and its development headers must be installed on the system:
//   - Ubuntu/Debian: apt-get install libtesseract-dev tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// # Languages
//
// The default language is English ("eng"). Labels use class names from the
// model's names file, so a different language pack is only needed for
// non-English catalogs.
//
// # Matching
//
// Recognition of small anti-aliased text is imperfect. A label counts as
// legible when the recognized text, reduced to lower-case letters and digits,
// contains the class name reduced the same way. The confidence figure is not
// checked.
//
// # Error Handling
//
// VerifyLabels returns an error only when the engine cannot be set up or fails
// outright. Problems with a single label, such as one drawn entirely above the
// image, are reported in that label's LabelCheck.
package ocr
