package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/cyclopcam/logs"

	"github.com/ironsheep/yolo-annotate/internal/config"
	"github.com/ironsheep/yolo-annotate/internal/darknet"
	"github.com/ironsheep/yolo-annotate/internal/logging"
	"github.com/ironsheep/yolo-annotate/internal/ocr"
	"github.com/ironsheep/yolo-annotate/internal/pipeline"
)

type itemReport struct {
	Index      int                 `json:"index"`
	Path       string              `json:"path"`
	Detections []darknet.Detection `json:"detections"`
	SavedPath  string              `json:"saved_path,omitempty"`
	Warnings   []string            `json:"warnings,omitempty"`
	Error      string              `json:"error,omitempty"`
	LabelCheck []ocr.LabelCheck    `json:"label_check,omitempty"`
}

// newLogger returns the CLI logger. It must not write to the stream the
// report goes to.
func newLogger(w io.Writer, min logging.Level) logs.Log {
	return logging.New(w, min)
}

// buildReport converts a finished batch, running the label check on kept
// images when OCR is enabled.
func buildReport(log logs.Log, report *pipeline.BatchReport, opts config.OCR) ([]itemReport, error) {
	out := make([]itemReport, 0, len(report.Items))
	for _, it := range report.Items {
		r := itemReport{
			Index:      it.Index,
			Path:       it.Path,
			Detections: it.Detections,
			SavedPath:  it.SavedPath,
		}
		for _, w := range it.Warnings {
			r.Warnings = append(r.Warnings, w.Error())
		}
		if it.Err != nil {
			r.Error = it.Err.Error()
			r.SavedPath = ""
		}
		if opts.Enabled && it.Image != nil {
			checks, err := ocr.VerifyLabels(it.Image, it.Labels, opts.Language)
			if err != nil {
				return nil, err
			}
			r.LabelCheck = checks
			for _, c := range checks {
				if !c.Legible {
					log.Warnf("%v: label %q read back as %q", it.Path, c.Label, c.Recognized)
				}
			}
		}
		out = append(out, r)
	}
	return out, nil
}

// writeReport prints items as indented JSON or as text.
func writeReport(w io.Writer, items []itemReport, asJSON bool) error {
	if asJSON {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(items)
	}

	for _, r := range items {
		if r.Error != "" {
			fmt.Fprintf(w, "%v %v: FAILED: %v\n", r.Index, r.Path, r.Error)
			continue
		}
		fmt.Fprintf(w, "%v %v: %v objects", r.Index, r.Path, len(r.Detections))
		if r.SavedPath != "" {
			fmt.Fprintf(w, " -> %v", r.SavedPath)
		}
		fmt.Fprintln(w)
		for _, d := range r.Detections {
			fmt.Fprintf(w, "    %-20v (%v,%v %vx%v)\n", d.Label(), d.Box.X, d.Box.Y, d.Box.W, d.Box.H)
		}
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "    warning: %v\n", warn)
		}
		for _, c := range r.LabelCheck {
			status := "ok"
			if !c.Legible {
				status = "illegible"
			}
			if c.Error != "" {
				status = c.Error
			}
			fmt.Fprintf(w, "    label %q: %v\n", c.Label, status)
		}
	}
	return nil
}
