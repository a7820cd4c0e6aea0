// Package pipeline runs detection and annotation over a batch of images.
//
// A run has two phases. The detector is invoked once for the whole batch; a
// failure there (process, output format, block count) aborts the run and is
// returned as the error of Run. Each image is then annotated and optionally
// saved on its own, and a failure there only marks that image's ItemResult.
//
// Saves are asynchronous. BatchReport.Wait must be called before the saved
// files are relied upon or the process exits.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/cyclopcam/logs"
	"go.uber.org/multierr"

	"github.com/ironsheep/yolo-annotate/internal/annotate"
	"github.com/ironsheep/yolo-annotate/internal/config"
	"github.com/ironsheep/yolo-annotate/internal/darknet"
	"github.com/ironsheep/yolo-annotate/internal/imaging"
	"github.com/ironsheep/yolo-annotate/internal/palette"
)

// Detector produces one detection list per image, in input order.
type Detector interface {
	Detect(ctx context.Context, images []string) ([][]darknet.Detection, error)
}

// Options tunes a Pipeline.
type Options struct {
	// ColorScope is config.ScopeBatch or config.ScopeImage. Empty means batch.
	ColorScope string

	// Seed drives color shuffling. Zero seeds from the clock.
	Seed int64

	// KeepImages retains each annotated image on its ItemResult.
	KeepImages bool
}

// ItemResult is the outcome for one image of a batch.
type ItemResult struct {
	Index      int                       `json:"index"`
	Path       string                    `json:"path"`
	Detections []darknet.Detection       `json:"detections"`
	Labels     []annotate.LabelPlacement `json:"labels,omitempty"`
	SavedPath  string                    `json:"saved_path,omitempty"`
	Warnings   []error                   `json:"-"`
	Err        error                     `json:"-"`

	// Image is the annotated image when Options.KeepImages is set.
	Image *image.RGBA `json:"-"`

	save *imaging.SaveHandle
}

// OK reports whether the image was annotated (and saved, once waited for).
func (r *ItemResult) OK() bool {
	return r.Err == nil
}

// BatchReport collects the results of one Run.
type BatchReport struct {
	Items []*ItemResult

	// Colors is the assignment used for every image, or nil when colors were
	// generated per image.
	Colors *palette.Assignment

	saver *imaging.Saver
}

// Wait blocks until every pending save has finished, records save failures on
// their items and returns Err.
func (r *BatchReport) Wait() error {
	if r.saver != nil {
		r.saver.Wait()
	}
	for _, it := range r.Items {
		if it.save == nil {
			continue
		}
		if err := it.save.Wait(); err != nil && it.Err == nil {
			it.Err = err
		}
		it.save = nil
	}
	return r.Err()
}

// Err combines the errors of all failed items, or returns nil.
func (r *BatchReport) Err() error {
	var err error
	for _, it := range r.Items {
		if it.Err != nil {
			err = multierr.Append(err, fmt.Errorf("image %d (%s): %w", it.Index, it.Path, it.Err))
		}
	}
	return err
}

// Failed returns the number of items with an error.
func (r *BatchReport) Failed() int {
	n := 0
	for _, it := range r.Items {
		if it.Err != nil {
			n++
		}
	}
	return n
}

// Pipeline wires a Detector to an Annotator.
type Pipeline struct {
	log       logs.Log
	detector  Detector
	annotator *annotate.Annotator
	cache     *imaging.ImageCache
	opts      Options
}

// New creates a Pipeline. A nil cache gets a private one.
func New(log logs.Log, detector Detector, annotator *annotate.Annotator, cache *imaging.ImageCache, opts Options) *Pipeline {
	if cache == nil {
		cache = imaging.NewImageCache()
	}
	if opts.ColorScope == "" {
		opts.ColorScope = config.ScopeBatch
	}
	return &Pipeline{
		log:       log,
		detector:  detector,
		annotator: annotator,
		cache:     cache,
		opts:      opts,
	}
}

// HasDetector reports whether the pipeline can run detection.
func (p *Pipeline) HasDetector() bool {
	return p.detector != nil
}

// RunString is Run for a line-break separated list of image paths.
func (p *Pipeline) RunString(ctx context.Context, paths string, savePath string) (*BatchReport, error) {
	return p.Run(ctx, darknet.SplitPaths(paths), savePath)
}

// Run detects objects in images and annotates each one. When savePath is not
// empty, annotated images are written to imaging.SavePath(savePath, index).
func (p *Pipeline) Run(ctx context.Context, images []string, savePath string) (*BatchReport, error) {
	if p.detector == nil {
		return nil, errors.New("pipeline: no detector")
	}
	results, err := p.detector.Detect(ctx, images)
	if err != nil {
		return nil, err
	}
	if len(results) != len(images) {
		return nil, &darknet.CountMismatchError{Images: len(images), Blocks: len(results)}
	}

	if savePath != "" && len(images) > 1 && imaging.IsLiteralSavePath(savePath) {
		p.log.Warnf("Save path %v ends in .png, so all %v images are written to the same file", savePath, len(images))
	}

	classes := p.annotator.Catalog().Len()
	rng := palette.NewRand(p.opts.Seed)
	report := &BatchReport{saver: imaging.NewSaver()}
	if p.opts.ColorScope == config.ScopeBatch {
		report.Colors = palette.Generate(classes, rng)
	}

	for i, path := range images {
		item := &ItemResult{Index: i, Path: path, Detections: results[i]}
		report.Items = append(report.Items, item)

		if err := ctx.Err(); err != nil {
			item.Err = err
			continue
		}

		colors := report.Colors
		if colors == nil {
			colors = palette.Generate(classes, rng)
		}

		res, err := p.annotator.AnnotateFile(p.cache, path, results[i], colors)
		p.cache.Evict(path)
		if err != nil {
			p.log.Errorf("Failed to annotate %v: %v", path, err)
			item.Err = err
			continue
		}
		for _, w := range res.Warnings {
			p.log.Warnf("%v: %v", path, w)
		}
		item.Warnings = res.Warnings
		item.Labels = res.Labels
		if p.opts.KeepImages {
			item.Image = res.Image
		}

		if savePath != "" {
			item.SavedPath = imaging.SavePath(savePath, i)
			item.save = report.saver.Save(res.Image, item.SavedPath)
		}
	}

	p.log.Infof("Annotated %v of %v images", len(images)-report.Failed(), len(images))
	return report, nil
}
