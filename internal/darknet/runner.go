package darknet

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/cyclopcam/logs"
)

// ErrNoImages is returned when Detect is called with an empty image list.
var ErrNoImages = errors.New("no images to detect")

// Options configures how the detector is invoked.
type Options struct {
	Binary       string        // Path to the darknet executable
	NamesFile    string        // Class names / data file passed to "detector test"
	ConfigFile   string        // Network .cfg file
	WeightsFile  string        // Network weights
	ManifestPath string        // Where the transient image list is written
	WorkDir      string        // Working directory of the detector process ("" = current)
	GPU          bool          // The binary is a GPU build (shorter console banner)
	SplitKeyword string        // Marker fragment for per-image blocks ("" = DefaultSplitKeyword)
	Timeout      time.Duration // 0 means wait for the detector indefinitely
	Artifacts    []string      // Files the tool leaves in WorkDir, removed after each run
}

// DefaultArtifacts are the files darknet writes next to itself on every "detector test" run.
var DefaultArtifacts = []string{"predictions.jpg", "predictions.png"}

// Runner invokes the darknet detector on batches of images.
type Runner struct {
	opts Options
	log  logs.Log

	// command creates the process; replaced in tests
	command func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// NewRunner creates a Runner. The options are validated lazily, when the tool is run.
func NewRunner(log logs.Log, opts Options) *Runner {
	if opts.SplitKeyword == "" {
		opts.SplitKeyword = DefaultSplitKeyword
	}
	if opts.ManifestPath == "" {
		opts.ManifestPath = "train.txt"
	}
	return &Runner{
		opts:    opts,
		log:     log,
		command: exec.CommandContext,
	}
}

// Options returns the runner's effective options.
func (r *Runner) Options() Options {
	return r.opts
}

// Args returns the detector's argument list, not including the binary.
func (r *Runner) Args() []string {
	return []string{"detector", "test", "-ext_output", "-dont_show", r.opts.NamesFile, r.opts.ConfigFile, r.opts.WeightsFile}
}

// CommandLine returns the shell-equivalent command line, for logs and errors.
func (r *Runner) CommandLine() string {
	return fmt.Sprintf("%s %s < %s", r.opts.Binary, strings.Join(r.Args(), " "), r.opts.ManifestPath)
}

// DetectString runs detection on a line-break separated list of image paths.
func (r *Runner) DetectString(ctx context.Context, paths string) ([][]Detection, error) {
	return r.Detect(ctx, SplitPaths(paths))
}

// Detect runs the detector once over all images and returns one detection list per
// image, in input order. It blocks until the detector exits.
//
// The manifest and the tool's side artifacts are removed before returning,
// whether or not the run succeeded.
func (r *Runner) Detect(ctx context.Context, images []string) ([][]Detection, error) {
	if len(images) == 0 {
		return nil, ErrNoImages
	}

	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	if err := WriteManifest(r.opts.ManifestPath, images); err != nil {
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}
	defer r.cleanup()

	manifest, err := os.Open(r.opts.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer manifest.Close()

	r.log.Debugf("Running %v", r.CommandLine())
	start := time.Now()

	cmd := r.command(ctx, r.opts.Binary, r.Args()...)
	cmd.Stdin = manifest
	cmd.Dir = r.opts.WorkDir
	out, err := cmd.Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		return nil, newProcessError(r.CommandLine(), err)
	}

	results, err := ParseOutput(string(out), r.opts.GPU, r.opts.SplitKeyword)
	if err != nil {
		return nil, err
	}
	if len(results) != len(images) {
		return nil, &CountMismatchError{Images: len(images), Blocks: len(results)}
	}

	total := 0
	for _, dets := range results {
		total += len(dets)
	}
	r.log.Infof("Detected %v objects in %v images (%.1fs)", total, len(images), time.Since(start).Seconds())

	return results, nil
}

// cleanup removes the manifest and tool artifacts. Failures are not fatal.
func (r *Runner) cleanup() {
	if err := os.Remove(r.opts.ManifestPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		r.log.Debugf("Failed to remove manifest %v: %v", r.opts.ManifestPath, err)
	}
	for _, a := range r.opts.Artifacts {
		fn := a
		if !filepath.IsAbs(fn) && r.opts.WorkDir != "" {
			fn = filepath.Join(r.opts.WorkDir, fn)
		}
		if err := os.Remove(fn); err != nil && !errors.Is(err, os.ErrNotExist) {
			r.log.Debugf("Failed to remove %v: %v", fn, err)
		}
	}
}
