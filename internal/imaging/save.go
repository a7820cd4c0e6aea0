package imaging

import (
	"bufio"
	"fmt"
	"image"
	"os"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// SavePath returns the output file for the index-th image of a batch.
//
// A base ending in ".png" (any case) names one literal file and is returned
// unchanged for every index, so later images overwrite earlier ones. Any other
// base is treated as a prefix: SavePath("out/det", 3) is "out/det3.png".
func SavePath(base string, index int) string {
	if strings.HasSuffix(strings.ToLower(base), ".png") {
		return base
	}
	return base + strconv.Itoa(index) + ".png"
}

// IsLiteralSavePath reports whether SavePath ignores the index for base.
func IsLiteralSavePath(base string) bool {
	return SavePath(base, 0) == base
}

// WritePNG encodes img as PNG into path, creating or truncating the file.
func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	w := bufio.NewWriter(f)
	if err := EncodePNG(w, img); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

// SaveHandle tracks one asynchronous save started by Saver.Save.
type SaveHandle struct {
	Path string

	done chan struct{}
	err  error
}

// Done is closed once the file has been written or the write has failed.
func (h *SaveHandle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the save finishes and returns its error.
func (h *SaveHandle) Wait() error {
	<-h.done
	return h.err
}

// Saver writes annotated images to disk in the background.
//
// Saves to distinct paths run concurrently. Saves to the same path run one at a
// time in submission order, so the last submitted image is the one left on disk.
// A Saver must not be copied after first use.
type Saver struct {
	group errgroup.Group

	mu    sync.Mutex
	tails map[string]chan struct{}
}

// NewSaver creates a Saver with no pending saves.
func NewSaver() *Saver {
	return &Saver{tails: make(map[string]chan struct{})}
}

// Save starts writing img to path and returns immediately.
//
// The image must not be modified until the handle reports completion.
func (s *Saver) Save(img image.Image, path string) *SaveHandle {
	h := &SaveHandle{Path: path, done: make(chan struct{})}

	s.mu.Lock()
	prev := s.tails[path]
	s.tails[path] = h.done
	s.mu.Unlock()

	s.group.Go(func() error {
		defer close(h.done)
		if prev != nil {
			<-prev
		}
		h.err = WritePNG(path, img)
		return h.err
	})
	return h
}

// Wait blocks until every save started so far has finished and returns the
// first error encountered, if any.
func (s *Saver) Wait() error {
	err := s.group.Wait()

	s.mu.Lock()
	s.tails = make(map[string]chan struct{})
	s.mu.Unlock()
	return err
}
