// Package catalog holds the ordered list of class names a detector model knows about.
//
// A class's index is the zero-based line position of its name in the names file,
// which is also the class id the darknet tool uses internally.
package catalog

import (
	"fmt"
	"os"
	"strings"
)

// Catalog is an ordered, read-only mapping from class index to class name.
type Catalog struct {
	names []string
	index map[string]int
}

// New builds a catalog from names in index order.
// Names are trimmed. If a name appears twice, the first index wins.
func New(names []string) *Catalog {
	c := &Catalog{
		names: make([]string, len(names)),
		index: make(map[string]int, len(names)),
	}
	for i, n := range names {
		n = strings.TrimSpace(n)
		c.names[i] = n
		if _, ok := c.index[n]; !ok {
			c.index[n] = i
		}
	}
	return c
}

// Load reads a class names file, one name per line.
//
// Leading and trailing blank lines are dropped, but blank lines in the middle keep
// their position so that indices stay aligned with the model's class ids.
// Windows line endings are accepted.
func Load(filename string) (*Catalog, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read class names: %w", err)
	}
	return Parse(string(b)), nil
}

// Parse builds a catalog from the contents of a names file.
func Parse(contents string) *Catalog {
	contents = strings.TrimSpace(contents)
	if contents == "" {
		return New(nil)
	}
	lines := strings.Split(contents, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return New(lines)
}

// Len returns the number of classes.
func (c *Catalog) Len() int {
	return len(c.names)
}

// Name returns the class name at idx, or "" if idx is out of range.
func (c *Catalog) Name(idx int) string {
	if idx < 0 || idx >= len(c.names) {
		return ""
	}
	return c.names[idx]
}

// Index resolves a class name to its index by exact match after trimming.
func (c *Catalog) Index(name string) (int, bool) {
	idx, ok := c.index[strings.TrimSpace(name)]
	return idx, ok
}

// Names returns a copy of the class names in index order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}
