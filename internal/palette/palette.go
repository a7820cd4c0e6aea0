// Package palette assigns each detector class a distinguishable color.
//
// Colors are produced by spacing hues evenly around the HSV wheel at full
// saturation and value, then permuting the result so that neighbouring class
// ids do not get neighbouring hues.
package palette

import (
	"fmt"
	"image/color"
	"math/rand"
	"time"

	"github.com/lucasb-eyer/go-colorful"
)

// RGB represents an RGB color with 8-bit components.
type RGB struct {
	R uint8 `json:"r"` // Red component (0-255)
	G uint8 `json:"g"` // Green component (0-255)
	B uint8 `json:"b"` // Blue component (0-255)
}

// Hex returns the color as "#RRGGBB".
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// WithAlpha returns the color as a non-premultiplied color with the given opacity.
func (c RGB) WithAlpha(a uint8) color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: a}
}

// Unknown is the reserved color for class names that are missing from the catalog.
// Every hue-derived color is fully saturated, so a neutral gray cannot collide with one.
var Unknown = RGB{R: 128, G: 128, B: 128}

// HSVToRGB converts a color with hue, saturation and value in [0,1] to 8-bit RGB.
// Components are rounded to the nearest integer.
func HSVToRGB(h, s, v float64) RGB {
	r, g, b := colorful.Hsv(h*360, s, v).Clamped().RGB255()
	return RGB{R: r, G: g, B: b}
}

// Spread returns n colors whose hues are i/n for i in [0,n), at full saturation and value.
func Spread(n int) []RGB {
	out := make([]RGB, n)
	for i := range out {
		out[i] = HSVToRGB(float64(i)/float64(n), 1.0, 1.0)
	}
	return out
}

// Shuffle returns a random permutation of s, leaving s untouched.
// The permutation is driven entirely by r, so a seeded source gives repeatable output.
func Shuffle[T any](s []T, r *rand.Rand) []T {
	out := make([]T, len(s))
	copy(out, s)
	for i := len(out) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// NewRand returns a random source seeded from seed, or from the clock when seed is 0.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Assignment maps class indices to colors.
type Assignment struct {
	colors []RGB
}

// Generate builds a shuffled assignment for n classes.
func Generate(n int, r *rand.Rand) *Assignment {
	return &Assignment{colors: Shuffle(Spread(n), r)}
}

// Len returns the number of classes covered by the assignment.
func (a *Assignment) Len() int {
	return len(a.colors)
}

// Color returns the color for class idx. If idx is not covered, it returns Unknown and false.
func (a *Assignment) Color(idx int) (RGB, bool) {
	if idx < 0 || idx >= len(a.colors) {
		return Unknown, false
	}
	return a.colors[idx], true
}

// Colors returns a copy of the colors in class index order.
func (a *Assignment) Colors() []RGB {
	out := make([]RGB, len(a.colors))
	copy(out, a.colors)
	return out
}
