package annotate

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/clone"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/ironsheep/yolo-annotate/internal/catalog"
	"github.com/ironsheep/yolo-annotate/internal/darknet"
	"github.com/ironsheep/yolo-annotate/internal/imaging"
	"github.com/ironsheep/yolo-annotate/internal/palette"
)

// fontPoints is the label size at FontScale 1.
const fontPoints = 24

var labelFont *truetype.Font

func init() {
	var err error
	labelFont, err = truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
}

// Options controls the rendering style.
type Options struct {
	// FontScale scales the label font; 0.5 gives 12pt text.
	FontScale float64

	// TextColor is the label text color.
	TextColor color.Color

	// BackgroundAlpha is the opacity of the filled label background.
	BackgroundAlpha uint8

	// OutlineAlpha is the opacity of the box outline.
	OutlineAlpha uint8

	// Strict makes an unknown class name fail the whole image instead of
	// producing a warning.
	Strict bool
}

// DefaultOptions returns the standard rendering style: half-scale black text on
// a half-transparent background, opaque outlines.
func DefaultOptions() Options {
	return Options{
		FontScale:       0.5,
		TextColor:       color.Black,
		BackgroundAlpha: 128,
		OutlineAlpha:    255,
	}
}

// UnknownClassError reports a detection whose class name is not in the catalog,
// or whose class has no color in the assignment used for drawing.
type UnknownClassError struct {
	Name      string
	Detection int
}

func (e *UnknownClassError) Error() string {
	return fmt.Sprintf("detection %d: class %q is not in the class catalog", e.Detection, e.Name)
}

// LabelPlacement records where a label was drawn.
type LabelPlacement struct {
	Text  string          `json:"text"`
	Class int             `json:"class"` // -1 for unknown classes
	Color palette.RGB     `json:"color"`
	Rect  image.Rectangle `json:"rect"`
}

// Result is the output of one Annotate call.
type Result struct {
	Image    *image.RGBA
	Labels   []LabelPlacement
	Warnings []error
}

// Annotator draws detections onto images.
type Annotator struct {
	catalog *catalog.Catalog
	opts    Options
}

// New creates an Annotator. Zero fields in opts take their default values.
func New(cat *catalog.Catalog, opts Options) *Annotator {
	def := DefaultOptions()
	if opts.FontScale <= 0 {
		opts.FontScale = def.FontScale
	}
	if opts.TextColor == nil {
		opts.TextColor = def.TextColor
	}
	if opts.BackgroundAlpha == 0 {
		opts.BackgroundAlpha = def.BackgroundAlpha
	}
	if opts.OutlineAlpha == 0 {
		opts.OutlineAlpha = def.OutlineAlpha
	}
	return &Annotator{catalog: cat, opts: opts}
}

// Catalog returns the class catalog used to resolve detection names.
func (a *Annotator) Catalog() *catalog.Catalog {
	return a.catalog
}

// Options returns the effective rendering options.
func (a *Annotator) Options() Options {
	return a.opts
}

// NewColors builds a color assignment covering every class in the catalog.
func (a *Annotator) NewColors(seed int64) *palette.Assignment {
	return palette.Generate(a.catalog.Len(), palette.NewRand(seed))
}

// Annotate draws dets onto a copy of img. The source image is never modified.
//
// Each detection gets an outline in its class color, a filled label background
// above the box's top-left corner and the label text at (x, y-2).
func (a *Annotator) Annotate(img image.Image, dets []darknet.Detection, colors *palette.Assignment) (*Result, error) {
	if img == nil {
		return nil, errors.New("annotate: nil image")
	}
	if colors == nil {
		return nil, errors.New("annotate: nil color assignment")
	}

	canvas := clone.AsRGBA(img)
	dc := gg.NewContextForRGBA(canvas)
	dc.SetFontFace(truetype.NewFace(labelFont, &truetype.Options{Size: a.opts.FontScale * fontPoints}))

	bounds := canvas.Bounds()
	thickness := math.Max(1, imaging.BoxThickness(bounds.Dx(), bounds.Dy()))
	labelHeight := math.Round(40 * a.opts.FontScale) // 20px at the default scale

	res := &Result{Image: canvas, Labels: make([]LabelPlacement, 0, len(dets))}
	for i, d := range dets {
		class, c, err := a.resolve(i, d, colors)
		if err != nil {
			if a.opts.Strict {
				return nil, err
			}
			res.Warnings = append(res.Warnings, err)
		}

		x, y := float64(d.Box.X), float64(d.Box.Y)

		dc.SetColor(c.WithAlpha(a.opts.OutlineAlpha))
		dc.SetLineWidth(thickness)
		dc.DrawRectangle(x, y, float64(d.Box.W), float64(d.Box.H))
		dc.Stroke()

		text := d.Label()
		tw, _ := dc.MeasureString(text)
		labelWidth := math.Ceil(tw) + 4

		dc.SetColor(c.WithAlpha(a.opts.BackgroundAlpha))
		dc.DrawRectangle(x, y-labelHeight, labelWidth, labelHeight)
		dc.Fill()

		dc.SetColor(a.opts.TextColor)
		dc.DrawString(text, x, y-2)

		res.Labels = append(res.Labels, LabelPlacement{
			Text:  text,
			Class: class,
			Color: c,
			Rect:  image.Rect(d.Box.X, d.Box.Y-int(labelHeight), d.Box.X+int(labelWidth), d.Box.Y),
		})
	}
	return res, nil
}

// AnnotateFile loads path through cache and annotates it.
func (a *Annotator) AnnotateFile(cache *imaging.ImageCache, path string, dets []darknet.Detection, colors *palette.Assignment) (*Result, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}
	return a.Annotate(img, dets, colors)
}

func (a *Annotator) resolve(i int, d darknet.Detection, colors *palette.Assignment) (int, palette.RGB, error) {
	idx, ok := a.catalog.Index(d.Name)
	if !ok {
		return -1, palette.Unknown, &UnknownClassError{Name: d.Name, Detection: i}
	}
	c, ok := colors.Color(idx)
	if !ok {
		return idx, palette.Unknown, &UnknownClassError{Name: d.Name, Detection: i}
	}
	return idx, c, nil
}
