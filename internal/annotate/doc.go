// Package annotate draws detector results onto images.
//
// For every detection the Annotator renders, in order:
//
//  1. an unfilled rectangle around the box in the class color, fully opaque,
//     with a line width of 0.8 * (width + height) / 600 (at least 1px);
//  2. a filled rectangle in the class color at half opacity, anchored at the
//     box's top-left corner and extending upward, sized to the label text;
//  3. the label "<name>: <prob>" in black, with its baseline at (x, y-2).
//
// Drawing happens on a copy of the source image, so images held by an
// imaging.ImageCache can be annotated repeatedly.
//
// # Class Colors
//
// Colors come from a palette.Assignment indexed by the class's position in the
// catalog. Class names are matched exactly after trimming. A detection whose
// name is not in the catalog is drawn in palette.Unknown and reported as an
// *UnknownClassError in Result.Warnings, or returned as the error when the
// Annotator is strict.
//
// # Fonts
//
// Labels use the Go Regular TrueType font from golang.org/x/image, so rendering
// does not depend on fonts installed on the host.
package annotate
