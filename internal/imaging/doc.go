// Package imaging loads source images and persists annotated ones.
//
// It wraps github.com/disintegration/imaging for decoding (with EXIF
// auto-orientation), cropping and resizing, and adds the file conventions of
// the annotation pipeline: output naming and background PNG writes.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For regions, (x1,y1) is inclusive (top-left), (x2,y2) is exclusive (bottom-right)
//
// Detection boxes use the detector's (x, y, width, height) form; CropDetection
// converts them and clips the result to the image.
//
// # Output Naming
//
// SavePath maps a base and a batch index to an output file. A base ending in
// ".png" is a literal file shared by the whole batch; anything else is a prefix
// to which the index and ".png" are appended.
//
// # Thread Safety
//
// ImageCache and Saver are safe for concurrent use. A Saver serializes writes to
// the same path and runs writes to different paths concurrently. Callers hold a
// SaveHandle per write and must not mutate the image until it is done.
//
// # Error Handling
//
// Functions return errors for invalid inputs such as:
//   - Coordinates outside image bounds
//   - Invalid region specifications (x1 >= x2 or y1 >= y2)
//   - File I/O errors during image loading or saving
//   - Encoding errors during image output
//
// # Performance Considerations
//
// For repeated operations on the same image, use ImageCache to avoid redundant
// disk reads. Large images may consume significant memory when cached.
// Consider using Evict() or Clear() to manage memory for long-running processes.
package imaging
