// Package darknet runs the darknet YOLO command-line detector and parses its output.
//
// The detector is invoked once per batch as
//
//	darknet detector test -ext_output -dont_show <names> <cfg> <weights> < manifest
//
// where the manifest lists one image path per line. With -ext_output the tool
// prints, for every image, a marker line containing "Predicted in" followed by
// one line per detected object:
//
//	person: 87%	(left_x:   10   top_y:   20   width:   30   height:   40)
//
// # Output Layout
//
// The console output starts with a banner (1 line for GPU builds, 3 otherwise)
// and ends with a dangling "Enter Image Path:" prompt. Both are stripped before
// the marker lines are located. The lines strictly between two markers belong to
// the image of the first marker; an image with no detections has an empty block.
//
// # Errors
//
//   - *ProcessError: the binary is missing, or exited non-zero
//   - *FormatError: a detection line does not have the two-field layout
//   - *CountMismatchError: the number of blocks differs from the number of images
//
// All three abort the batch. Removing the manifest afterwards is best-effort.
package darknet
