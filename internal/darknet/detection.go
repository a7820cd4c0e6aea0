package darknet

import "fmt"

// Box is an axis-aligned bounding box in pixel coordinates.
// (X, Y) is the top-left corner.
type Box struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Detection is one object instance reported by the detector.
type Detection struct {
	Name string `json:"name"`
	Prob int    `json:"prob"` // Confidence percentage, 0-100
	Box  Box    `json:"box"`
}

// Label is the text drawn next to the detection's box.
func (d Detection) Label() string {
	return fmt.Sprintf("%s: %d", d.Name, d.Prob)
}
