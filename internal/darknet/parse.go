package darknet

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultSplitKeyword is the fragment darknet prints once per image, on the line that
// reports the image path and inference time.
const DefaultSplitKeyword = "Predicted in"

// Banner lines printed before the first image. The GPU build prints a shorter banner.
const (
	gpuHeaderLines = 1
	cpuHeaderLines = 3
	footerLines    = 1
)

// ParseLine converts one "-ext_output" detection line into a Detection.
//
// The layout is two tab-separated fields:
//
//	person: 87%	(left_x:   10   top_y:   20   width:   30   height:   40)
//
// The box values are read from token positions 1, 3, 5 and 7 of the bracketed field.
func ParseLine(line string) (Detection, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 2 {
		return Detection{}, &FormatError{Line: line, Reason: fmt.Sprintf("expected 2 tab-separated fields, got %d", len(fields))}
	}

	name, prob, err := parseNameProb(fields[0])
	if err != nil {
		return Detection{}, &FormatError{Line: line, Reason: err.Error()}
	}

	box, err := parseBox(fields[1])
	if err != nil {
		return Detection{}, &FormatError{Line: line, Reason: err.Error()}
	}

	return Detection{Name: name, Prob: prob, Box: box}, nil
}

// ParseBlock parses every line of one image's block. Blank lines are skipped.
// Any malformed line fails the whole block.
func ParseBlock(lines []string) ([]Detection, error) {
	dets := make([]Detection, 0, len(lines))
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		d, err := ParseLine(l)
		if err != nil {
			return nil, err
		}
		dets = append(dets, d)
	}
	return dets, nil
}

// SplitOutput splits captured detector output into one block of lines per image.
//
// The banner (1 line in GPU builds, 3 otherwise) and the trailing prompt line are
// dropped first. Each line containing keyword starts a new block; the block holds
// the lines strictly after it, up to the next marker or the end of output.
func SplitOutput(output string, gpu bool, keyword string) [][]string {
	if keyword == "" {
		keyword = DefaultSplitKeyword
	}

	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}

	header := cpuHeaderLines
	if gpu {
		header = gpuHeaderLines
	}
	if len(lines) < header+footerLines {
		return nil
	}
	lines = lines[header : len(lines)-footerLines]

	var markers []int
	for i, l := range lines {
		if strings.Contains(l, keyword) {
			markers = append(markers, i)
		}
	}

	blocks := make([][]string, 0, len(markers))
	for k, m := range markers {
		end := len(lines)
		if k+1 < len(markers) {
			end = markers[k+1]
		}
		blocks = append(blocks, lines[m+1:end])
	}
	return blocks
}

// ParseOutput splits and parses captured detector output into one detection list per image.
func ParseOutput(output string, gpu bool, keyword string) ([][]Detection, error) {
	blocks := SplitOutput(output, gpu, keyword)
	results := make([][]Detection, len(blocks))
	for i, b := range blocks {
		dets, err := ParseBlock(b)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i, err)
		}
		results[i] = dets
	}
	return results, nil
}

// parseNameProb splits "<name>: <percent>%" at the last ": ", so class names
// containing a colon survive. The fractional part of the percentage is discarded.
func parseNameProb(field string) (string, int, error) {
	idx := strings.LastIndex(field, ": ")
	if idx < 0 {
		return "", 0, fmt.Errorf("missing \": \" in %q", field)
	}
	name := strings.TrimSpace(field[:idx])
	if name == "" {
		return "", 0, fmt.Errorf("empty class name")
	}

	pct := strings.TrimSpace(field[idx+2:])
	pct = strings.TrimSpace(strings.TrimSuffix(pct, "%"))
	f, err := strconv.ParseFloat(pct, 64)
	if err != nil {
		return "", 0, fmt.Errorf("invalid percentage %q", pct)
	}
	prob := int(f)
	if prob < 0 || prob > 100 {
		return "", 0, fmt.Errorf("percentage %d out of range", prob)
	}
	return name, prob, nil
}

// parseBox reads x, y, w, h from the bracketed coordinate field.
// darknet prints boxes that overflow the image with a negative origin; those are clamped to 0.
// A negative width or height is an error.
func parseBox(field string) (Box, error) {
	field = strings.TrimSpace(field)
	field = strings.TrimPrefix(field, "(")
	field = strings.TrimSuffix(field, ")")

	tokens := strings.Fields(field)
	if len(tokens) < 8 {
		return Box{}, fmt.Errorf("expected 8 box tokens, got %d", len(tokens))
	}

	var v [4]int
	for i := range v {
		tok := tokens[2*i+1]
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return Box{}, fmt.Errorf("invalid %s value %q", strings.TrimSuffix(tokens[2*i], ":"), tok)
		}
		v[i] = int(f)
	}

	if v[2] < 0 || v[3] < 0 {
		return Box{}, fmt.Errorf("negative box size %dx%d", v[2], v[3])
	}
	return Box{X: max(v[0], 0), Y: max(v[1], 0), W: v[2], H: v[3]}, nil
}
