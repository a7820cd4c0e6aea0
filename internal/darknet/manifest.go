package darknet

import (
	"os"
	"strings"
)

// SplitPaths splits a line-break separated list of image paths.
// Both "\r\n" and "\n" separators are accepted; blank entries are dropped.
func SplitPaths(s string) []string {
	var out []string
	for _, p := range strings.Split(s, "\n") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// WriteManifest writes the image list the detector reads from stdin, one path per line.
func WriteManifest(path string, images []string) error {
	return os.WriteFile(path, []byte(strings.Join(images, "\n")+"\n"), 0644)
}
