package logging

import (
	"bytes"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"":         LevelInfo,
		"debug":    LevelDebug,
		"INFO":     LevelInfo,
		"warn":     LevelWarn,
		"Warning":  LevelWarn,
		"error":    LevelError,
		"critical": LevelCritical,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, LevelWarn)

	w.Debugf("hidden %d", 1)
	w.Infof("hidden %d", 2)
	w.Warnf("shown %d", 3)
	w.Errorf("shown %d", 4)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "Warning shown 3\n")
	assert.Contains(t, out, "Error shown 4\n")
}

func TestFilter(t *testing.T) {
	var buf bytes.Buffer
	var log logs.Log = Filter(New(&buf, LevelDebug), LevelError)

	log.Infof("dropped")
	log.Warnf("dropped")
	log.Errorf("kept")
	log.Criticalf("kept too")
	log.Close()

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")
	assert.Contains(t, buf.String(), "kept too")
}
