package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunQuietStillReportsError(t *testing.T) {
	var stderr bytes.Buffer
	code := run([]string{"trackreel", "render", "--quiet"}, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "tracks dir is required")
}

func TestRunEncodeMissingDir(t *testing.T) {
	var stderr bytes.Buffer
	code := run([]string{"trackreel", "encode"}, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "Frames dir is required")
}

func TestRunQuietSeqmapMissing(t *testing.T) {
	root := t.TempDir()
	for _, d := range []string{"tracks", "images"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, d), 0755))
	}
	var stderr bytes.Buffer
	code := run([]string{"trackreel", "render", "-q", "--no-video",
		"--tracks", filepath.Join(root, "tracks"),
		"--images", filepath.Join(root, "images"),
		"--out", filepath.Join(root, "out"),
		"--seqmap", filepath.Join(root, "missing.seqmap"),
	}, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "missing.seqmap")
}
