package engine

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediagrab/api/internal/model"
)

func TestParseProgressLine(t *testing.T) {
	tests := []struct {
		line string
		pct  int
		ok   bool
	}{
		{"[download]  45.2% of 10.50MiB at 1.20MiB/s ETA 00:05", 45, true},
		{"[download] 100% of 10.50MiB in 00:09", 100, true},
		{"[download]   0.0% of ~3.45MiB at Unknown speed", 0, true},
		{"[download] Destination: /tmp/video.mp4", 0, false},
		{"[ffmpeg] Merging formats", 0, false},
		{"random noise", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		pct, ok := parseProgressLine(tt.line)
		assert.Equal(t, tt.ok, ok, tt.line)
		if tt.ok {
			assert.Equal(t, tt.pct, pct, tt.line)
		}
	}
}

func TestBuildFetchArgs_Audio(t *testing.T) {
	args := buildFetchArgs(FetchRequest{
		SourceURL: "https://example.com/v",
		Format:    model.FormatAudioExtract,
		OutputDir: "/data",
		Tag:       "abc12345",
	})
	joined := strings.Join(args, " ")

	assert.Contains(t, joined, "-x")
	assert.Contains(t, joined, "--audio-format mp3")
	assert.Contains(t, joined, "bestaudio/best")
	assert.NotContains(t, joined, "--merge-output-format")
	assert.Contains(t, joined, "[abc12345]")
}

func TestBuildFetchArgs_VideoHeightCap(t *testing.T) {
	args := buildFetchArgs(FetchRequest{
		Format:    model.FormatVideo720p,
		OutputDir: "/data",
		Tag:       "t",
	})
	joined := strings.Join(args, " ")

	assert.Contains(t, joined, "height<=720")
	assert.Contains(t, joined, "--merge-output-format mp4")
}

func TestBuildFetchArgs_VideoBestAndLimit(t *testing.T) {
	args := buildFetchArgs(FetchRequest{
		Format:       model.FormatVideoBest,
		OutputDir:    "/data",
		Tag:          "t",
		MaxFileBytes: 500 * 1024 * 1024,
	})
	joined := strings.Join(args, " ")

	assert.Contains(t, joined, "bestvideo[ext=mp4]+bestaudio[ext=m4a]")
	assert.NotContains(t, joined, "height<=")
	assert.Contains(t, joined, "--max-filesize 524288000")
}

func TestLocateOutput(t *testing.T) {
	dir := t.TempDir()

	older := filepath.Join(dir, "My Video [tag1].mp4")
	require.NoError(t, os.WriteFile(older, []byte("a"), 0o644))
	past := time.Now().Add(-time.Minute)
	require.NoError(t, os.Chtimes(older, past, past))

	// Leftover partial must never win.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "My Video [tag1].mp4.part"), []byte("b"), 0o644))
	// Other jobs' files are invisible.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Other [tag2].mp4"), []byte("c"), 0o644))

	got, err := locateOutput(dir, "tag1")
	require.NoError(t, err)
	assert.Equal(t, older, got)

	_, err = locateOutput(dir, "missing")
	assert.Error(t, err)
}
