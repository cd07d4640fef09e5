package tables

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const segmentsJSON = `{
	"1:1": {"segments": [[1, 0, 480], [2, 480, 1200.4]], "duration_ms": 1200, "timestamp_from": 0, "timestamp_to": 1200},
	"1:2": {"segments": [[1, 1200, 2000], [2]], "duration_ms": 800, "timestamp_from": 1200, "timestamp_to": 2000},
	"1:3": "not an object"
}`

const audioJSON = `{
	"1": {"surah_number": 1, "audio_url": "https://cdn.example.com/1.mp3", "duration": 46.5}
}`

const glyphsJSON = `{
	"1:1:1": {"text": "A"},
	"1:1:2": {"text": "B"}
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeZstd(t *testing.T, dir, name, content string) string {
	t.Helper()
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	defer enc.Close()
	compressed := enc.EncodeAll([]byte(content), nil)

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, compressed, 0o644))
	return path
}

func TestLoadSet(t *testing.T) {
	dir := t.TempDir()
	set, err := LoadSet(Paths{
		Segments: writeFile(t, dir, "segments.json", segmentsJSON),
		Audio:    writeFile(t, dir, "audio.json", audioJSON),
		Glyphs:   writeFile(t, dir, "glyphs.json", glyphsJSON),
	})
	require.NoError(t, err)

	// The malformed "1:3" row is skipped, the others survive.
	assert.Len(t, set.Segments, 2)
	assert.Equal(t, [][3]int{{1, 0, 480}, {2, 480, 1200}}, set.Segments["1:1"].Triples())
	assert.Equal(t, [][3]int{{1, 1200, 2000}}, set.Segments["1:2"].Triples())
	assert.Equal(t, 2000, set.Segments["1:2"].TimestampTo)

	assert.Equal(t, "https://cdn.example.com/1.mp3", set.Audio["1"].AudioURL)
	assert.InDelta(t, 46.5, set.Audio["1"].Duration, 1e-9)

	assert.Equal(t, "B", set.Glyphs["1:1:2"].Text)
	assert.Empty(t, set.Words)
}

func TestLoadSet_Zstd(t *testing.T) {
	dir := t.TempDir()
	set, err := LoadSet(Paths{
		Segments: writeZstd(t, dir, "segments.json.zst", segmentsJSON),
		Audio:    writeZstd(t, dir, "audio.json.zst", audioJSON),
	})
	require.NoError(t, err)
	assert.Len(t, set.Segments, 2)
	assert.Len(t, set.Audio, 1)
}

func TestLoadSet_Errors(t *testing.T) {
	dir := t.TempDir()
	audio := writeFile(t, dir, "audio.json", audioJSON)

	tests := []struct {
		name  string
		paths Paths
	}{
		{
			name:  "missing segment path",
			paths: Paths{Audio: audio},
		},
		{
			name:  "segment file does not exist",
			paths: Paths{Segments: filepath.Join(dir, "nope.json"), Audio: audio},
		},
		{
			name:  "segment file is not an object",
			paths: Paths{Segments: writeFile(t, dir, "bad.json", `[1,2,3]`), Audio: audio},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSet(tt.paths)
			assert.Error(t, err)
		})
	}
}
