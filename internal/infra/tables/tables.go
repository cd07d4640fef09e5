// Package tables loads the static content tables: per-unit word segments,
// per-collection audio metadata and per-word display text.
package tables

import (
	"encoding/json"
	"io"
	"math"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/zstd"
	zlog "github.com/rs/zerolog/log"
)

// SegmentEntry is one "collection:unit" row of the segment table.
type SegmentEntry struct {
	Segments      [][]float64 `json:"segments"` // [wordIndex, startMs, endMs]
	DurationMs    int         `json:"duration_ms"`
	TimestampFrom int         `json:"timestamp_from"`
	TimestampTo   int         `json:"timestamp_to"`
}

// Triples returns the well-formed [word, start, end] rows, rounded to ints.
func (e SegmentEntry) Triples() [][3]int {
	out := make([][3]int, 0, len(e.Segments))
	for _, row := range e.Segments {
		if len(row) < 3 {
			continue
		}
		out = append(out, [3]int{
			int(math.Round(row[0])),
			int(math.Round(row[1])),
			int(math.Round(row[2])),
		})
	}
	return out
}

// AudioEntry is one collection row of the audio metadata table.
type AudioEntry struct {
	Collection int     `json:"surah_number,omitempty"`
	AudioURL   string  `json:"audio_url"`
	Duration   float64 `json:"duration"` // seconds
}

// WordEntry is one "collection:unit:word" row of a word table.
type WordEntry struct {
	Text string `json:"text"`
}

// SegmentTable maps "collection:unit" to segments.
type SegmentTable map[string]SegmentEntry

// AudioTable maps the collection id (as a string) to audio metadata.
type AudioTable map[string]AudioEntry

// WordTable maps "collection:unit:word" to display text.
type WordTable map[string]WordEntry

// Set bundles all tables consumed by the engine.
type Set struct {
	Segments SegmentTable
	Audio    AudioTable
	Glyphs   WordTable // primary display glyphs
	Words    WordTable // fallback plain text
}

// Paths lists the files a Set is loaded from. Empty optional paths yield empty tables.
type Paths struct {
	Segments string
	Audio    string
	Glyphs   string
	Words    string
}

// LoadSet loads every table listed in paths.
func LoadSet(paths Paths) (*Set, error) {
	set := &Set{
		Segments: SegmentTable{},
		Audio:    AudioTable{},
		Glyphs:   WordTable{},
		Words:    WordTable{},
	}

	if err := loadInto(paths.Segments, set.Segments); err != nil {
		return nil, errors.Wrap(err, "failed to load segment table")
	}
	if err := loadInto(paths.Audio, set.Audio); err != nil {
		return nil, errors.Wrap(err, "failed to load audio table")
	}
	if paths.Glyphs != "" {
		if err := loadInto(paths.Glyphs, set.Glyphs); err != nil {
			return nil, errors.Wrap(err, "failed to load glyph table")
		}
	}
	if paths.Words != "" {
		if err := loadInto(paths.Words, set.Words); err != nil {
			return nil, errors.Wrap(err, "failed to load word table")
		}
	}

	zlog.Info().Msgf("tables: loaded segments=%d audio=%d glyphs=%d words=%d",
		len(set.Segments), len(set.Audio), len(set.Glyphs), len(set.Words))

	return set, nil
}

// loadInto decodes a JSON object file into dst row by row.
// Rows that fail to decode are skipped with a warning.
func loadInto[V any](path string, dst map[string]V) error {
	if path == "" {
		return errors.New("path is required")
	}

	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, "failed to create zstd reader for %s", path)
		}
		defer dec.Close()
		r = dec
	}

	return decodeInto(r, dst, path)
}

func decodeInto[V any](r io.Reader, dst map[string]V, name string) error {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return errors.Wrapf(err, "failed to parse %s", name)
	}

	skipped := 0
	for key, msg := range raw {
		var v V
		if err := json.Unmarshal(msg, &v); err != nil {
			skipped++
			zlog.Warn().Msgf("tables: skipping malformed row: file=%s key=%s error=%v", name, key, err)
			continue
		}
		dst[key] = v
	}
	if skipped > 0 {
		zlog.Warn().Msgf("tables: %d malformed rows skipped in %s", skipped, name)
	}
	return nil
}
