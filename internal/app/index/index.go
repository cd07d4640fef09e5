// Package index provides read-only lookups over the segment and word tables.
package index

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/versesync/internal/domain/recitation"
	"github.com/osa030/versesync/internal/infra/tables"
)

// numeralWord matches words that are only an end-of-unit number (Arabic-Indic digits).
var numeralWord = regexp.MustCompile(`^[\x{0660}-\x{0669}]+$`)

// Index answers unit, segment and word lookups. It is immutable after New
// and safe for concurrent use.
type Index struct {
	units      map[string]recitation.Unit // "collection:unit" -> unit
	unitsOf    map[int][]int              // collection -> sorted unit ids
	audio      tables.AudioTable
	glyphs     tables.WordTable
	words      tables.WordTable
	glyphsOf   map[string][]int // "collection:unit" -> sorted word indexes in glyphs
	fallbackOf map[string][]int // "collection:unit" -> sorted word indexes in words
}

// New builds an index from loaded tables.
func New(set *tables.Set) *Index {
	x := &Index{
		units:      make(map[string]recitation.Unit),
		unitsOf:    make(map[int][]int),
		audio:      tables.AudioTable{},
		glyphs:     tables.WordTable{},
		words:      tables.WordTable{},
		glyphsOf:   make(map[string][]int),
		fallbackOf: make(map[string][]int),
	}
	if set == nil {
		return x
	}
	if set.Audio != nil {
		x.audio = set.Audio
	}
	if set.Glyphs != nil {
		x.glyphs = set.Glyphs
	}
	if set.Words != nil {
		x.words = set.Words
	}

	segmentUnits := make(map[int]map[int]bool)
	for key, entry := range set.Segments {
		ids, ok := parseKey(key, 2)
		if !ok {
			zlog.Warn().Msgf("index: ignoring segment key %q", key)
			continue
		}
		c, u := ids[0], ids[1]

		raw := entry.Triples()
		segs := make([]recitation.Segment, 0, len(raw))
		for _, r := range raw {
			segs = append(segs, recitation.Segment{Word: r[0], StartMs: r[1], EndMs: r[2]})
		}
		unit := recitation.NewUnit(c, u, segs, entry.TimestampFrom, entry.TimestampTo)
		if len(unit.Segments) == 0 {
			zlog.Debug().Msgf("index: unit %s has no usable segments", key)
		}
		x.units[recitation.UnitKey(c, u)] = unit
		addTo(segmentUnits, c, u)
	}

	textUnits := make(map[int]map[int]bool)
	indexWords(x.glyphs, x.glyphsOf, textUnits)
	indexWords(x.words, x.fallbackOf, textUnits)

	for c, set := range segmentUnits {
		x.unitsOf[c] = sortedKeys(set)
	}
	// Collections without timing data still list their units from the text tables.
	for c, set := range textUnits {
		if _, ok := x.unitsOf[c]; !ok {
			x.unitsOf[c] = sortedKeys(set)
		}
	}

	return x
}

// Unit returns the unit with its segments.
func (x *Index) Unit(collection, unit int) (recitation.Unit, bool) {
	u, ok := x.units[recitation.UnitKey(collection, unit)]
	return u, ok
}

// UnitsOf returns the unit ids of a collection in ascending numeric order.
func (x *Index) UnitsOf(collection int) []int {
	ids := x.unitsOf[collection]
	out := make([]int, len(ids))
	copy(out, ids)
	return out
}

// Collections returns every collection that has units or audio metadata,
// in ascending order.
func (x *Index) Collections() []int {
	set := make(map[int]bool, len(x.unitsOf)+len(x.audio))
	for c := range x.unitsOf {
		set[c] = true
	}
	for key := range x.audio {
		if c, err := strconv.Atoi(key); err == nil {
			set[c] = true
		}
	}
	return sortedKeys(set)
}

// HasTiming reports whether any unit of the collection has segments.
func (x *Index) HasTiming(collection int) bool {
	for _, id := range x.unitsOf[collection] {
		if u, ok := x.Unit(collection, id); ok && len(u.Segments) > 0 {
			return true
		}
	}
	return false
}

// Collection returns the collection with its units and audio metadata.
func (x *Index) Collection(collection int) (recitation.Collection, bool) {
	units := x.UnitsOf(collection)
	meta, hasMeta := x.audio[strconv.Itoa(collection)]
	if len(units) == 0 && !hasMeta {
		return recitation.Collection{}, false
	}
	return recitation.Collection{
		ID:          collection,
		Units:       units,
		AudioURL:    meta.AudioURL,
		DurationSec: meta.Duration,
	}, true
}

// AudioMeta returns the remote audio location and declared duration of a collection.
func (x *Index) AudioMeta(collection int) (url string, durationSec float64, ok bool) {
	meta, ok := x.audio[strconv.Itoa(collection)]
	if !ok {
		return "", 0, false
	}
	return meta.AudioURL, meta.Duration, true
}

// Words returns the display words of a unit ordered by word index.
// Glyphs are used when present, otherwise the fallback text.
func (x *Index) Words(collection, unit int) []recitation.Word {
	key := recitation.UnitKey(collection, unit)

	if idxs := x.glyphsOf[key]; len(idxs) > 0 {
		out := make([]recitation.Word, 0, len(idxs))
		for _, i := range idxs {
			wk := recitation.WordKey(collection, unit, i)
			out = append(out, recitation.Word{
				Index: i,
				Glyph: x.glyphs[wk].Text,
				Text:  x.words[wk].Text,
			})
		}
		return out
	}

	idxs := x.fallbackOf[key]
	out := make([]recitation.Word, 0, len(idxs))
	for _, i := range idxs {
		text := x.words[recitation.WordKey(collection, unit, i)].Text
		out = append(out, recitation.Word{Index: i, Glyph: text, Text: text})
	}
	return out
}

// UnitText joins the plain text of a unit, leaving out end-of-unit numerals.
func (x *Index) UnitText(collection, unit int) string {
	parts := make([]string, 0)
	for _, w := range x.Words(collection, unit) {
		if w.Text == "" || numeralWord.MatchString(w.Text) {
			continue
		}
		parts = append(parts, w.Text)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// IsNumeral reports whether a word is an end-of-unit number marker.
// Such words have no segment and cannot start playback.
func IsNumeral(w recitation.Word) bool {
	return numeralWord.MatchString(w.Glyph) || (w.Glyph == "" && numeralWord.MatchString(w.Text))
}

func indexWords(table tables.WordTable, into map[string][]int, units map[int]map[int]bool) {
	seen := make(map[string]map[int]bool)
	for key := range table {
		ids, ok := parseKey(key, 3)
		if !ok {
			continue
		}
		c, u, w := ids[0], ids[1], ids[2]
		uk := recitation.UnitKey(c, u)
		if seen[uk] == nil {
			seen[uk] = make(map[int]bool)
		}
		seen[uk][w] = true
		addTo(units, c, u)
	}
	for uk, set := range seen {
		into[uk] = sortedKeys(set)
	}
}

// parseKey splits "a:b[:c]" into n integers.
func parseKey(key string, n int) ([]int, bool) {
	parts := strings.Split(key, ":")
	if len(parts) != n {
		return nil, false
	}
	ids := make([]int, n)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, false
		}
		ids[i] = v
	}
	return ids, true
}

func addTo(m map[int]map[int]bool, outer, inner int) {
	if m[outer] == nil {
		m[outer] = make(map[int]bool)
	}
	m[outer][inner] = true
}

// sortedKeys returns the keys in numeric order. Unit and word ids are
// integers, so "10" must sort after "9".
func sortedKeys(set map[int]bool) []int {
	out := make([]int, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
