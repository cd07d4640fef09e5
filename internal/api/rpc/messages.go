// Package rpc declares the PlaybackService wire messages, procedures, handler
// and client. Messages are plain structs carried by a JSON codec.
package rpc

// Playback result reasons.
const (
	ReasonSourceUnavailable = "source_unavailable"
	ReasonUnknownUnit       = "unknown_unit"
	ReasonUnknownWord       = "unknown_word"
	ReasonCollectionChanged = "collection_changed"
)

// Notification types besides the playback event names.
const (
	NotificationInitialState = "initial_state"
)

// Target identifies the active unit.
type Target struct {
	Collection int `json:"collection"`
	Unit       int `json:"unit"`
}

// PlaybackState is the playback state snapshot.
type PlaybackState struct {
	Collection  int     `json:"collection"`
	Mode        string  `json:"mode"`
	Target      *Target `json:"target,omitempty"`
	ActiveWord  int     `json:"active_word,omitempty"`
	IsPlaying   bool    `json:"is_playing"`
	PositionSec float64 `json:"position_sec"`
	DurationSec float64 `json:"duration_sec"`
}

// PlaybackResult is returned by every playback operation.
type PlaybackResult struct {
	OK     bool           `json:"ok"`
	Reason string         `json:"reason,omitempty"`
	State  *PlaybackState `json:"state,omitempty"`
}

// Collection describes a collection and its audio.
type Collection struct {
	ID          int     `json:"id"`
	Units       []int   `json:"units"`
	AudioURL    string  `json:"audio_url,omitempty"`
	DurationSec float64 `json:"duration_sec,omitempty"`
}

// Segment is the time range of one word.
type Segment struct {
	Word    int `json:"word"`
	StartMs int `json:"start_ms"`
	EndMs   int `json:"end_ms"`
}

// Word is one displayable word.
type Word struct {
	Index int    `json:"index"`
	Glyph string `json:"glyph"`
	Text  string `json:"text"`
}

type SetCollectionRequest struct {
	Collection int `json:"collection"`
}

type SetCollectionResponse struct {
	Collection *Collection    `json:"collection"`
	State      *PlaybackState `json:"state"`
}

type PlayUnitRequest struct {
	Unit int `json:"unit"`
}

type PlayFromWordRequest struct {
	Unit int `json:"unit"`
	Word int `json:"word"`
}

// PlayContinuousRequest starts continuous playback. A zero Unit starts from
// the first unit of the collection.
type PlayContinuousRequest struct {
	Unit int `json:"unit,omitempty"`
}

type StopRequest struct{}

type PauseRequest struct{}

type ResumeRequest struct{}

type SeekRequest struct {
	PositionSec float64 `json:"position_sec"`
}

type GetStateRequest struct{}

type GetStateResponse struct {
	SessionID string         `json:"session_id"`
	State     *PlaybackState `json:"state"`
}

type GetUnitRequest struct {
	Collection int `json:"collection"`
	Unit       int `json:"unit"`
}

type GetUnitResponse struct {
	Collection int       `json:"collection"`
	Unit       int       `json:"unit"`
	Timed      bool      `json:"timed"`
	StartMs    int       `json:"start_ms,omitempty"`
	EndMs      int       `json:"end_ms,omitempty"`
	Length     string    `json:"length,omitempty"`
	Text       string    `json:"text"`
	Words      []Word    `json:"words"`
	Segments   []Segment `json:"segments,omitempty"`
}

type WatchRequest struct{}

// Notification is one message of the Watch stream.
type Notification struct {
	Type       string         `json:"type"`
	SequenceNo uint64         `json:"sequence_no"`
	State      *PlaybackState `json:"state"`
}
