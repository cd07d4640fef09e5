// Package media defines the signals an audio stream emits to its listeners.
package media

// SignalType represents a stream signal type.
type SignalType int

const (
	SignalTimeUpdate     SignalType = iota // Playback position advanced
	SignalPlay                             // Playback started or resumed
	SignalPause                            // Playback paused
	SignalEnded                            // Position reached the end of the stream
	SignalLoadedMetadata                   // Source metadata (duration) is known
	SignalCanPlay                          // Source is ready to start playing
	SignalError                            // Source failed to load
)

// String returns the string representation of the signal type.
func (t SignalType) String() string {
	switch t {
	case SignalTimeUpdate:
		return "timeupdate"
	case SignalPlay:
		return "play"
	case SignalPause:
		return "pause"
	case SignalEnded:
		return "ended"
	case SignalLoadedMetadata:
		return "loadedmetadata"
	case SignalCanPlay:
		return "canplay"
	case SignalError:
		return "error"
	default:
		return "unknown"
	}
}

// IsLoad reports whether the signal settles a source load.
func (t SignalType) IsLoad() bool {
	return t == SignalLoadedMetadata || t == SignalCanPlay || t == SignalError
}

// Signal is one notification from a stream.
type Signal struct {
	Type        SignalType
	Source      string  // Source the stream had when the signal was raised
	PositionSec float64 // Stream position at the time of the signal
	Err         error   // Load failure (SignalError only)
}
