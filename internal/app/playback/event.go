package playback

// EventType represents a playback event type.
type EventType int

const (
	EventStateChanged      EventType = iota // Mode, target or playing flag changed
	EventHighlightChanged                   // Active unit or word moved with the audio
	EventPosition                           // Position advanced, nothing else changed
	EventUnitFinished                       // Unit playback reached the unit end
	EventStreamEnded                        // The stream reached its end
	EventCollectionChanged                  // A different collection was selected
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventStateChanged:
		return "state_changed"
	case EventHighlightChanged:
		return "highlight_changed"
	case EventPosition:
		return "position"
	case EventUnitFinished:
		return "unit_finished"
	case EventStreamEnded:
		return "stream_ended"
	case EventCollectionChanged:
		return "collection_changed"
	default:
		return "unknown"
	}
}

// Event represents a playback event.
type Event struct {
	Type  EventType
	State State // State after the change
}
