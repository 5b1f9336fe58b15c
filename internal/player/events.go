package player

import "time"

// Event is a notification from a Player.
type Event interface {
	event()
}

// MetadataEvent is sent once, when the track's duration is known.
type MetadataEvent struct {
	Duration time.Duration
}

// ProgressEvent is sent periodically while the track plays.
type ProgressEvent struct {
	Position time.Duration
}

// EndedEvent is sent when playback reaches the end of the track.
type EndedEvent struct{}

func (MetadataEvent) event() {}
func (ProgressEvent) event() {}
func (EndedEvent) event()    {}
