// Package speech defines the recognition channel abstraction and the
// vendor wire-format decoding shared by its implementations.
package speech

import (
	"context"

	"dialogue-transcription-service/internal/transcript"
)

// Callback receives recognition channel events. Implementations must be
// safe for calls from the adapter's receive goroutine.
type Callback interface {
	// OnSessionStarted fires once the vendor acknowledges the channel.
	OnSessionStarted()
	// OnTranscript delivers speaker-attributed segments. Partial
	// results arrive with final=false and are superseded by later
	// results for the same audio.
	OnTranscript(segments []transcript.Segment, final bool)
	// OnSessionEnded fires when the vendor closes the channel cleanly.
	OnSessionEnded()
	// OnError fires on a terminal channel error. No further events follow.
	OnError(err error)
}

// Adapter is a recognition channel to one speech vendor.
type Adapter interface {
	// Start opens the channel and begins delivering events to cb.
	Start(ctx context.Context, cb Callback) error
	// SendAudio forwards one frame of raw audio.
	SendAudio(ctx context.Context, audio []byte) error
	// Close ends the audio stream. Trailing results may still be
	// delivered before OnSessionEnded.
	Close() error
}
