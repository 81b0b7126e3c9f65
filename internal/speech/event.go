package speech

import (
	"encoding/json"
	"fmt"

	"dialogue-transcription-service/internal/transcript"
)

// EventKind classifies a decoded channel message.
type EventKind int

const (
	// KindIgnored - housekeeping messages (AudioAdded, Info, unknown types).
	KindIgnored EventKind = iota
	// KindSessionStarted - the vendor acknowledged the channel.
	KindSessionStarted
	// KindTranscript - partial or final transcript segments.
	KindTranscript
	// KindSessionEnded - the vendor finished the transcript.
	KindSessionEnded
	// KindError - a terminal channel error.
	KindError
)

// String returns the string representation of the kind.
func (k EventKind) String() string {
	switch k {
	case KindIgnored:
		return "ignored"
	case KindSessionStarted:
		return "session_started"
	case KindTranscript:
		return "transcript"
	case KindSessionEnded:
		return "session_ended"
	case KindError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// Event is one decoded channel message.
type Event struct {
	Kind     EventKind
	Final    bool
	Segments []transcript.Segment
	Err      error
}

type rawMessage struct {
	Message string      `json:"message"`
	Type    string      `json:"type"`
	Reason  string      `json:"reason"`
	Results []rawResult `json:"results"`
}

type rawResult struct {
	// StartTime is a pointer so an explicit 0.0 survives decoding.
	StartTime    *float64         `json:"start_time"`
	Alternatives []rawAlternative `json:"alternatives"`
}

type rawAlternative struct {
	Content string `json:"content"`
	Speaker string `json:"speaker"`
}

// ParseMessage decodes one JSON channel message into an Event. Results
// without a start_time get one from now, the caller's clock. Unknown
// message types come back as KindIgnored rather than an error so new
// vendor messages never break the channel.
func ParseMessage(data []byte, now func() float64) (Event, error) {
	var raw rawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Event{}, fmt.Errorf("speech: decode message: %w", err)
	}

	switch raw.Message {
	case "RecognitionStarted":
		return Event{Kind: KindSessionStarted}, nil

	case "AddTranscript":
		return Event{
			Kind:     KindTranscript,
			Final:    true,
			Segments: flatten(raw.Results, now),
		}, nil

	case "AddPartialTranscript":
		return Event{
			Kind:     KindTranscript,
			Final:    false,
			Segments: flatten(raw.Results, now),
		}, nil

	case "EndOfTranscript":
		return Event{Kind: KindSessionEnded}, nil

	case "Error":
		return Event{
			Kind: KindError,
			Err:  fmt.Errorf("speech: vendor error %s: %s", raw.Type, raw.Reason),
		}, nil

	default:
		return Event{Kind: KindIgnored}, nil
	}
}

// flatten picks the top alternative of each result and normalizes
// missing speaker and timing fields.
func flatten(results []rawResult, now func() float64) []transcript.Segment {
	var segments []transcript.Segment
	for _, r := range results {
		if len(r.Alternatives) == 0 {
			continue
		}
		alt := r.Alternatives[0]

		speaker := alt.Speaker
		if speaker == "" {
			speaker = transcript.UnknownSpeaker
		}

		start := 0.0
		if r.StartTime != nil {
			start = *r.StartTime
		} else if now != nil {
			start = now()
		}

		segments = append(segments, transcript.Segment{
			Speaker:   speaker,
			Text:      alt.Content,
			StartTime: start,
		})
	}
	return segments
}
