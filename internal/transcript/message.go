// Package transcript assembles speaker-attributed recognition segments
// into a readable conversation: consecutive segments from the same
// speaker collapse into one message, and every speaker keeps a stable
// display color for the life of the session.
package transcript

// UnknownSpeaker labels segments the vendor could not attribute.
const UnknownSpeaker = "unknown"

// Segment is one speaker-attributed piece of recognized speech as it
// arrives from the recognition channel.
type Segment struct {
	Speaker   string  `json:"speaker"`
	Text      string  `json:"text"`
	StartTime float64 `json:"startTime"`
}

// Message is one assembled transcript entry. Timestamp is the start
// time of the first segment that opened the message; merged segments
// never move it.
type Message struct {
	Speaker   string  `json:"speaker"`
	Text      string  `json:"text"`
	Timestamp float64 `json:"timestamp"`
	Color     string  `json:"color"`
}
