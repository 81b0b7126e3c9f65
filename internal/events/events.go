// Package events publishes transcript events downstream.
package events

// Event type values carried in the eventType field.
const (
	TypePartial = "conversation.transcript.partial"
	TypeMessage = "conversation.transcript.message"
)

// TranscriptPartial is an interim caption for one conversation. The next
// partial or message for the same session supersedes it.
type TranscriptPartial struct {
	EventType string  `json:"eventType"`
	SessionID string  `json:"sessionId"`
	Timestamp int64   `json:"timestamp"`
	Speaker   string  `json:"speaker"`
	Text      string  `json:"text"`
	StartTime float64 `json:"startTime"`
}

// TranscriptMessage is a settled transcript message. Merged indicates
// the segment extended an existing message instead of opening a new one,
// and Text carries the full accumulated message text.
type TranscriptMessage struct {
	EventType string  `json:"eventType"`
	SessionID string  `json:"sessionId"`
	Timestamp int64   `json:"timestamp"`
	Speaker   string  `json:"speaker"`
	Text      string  `json:"text"`
	Color     string  `json:"color"`
	StartTime float64 `json:"startTime"`
	Merged    bool    `json:"merged"`
}
