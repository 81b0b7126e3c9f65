package speech

import (
	"strings"
	"testing"
)

func fixedClock() float64 { return 42.5 }

func TestParseMessage_Lifecycle(t *testing.T) {
	tests := []struct {
		name string
		data string
		kind EventKind
	}{
		{"recognition started", `{"message":"RecognitionStarted","id":"abc"}`, KindSessionStarted},
		{"end of transcript", `{"message":"EndOfTranscript"}`, KindSessionEnded},
		{"audio added", `{"message":"AudioAdded","seq_no":3}`, KindIgnored},
		{"info", `{"message":"Info","type":"recognition_quality"}`, KindIgnored},
		{"unknown", `{"message":"SomethingNew"}`, KindIgnored},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := ParseMessage([]byte(tt.data), fixedClock)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ev.Kind != tt.kind {
				t.Errorf("expected %v, got %v", tt.kind, ev.Kind)
			}
		})
	}
}

func TestParseMessage_FinalTranscript(t *testing.T) {
	data := `{
		"message": "AddTranscript",
		"results": [
			{"start_time": 1.2, "alternatives": [{"content": "hello", "speaker": "S1"}]},
			{"start_time": 1.8, "alternatives": [{"content": "there", "speaker": "S1"}]}
		]
	}`

	ev, err := ParseMessage([]byte(data), fixedClock)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Kind != KindTranscript || !ev.Final {
		t.Fatalf("expected final transcript, got kind=%v final=%v", ev.Kind, ev.Final)
	}
	if len(ev.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(ev.Segments))
	}
	if ev.Segments[0].Text != "hello" || ev.Segments[0].Speaker != "S1" || ev.Segments[0].StartTime != 1.2 {
		t.Errorf("unexpected first segment: %+v", ev.Segments[0])
	}
}

func TestParseMessage_PartialTranscript(t *testing.T) {
	data := `{
		"message": "AddPartialTranscript",
		"results": [{"start_time": 0.3, "alternatives": [{"content": "hel", "speaker": "S1"}]}]
	}`

	ev, err := ParseMessage([]byte(data), fixedClock)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Kind != KindTranscript || ev.Final {
		t.Errorf("expected partial transcript, got kind=%v final=%v", ev.Kind, ev.Final)
	}
}

func TestParseMessage_DefaultsSpeakerAndStartTime(t *testing.T) {
	data := `{
		"message": "AddTranscript",
		"results": [{"alternatives": [{"content": "hello"}]}]
	}`

	ev, err := ParseMessage([]byte(data), fixedClock)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ev.Segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(ev.Segments))
	}
	if ev.Segments[0].Speaker != "unknown" {
		t.Errorf("expected speaker unknown, got %q", ev.Segments[0].Speaker)
	}
	if ev.Segments[0].StartTime != 42.5 {
		t.Errorf("expected clock fallback 42.5, got %v", ev.Segments[0].StartTime)
	}
}

func TestParseMessage_ZeroStartTimePreserved(t *testing.T) {
	data := `{
		"message": "AddTranscript",
		"results": [{"start_time": 0, "alternatives": [{"content": "first word", "speaker": "S1"}]}]
	}`

	ev, err := ParseMessage([]byte(data), fixedClock)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Segments[0].StartTime != 0 {
		t.Errorf("explicit zero start_time must not fall back to the clock, got %v", ev.Segments[0].StartTime)
	}
}

func TestParseMessage_MissingAlternativesSkipped(t *testing.T) {
	data := `{
		"message": "AddTranscript",
		"results": [
			{"start_time": 1.0},
			{"start_time": 2.0, "alternatives": [{"content": "kept", "speaker": "S2"}]}
		]
	}`

	ev, err := ParseMessage([]byte(data), fixedClock)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ev.Segments) != 1 || ev.Segments[0].Text != "kept" {
		t.Errorf("expected only the result with alternatives, got %+v", ev.Segments)
	}
}

func TestParseMessage_VendorError(t *testing.T) {
	data := `{"message":"Error","type":"not_authorised","reason":"token expired"}`

	ev, err := ParseMessage([]byte(data), fixedClock)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Kind != KindError {
		t.Fatalf("expected KindError, got %v", ev.Kind)
	}
	if !strings.Contains(ev.Err.Error(), "not_authorised") || !strings.Contains(ev.Err.Error(), "token expired") {
		t.Errorf("expected type and reason in error, got %v", ev.Err)
	}
}

func TestParseMessage_MalformedJSON(t *testing.T) {
	if _, err := ParseMessage([]byte(`{"message":`), fixedClock); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestEventKind_String(t *testing.T) {
	tests := []struct {
		kind     EventKind
		expected string
	}{
		{KindIgnored, "ignored"},
		{KindSessionStarted, "session_started"},
		{KindTranscript, "transcript"},
		{KindSessionEnded, "session_ended"},
		{KindError, "error"},
		{EventKind(99), "unknown(99)"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.expected {
			t.Errorf("EventKind(%d).String() = %q, want %q", tt.kind, got, tt.expected)
		}
	}
}
