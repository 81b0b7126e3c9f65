package speechmatics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"dialogue-transcription-service/internal/transcript"
)

type recordingCallback struct {
	started chan struct{}
	finals  chan []transcript.Segment
	ended   chan struct{}
	errs    chan error
}

func newRecordingCallback() *recordingCallback {
	return &recordingCallback{
		started: make(chan struct{}, 1),
		finals:  make(chan []transcript.Segment, 8),
		ended:   make(chan struct{}, 1),
		errs:    make(chan error, 8),
	}
}

func (r *recordingCallback) OnSessionStarted() { r.started <- struct{}{} }
func (r *recordingCallback) OnTranscript(segs []transcript.Segment, final bool) {
	if final {
		r.finals <- segs
	}
}
func (r *recordingCallback) OnSessionEnded() { r.ended <- struct{}{} }
func (r *recordingCallback) OnError(err error) {
	r.errs <- err
}

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// fakeVendor runs a minimal server side of the real-time protocol:
// expects StartRecognition, acknowledges, transcribes one audio frame and
// honors EndOfStream.
func fakeVendor(t *testing.T, gotAuth *string, gotStart *startRecognition) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		*gotAuth = r.Header.Get("Authorization")

		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		if err := conn.ReadJSON(gotStart); err != nil {
			t.Errorf("reading StartRecognition: %v", err)
			return
		}
		conn.WriteJSON(map[string]any{"message": "RecognitionStarted", "id": "test-session"})

		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if mt == websocket.BinaryMessage {
				conn.WriteJSON(map[string]any{"message": "AudioAdded", "seq_no": 1})
				conn.WriteJSON(map[string]any{
					"message": "AddTranscript",
					"results": []map[string]any{
						{
							"start_time": 0.5,
							"alternatives": []map[string]any{
								{"content": "hello", "speaker": "S1"},
							},
						},
					},
				})
				continue
			}

			var ctrl map[string]any
			if err := json.Unmarshal(data, &ctrl); err != nil {
				continue
			}
			if ctrl["message"] == "EndOfStream" {
				conn.WriteJSON(map[string]any{"message": "EndOfTranscript"})
				return
			}
		}
	}
}

func TestClient_FullSession(t *testing.T) {
	var gotAuth string
	var gotStart startRecognition
	srv := httptest.NewServer(fakeVendor(t, &gotAuth, &gotStart))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.URL = "ws" + strings.TrimPrefix(srv.URL, "http")

	client := New("session-jwt", cfg)
	cb := newRecordingCallback()

	if err := client.Start(context.Background(), cb); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	select {
	case <-cb.started:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for session start")
	}

	if gotAuth != "Bearer session-jwt" {
		t.Errorf("expected bearer token header, got %q", gotAuth)
	}
	if gotStart.Message != "StartRecognition" {
		t.Errorf("expected StartRecognition, got %q", gotStart.Message)
	}
	if gotStart.TranscriptionConfig.Diarization != "speaker" {
		t.Errorf("expected speaker diarization, got %q", gotStart.TranscriptionConfig.Diarization)
	}
	if gotStart.AudioFormat.Encoding != "pcm_s16le" {
		t.Errorf("expected pcm_s16le encoding, got %q", gotStart.AudioFormat.Encoding)
	}

	if err := client.SendAudio(context.Background(), make([]byte, 640)); err != nil {
		t.Fatalf("SendAudio failed: %v", err)
	}

	select {
	case segs := <-cb.finals:
		if len(segs) != 1 || segs[0].Text != "hello" || segs[0].Speaker != "S1" {
			t.Errorf("unexpected segments: %+v", segs)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for transcript")
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	select {
	case <-cb.ended:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for session end")
	}

	if err := client.SendAudio(context.Background(), []byte("late")); err != ErrNotConnected {
		t.Errorf("expected ErrNotConnected after close, got %v", err)
	}
}

func TestClient_VendorError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var start startRecognition
		if err := conn.ReadJSON(&start); err != nil {
			return
		}
		conn.WriteJSON(map[string]any{
			"message": "Error",
			"type":    "not_authorised",
			"reason":  "token expired",
		})
		// Hold the connection open so the client sees the error message,
		// not a socket close.
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.URL = "ws" + strings.TrimPrefix(srv.URL, "http")

	client := New("expired", cfg)
	cb := newRecordingCallback()
	if err := client.Start(context.Background(), cb); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	select {
	case err := <-cb.errs:
		if !strings.Contains(err.Error(), "not_authorised") {
			t.Errorf("expected vendor error type in message, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for error callback")
	}
}

func TestClient_SendAudioBeforeStart(t *testing.T) {
	client := New("tok", DefaultConfig())
	if err := client.SendAudio(context.Background(), []byte("audio")); err != ErrNotConnected {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
}
