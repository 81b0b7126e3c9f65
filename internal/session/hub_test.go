package session

import (
	"testing"
)

// A hub whose loop is not draining must drop updates instead of
// blocking the caller.
func TestHub_BroadcastNeverBlocks(t *testing.T) {
	h := NewHub() // Run never started, so the queue fills up

	for i := 0; i < 150; i++ {
		h.Broadcast(Update{Type: UpdateTranscript, SessionID: "conv-1"})
	}

	if h.ClientCount() != 0 {
		t.Errorf("expected 0 clients, got %d", h.ClientCount())
	}
}

func TestHub_StopIdempotent(t *testing.T) {
	h := NewHub()
	go h.Run()

	h.Stop()
	h.Stop()
	h.Stop()
}
