package mock

import (
	"context"
	"testing"

	"dialogue-transcription-service/internal/transcript"
)

type collectingCallback struct {
	started  int
	ended    int
	partials [][]transcript.Segment
	finals   [][]transcript.Segment
	errs     []error
}

func (c *collectingCallback) OnSessionStarted() { c.started++ }
func (c *collectingCallback) OnTranscript(segs []transcript.Segment, final bool) {
	if final {
		c.finals = append(c.finals, segs)
	} else {
		c.partials = append(c.partials, segs)
	}
}
func (c *collectingCallback) OnSessionEnded() { c.ended++ }
func (c *collectingCallback) OnError(err error) {
	c.errs = append(c.errs, err)
}

func drain(t *testing.T, a *Adapter, frames int) {
	t.Helper()
	for i := 0; i < frames; i++ {
		if err := a.SendAudio(context.Background(), make([]byte, 320)); err != nil {
			t.Fatalf("SendAudio frame %d: %v", i, err)
		}
	}
}

func TestAdapter_ReplaysScript(t *testing.T) {
	script := []ScriptedLine{
		{Speaker: "S1", Partials: []string{"Hel"}, Final: "Hello", StartTime: 0.5},
		{Speaker: "S2", Partials: nil, Final: "Hi", StartTime: 2.0},
	}

	a := NewWithScript(script)
	cb := &collectingCallback{}

	if err := a.Start(context.Background(), cb); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if cb.started != 1 {
		t.Errorf("expected 1 session start, got %d", cb.started)
	}

	// Line 1: one partial then the final; line 2: final immediately.
	drain(t, a, 3)

	if len(cb.partials) != 1 {
		t.Fatalf("expected 1 partial, got %d", len(cb.partials))
	}
	if cb.partials[0][0].Text != "Hel" || cb.partials[0][0].Speaker != "S1" {
		t.Errorf("unexpected partial: %+v", cb.partials[0])
	}

	if len(cb.finals) != 2 {
		t.Fatalf("expected 2 finals, got %d", len(cb.finals))
	}
	if cb.finals[0][0].Text != "Hello" || cb.finals[0][0].StartTime != 0.5 {
		t.Errorf("unexpected first final: %+v", cb.finals[0])
	}
	if cb.finals[1][0].Speaker != "S2" {
		t.Errorf("unexpected second final: %+v", cb.finals[1])
	}
}

func TestAdapter_ScriptExhaustionIsQuiet(t *testing.T) {
	a := NewWithScript([]ScriptedLine{{Speaker: "S1", Final: "done", StartTime: 0}})
	cb := &collectingCallback{}
	a.Start(context.Background(), cb)

	drain(t, a, 10)

	if len(cb.finals) != 1 {
		t.Errorf("expected exactly 1 final, got %d", len(cb.finals))
	}
}

func TestAdapter_CloseSignalsSessionEndOnce(t *testing.T) {
	a := New()
	cb := &collectingCallback{}
	a.Start(context.Background(), cb)

	a.Close()
	a.Close()

	if cb.ended != 1 {
		t.Errorf("expected 1 session end, got %d", cb.ended)
	}
}

func TestAdapter_SendAudioAfterCloseIsNoOp(t *testing.T) {
	a := New()
	cb := &collectingCallback{}
	a.Start(context.Background(), cb)
	a.Close()

	if err := a.SendAudio(context.Background(), []byte("audio")); err != nil {
		t.Errorf("expected nil error after close, got %v", err)
	}
	if len(cb.partials)+len(cb.finals) != 0 {
		t.Error("expected no transcripts after close")
	}
}

// Feeding the mock into the assembly engine exercises the full pipeline:
// finals merge per speaker, partials never touch the message list.
func TestAdapter_DrivesAssembler(t *testing.T) {
	a := New()
	asm := transcript.NewAssembler()

	cb := &assemblingCallback{asm: asm}
	a.Start(context.Background(), cb)

	for i := 0; i < 32; i++ {
		a.SendAudio(context.Background(), make([]byte, 320))
	}

	msgs := asm.Messages()
	if len(msgs) != len(DefaultScript) {
		t.Fatalf("expected %d messages (speakers alternate), got %d", len(DefaultScript), len(msgs))
	}
	if msgs[0].Text != DefaultScript[0].Final {
		t.Errorf("unexpected first message text: %q", msgs[0].Text)
	}
	if msgs[0].Color == msgs[1].Color {
		t.Error("expected the two speakers to have distinct colors")
	}
	if msgs[0].Color != msgs[2].Color {
		t.Error("expected S1 to keep its color across messages")
	}
}

type assemblingCallback struct {
	asm *transcript.Assembler
}

func (c *assemblingCallback) OnSessionStarted() {}
func (c *assemblingCallback) OnTranscript(segs []transcript.Segment, final bool) {
	if final {
		c.asm.Ingest(segs)
	}
}
func (c *assemblingCallback) OnSessionEnded() {}
func (c *assemblingCallback) OnError(error)  {}
