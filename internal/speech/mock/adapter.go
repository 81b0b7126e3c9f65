// Package mock provides a scripted speech.Adapter for tests and for
// running the service without vendor credentials. It replays a canned
// two-speaker conversation: progressive partials while audio arrives,
// then exactly one final per line.
package mock

import (
	"context"
	"sync"

	"dialogue-transcription-service/internal/speech"
	"dialogue-transcription-service/internal/transcript"
)

// ScriptedLine is one utterance of the simulated conversation.
type ScriptedLine struct {
	Speaker   string
	Partials  []string // progressive partial transcripts
	Final     string   // final transcript text
	StartTime float64  // seconds from session start
}

// DefaultScript is a short two-person exchange.
var DefaultScript = []ScriptedLine{
	{
		Speaker:   "S1",
		Partials:  []string{"Hi", "Hi thanks for"},
		Final:     "Hi thanks for joining the call",
		StartTime: 0.2,
	},
	{
		Speaker:   "S2",
		Partials:  []string{"Of course"},
		Final:     "Of course happy to be here",
		StartTime: 3.1,
	},
	{
		Speaker:   "S1",
		Partials:  []string{"Let's start", "Let's start with the"},
		Final:     "Let's start with the quarterly numbers",
		StartTime: 6.4,
	},
	{
		Speaker:   "S2",
		Partials:  []string{"Revenue is"},
		Final:     "Revenue is up eight percent",
		StartTime: 10.0,
	},
}

// Adapter implements speech.Adapter with scripted responses. Each audio
// frame advances the script by one step; callbacks fire synchronously so
// tests stay deterministic.
type Adapter struct {
	mu     sync.Mutex
	script []ScriptedLine
	cb     speech.Callback

	line    int // current script line
	partial int // next partial within the line
	closed  bool
	started bool
}

// New creates a mock adapter replaying DefaultScript.
func New() *Adapter {
	return NewWithScript(DefaultScript)
}

// NewWithScript creates a mock adapter replaying an explicit script.
func NewWithScript(script []ScriptedLine) *Adapter {
	return &Adapter{script: script}
}

// Start begins the scripted session.
func (a *Adapter) Start(ctx context.Context, cb speech.Callback) error {
	a.mu.Lock()
	a.cb = cb
	a.closed = false
	a.started = true
	a.mu.Unlock()

	cb.OnSessionStarted()
	return nil
}

// SendAudio consumes one audio frame and emits the next scripted event:
// the line's next partial, or its final once the partials are exhausted.
func (a *Adapter) SendAudio(ctx context.Context, audio []byte) error {
	a.mu.Lock()

	if a.closed || !a.started || a.line >= len(a.script) {
		a.mu.Unlock()
		return nil
	}

	cur := a.script[a.line]
	cb := a.cb

	if a.partial < len(cur.Partials) {
		text := cur.Partials[a.partial]
		a.partial++
		a.mu.Unlock()

		cb.OnTranscript([]transcript.Segment{{
			Speaker:   cur.Speaker,
			Text:      text,
			StartTime: cur.StartTime,
		}}, false)
		return nil
	}

	a.line++
	a.partial = 0
	a.mu.Unlock()

	cb.OnTranscript([]transcript.Segment{{
		Speaker:   cur.Speaker,
		Text:      cur.Final,
		StartTime: cur.StartTime,
	}}, true)
	return nil
}

// Close ends the scripted session and signals session end exactly once.
func (a *Adapter) Close() error {
	a.mu.Lock()
	if a.closed || !a.started {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	cb := a.cb
	a.mu.Unlock()

	if cb != nil {
		cb.OnSessionEnded()
	}
	return nil
}
