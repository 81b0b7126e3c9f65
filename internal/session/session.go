package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"dialogue-transcription-service/internal/events"
	"dialogue-transcription-service/internal/observability/logging"
	"dialogue-transcription-service/internal/observability/metrics"
	"dialogue-transcription-service/internal/speech"
	"dialogue-transcription-service/internal/transcript"
)

// Session is one recording session: a recognition channel feeding the
// transcript assembler, with updates fanned out to feed clients and
// published downstream. It implements speech.Callback; the recognition
// adapter drives it from its receive loop.
type Session struct {
	id        string
	provider  string
	adapter   speech.Adapter
	assembler *transcript.Assembler
	lifecycle *Lifecycle
	hub       *Hub
	publisher *events.Publisher
	metrics   *metrics.Metrics
	logger    zerolog.Logger

	// ctx scopes the recognition channel; cancelled on teardown so the
	// channel never outlives the session.
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	startedAt time.Time
}

// NewSession creates a session in IDLE state. The hub is started
// alongside the session and stopped when the session is stopped.
func NewSession(id, provider string, adapter speech.Adapter, asmOpts transcript.Options, publisher *events.Publisher) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return newSession(id, provider, adapter, asmOpts, publisher, ctx, cancel)
}

func newSession(id, provider string, adapter speech.Adapter, asmOpts transcript.Options, publisher *events.Publisher, ctx context.Context, cancel context.CancelFunc) *Session {
	s := &Session{
		id:        id,
		provider:  provider,
		adapter:   adapter,
		assembler: transcript.NewAssemblerWithOptions(asmOpts),
		lifecycle: NewLifecycle(),
		hub:       NewHub(),
		publisher: publisher,
		metrics:   metrics.DefaultMetrics,
		logger:    logging.WithChannel(id, provider),
		ctx:       ctx,
		cancel:    cancel,
	}
	go s.hub.Run()
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return s.lifecycle.State()
}

// Hub returns the presentation feed hub for this session.
func (s *Session) Hub() *Hub {
	return s.hub
}

// Messages returns the assembled transcript so far.
func (s *Session) Messages() []transcript.Message {
	return s.assembler.Messages()
}

// Start opens the recognition channel and transitions IDLE → ACTIVE.
// The channel runs on the session's own context, not ctx: callers often
// pass a per-request context that dies when their handler returns, and
// the channel has to outlive it. A failed start releases the session's
// resources; the session is not reusable afterwards.
func (s *Session) Start(ctx context.Context) error {
	if err := s.lifecycle.Activate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.startedAt = time.Now()
	s.mu.Unlock()

	if err := s.adapter.Start(s.ctx, s); err != nil {
		s.lifecycle.Deactivate()
		s.cancel()
		s.hub.Stop()
		return fmt.Errorf("session %s: start channel: %w", s.id, err)
	}

	s.metrics.RecordSessionStart()
	s.logger.Info().Msg("Session started")
	return nil
}

// SendAudio forwards one audio frame to the recognition channel.
// Rejected with ErrNotActive while the session is idle.
func (s *Session) SendAudio(ctx context.Context, audio []byte) error {
	if !s.lifecycle.IsActive() {
		return ErrNotActive
	}
	s.metrics.RecordAudioReceived(len(audio))
	return s.adapter.SendAudio(ctx, audio)
}

// Stop closes the recognition channel and shuts the feed hub down.
// The vendor's session-end signal performs the transcript teardown;
// if the channel was already gone we tear down here.
func (s *Session) Stop() error {
	err := s.adapter.Close()
	if s.end() {
		s.broadcast(Update{Type: UpdateEnded, SessionID: s.id})
		s.logger.Info().Msg("Session stopped")
	}
	s.hub.Stop()
	s.cancel()
	return err
}

// OnSessionStarted implements speech.Callback.
func (s *Session) OnSessionStarted() {
	s.metrics.RecordEvent("session_started")
	s.logger.Info().Msg("Recognition channel ready")
	s.broadcast(Update{Type: UpdateStarted, SessionID: s.id})
}

// OnTranscript implements speech.Callback. Final segments are ingested
// into the assembler and the full message list is rebroadcast; partials
// only produce an ephemeral caption.
func (s *Session) OnTranscript(segments []transcript.Segment, final bool) {
	if !s.lifecycle.IsActive() {
		return
	}

	if !final {
		s.metrics.RecordEvent("partial")
		s.handlePartial(segments)
		return
	}

	s.metrics.RecordEvent("transcript")
	result := s.assembler.Ingest(segments)
	s.metrics.RecordIngest(result.Appended, result.Merged, result.Skipped, result.NewSpeakers)

	if result.Appended+result.Merged == 0 {
		return
	}

	msgs := s.assembler.Messages()
	s.logger.Debug().
		Int("appended", result.Appended).
		Int("merged", result.Merged).
		Int("messages", len(msgs)).
		Msg("Transcript updated")

	s.broadcast(Update{Type: UpdateTranscript, SessionID: s.id, Messages: msgs})

	if len(msgs) > 0 {
		last := msgs[len(msgs)-1]
		s.publishMessage(last, result.Merged > 0)
	}
}

// OnSessionEnded implements speech.Callback.
func (s *Session) OnSessionEnded() {
	s.metrics.RecordEvent("session_ended")
	if s.end() {
		s.broadcast(Update{Type: UpdateEnded, SessionID: s.id})
		s.logger.Info().Msg("Recognition channel ended")
	}
}

// OnError implements speech.Callback. Errors are terminal for the
// channel: the session drops back to IDLE and the transcript is cleared.
func (s *Session) OnError(err error) {
	s.metrics.RecordEvent("error")
	s.metrics.RecordSessionError(s.provider)
	s.logger.Error().Err(err).Msg("Recognition channel error")

	s.broadcast(Update{Type: UpdateError, SessionID: s.id, Error: err.Error()})
	if s.end() {
		s.broadcast(Update{Type: UpdateEnded, SessionID: s.id})
	}
}

func (s *Session) handlePartial(segments []transcript.Segment) {
	if len(segments) == 0 {
		return
	}
	seg := segments[len(segments)-1]
	caption := transcript.Message{
		Speaker:   seg.Speaker,
		Text:      seg.Text,
		Timestamp: seg.StartTime,
	}

	s.broadcast(Update{Type: UpdatePartial, SessionID: s.id, Partial: &caption})

	if s.publisher != nil {
		_ = s.publisher.PublishPartial(context.Background(), s.id, events.TranscriptPartial{
			EventType: events.TypePartial,
			SessionID: s.id,
			Timestamp: time.Now().UnixMilli(),
			Speaker:   seg.Speaker,
			Text:      seg.Text,
			StartTime: seg.StartTime,
		})
	}
}

func (s *Session) publishMessage(m transcript.Message, merged bool) {
	if s.publisher == nil {
		return
	}
	_ = s.publisher.PublishMessage(context.Background(), s.id, events.TranscriptMessage{
		EventType: events.TypeMessage,
		SessionID: s.id,
		Timestamp: time.Now().UnixMilli(),
		Speaker:   m.Speaker,
		Text:      m.Text,
		Color:     m.Color,
		StartTime: m.Timestamp,
		Merged:    merged,
	})
}

// end performs the idempotent teardown: ACTIVE → IDLE, channel context
// cancelled, session metrics, and a transcript reset so the next
// recording starts clean.
func (s *Session) end() bool {
	if !s.lifecycle.Deactivate() {
		return false
	}

	s.cancel()

	s.mu.Lock()
	duration := time.Since(s.startedAt).Seconds()
	s.mu.Unlock()

	s.metrics.RecordSessionEnd(duration)
	s.assembler.Reset()
	return true
}

func (s *Session) broadcast(update Update) {
	update.Timestamp = time.Now().UnixMilli()
	s.hub.Broadcast(update)
}
