package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"dialogue-transcription-service/internal/events"
	"dialogue-transcription-service/internal/observability/logging"
	"dialogue-transcription-service/internal/speech"
	"dialogue-transcription-service/internal/transcript"
)

// Errors returned by the manager.
var (
	ErrSessionExists   = errors.New("session already exists")
	ErrSessionNotFound = errors.New("session not found")
)

// AdapterFactory creates a recognition adapter for a new session.
type AdapterFactory func(ctx context.Context, language string) (speech.Adapter, error)

// Manager owns all live sessions and hands out recognition adapters
// through the configured factory.
type Manager struct {
	provider  string
	factory   AdapterFactory
	asmOpts   transcript.Options
	publisher *events.Publisher

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a session manager.
func NewManager(provider string, factory AdapterFactory, asmOpts transcript.Options, publisher *events.Publisher) *Manager {
	return &Manager{
		provider:  provider,
		factory:   factory,
		asmOpts:   asmOpts,
		publisher: publisher,
		sessions:  make(map[string]*Session),
	}
}

// Start creates and starts a session. An empty id gets a generated one.
// Returns ErrSessionExists when the id is already live.
func (m *Manager) Start(ctx context.Context, id, language string) (*Session, error) {
	if id == "" {
		id = newSessionID()
	}

	m.mu.Lock()
	if _, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrSessionExists, id)
	}
	// Reserve the id before the (possibly slow) channel dial.
	m.sessions[id] = nil
	m.mu.Unlock()

	release := func() {
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
	}

	// The recognition channel outlives the request that created it, so
	// it runs on a session-scoped context rather than the caller's.
	// Session teardown cancels it.
	channelCtx, cancel := context.WithCancel(context.Background())

	adapter, err := m.factory(channelCtx, language)
	if err != nil {
		cancel()
		release()
		return nil, fmt.Errorf("create channel for session %s: %w", id, err)
	}

	s := newSession(id, m.provider, adapter, m.asmOpts, m.publisher, channelCtx, cancel)
	if err := s.Start(ctx); err != nil {
		release()
		return nil, err
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	logger := logging.WithComponent("session-manager")
	logger.Info().
		Str("sessionId", id).
		Str("provider", m.provider).
		Msg("Session registered")
	return s, nil
}

// Get returns a live session by id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok || s == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// Stop stops a session and removes it from the manager.
func (m *Manager) Stop(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok || s == nil {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s.Stop()
}

// StopAll stops every live session. Used during shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		if s != nil {
			sessions = append(sessions, s)
		}
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	logger := logging.WithComponent("session-manager")
	for _, s := range sessions {
		if err := s.Stop(); err != nil {
			logger.Warn().
				Err(err).
				Str("sessionId", s.ID()).
				Msg("Error stopping session")
		}
	}
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func newSessionID() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "conversation-00000000"
	}
	return "conversation-" + hex.EncodeToString(b)
}
