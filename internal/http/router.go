// Package http provides the public API surface: session control,
// transcript reads, WebSocket audio ingress, and the presentation feed.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"dialogue-transcription-service/internal/app"
	"dialogue-transcription-service/internal/observability/logging"
	"dialogue-transcription-service/internal/session"
	"dialogue-transcription-service/internal/token"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Browser mic capture pages are served from anywhere in dev.
		return true
	},
}

// Handler carries the dependencies of the API routes.
type Handler struct {
	app     *app.Application
	manager *session.Manager
	tokens  *token.Provider
}

// NewRouter constructs the HTTP router for the service.
func NewRouter(application *app.Application, manager *session.Manager, tokens *token.Provider) http.Handler {
	h := &Handler{app: application, manager: manager, tokens: tokens}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/sessions", h.startSession)
		r.Get("/sessions/{id}/transcript", h.getTranscript)
		r.Delete("/sessions/{id}", h.stopSession)
		r.Get("/sessions/{id}/feed", h.feed)
		r.Get("/sessions/{id}/audio", h.audio)
		r.Post("/token", h.issueToken)
	})

	return r
}

type startSessionRequest struct {
	ID       string `json:"id,omitempty"`
	Language string `json:"language,omitempty"`
}

type sessionResponse struct {
	SessionID string `json:"sessionId"`
	State     string `json:"state"`
}

type transcriptResponse struct {
	SessionID string `json:"sessionId"`
	State     string `json:"state"`
	Messages  any    `json:"messages"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if r.Body != nil {
		// An empty body starts a session with defaults.
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if req.Language == "" {
		req.Language = h.app.Cfg.Speech.Language
	}

	s, err := h.manager.Start(r.Context(), req.ID, req.Language)
	if err != nil {
		if errors.Is(err, session.ErrSessionExists) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		logger := logging.WithComponent("http")
		logger.Error().Err(err).Msg("Failed to start session")
		writeError(w, http.StatusBadGateway, "could not open recognition channel")
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse{
		SessionID: s.ID(),
		State:     s.State().String(),
	})
}

func (h *Handler) getTranscript(w http.ResponseWriter, r *http.Request) {
	s, err := h.manager.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, transcriptResponse{
		SessionID: s.ID(),
		State:     s.State().String(),
		Messages:  s.Messages(),
	})
}

func (h *Handler) stopSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.manager.Stop(id); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		logger := logging.WithComponent("http")
		logger.Warn().Err(err).Str("sessionId", id).Msg("Session stop reported error")
	}
	writeJSON(w, http.StatusOK, sessionResponse{SessionID: id, State: session.StateIdle.String()})
}

// feed upgrades to a WebSocket and streams transcript updates. The first
// message is a snapshot of the assembled transcript so late joiners see
// the whole conversation.
func (h *Handler) feed(w http.ResponseWriter, r *http.Request) {
	s, err := h.manager.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger := logging.WithComponent("http")
		logger.Warn().Err(err).Msg("Feed upgrade failed")
		return
	}

	snapshot := session.Update{
		Type:      session.UpdateTranscript,
		SessionID: s.ID(),
		Messages:  s.Messages(),
		Timestamp: time.Now().UnixMilli(),
	}
	if err := conn.WriteJSON(snapshot); err != nil {
		conn.Close()
		return
	}

	hub := s.Hub()
	hub.Register(conn)

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				hub.Unregister(conn)
				return
			}
		}
	}()
}

// audio upgrades to a WebSocket and treats every binary frame as raw
// PCM audio for the recognition channel. Closing the socket stops the
// session.
func (h *Handler) audio(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s, err := h.manager.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger := logging.WithComponent("http")
		logger.Warn().Err(err).Msg("Audio upgrade failed")
		return
	}

	logger := logging.WithSession(id)
	logger.Info().Msg("Audio stream connected")

	go func() {
		defer conn.Close()
		// The request context dies when this handler returns; frames
		// are forwarded on the session's own lifetime instead.
		ctx := context.Background()
		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				logger.Info().Msg("Audio stream closed")
				if stopErr := h.manager.Stop(id); stopErr != nil && !errors.Is(stopErr, session.ErrSessionNotFound) {
					logger.Warn().Err(stopErr).Msg("Error stopping session after audio close")
				}
				return
			}
			if msgType != websocket.BinaryMessage || len(data) == 0 {
				continue
			}
			if err := s.SendAudio(ctx, data); err != nil {
				if errors.Is(err, session.ErrNotActive) {
					continue
				}
				logger.Error().Err(err).Msg("Failed to forward audio")
				return
			}
		}
	}()
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (h *Handler) issueToken(w http.ResponseWriter, r *http.Request) {
	key, err := h.tokens.Issue(r.Context())
	if err != nil {
		if errors.Is(err, token.ErrNoAPIKey) {
			writeError(w, http.StatusServiceUnavailable, "no vendor API key configured")
			return
		}
		logger := logging.WithComponent("http")
		logger.Error().Err(err).Msg("Token issue failed")
		writeError(w, http.StatusBadGateway, "token exchange failed")
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: key})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
