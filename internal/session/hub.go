package session

import (
	"sync"

	"github.com/gorilla/websocket"

	"dialogue-transcription-service/internal/observability/logging"
	"dialogue-transcription-service/internal/observability/metrics"
	"dialogue-transcription-service/internal/transcript"
)

// Update types pushed to presentation feed clients.
const (
	UpdateStarted    = "started"
	UpdateTranscript = "transcript"
	UpdatePartial    = "partial"
	UpdateEnded      = "ended"
	UpdateError      = "error"
)

// Update is one message pushed over a presentation feed connection.
// Transcript updates carry the full message list so clients never have
// to reconcile merges; partial updates carry an ephemeral caption that
// the next update supersedes.
type Update struct {
	Type      string               `json:"type"`
	SessionID string               `json:"sessionId"`
	Messages  []transcript.Message `json:"messages,omitempty"`
	Partial   *transcript.Message  `json:"partial,omitempty"`
	Error     string               `json:"error,omitempty"`
	Timestamp int64                `json:"timestamp"`
}

// Hub fans session updates out to presentation feed WebSocket clients.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan Update
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
}

// NewHub creates a hub. Call Run in a goroutine to start fan-out.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan Update, 100),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
	}
}

// Run processes register, unregister, and broadcast events until Stop.
func (h *Hub) Run() {
	logger := logging.WithComponent("feed-hub")
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			total := len(h.clients)
			h.mu.Unlock()
			metrics.DefaultMetrics.RecordFeedClientConnect()
			logger.Debug().Int("total", total).Msg("Feed client connected")

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
				metrics.DefaultMetrics.RecordFeedClientDisconnect()
			}
			total := len(h.clients)
			h.mu.Unlock()
			logger.Debug().Int("total", total).Msg("Feed client disconnected")

		case update := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.clients {
				if err := conn.WriteJSON(update); err != nil {
					logger.Warn().Err(err).Msg("Feed write failed, dropping client")
					conn.Close()
					delete(h.clients, conn)
					metrics.DefaultMetrics.RecordFeedClientDisconnect()
				}
			}
			h.mu.Unlock()
			metrics.DefaultMetrics.RecordFeedBroadcast()

		case <-h.done:
			h.mu.Lock()
			for conn := range h.clients {
				conn.Close()
				delete(h.clients, conn)
				metrics.DefaultMetrics.RecordFeedClientDisconnect()
			}
			h.mu.Unlock()
			return
		}
	}
}

// Register attaches a feed client to the hub. Clients arriving after
// Stop are closed immediately.
func (h *Hub) Register(conn *websocket.Conn) {
	select {
	case h.register <- conn:
	case <-h.done:
		conn.Close()
	}
}

// Unregister detaches and closes a feed client.
func (h *Hub) Unregister(conn *websocket.Conn) {
	select {
	case h.unregister <- conn:
	case <-h.done:
		conn.Close()
	}
}

// Broadcast queues an update for all connected clients. Drops the
// update rather than blocking when the queue is full.
func (h *Hub) Broadcast(update Update) {
	select {
	case h.broadcast <- update:
	default:
		logger := logging.WithComponent("feed-hub")
		logger.Warn().
			Str("type", update.Type).
			Msg("Broadcast queue full, dropping update")
	}
}

// ClientCount returns the number of connected feed clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop closes all client connections and ends the Run loop. Idempotent.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}
