package handler

import (
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/showdown-bot/internal/bot"
	"github.com/freeeve/showdown-bot/internal/metrics"
)

// Message types exchanged on a decision session.
const (
	MsgConnected = "connected"
	MsgTurn      = "turn"
	MsgChoice    = "choice"
	MsgEnd       = "end"
	MsgEnded     = "ended"
	MsgError     = "error"
)

// Session is one websocket connection serving one match at a time. Its
// strategic context lives until the client ends the match or disconnects.
type Session struct {
	conn     *websocket.Conn
	clientID string
	send     chan []byte

	// sc is only touched by the session's read loop.
	sc *bot.StrategicContext
}

// MatchID returns the current match identifier, empty before the first turn.
func (s *Session) MatchID() string {
	if s.sc == nil {
		return ""
	}
	return s.sc.MatchID.String()
}

// Hub tracks open decision sessions.
type Hub struct {
	mu       sync.RWMutex
	sessions map[*Session]bool
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{sessions: make(map[*Session]bool)}
}

// Register adds a session to the hub.
func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[s] = true
	metrics.ActiveSessions.Set(float64(len(h.sessions)))
}

// Unregister removes a session and closes its send channel. Calling it
// twice for the same session is a no-op.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.sessions[s] {
		return
	}
	delete(h.sessions, s)
	close(s.send)
	metrics.ActiveSessions.Set(float64(len(h.sessions)))
}

// SessionCount returns the number of open sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// ClientSessionCount returns how many sessions a client holds open.
func (h *Hub) ClientSessionCount(clientID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for s := range h.sessions {
		if s.clientID == clientID {
			n++
		}
	}
	return n
}

// CloseAll closes every session's connection. Used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.sessions {
		if s.conn != nil {
			s.conn.Close()
		}
	}
	log.Info().Int("sessions", len(h.sessions)).Msg("Closed decision sessions")
}
