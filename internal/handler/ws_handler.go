package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/showdown-bot/internal/auth"
	"github.com/freeeve/showdown-bot/internal/bot"
	"github.com/freeeve/showdown-bot/internal/logger"
	"github.com/freeeve/showdown-bot/pkg/battle"
)

const (
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = 54 * time.Second // Must be less than pongWait
	maxMsgSize  = 1 << 20
	sendBufSize = 16

	defaultMaxClientSessions = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // clients are authenticated by token, not origin
	},
}

// ClientMessage is sent by the transport layer.
type ClientMessage struct {
	Type  string        `json:"type"`
	State *battle.State `json:"state,omitempty"`
}

// ServerMessage is sent back to the transport layer.
type ServerMessage struct {
	Type    string `json:"type"`
	MatchID string `json:"match_id,omitempty"`
	Turn    int    `json:"turn,omitempty"`
	Choice  string `json:"choice,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ContextFactory creates the strategic context for a new match.
type ContextFactory func() *bot.StrategicContext

// DecisionHandler serves decision sessions over WebSocket.
type DecisionHandler struct {
	hub        *Hub
	jwtMgr     *auth.JWTManager
	strategy   bot.Strategy
	newContext ContextFactory

	// MaxClientSessions caps the open sessions per client ID.
	MaxClientSessions int
}

// NewDecisionHandler creates a DecisionHandler.
func NewDecisionHandler(hub *Hub, jwtMgr *auth.JWTManager, strategy bot.Strategy, newContext ContextFactory) *DecisionHandler {
	return &DecisionHandler{
		hub:               hub,
		jwtMgr:            jwtMgr,
		strategy:          strategy,
		newContext:        newContext,
		MaxClientSessions: defaultMaxClientSessions,
	}
}

// ServeWS handles GET /api/v1/decide and upgrades to WebSocket.
// Browsers cannot set headers on a websocket dial, so ?token= is accepted
// alongside the Authorization header.
func (h *DecisionHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	tokenStr, err := auth.TokenFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	claims, err := h.jwtMgr.ValidateAccessToken(tokenStr)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if n := h.hub.ClientSessionCount(claims.ClientID); h.MaxClientSessions > 0 && n >= h.MaxClientSessions {
		log.Warn().Str("clientId", claims.ClientID).Int("open", n).Msg("Session limit reached")
		writeError(w, http.StatusTooManyRequests, "too many open sessions")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	s := &Session{
		conn:     conn,
		clientID: claims.ClientID,
		send:     make(chan []byte, sendBufSize),
	}
	h.hub.Register(s)
	s.queue(ServerMessage{Type: MsgConnected})

	// s.sc belongs to the read loop once it starts, so log first.
	l := s.sessionLog()
	l.Info().Int("total", h.hub.SessionCount()).Msg("Decision session opened")

	go h.writePump(s)
	go h.readPump(s)
}

// readPump reads messages and runs the match's turn loop. Turns are
// decided one at a time in arrival order.
func (h *DecisionHandler) readPump(s *Session) {
	defer func() {
		h.hub.Unregister(s)
		s.conn.Close()
		l := s.sessionLog()
		l.Info().Msg("Decision session closed")
	}()

	s.conn.SetReadLimit(maxMsgSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				l := s.sessionLog()
				l.Warn().Err(err).Msg("WebSocket unexpected close")
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			s.queue(ServerMessage{Type: MsgError, Error: "invalid message"})
			continue
		}
		s.queue(h.handle(context.Background(), s, msg))
	}
}

// handle processes one client message and returns the reply.
func (h *DecisionHandler) handle(ctx context.Context, s *Session, msg ClientMessage) ServerMessage {
	switch msg.Type {
	case MsgTurn:
		if msg.State == nil {
			return ServerMessage{Type: MsgError, Error: "missing state"}
		}
		if s.sc == nil {
			s.sc = h.newContext()
			l := s.sessionLog()
			l.Info().Str("battle", msg.State.ID).Msg("Match started")
		}
		choice, err := h.strategy.Choose(ctx, s.sc, msg.State)
		if err != nil {
			if !errors.Is(err, battle.ErrUnsupportedBattleType) {
				l := s.sessionLog()
				l.Error().Err(err).Int("turn", msg.State.Turn).Msg("Decision failed")
			}
			return ServerMessage{Type: MsgError, MatchID: s.MatchID(), Turn: msg.State.Turn, Error: err.Error()}
		}
		return ServerMessage{Type: MsgChoice, MatchID: s.MatchID(), Turn: msg.State.Turn, Choice: choice.String()}
	case MsgEnd:
		id := s.MatchID()
		s.sc = nil
		return ServerMessage{Type: MsgEnded, MatchID: id}
	default:
		return ServerMessage{Type: MsgError, Error: "unknown message type " + msg.Type}
	}
}

// queue marshals a reply onto the session's send buffer.
func (s *Session) queue(msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal server message")
		return
	}
	select {
	case s.send <- data:
	default:
		l := s.sessionLog()
		l.Warn().Str("type", msg.Type).Msg("Dropping message, send buffer full")
	}
}

func (s *Session) sessionLog() zerolog.Logger {
	return logger.ForSession(s.clientID, s.MatchID())
}

// writePump writes messages to the WebSocket connection.
func (h *DecisionHandler) writePump(s *Session) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
