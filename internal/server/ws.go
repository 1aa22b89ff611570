package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/ardaeerol/smart-connect4/internal/game"
)

type wsClient struct {
	conn   *websocket.Conn
	send   chan []byte
	server *Server
	gameID string
}

type wsMessage struct {
	Type   string `json:"type"`
	Column *int   `json:"column"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (s *Server) handleWS(c *gin.Context) {
	gameID := c.Query("gameId")
	if gameID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "gameId required"})
		return
	}
	g, ok := s.manager.Get(gameID)
	if !ok {
		s.writeError(c, game.ErrGameNotFound)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("ws-upgrade")
		return
	}
	client := &wsClient{
		conn:   conn,
		send:   make(chan []byte, 16),
		server: s,
		gameID: gameID,
	}
	s.register(client)
	client.sendJSON(map[string]any{"type": "init", "game": g})

	go client.writePump()
	go client.readPump()
}

func (s *Server) register(c *wsClient) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	set, ok := s.subs[c.gameID]
	if !ok {
		set = make(map[*wsClient]struct{})
		s.subs[c.gameID] = set
	}
	set[c] = struct{}{}
}

func (s *Server) unregister(c *wsClient) {
	s.subMu.Lock()
	if set, ok := s.subs[c.gameID]; ok {
		if _, member := set[c]; member {
			delete(set, c)
			close(c.send)
		}
		if len(set) == 0 {
			delete(s.subs, c.gameID)
		}
	}
	s.subMu.Unlock()
	c.conn.Close()
}

// broadcast drops the message for subscribers whose buffer is full.
func (s *Server) broadcast(gameID string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Msg("ws-encode")
		return
	}
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	for client := range s.subs[gameID] {
		select {
		case client.send <- data:
		default:
		}
	}
}

func (c *wsClient) writePump() {
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (c *wsClient) readPump() {
	defer c.server.unregister(c)
	s := c.server
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendJSON(map[string]any{"type": "error", "message": "malformed message"})
			continue
		}
		if msg.Type != "move" || msg.Column == nil {
			continue
		}
		// state updates reach this client through broadcast
		if _, err := s.applyMove(context.Background(), c.gameID, *msg.Column); err != nil {
			c.sendJSON(map[string]any{"type": "error", "message": err.Error()})
		}
	}
}

func (c *wsClient) sendJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.server.subMu.RLock()
	defer c.server.subMu.RUnlock()
	if _, ok := c.server.subs[c.gameID][c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}
