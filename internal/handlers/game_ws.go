// internal/handlers/game_ws.go
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/forca/internal/game"
	"github.com/jason-s-yu/forca/internal/hub"
	"github.com/jason-s-yu/forca/internal/middleware"
	"github.com/sirupsen/logrus"
)

const (
	writeTimeout = 5 * time.Second
	pingInterval = 30 * time.Second
	readLimit    = 4096
	// consecutive rate-limited messages tolerated before the connection is dropped
	maxStrikes = 20
)

var errRateLimited = errors.New("rate limit exceeded")

// inboundMessage is the client envelope: {"event": ..., "data": {...}}.
type inboundMessage struct {
	Event game.EventType  `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// flexString accepts a JSON string or number; clients send ids either way.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*f = flexString(n.String())
	return nil
}

type joinRoomPayload struct {
	RoomID     flexString `json:"roomId"`
	PlayerName string     `json:"playerName"`
	PlayerID   flexString `json:"playerId"`
	Categoria  flexString `json:"categoria"`
}

type gameEventPayload struct {
	Tipo  string `json:"tipo"`
	Letra string `json:"letra"`
	Poder string `json:"poder"`
}

// wsSession is the gateway's per-connection state. A connection plays in at most
// one room.
type wsSession struct {
	conn       *hub.Connection
	room       *game.Room
	playerID   string
	authPlayer string
	log        logrus.FieldLogger
}

// GameWSHandler accepts realtime connections on the forca subprotocol, registers them
// with the hub and routes their messages to rooms until the client goes away.
func GameWSHandler(logger logrus.FieldLogger, gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{Subprotocol},
			OriginPatterns: gs.originPatterns(),
		})
		if err != nil {
			logger.Warnf("WebSocket accept error from %s: %v", r.RemoteAddr, err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")

		if c.Subprotocol() != Subprotocol {
			logger.Warnf("client %s connected with invalid subprotocol: %q", r.RemoteAddr, c.Subprotocol())
			c.Close(BadSubprotocolError, "Client must use the 'forca' subprotocol.")
			return
		}
		c.SetReadLimit(readLimit)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		connID := uuid.NewString()
		conn := hub.NewConnection(connID, r.RemoteAddr, gs.outBuffer(), cancel, logger)
		gs.Hub.Register(conn)
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, connID)

		sess := &wsSession{
			conn:       conn,
			authPlayer: cookiePlayer(r, gs.Issuer),
			log:        logger.WithField("conn", connID),
		}

		go writePump(ctx, c, conn, sess.log)
		err = readPump(ctx, c, gs, sess)

		if sess.room != nil {
			sess.room.Detach(connID)
		}
		gs.Hub.Unregister(connID)
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, connID, err)

		if errors.Is(err, errRateLimited) {
			c.Close(RateLimitedError, "Too many messages.")
			return
		}
		c.Close(websocket.StatusNormalClosure, "")
	}
}

// readPump reads client envelopes in order and applies them. It returns nil when the
// client closed the connection normally.
func readPump(ctx context.Context, c *websocket.Conn, gs *GameServer, sess *wsSession) error {
	limiter := gs.newLimiter()
	strikes := 0

	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			switch {
			case status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway:
				sess.log.Info("WebSocket closed normally")
				return nil
			case errors.Is(err, context.Canceled):
				sess.log.Info("WebSocket context canceled")
				return nil
			default:
				sess.log.Warnf("Error reading from WebSocket: %v (Status: %d)", err, status)
				return err
			}
		}

		if !limiter.Allow() {
			strikes++
			if strikes >= maxStrikes {
				return errRateLimited
			}
			sess.conn.Write(game.NewEvent(game.EventErro, map[string]interface{}{
				"codigo":   "limiteExcedido",
				"mensagem": "too many messages, slow down",
			}))
			continue
		}
		strikes = 0

		if msgType != websocket.MessageText {
			sess.log.Warnf("Received non-text message type %d. Ignoring.", msgType)
			continue
		}

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			sess.conn.WriteError(fmt.Errorf("%w: %v", game.ErrInvalidMessage, err))
			continue
		}
		if err := sess.dispatch(ctx, gs, msg); err != nil {
			sess.log.Debugf("%s rejected: %v", msg.Event, err)
			sess.conn.WriteError(err)
		}
	}
}

// dispatch routes one client message. The returned error goes back to this
// connection only.
func (s *wsSession) dispatch(ctx context.Context, gs *GameServer, msg inboundMessage) error {
	switch msg.Event {
	case game.EventPing:
		s.conn.Write(game.NewEvent(game.EventPong, nil))
		return nil

	case game.EventJoinRoom:
		var p joinRoomPayload
		if err := decodeData(msg.Data, &p); err != nil {
			return err
		}
		return s.join(ctx, gs, p)

	case game.EventEventoJogo:
		var p gameEventPayload
		if err := decodeData(msg.Data, &p); err != nil {
			return err
		}
		if s.room == nil {
			return game.ErrNotInRoom
		}
		switch p.Tipo {
		case game.ActionReady:
			return s.room.Ready(ctx, s.playerID)
		case game.ActionGuess:
			return s.room.Guess(ctx, s.playerID, p.Letra)
		case game.ActionUsePower:
			return s.room.UsePower(ctx, s.playerID, p.Poder)
		case game.ActionTimeUp:
			return s.room.ForfeitTurn(ctx, s.playerID)
		default:
			return fmt.Errorf("%w: unknown tipo %q", game.ErrInvalidMessage, p.Tipo)
		}

	default:
		return fmt.Errorf("%w: unknown event %q", game.ErrInvalidMessage, msg.Event)
	}
}

func (s *wsSession) join(ctx context.Context, gs *GameServer, p joinRoomPayload) error {
	if s.room != nil {
		if s.room.Phase() != game.PhaseFinished {
			return game.ErrAlreadyJoined
		}
		// a finished round frees the connection for another room
		s.room.Detach(s.conn.ID)
		s.room = nil
	}
	playerID := string(p.PlayerID)
	if playerID == "" {
		playerID = s.authPlayer
	}
	categoryID, err := strconv.ParseInt(string(p.Categoria), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: categoria must be numeric", game.ErrInvalidMessage)
	}

	room, err := gs.Registry.Join(ctx, string(p.RoomID), game.JoinRequest{
		PlayerID:   playerID,
		PlayerName: p.PlayerName,
		CategoryID: categoryID,
		ConnID:     s.conn.ID,
	})
	if err != nil {
		return err
	}
	s.room = room
	s.playerID = playerID
	s.log = s.log.WithFields(logrus.Fields{"room": room.ID, "player": playerID})
	return nil
}

func decodeData(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: missing data", game.ErrInvalidMessage)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", game.ErrInvalidMessage, err)
	}
	return nil
}

// writePump drains the connection queue in order and keeps the socket alive with
// pings. Any write failure closes the connection, which ends the read loop.
func writePump(ctx context.Context, c *websocket.Conn, conn *hub.Connection, logger logrus.FieldLogger) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer conn.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case <-conn.Done():
			return
		case ev := <-conn.OutChan:
			msgBytes, err := json.Marshal(ev)
			if err != nil {
				logger.Errorf("Failed to marshal %s event: %v", ev.Name, err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err = c.Write(writeCtx, websocket.MessageText, msgBytes)
			cancel()
			if err != nil {
				logger.Warnf("Failed to write %s event: %v", ev.Name, err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warnf("Ping failed: %v", err)
				return
			}
		}
	}
}
