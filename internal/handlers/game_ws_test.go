package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/forca/internal/auth"
	"github.com/jason-s-yu/forca/internal/game"
	"github.com/jason-s-yu/forca/internal/hub"
	"github.com/jason-s-yu/forca/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wireEvent struct {
	Event string                 `json:"event"`
	Data  map[string]interface{} `json:"data"`
}

func newTestGateway(t *testing.T, configure func(*GameServer)) *httptest.Server {
	t.Helper()
	logger := quietLogger()
	h := hub.New(logger)
	catalog := &fakeCatalog{words: map[int64][]models.Word{
		1: {{ID: 1, Palavra: "BANANA", Dica: "fruta amarela", CategoriaID: 1}},
	}}
	gs := &GameServer{
		Registry: game.NewRegistry(game.Options{
			Words:       catalog,
			Broadcaster: h,
			Logger:      logger,
			Settings:    game.Settings{TurnDuration: time.Hour},
		}),
		Hub:            h,
		AllowedOrigins: []string{"*"},
	}
	if configure != nil {
		configure(gs)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", GameWSHandler(logger, gs))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, opts *websocket.DialOptions) *websocket.Conn {
	t.Helper()
	if opts == nil {
		opts = &websocket.DialOptions{Subprotocols: []string{Subprotocol}}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", opts)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close(websocket.StatusNormalClosure, "") })
	return c
}

func send(t *testing.T, c *websocket.Conn, event string, data map[string]interface{}) {
	t.Helper()
	b, err := json.Marshal(map[string]interface{}{"event": event, "data": data})
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Write(ctx, websocket.MessageText, b))
}

// readUntil skips events until one named name arrives.
func readUntil(t *testing.T, c *websocket.Conn, name string) wireEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		_, b, err := c.Read(ctx)
		require.NoError(t, err, "waiting for %s", name)
		var ev wireEvent
		require.NoError(t, json.Unmarshal(b, &ev))
		if ev.Event == name {
			return ev
		}
	}
}

func joinRoom(t *testing.T, c *websocket.Conn, roomID, playerID string) wireEvent {
	t.Helper()
	send(t, c, "joinRoom", map[string]interface{}{
		"roomId":     roomID,
		"playerName": strings.ToUpper(playerID),
		"playerId":   playerID,
		"categoria":  1,
	})
	return readUntil(t, c, "preparacao")
}

// startMatch seats p1 then p2 in roomID and readies both.
func startMatch(t *testing.T, srv *httptest.Server, roomID string) (c1, c2 *websocket.Conn) {
	t.Helper()
	c1 = dial(t, srv, nil)
	c2 = dial(t, srv, nil)
	joinRoom(t, c1, roomID, "p1")
	joinRoom(t, c2, roomID, "p2")
	send(t, c1, "eventoJogo", map[string]interface{}{"tipo": "pronto"})
	send(t, c2, "eventoJogo", map[string]interface{}{"tipo": "pronto"})
	readUntil(t, c1, "inicio")
	readUntil(t, c2, "inicio")
	return c1, c2
}

func TestGatewayMatchFlow(t *testing.T) {
	srv := newTestGateway(t, nil)
	c1 := dial(t, srv, nil)
	c2 := dial(t, srv, nil)

	// both join R with categoria 1
	prep := joinRoom(t, c1, "R", "p1")
	assert.Equal(t, "preparacao", prep.Data["tipo"])
	send(t, c2, "joinRoom", map[string]interface{}{"roomId": "R", "playerName": "P2", "playerId": "p2", "categoria": "1"})
	prep = readUntil(t, c2, "preparacao")
	assert.Equal(t, "preparacao", prep.Data["tipo"])
	assert.Len(t, prep.Data["jogadores"], 2)

	// both ready: inicio with a turn owner and a masked word
	send(t, c1, "eventoJogo", map[string]interface{}{"tipo": "pronto"})
	send(t, c2, "eventoJogo", map[string]interface{}{"tipo": "pronto"})
	for _, c := range []*websocket.Conn{c1, c2} {
		ini := readUntil(t, c, "inicio")
		assert.Equal(t, "p1", ini.Data["turno"])
		assert.Equal(t, "______", ini.Data["palavraSecreta"])
	}

	// owner guesses A
	send(t, c1, "eventoJogo", map[string]interface{}{"tipo": "jogada", "letra": "A"})
	for _, c := range []*websocket.Conn{c1, c2} {
		j := readUntil(t, c, "jogada")
		assert.Equal(t, "jogada", j.Data["tipo"])
		assert.Equal(t, true, j.Data["acertou"])
		assert.Equal(t, "_A_A_A", j.Data["palavra"])
	}

	// owner uses a power
	send(t, c1, "eventoJogo", map[string]interface{}{"tipo": "usarPoder", "poder": "vida_extra"})
	pw := readUntil(t, c1, "poderUsado")
	assert.Equal(t, "poderUsado", pw.Data["tipo"])
	assert.Equal(t, "vida_extra", pw.Data["poder"])

	// owner's time runs out
	send(t, c1, "eventoJogo", map[string]interface{}{"tipo": "tempoEsgotado"})
	for _, c := range []*websocket.Conn{c1, c2} {
		tt := readUntil(t, c, "turnoTrocado")
		assert.Equal(t, "p2", tt.Data["turno"])
		assert.Equal(t, "p1", tt.Data["anterior"])
	}
}

func TestGatewayRejectsWithErro(t *testing.T) {
	srv := newTestGateway(t, nil)
	c := dial(t, srv, nil)

	send(t, c, "eventoJogo", map[string]interface{}{"tipo": "pronto"})
	assert.Equal(t, "foraDaSala", readUntil(t, c, "erro").Data["codigo"])

	require.NoError(t, c.Write(context.Background(), websocket.MessageText, []byte("{not json")))
	assert.Equal(t, "mensagemInvalida", readUntil(t, c, "erro").Data["codigo"])

	send(t, c, "joinRoom", map[string]interface{}{"roomId": "R", "playerId": "p1", "categoria": "frutas"})
	assert.Equal(t, "mensagemInvalida", readUntil(t, c, "erro").Data["codigo"])

	send(t, c, "ping", nil)
	assert.Equal(t, "pong", readUntil(t, c, "pong").Data["tipo"])
}

func TestGatewayThirdPlayerAndTurnOrder(t *testing.T) {
	srv := newTestGateway(t, nil)
	_, c2 := startMatch(t, srv, "R")

	c3 := dial(t, srv, nil)
	send(t, c3, "joinRoom", map[string]interface{}{"roomId": "R", "playerId": "p3", "categoria": 1})
	assert.Equal(t, "salaCheia", readUntil(t, c3, "erro").Data["codigo"])

	send(t, c2, "eventoJogo", map[string]interface{}{"tipo": "jogada", "letra": "B"})
	assert.Equal(t, "naoESuaVez", readUntil(t, c2, "erro").Data["codigo"])
}

func TestGatewayDisconnectEndsRound(t *testing.T) {
	srv := newTestGateway(t, nil)
	c1, c2 := startMatch(t, srv, "R")

	require.NoError(t, c2.Close(websocket.StatusNormalClosure, "bye"))

	left := readUntil(t, c1, "jogadorSaiu")
	assert.Equal(t, "p2", left.Data["jogador"])
	end := readUntil(t, c1, "fimDeJogo")
	assert.Equal(t, "p1", end.Data["vencedor"])
	assert.Equal(t, game.ReasonAbandon, end.Data["motivo"])
	assert.Equal(t, "BANANA", end.Data["palavra"])
}

func TestGatewayRateLimit(t *testing.T) {
	srv := newTestGateway(t, func(gs *GameServer) {
		gs.RateLimit = 0.001
		gs.RateBurst = 1
	})
	c := dial(t, srv, nil)

	send(t, c, "ping", nil)
	send(t, c, "ping", nil)
	readUntil(t, c, "pong")
	assert.Equal(t, "limiteExcedido", readUntil(t, c, "erro").Data["codigo"])
}

func TestGatewayAuthCookieSuppliesPlayer(t *testing.T) {
	issuer, err := auth.NewIssuer(time.Hour)
	require.NoError(t, err)
	token, err := issuer.CreateJWT("42")
	require.NoError(t, err)

	srv := newTestGateway(t, func(gs *GameServer) { gs.Issuer = issuer })
	header := http.Header{}
	header.Set("Cookie", auth.CookieName+"="+token)
	c := dial(t, srv, &websocket.DialOptions{Subprotocols: []string{Subprotocol}, HTTPHeader: header})

	send(t, c, "joinRoom", map[string]interface{}{"roomId": "R", "playerName": "Ana", "categoria": 1})
	prep := readUntil(t, c, "preparacao")
	players, ok := prep.Data["jogadores"].([]interface{})
	require.True(t, ok)
	require.Len(t, players, 1)
	assert.Equal(t, "42", players[0].(map[string]interface{})["id"])
}

func TestGatewayRequiresSubprotocol(t *testing.T) {
	srv := newTestGateway(t, nil)
	c := dial(t, srv, &websocket.DialOptions{})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _, err := c.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, BadSubprotocolError, websocket.CloseStatus(err))
}

func TestFlexString(t *testing.T) {
	var p joinRoomPayload
	require.NoError(t, json.Unmarshal([]byte(`{"roomId":7,"playerId":" ana ","categoria":"2"}`), &p))
	assert.Equal(t, flexString("7"), p.RoomID)
	assert.Equal(t, flexString("ana"), p.PlayerID)
	assert.Equal(t, flexString("2"), p.Categoria)

	assert.Error(t, json.Unmarshal([]byte(`{"roomId":true}`), &p))
}
