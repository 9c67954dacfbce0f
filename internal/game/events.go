package game

// EventType names a realtime event on the wire.
type EventType string

// Client to server events.
const (
	EventJoinRoom   EventType = "joinRoom"
	EventEventoJogo EventType = "eventoJogo"
	EventPing       EventType = "ping"
)

// eventoJogo "tipo" values.
const (
	ActionReady    = "pronto"
	ActionGuess    = "jogada"
	ActionUsePower = "usarPoder"
	ActionTimeUp   = "tempoEsgotado"
)

// Server to client events.
const (
	EventPreparacao   EventType = "preparacao"
	EventInicio       EventType = "inicio"
	EventJogada       EventType = "jogada"
	EventPoderUsado   EventType = "poderUsado"
	EventTurnoTrocado EventType = "turnoTrocado"
	EventFimDeJogo    EventType = "fimDeJogo"
	EventJogadorSaiu  EventType = "jogadorSaiu"
	EventErro         EventType = "erro"
	EventPong         EventType = "pong"
)

// Round end reasons carried in fimDeJogo.
const (
	ReasonSolved  = "palavraDescoberta"
	ReasonNoLives = "semVidas"
	ReasonAbandon = "abandono"
	ReasonNoWord  = "semPalavra"
	reasonTimeout = "tempoEsgotado"
)

// Event is a named payload. Data always carries "tipo" equal to Name.
type Event struct {
	Name EventType              `json:"event"`
	Data map[string]interface{} `json:"data"`
}

// Tipo returns the "tipo" field of the payload.
func (ev Event) Tipo() string {
	s, _ := ev.Data["tipo"].(string)
	return s
}

// NewEvent builds an event, stamping "tipo" into data.
func NewEvent(name EventType, data map[string]interface{}) Event {
	if data == nil {
		data = make(map[string]interface{}, 1)
	}
	data["tipo"] = string(name)
	return Event{Name: name, Data: data}
}

// ErrorEvent is the negative acknowledgment sent to the connection whose request failed.
func ErrorEvent(err error) Event {
	return NewEvent(EventErro, map[string]interface{}{
		"codigo":   ErrorCode(err),
		"mensagem": err.Error(),
	})
}

// Broadcaster delivers events to connections by id. Implementations must not block
// and must deliver events to a given connection in call order.
type Broadcaster interface {
	Send(connID string, ev Event)
	Broadcast(connIDs []string, ev Event)
}
