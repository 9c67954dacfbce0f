package models

// RoomEvent is one journaled room event, in emission order within its room.
// Seq is assigned by the room and never reused for the lifetime of a session.
type RoomEvent struct {
	RoomID    string                 `json:"room_id"`
	Seq       int                    `json:"seq"`
	ActorID   string                 `json:"actor_id,omitempty"`
	Event     string                 `json:"event"`
	Payload   map[string]interface{} `json:"payload"`
	Timestamp int64                  `json:"timestamp"`
}
