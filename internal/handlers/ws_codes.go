// internal/handlers/ws_codes.go
package handlers

import "github.com/coder/websocket"

// Application close codes sent by the realtime gateway.
const (
	BadSubprotocolError websocket.StatusCode = 3000 // client did not negotiate the forca subprotocol
	RateLimitedError    websocket.StatusCode = 3001 // client kept flooding after being warned
)
