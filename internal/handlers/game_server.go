// internal/handlers/game_server.go
package handlers

import (
	"net/url"
	"strings"

	"github.com/jason-s-yu/forca/internal/auth"
	"github.com/jason-s-yu/forca/internal/game"
	"github.com/jason-s-yu/forca/internal/hub"
	"golang.org/x/time/rate"
)

// Subprotocol is the websocket subprotocol clients must request.
const Subprotocol = "forca"

// GameServer holds what the realtime gateway needs to route connections to rooms.
type GameServer struct {
	Registry *game.Registry
	Hub      *hub.Hub
	// Issuer is optional; when set, a valid auth cookie supplies a missing playerId.
	Issuer *auth.Issuer

	// RateLimit and RateBurst shape each connection's inbound messages. A zero limit
	// disables limiting.
	RateLimit      rate.Limit
	RateBurst      int
	OutBuffer      int
	AllowedOrigins []string
}

func (gs *GameServer) newLimiter() *rate.Limiter {
	if gs.RateLimit <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := gs.RateBurst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(gs.RateLimit, burst)
}

func (gs *GameServer) outBuffer() int {
	if gs.OutBuffer < 1 {
		return 64
	}
	return gs.OutBuffer
}

// originPatterns turns configured origins into the host patterns the websocket
// library matches against.
func (gs *GameServer) originPatterns() []string {
	patterns := make([]string, 0, len(gs.AllowedOrigins))
	for _, o := range gs.AllowedOrigins {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			o = u.Host
		}
		patterns = append(patterns, o)
	}
	return patterns
}
