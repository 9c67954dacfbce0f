package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/jason-s-yu/forca/internal/auth"
	"github.com/sirupsen/logrus"
)

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Warnf("failed to write response: %v", err)
	}
}

// cookiePlayer returns the player id carried by a valid auth cookie, or "".
func cookiePlayer(r *http.Request, issuer *auth.Issuer) string {
	if issuer == nil {
		return ""
	}
	c, err := r.Cookie(auth.CookieName)
	if err != nil || c.Value == "" {
		return ""
	}
	playerID, err := issuer.Authenticate(c.Value)
	if err != nil {
		return ""
	}
	return playerID
}
