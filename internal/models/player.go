package models

import (
	"time"

	"github.com/jason-s-yu/forca/internal/rating"
)

// Player is a registered account. Vitorias counts rounds won.
type Player struct {
	ID        int64         `json:"id"`
	Username  string        `json:"username"`
	Email     string        `json:"email"`
	Password  string        `json:"password,omitempty"`
	Vitorias  int           `json:"vitorias"`
	Rating    rating.Rating `json:"rating"`
	CreatedAt time.Time     `json:"createdAt"`
}
