// internal/handlers/api.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/jason-s-yu/forca/internal/auth"
	"github.com/jason-s-yu/forca/internal/database"
	"github.com/jason-s-yu/forca/internal/game"
	"github.com/jason-s-yu/forca/internal/models"
	"github.com/sirupsen/logrus"
)

// Catalog lists categories and their words.
type Catalog interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListWords(ctx context.Context, categoryID int64) ([]models.Word, error)
}

// Accounts creates and looks up players.
type Accounts interface {
	CreatePlayer(ctx context.Context, p *models.Player) error
	GetPlayerByEmail(ctx context.Context, email string) (*models.Player, error)
}

// RoomLister reports the live rooms.
type RoomLister interface {
	Snapshots() []game.Snapshot
}

type playerResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Vitorias int    `json:"vitorias"`
	Rating   int    `json:"rating"`
	Token    string `json:"token,omitempty"`
}

func newPlayerResponse(p *models.Player) playerResponse {
	return playerResponse{
		ID:       p.ID,
		Username: p.Username,
		Email:    p.Email,
		Vitorias: p.Vitorias,
		Rating:   int(math.Round(p.Rating.Value)),
	}
}

// ListCategoriesHandler serves GET /categories.
func ListCategoriesHandler(logger logrus.FieldLogger, catalog Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cats, err := catalog.ListCategories(r.Context())
		if err != nil {
			logger.Errorf("listing categories: %v", err)
			http.Error(w, "failed to list categories", http.StatusInternalServerError)
			return
		}
		if cats == nil {
			cats = []models.Category{}
		}
		writeJSON(w, http.StatusOK, cats)
	}
}

// ListWordsHandler serves GET /words/{categoryId}.
func ListWordsHandler(logger logrus.FieldLogger, catalog Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categoryID, err := strconv.ParseInt(r.PathValue("categoryId"), 10, 64)
		if err != nil {
			http.Error(w, "invalid category id", http.StatusBadRequest)
			return
		}
		words, err := catalog.ListWords(r.Context(), categoryID)
		if err != nil {
			logger.Errorf("listing words of category %d: %v", categoryID, err)
			http.Error(w, "failed to list words", http.StatusInternalServerError)
			return
		}
		if words == nil {
			words = []models.Word{}
		}
		writeJSON(w, http.StatusOK, words)
	}
}

// CreatePlayerHandler serves POST /players.
//
// Request payload:
//
//	{
//	  "username": "ana",
//	  "email": "ana@example.com",
//	  "password": "password"
//	}
//
// Responds 201 with the new player, 400 when a field is missing and 409 when the
// email is already registered.
func CreatePlayerHandler(logger logrus.FieldLogger, accounts Accounts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
			http.Error(w, "username, email and password are required", http.StatusBadRequest)
			return
		}

		p := &models.Player{
			Username: strings.TrimSpace(req.Username),
			Email:    req.Email,
			Password: req.Password,
		}
		if err := accounts.CreatePlayer(r.Context(), p); err != nil {
			if errors.Is(err, database.ErrEmailTaken) {
				http.Error(w, "email already exists", http.StatusConflict)
				return
			}
			logger.Errorf("creating player: %v", err)
			http.Error(w, "error creating player", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, newPlayerResponse(p))
	}
}

// LoginHandler serves POST /players/login. On success the session token is returned
// in the body and set as the auth cookie.
func LoginHandler(logger logrus.FieldLogger, accounts Accounts, issuer *auth.Issuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request payload", http.StatusBadRequest)
			return
		}

		p, err := accounts.GetPlayerByEmail(r.Context(), req.Email)
		if err != nil {
			if !errors.Is(err, database.ErrPlayerNotFound) {
				logger.Errorf("looking up player: %v", err)
			}
			http.Error(w, "authentication failed", http.StatusForbidden)
			return
		}
		ok, err := auth.VerifyPassword(req.Password, p.Password)
		if err != nil || !ok {
			http.Error(w, "authentication failed", http.StatusForbidden)
			return
		}

		token, err := issuer.CreateJWT(strconv.FormatInt(p.ID, 10))
		if err != nil {
			logger.Errorf("signing token for player %d: %v", p.ID, err)
			http.Error(w, "failed to create session", http.StatusInternalServerError)
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     auth.CookieName,
			Value:    token,
			HttpOnly: true,
			Path:     "/",
			MaxAge:   int(issuer.TTL().Seconds()),
		})

		resp := newPlayerResponse(p)
		resp.Token = token
		writeJSON(w, http.StatusOK, resp)
	}
}

// ListRoomsHandler serves GET /rooms.
func ListRoomsHandler(rooms RoomLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, rooms.Snapshots())
	}
}

// HealthHandler serves GET /healthz. Each check must pass for a 200.
func HealthHandler(checks ...func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, check := range checks {
			if err := check(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
