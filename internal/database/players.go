package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/forca/internal/auth"
	"github.com/jason-s-yu/forca/internal/models"
)

var (
	ErrPlayerNotFound = errors.New("player not found")
	ErrEmailTaken     = errors.New("email already registered")
)

// PlayerStore manages player accounts.
type PlayerStore struct {
	Pool *pgxpool.Pool
}

// CreatePlayer hashes p.Password and inserts the player, filling ID and CreatedAt.
func (s *PlayerStore) CreatePlayer(ctx context.Context, p *models.Player) error {
	hash, err := auth.HashPassword(p.Password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	p.Password = hash
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))

	q := `
	INSERT INTO players (username, email, password)
	VALUES ($1, $2, $3)
	RETURNING id, vitorias, rating, rating_deviation, rating_volatility, created_at
	`
	err = pgx.BeginTxFunc(ctx, s.Pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, q, p.Username, p.Email, p.Password).Scan(
			&p.ID, &p.Vitorias, &p.Rating.Value, &p.Rating.Deviation, &p.Rating.Volatility, &p.CreatedAt,
		)
	})
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("inserting player: %w", err)
	}
	return nil
}

func (s *PlayerStore) GetPlayerByEmail(ctx context.Context, email string) (*models.Player, error) {
	return s.getPlayer(ctx, `WHERE email = $1`, strings.ToLower(strings.TrimSpace(email)))
}

// GetPlayerByID is the primary-key lookup.
func (s *PlayerStore) GetPlayerByID(ctx context.Context, id int64) (*models.Player, error) {
	return s.getPlayer(ctx, `WHERE id = $1`, id)
}

func (s *PlayerStore) getPlayer(ctx context.Context, where string, arg interface{}) (*models.Player, error) {
	var p models.Player
	q := `SELECT id, username, email, password, vitorias, rating, rating_deviation, rating_volatility, created_at
		FROM players ` + where
	err := s.Pool.QueryRow(ctx, q, arg).Scan(
		&p.ID, &p.Username, &p.Email, &p.Password, &p.Vitorias,
		&p.Rating.Value, &p.Rating.Deviation, &p.Rating.Volatility, &p.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying player: %w", err)
	}
	return &p, nil
}
