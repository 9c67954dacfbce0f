package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/forca/internal/models"
)

// ErrNoWords is returned when a category has no words.
var ErrNoWords = errors.New("category has no words")

// WordStore reads the category and word catalog. It implements game.WordProvider.
type WordStore struct {
	Pool *pgxpool.Pool
}

func (s *WordStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := s.Pool.Query(ctx, `SELECT id, nome FROM categories ORDER BY nome`)
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Category, error) {
		var c models.Category
		err := row.Scan(&c.ID, &c.Nome)
		return c, err
	})
}

func (s *WordStore) ListWords(ctx context.Context, categoryID int64) ([]models.Word, error) {
	q := `
	SELECT id, palavra, dica, categoria_id
	FROM words
	WHERE categoria_id = $1
	ORDER BY id
	`
	rows, err := s.Pool.Query(ctx, q, categoryID)
	if err != nil {
		return nil, fmt.Errorf("querying words of category %d: %w", categoryID, err)
	}
	return pgx.CollectRows(rows, scanWord)
}

// RandomWord picks one word of the category uniformly.
func (s *WordStore) RandomWord(ctx context.Context, categoryID int64) (models.Word, error) {
	q := `
	SELECT id, palavra, dica, categoria_id
	FROM words
	WHERE categoria_id = $1
	ORDER BY random()
	LIMIT 1
	`
	rows, err := s.Pool.Query(ctx, q, categoryID)
	if err != nil {
		return models.Word{}, fmt.Errorf("querying random word: %w", err)
	}
	w, err := pgx.CollectExactlyOneRow(rows, scanWord)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Word{}, fmt.Errorf("%w: %d", ErrNoWords, categoryID)
	}
	if err != nil {
		return models.Word{}, fmt.Errorf("scanning random word: %w", err)
	}
	return w, nil
}

func scanWord(row pgx.CollectableRow) (models.Word, error) {
	var w models.Word
	err := row.Scan(&w.ID, &w.Palavra, &w.Dica, &w.CategoriaID)
	return w, err
}
