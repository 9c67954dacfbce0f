package database

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/forca/internal/models"
	"github.com/jason-s-yu/forca/internal/rating"
)

// ResultStore records finished rounds and credits the winner. It implements
// game.ResultRecorder.
type ResultStore struct {
	Pool *pgxpool.Pool
}

// RecordRound stores res, bumps the winner's vitorias and rates both players when
// both are accounts. Player ids that are not registered accounts (guests) are stored on
// the round but credit nobody.
func (s *ResultStore) RecordRound(ctx context.Context, res models.RoundResult) error {
	var wordID *int64
	if res.WordID != 0 {
		wordID = &res.WordID
	}

	return pgx.BeginTxFunc(ctx, s.Pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
		INSERT INTO round_results (room_id, word_id, winner_id, loser_id, reason, turns, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		if _, err := tx.Exec(ctx, q, res.RoomID, wordID, res.WinnerID, res.LoserID, res.Reason, res.Turns, res.FinishedAt); err != nil {
			return fmt.Errorf("inserting round result: %w", err)
		}

		winnerID, err := strconv.ParseInt(res.WinnerID, 10, 64)
		if err != nil {
			return nil
		}
		if loserID, err := strconv.ParseInt(res.LoserID, 10, 64); err == nil && loserID != winnerID {
			if err := rateRound(ctx, tx, winnerID, loserID); err != nil {
				return err
			}
		}
		if _, err := tx.Exec(ctx, `UPDATE players SET vitorias = vitorias + 1 WHERE id = $1`, winnerID); err != nil {
			return fmt.Errorf("crediting player %d: %w", winnerID, err)
		}
		return nil
	})
}

// rateRound applies the Glicko-2 update for a round between two accounts. Rows are
// locked in id order so concurrent rounds between the same players cannot deadlock.
func rateRound(ctx context.Context, tx pgx.Tx, winnerID, loserID int64) error {
	type ratedPlayer struct {
		ID int64
		rating.Rating
	}
	rows, err := tx.Query(ctx, `
		SELECT id, rating, rating_deviation, rating_volatility
		FROM players
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE`, []int64{winnerID, loserID})
	if err != nil {
		return fmt.Errorf("loading ratings: %w", err)
	}
	players, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ratedPlayer, error) {
		var p ratedPlayer
		err := row.Scan(&p.ID, &p.Value, &p.Deviation, &p.Volatility)
		return p, err
	})
	if err != nil {
		return fmt.Errorf("loading ratings: %w", err)
	}
	if len(players) != 2 {
		// one side is not a registered account
		return nil
	}

	winner, loser := players[0], players[1]
	if winner.ID != winnerID {
		winner, loser = loser, winner
	}
	newW, newL := rating.Update1v1(winner.Rating, loser.Rating)

	q := `UPDATE players SET rating = $2, rating_deviation = $3, rating_volatility = $4 WHERE id = $1`
	batch := &pgx.Batch{}
	batch.Queue(q, winner.ID, newW.Value, newW.Deviation, newW.Volatility)
	batch.Queue(q, loser.ID, newL.Value, newL.Deviation, newL.Volatility)
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("storing ratings: %w", err)
	}
	return nil
}
