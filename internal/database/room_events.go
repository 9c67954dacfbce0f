package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/forca/internal/models"
)

// InsertRoomEvents writes a batch of journaled events. Replays of an already stored
// (room_id, seq) pair are ignored, so a batch can be retried safely.
func InsertRoomEvents(ctx context.Context, pool *pgxpool.Pool, events []models.RoomEvent) error {
	if len(events) == 0 {
		return nil
	}
	q := `
	INSERT INTO room_events (room_id, seq, actor_id, event, payload, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (room_id, seq) DO NOTHING
	`
	return pgx.BeginTxFunc(ctx, pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, ev := range events {
			payload, err := json.Marshal(ev.Payload)
			if err != nil {
				return fmt.Errorf("marshalling payload of %s/%d: %w", ev.RoomID, ev.Seq, err)
			}
			batch.Queue(q, ev.RoomID, ev.Seq, ev.ActorID, ev.Event, payload, time.UnixMilli(ev.Timestamp))
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

// RoomHistory returns the stored events of a room in sequence order.
func RoomHistory(ctx context.Context, pool *pgxpool.Pool, roomID string) ([]models.RoomEvent, error) {
	q := `
	SELECT room_id, seq, actor_id, event, payload, created_at
	FROM room_events
	WHERE room_id = $1
	ORDER BY seq
	`
	rows, err := pool.Query(ctx, q, roomID)
	if err != nil {
		return nil, fmt.Errorf("querying history of %s: %w", roomID, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.RoomEvent, error) {
		var ev models.RoomEvent
		var created time.Time
		if err := row.Scan(&ev.RoomID, &ev.Seq, &ev.ActorID, &ev.Event, &ev.Payload, &created); err != nil {
			return ev, err
		}
		ev.Timestamp = created.UnixMilli()
		return ev, nil
	})
}
