// Package historian drains the Redis room-event queue into Postgres in batches.
package historian

import (
	"context"
	"errors"
	"time"

	"github.com/jason-s-yu/forca/internal/config"
	"github.com/jason-s-yu/forca/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Source yields queued events. Pop returns redis.Nil when nothing arrived within timeout.
type Source interface {
	Pop(ctx context.Context, timeout time.Duration) (models.RoomEvent, error)
}

// Sink persists a batch of events. It must tolerate replays of stored events.
type Sink interface {
	InsertEvents(ctx context.Context, events []models.RoomEvent) error
}

// SinkFunc adapts a plain function to Sink.
type SinkFunc func(ctx context.Context, events []models.RoomEvent) error

func (f SinkFunc) InsertEvents(ctx context.Context, events []models.RoomEvent) error {
	return f(ctx, events)
}

// Service accumulates popped events and flushes when the batch is full or the flush
// interval has elapsed, whichever comes first.
type Service struct {
	src  Source
	sink Sink
	cfg  config.HistorianConfig
	log  logrus.FieldLogger

	batch     []models.RoomEvent
	lastFlush time.Time
	// stalled is set while a failed batch awaits retry; nothing is popped meanwhile.
	stalled bool
}

func New(src Source, sink Sink, cfg config.HistorianConfig, logger logrus.FieldLogger) *Service {
	if cfg.PopTimeout <= 0 || cfg.PopTimeout > cfg.FlushInterval {
		cfg.PopTimeout = cfg.FlushInterval
	}
	return &Service{
		src:   src,
		sink:  sink,
		cfg:   cfg,
		log:   logger.WithField("component", "historian"),
		batch: make([]models.RoomEvent, 0, cfg.BatchSize),
	}
}

// Run blocks until ctx is cancelled, then flushes what it still holds.
func (s *Service) Run(ctx context.Context) error {
	s.log.Info("historian started")
	s.lastFlush = time.Now()

	for ctx.Err() == nil {
		if s.stalled {
			select {
			case <-ctx.Done():
			case <-time.After(s.cfg.PopTimeout):
				s.flush(ctx)
			}
			continue
		}

		ev, err := s.src.Pop(ctx, s.cfg.PopTimeout)
		switch {
		case err == nil:
			s.batch = append(s.batch, ev)
		case errors.Is(err, redis.Nil), errors.Is(err, context.Canceled):
		default:
			s.log.WithError(err).Error("pop failed")
			// avoid spinning against a broken connection
			select {
			case <-ctx.Done():
			case <-time.After(s.cfg.PopTimeout):
			}
		}

		if len(s.batch) >= s.cfg.BatchSize || time.Since(s.lastFlush) >= s.cfg.FlushInterval {
			s.flush(ctx)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.flush(shutdownCtx)
	s.log.Info("historian stopped")
	return nil
}

// flush writes the pending batch. A failed batch is kept and retried before anything
// else is popped; the sink ignores duplicates.
func (s *Service) flush(ctx context.Context) {
	s.lastFlush = time.Now()
	if len(s.batch) == 0 {
		return
	}
	if err := s.sink.InsertEvents(ctx, s.batch); err != nil {
		s.log.WithError(err).WithField("pending", len(s.batch)).Error("flush failed")
		s.stalled = true
		return
	}
	s.stalled = false
	s.log.WithField("count", len(s.batch)).Debug("flushed room events")
	s.batch = s.batch[:0]
}
