package game

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jason-s-yu/forca/internal/models"
	"github.com/sirupsen/logrus"
)

// WordProvider supplies the secret word for a category.
type WordProvider interface {
	RandomWord(ctx context.Context, categoryID int64) (models.Word, error)
}

// Journal receives every event a room emits.
type Journal interface {
	Append(ctx context.Context, ev models.RoomEvent) error
}

// ResultRecorder stores finished rounds. It is called off the room lock.
type ResultRecorder interface {
	RecordRound(ctx context.Context, res models.RoundResult) error
}

// MultiJournal appends to every journal in order and joins their errors.
type MultiJournal []Journal

func (mj MultiJournal) Append(ctx context.Context, ev models.RoomEvent) error {
	var errs []error
	for _, j := range mj {
		if err := j.Append(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// maxJournalBacklog bounds the events a room may have waiting on a slow journal.
const maxJournalBacklog = 1024

// journalQueue appends a room's events one at a time, in the order they were pushed.
// A drain goroutine runs only while events are pending.
type journalQueue struct {
	j       Journal
	log     logrus.FieldLogger
	timeout time.Duration

	mu      sync.Mutex
	pending []models.RoomEvent
	running bool
}

func newJournalQueue(j Journal, logger logrus.FieldLogger) *journalQueue {
	return &journalQueue{j: j, log: logger, timeout: 2 * time.Second}
}

// push queues ev without waiting for the journal.
func (q *journalQueue) push(ev models.RoomEvent) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) >= maxJournalBacklog {
		q.log.Warnf("journal backlog full, dropping event %d (%s)", ev.Seq, ev.Event)
		return
	}
	q.pending = append(q.pending, ev)
	if !q.running {
		q.running = true
		go q.drain()
	}
}

func (q *journalQueue) drain() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.running = false
			q.pending = nil
			q.mu.Unlock()
			return
		}
		ev := q.pending[0]
		q.pending[0] = models.RoomEvent{}
		q.pending = q.pending[1:]
		q.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		if err := q.j.Append(ctx, ev); err != nil {
			q.log.Warnf("journaling event %d (%s): %v", ev.Seq, ev.Event, err)
		}
		cancel()
	}
}
