package game

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jason-s-yu/forca/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() *Registry {
	return NewRegistry(Options{
		Words:       fixedWords{word: models.Word{ID: 1, Palavra: "CASA"}},
		Broadcaster: newMockBroadcaster(),
		Logger:      quietLogger(),
	})
}

func TestGetOrCreateIsAtomic(t *testing.T) {
	reg := newTestRegistry()

	const n = 64
	rooms := make([]*Room, n)
	var created int32
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, c := reg.GetOrCreate("same", 1)
			rooms[i] = r
			if c {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), created)
	for _, r := range rooms {
		assert.Same(t, rooms[0], r)
	}
	assert.Equal(t, 1, reg.Len())
}

func TestConcurrentJoinsSeatTwo(t *testing.T) {
	reg := newTestRegistry()

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i))
			_, errs[i] = reg.Join(context.Background(), "busy", JoinRequest{PlayerID: id, CategoryID: 1, ConnID: "c" + id})
		}(i)
	}
	wg.Wait()

	ok, full := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrRoomFull):
			full++
		default:
			t.Errorf("unexpected join error: %v", err)
		}
	}
	assert.Equal(t, 2, ok)
	assert.Equal(t, 8, full)

	room, found := reg.Get("busy")
	require.True(t, found)
	snap := room.Snapshot()
	assert.Len(t, snap.Players, 2)
	assert.Equal(t, PhasePreparing, snap.Phase)
}

func TestRemoveDoesNotEvictRecreatedRoom(t *testing.T) {
	reg := newTestRegistry()
	old, _ := reg.GetOrCreate("X", 1)

	reg.Remove("X")
	assert.Equal(t, 0, reg.Len())
	err := old.Join(context.Background(), JoinRequest{PlayerID: "p", CategoryID: 1, ConnID: "c"})
	assert.ErrorIs(t, err, ErrRoomClosed)

	fresh, created := reg.GetOrCreate("X", 5)
	require.True(t, created)
	assert.NotSame(t, old, fresh)
	assert.Equal(t, int64(5), fresh.CategoryID)

	reg.release(old)
	got, ok := reg.Get("X")
	require.True(t, ok)
	assert.Same(t, fresh, got)
}

func TestReleaseIfEmptyKeepsSeatedRoom(t *testing.T) {
	reg := newTestRegistry()
	r, created := reg.GetOrCreate("R", 1)
	require.True(t, created)
	require.NoError(t, r.Join(context.Background(), JoinRequest{PlayerID: "p1", CategoryID: 1, ConnID: "c1"}))

	// a creator whose own join lost the race must not evict the seated room
	err := r.Join(context.Background(), JoinRequest{PlayerID: "p1", CategoryID: 1, ConnID: "c1b"})
	require.ErrorIs(t, err, ErrAlreadyJoined)
	r.releaseIfEmpty()

	got, ok := reg.Get("R")
	require.True(t, ok)
	assert.Same(t, r, got)

	again, err := reg.Join(context.Background(), "R", JoinRequest{PlayerID: "p2", CategoryID: 1, ConnID: "c2"})
	require.NoError(t, err)
	assert.Same(t, r, again)
	assert.Equal(t, PhasePreparing, r.Phase())
}

func TestReleaseIfEmptyDropsUnseatedRoom(t *testing.T) {
	reg := newTestRegistry()
	r, _ := reg.GetOrCreate("R", 1)

	r.releaseIfEmpty()
	assert.Equal(t, 0, reg.Len())
	assert.ErrorIs(t, r.Join(context.Background(), JoinRequest{PlayerID: "p1", CategoryID: 1, ConnID: "c1"}), ErrRoomClosed)
}

func TestSnapshotsAreSorted(t *testing.T) {
	reg := newTestRegistry()
	for _, id := range []string{"c", "a", "b"} {
		_, err := reg.Join(context.Background(), id, JoinRequest{PlayerID: "p", CategoryID: 1, ConnID: "conn-" + id})
		require.NoError(t, err)
	}
	snaps := reg.Snapshots()
	require.Len(t, snaps, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{snaps[0].ID, snaps[1].ID, snaps[2].ID})
	assert.Equal(t, PhaseWaiting, snaps[0].Phase)
}
