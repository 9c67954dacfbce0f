package game

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Options are the collaborators shared by every room of a registry.
// Journal and Results are optional.
type Options struct {
	Words       WordProvider
	Broadcaster Broadcaster
	Journal     Journal
	Results     ResultRecorder
	Powers      *PowerEngine
	Logger      logrus.FieldLogger
	Settings    Settings
}

// Registry maps room ids to live rooms. Its lock covers the map only; gameplay runs
// under each room's own lock.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room
	opts  Options
}

func NewRegistry(opts Options) *Registry {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Powers == nil {
		opts.Powers = NewPowerEngine(nil)
	}
	if opts.Settings.TurnDuration <= 0 {
		opts.Settings.TurnDuration = DefaultSettings.TurnDuration
	}
	if opts.Settings.StartingLives <= 0 {
		opts.Settings.StartingLives = DefaultSettings.StartingLives
	}
	if opts.Settings.WordTimeout <= 0 {
		opts.Settings.WordTimeout = DefaultSettings.WordTimeout
	}
	return &Registry{
		rooms: make(map[string]*Room),
		opts:  opts,
	}
}

// GetOrCreate returns the room for roomID, creating it bound to categoryID if there is
// none. The boolean reports whether this call created it.
func (rg *Registry) GetOrCreate(roomID string, categoryID int64) (*Room, bool) {
	rg.mu.Lock()
	defer rg.mu.Unlock()

	if r, ok := rg.rooms[roomID]; ok {
		return r, false
	}
	r := newRoom(roomID, categoryID, rg.opts)
	r.onEmpty = rg.release
	rg.rooms[roomID] = r
	return r, true
}

// Get returns the live room for roomID.
func (rg *Registry) Get(roomID string) (*Room, bool) {
	rg.mu.Lock()
	defer rg.mu.Unlock()
	r, ok := rg.rooms[roomID]
	return r, ok
}

// Remove evicts roomID. Anyone still holding the old room gets ErrRoomClosed from
// Join; the next GetOrCreate builds a fresh session.
func (rg *Registry) Remove(roomID string) {
	rg.mu.Lock()
	r, ok := rg.rooms[roomID]
	delete(rg.rooms, roomID)
	rg.mu.Unlock()

	if ok {
		r.markClosed()
	}
}

// release evicts r only if it is still the registered session for its id.
func (rg *Registry) release(r *Room) {
	rg.mu.Lock()
	defer rg.mu.Unlock()
	if cur, ok := rg.rooms[r.ID]; ok && cur == r {
		delete(rg.rooms, r.ID)
		rg.opts.Logger.WithField("room", r.ID).Info("room released")
	}
}

// Len returns the number of live rooms.
func (rg *Registry) Len() int {
	rg.mu.Lock()
	defer rg.mu.Unlock()
	return len(rg.rooms)
}

// Join resolves roomID and seats the player, retrying if the room was released
// between lookup and join.
func (rg *Registry) Join(ctx context.Context, roomID string, req JoinRequest) (*Room, error) {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" || strings.TrimSpace(req.PlayerID) == "" {
		return nil, fmt.Errorf("%w: roomId and playerId are required", ErrInvalidMessage)
	}
	for attempt := 0; attempt < 3; attempt++ {
		r, created := rg.GetOrCreate(roomID, req.CategoryID)
		err := r.Join(ctx, req)
		if errors.Is(err, ErrRoomClosed) {
			continue
		}
		if err != nil {
			if created {
				// others may have been seated before this join failed
				r.releaseIfEmpty()
			}
			return nil, err
		}
		return r, nil
	}
	return nil, ErrRoomClosed
}

// Snapshots returns the public state of every live room, ordered by id.
func (rg *Registry) Snapshots() []Snapshot {
	rg.mu.Lock()
	rooms := make([]*Room, 0, len(rg.rooms))
	for _, r := range rg.rooms {
		rooms = append(rooms, r)
	}
	rg.mu.Unlock()

	out := make([]Snapshot, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
