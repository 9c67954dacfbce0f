package game

import (
	"context"
	"testing"
	"time"

	"github.com/jason-s-yu/forca/internal/models"
	"pgregory.net/rapid"
)

type fixedWords struct {
	word models.Word
}

func (fw fixedWords) RandomWord(context.Context, int64) (models.Word, error) {
	return fw.word, nil
}

// checkInvariants inspects room internals under its lock.
func checkInvariants(t *rapid.T, r *Room, prev Phase) Phase {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase < prev {
		t.Fatalf("phase went back from %s to %s", prev, r.phase)
	}
	if r.phase < PhaseActive && r.secret.Palavra != "" {
		t.Fatalf("secret set in %s", r.phase)
	}
	if live := r.timer.Live(); live != (r.phase == PhaseActive) {
		t.Fatalf("timer live=%v in %s", live, r.phase)
	}
	if r.phase == PhaseActive && r.slots[r.turn.Index] == nil {
		t.Fatalf("turn index %d points at an empty slot", r.turn.Index)
	}
	if r.seated() > 2 {
		t.Fatalf("%d players seated", r.seated())
	}
	return r.phase
}

func TestRoomInvariantsHoldUnderRandomActions(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		word := rapid.SampledFrom([]string{"OI", "BANANA", "Ação", "PÉ-DE-MOLEQUE"}).Draw(t, "word")
		reg := NewRegistry(Options{
			Words:       fixedWords{word: models.Word{ID: 1, Palavra: word, CategoriaID: 1}},
			Broadcaster: newMockBroadcaster(),
			Logger:      quietLogger(),
			Settings:    Settings{TurnDuration: time.Hour, StartingLives: rapid.IntRange(1, 3).Draw(t, "lives")},
		})
		room, _ := reg.GetOrCreate("P", 1)
		ctx := context.Background()
		players := []string{"p1", "p2", "p3"}
		phase := PhaseWaiting

		steps := rapid.IntRange(1, 60).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			p := rapid.SampledFrom(players).Draw(t, "player")
			switch rapid.IntRange(0, 7).Draw(t, "action") {
			case 0:
				_ = room.Join(ctx, JoinRequest{PlayerID: p, CategoryID: 1, ConnID: "c-" + p})
			case 1:
				_ = room.Ready(ctx, p)
			case 2:
				letter := string(rapid.RuneFrom([]rune("ABCDEIMNOPQLUÉÇÃ-")).Draw(t, "letter"))
				_ = room.Guess(ctx, p, letter)
			case 3:
				_ = room.UsePower(ctx, p, rapid.SampledFrom([]string{"vida_extra", "revelar_letra", "voar"}).Draw(t, "power"))
			case 4:
				_ = room.ForfeitTurn(ctx, p)
			case 5:
				room.mu.Lock()
				h := room.timer.Current()
				room.mu.Unlock()
				if rapid.Bool().Draw(t, "stale") && h > 0 {
					h--
				}
				room.timeExpired(h)
			case 6:
				room.Detach("c-" + p)
			case 7:
				_ = room.Join(ctx, JoinRequest{PlayerID: p, CategoryID: 2, ConnID: "c-" + p})
			}
			phase = checkInvariants(t, room, phase)
		}
	})
}
