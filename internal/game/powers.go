package game

import (
	"fmt"
	"math/rand/v2"
	"sort"
)

// PowerKind names a single-use power.
type PowerKind string

const (
	PowerExtraLife    PowerKind = "vida_extra"
	PowerRevealLetter PowerKind = "revelar_letra"
)

// PowerView is the part of a room a power may read.
type PowerView struct {
	Lives  int
	Hidden []rune // distinct letters still hidden, sorted
}

// Effect is a resolved power. The room applies it and announces Effect as "efeito".
type Effect struct {
	Kind       PowerKind
	Name       string
	ExtraLives int
	Reveal     rune
}

type powerResolver func(v PowerView, pick func(n int) int) (Effect, error)

var powerTable = map[PowerKind]powerResolver{
	PowerExtraLife: func(v PowerView, _ func(int) int) (Effect, error) {
		return Effect{Kind: PowerExtraLife, Name: "vidaExtra", ExtraLives: 1}, nil
	},
	PowerRevealLetter: func(v PowerView, pick func(int) int) (Effect, error) {
		// revealing the last hidden letter would hand over the round
		if len(v.Hidden) < 2 {
			return Effect{}, fmt.Errorf("%w: only %d letter(s) left", ErrPowerNotApplicable, len(v.Hidden))
		}
		return Effect{Kind: PowerRevealLetter, Name: "letraRevelada", Reveal: v.Hidden[pick(len(v.Hidden))]}, nil
	},
}

// Powers lists the recognized power kinds.
func Powers() []PowerKind {
	out := make([]PowerKind, 0, len(powerTable))
	for k := range powerTable {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PowerEngine resolves power requests against a room view. It keeps no per-room state.
type PowerEngine struct {
	pick func(n int) int
}

// NewPowerEngine returns an engine choosing among candidates with pick.
// A nil pick uses math/rand.
func NewPowerEngine(pick func(n int) int) *PowerEngine {
	if pick == nil {
		pick = rand.IntN
	}
	return &PowerEngine{pick: pick}
}

// Resolve returns the effect of kind on v, ErrUnknownPower for unrecognized kinds, or
// ErrPowerNotApplicable when the effect has nothing to act on.
func (pe *PowerEngine) Resolve(kind PowerKind, v PowerView) (Effect, error) {
	resolve, ok := powerTable[kind]
	if !ok {
		return Effect{}, fmt.Errorf("%w: %q", ErrUnknownPower, kind)
	}
	return resolve(v, pe.pick)
}
