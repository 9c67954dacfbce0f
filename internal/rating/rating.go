// Package rating keeps Glicko-2 skill ratings for registered players. Every finished
// round between two accounts is one rated game.
package rating

// Rating is a player's skill on the familiar 1500-based scale.
type Rating struct {
	Value      float64 `json:"rating"`
	Deviation  float64 `json:"ratingDeviation"`
	Volatility float64 `json:"ratingVolatility"`
}

// Default is the rating of an account that has never played a rated round.
var Default = Rating{Value: DefaultValue, Deviation: DefaultDeviation, Volatility: DefaultVolatility}

// normalize replaces unset fields with the defaults.
func (r Rating) normalize() Rating {
	if r.Value == 0 {
		r.Value = DefaultValue
	}
	if r.Deviation <= 0 {
		r.Deviation = DefaultDeviation
	}
	if r.Volatility <= 0 {
		r.Volatility = DefaultVolatility
	}
	return r
}

// Update1v1 rates one round. Both players are updated from the other's pre-round
// rating.
func Update1v1(winner, loser Rating) (Rating, Rating) {
	w, l := toGlicko(winner.normalize()), toGlicko(loser.normalize())
	return update(w, l, 1).rating(), update(l, w, 0).rating()
}
