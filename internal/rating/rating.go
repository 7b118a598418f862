// Package rating implements the Elo arithmetic used when a game finishes.
package rating

import "math"

// Change holds the three possible rating deltas for one player of a game.
// Draw and Lose are typically zero or negative.
type Change struct {
	Win  int `json:"win"`
	Draw int `json:"draw"`
	Lose int `json:"lose"`
}

// FromFormula builds the deltas from the player's K-factor and expected
// score. Ceiling rounds toward +inf, matching FIDE arithmetic on the win
// side and keeping the published deltas equal to what gets persisted.
func FromFormula(k int, e float64) Change {
	return Change{
		Win:  int(math.Ceil(float64(k) * (1 - e))),
		Draw: int(math.Ceil(float64(k) * (0.5 - e))),
		Lose: int(math.Ceil(float64(k) * (-e))),
	}
}

// Changes computes both sides' deltas from the ratings snapshotted at game
// creation. E_white = 10^(rw/400) / (10^(rw/400) + 10^(rb/400)).
func Changes(whiteRating, whiteK, blackRating, blackK int) (white, black Change) {
	rw := math.Pow(10, float64(whiteRating)/400)
	rb := math.Pow(10, float64(blackRating)/400)
	sum := rw + rb

	white = FromFormula(whiteK, rw/sum)
	black = FromFormula(blackK, rb/sum)
	return white, black
}

// NextKFactor applies the FIDE step-down rule after a rating update. The
// K-factor never increases.
func NextKFactor(k, gamesPlayed, rating int) int {
	if k == 40 && gamesPlayed >= 30 {
		k = 20
	}
	if k == 20 && gamesPlayed >= 30 && rating >= 2400 {
		k = 10
	}
	return k
}
