package rating

import "testing"

func TestChangesEqualRatings(t *testing.T) {
	white, black := Changes(1200, 40, 1200, 40)

	want := Change{Win: 20, Draw: 0, Lose: -20}
	if white != want {
		t.Fatalf("white = %+v, want %+v", white, want)
	}
	if black != want {
		t.Fatalf("black = %+v, want %+v", black, want)
	}
}

func TestChangesFavorite(t *testing.T) {
	white, black := Changes(1400, 40, 1200, 40)

	if white.Win != 10 {
		t.Errorf("favorite win = %d, want 10", white.Win)
	}
	if white.Lose != -30 {
		t.Errorf("favorite lose = %d, want -30", white.Lose)
	}
	if black.Win != 31 {
		t.Errorf("underdog win = %d, want 31", black.Win)
	}
	if black.Lose != -9 {
		t.Errorf("underdog lose = %d, want -9", black.Lose)
	}
}

func TestChangesDifferentKFactors(t *testing.T) {
	white, black := Changes(1200, 40, 1200, 10)

	if white.Win != 20 {
		t.Errorf("white win = %d, want 20", white.Win)
	}
	if black.Win != 5 {
		t.Errorf("black win = %d, want 5", black.Win)
	}
}

func TestNextKFactor(t *testing.T) {
	cases := []struct {
		k, games, rating int
		want             int
	}{
		{40, 29, 1200, 40},
		{40, 30, 1200, 20},
		{20, 100, 2399, 20},
		{20, 100, 2400, 10},
		{10, 500, 2600, 10},
	}
	for _, c := range cases {
		if got := NextKFactor(c.k, c.games, c.rating); got != c.want {
			t.Errorf("NextKFactor(%d, %d, %d) = %d, want %d", c.k, c.games, c.rating, got, c.want)
		}
	}
}
