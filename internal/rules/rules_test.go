package rules

import "testing"

func TestReplayAndTurn(t *testing.T) {
	pos, err := Replay(nil)
	if err != nil {
		t.Fatalf("replay empty: %v", err)
	}
	if !pos.WhiteToMove() {
		t.Fatalf("white should move first")
	}

	pos, err = Replay([]string{"e4"})
	if err != nil {
		t.Fatalf("replay e4: %v", err)
	}
	if pos.WhiteToMove() {
		t.Fatalf("black should move after e4")
	}
}

func TestReplayCorruptMoves(t *testing.T) {
	if _, err := Replay([]string{"e4", "e4"}); err == nil {
		t.Fatalf("replay of illegal sequence should fail")
	}
}

func TestPushRejectsIllegal(t *testing.T) {
	pos, err := Replay(nil)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if err := pos.Push("Ke2"); err == nil {
		t.Fatalf("illegal king move should be rejected")
	}
	if err := pos.Push("garbage"); err == nil {
		t.Fatalf("unparseable move should be rejected")
	}
	if err := pos.Push("e4"); err != nil {
		t.Fatalf("legal move rejected: %v", err)
	}
}

func TestFoolsMate(t *testing.T) {
	pos, err := Replay([]string{"f3", "e5", "g4", "Qh4#"})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}

	result, reason, over := pos.Terminal()
	if !over {
		t.Fatalf("fool's mate should be terminal")
	}
	if result != ResultBlackWon {
		t.Fatalf("result = %q, want %q", result, ResultBlackWon)
	}
	if reason != "Checkmate. Black won." {
		t.Fatalf("reason = %q", reason)
	}
}

func TestStalemate(t *testing.T) {
	// Shortest known stalemate (Sam Loyd).
	moves := []string{
		"c4", "h5", "h4", "a5", "Qa4", "Ra6", "Qxa5", "Rah6",
		"Qxc7", "f6", "Qxd7+", "Kf7", "Qxb7", "Qd3", "Qxb8", "Qh7",
		"Qxc8", "Kg6", "Qe6",
	}
	pos, err := Replay(moves)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}

	result, _, over := pos.Terminal()
	if !over {
		t.Fatalf("stalemate should be terminal")
	}
	if result != ResultDraw {
		t.Fatalf("result = %q, want %q", result, ResultDraw)
	}
}

func TestOngoingGameNotTerminal(t *testing.T) {
	pos, err := Replay([]string{"e4", "e5"})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if _, _, over := pos.Terminal(); over {
		t.Fatalf("open position reported terminal")
	}
}

func TestHasInsufficientMaterial(t *testing.T) {
	cases := []struct {
		name  string
		fen   string
		white bool
		black bool
	}{
		{
			name:  "bare kings",
			fen:   "8/8/8/4k3/8/8/4K3/8 w - - 0 1",
			white: true,
			black: true,
		},
		{
			name:  "king and bishop vs king",
			fen:   "8/8/8/4k3/8/8/4KB2/8 w - - 0 1",
			white: true,
			black: true,
		},
		{
			name:  "king and knight vs king",
			fen:   "8/8/8/4k3/8/8/4KN2/8 w - - 0 1",
			white: true,
			black: true,
		},
		{
			name:  "two knights cannot be claimed",
			fen:   "8/8/8/4k3/8/8/3NKN2/8 w - - 0 1",
			white: false,
			black: true,
		},
		{
			name:  "queen mates",
			fen:   "8/8/8/4k3/8/8/3QK3/8 w - - 0 1",
			white: false,
			black: true,
		},
		{
			name:  "rook mates",
			fen:   "8/8/8/4k3/8/8/3RK3/8 w - - 0 1",
			white: false,
			black: true,
		},
		{
			name:  "pawn can promote",
			fen:   "8/8/8/4k3/8/8/3PK3/8 w - - 0 1",
			white: false,
			black: true,
		},
		{
			name:  "same color bishops",
			fen:   "8/8/8/4k3/5b2/8/4KB2/8 w - - 0 1",
			white: true,
			black: true,
		},
		{
			name:  "opposite color bishops",
			fen:   "8/8/8/4kb2/8/8/4KB2/8 w - - 0 1",
			white: false,
			black: false,
		},
		{
			name:  "knight vs opposing pawn can still mate",
			fen:   "8/4p3/8/4k3/8/8/4KN2/8 w - - 0 1",
			white: false,
			black: false,
		},
	}

	for _, c := range cases {
		pos, err := FromFEN(c.fen)
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		if got := pos.HasInsufficientMaterial(true); got != c.white {
			t.Errorf("%s: white = %v, want %v", c.name, got, c.white)
		}
		if got := pos.HasInsufficientMaterial(false); got != c.black {
			t.Errorf("%s: black = %v, want %v", c.name, got, c.black)
		}
	}
}
