package models

import (
	"testing"
	"time"
)

func TestMoves(t *testing.T) {
	g := &Game{}
	if g.MovesCount() != 0 || g.Moves() != nil {
		t.Fatalf("empty game should have no moves")
	}

	g.AppendMove("e4")
	g.AppendMove("e5")
	g.AppendMove("Nf3")

	if g.RawMoves != "e4,e5,Nf3" {
		t.Fatalf("RawMoves = %q", g.RawMoves)
	}
	if g.MovesCount() != 3 {
		t.Fatalf("MovesCount = %d, want 3", g.MovesCount())
	}
	moves := g.Moves()
	if len(moves) != 3 || moves[2] != "Nf3" {
		t.Fatalf("Moves = %v", moves)
	}
}

func TestWhiteToMove(t *testing.T) {
	g := &Game{}
	if !g.WhiteToMove() {
		t.Fatalf("white should move first")
	}
	g.AppendMove("e4")
	if g.WhiteToMove() {
		t.Fatalf("black should move after one ply")
	}
	g.AppendMove("e5")
	if !g.WhiteToMove() {
		t.Fatalf("white should move after two plies")
	}
}

func TestSides(t *testing.T) {
	g := &Game{WhiteUserID: 1, BlackUserID: 2}

	if !g.IsParticipant(1) || !g.IsParticipant(2) || g.IsParticipant(3) {
		t.Fatalf("participant checks wrong")
	}
	if g.OpponentOf(1) != 2 || g.OpponentOf(2) != 1 {
		t.Fatalf("opponent lookup wrong")
	}

	g.SetClockOf(1, time.Minute)
	g.SetClockOf(2, 2*time.Minute)
	if g.ClockOf(1) != time.Minute || g.ClockOf(2) != 2*time.Minute {
		t.Fatalf("clock accessors wrong")
	}
	if g.TimeIsUpOf(1) != &g.WhiteTimeIsUp || g.TimeIsUpOf(2) != &g.BlackTimeIsUp {
		t.Fatalf("time_is_up accessors wrong")
	}
	if g.DisconnectTimeoutOf(1) != &g.WhiteDisconnectTimeout || g.DisconnectTimeoutOf(2) != &g.BlackDisconnectTimeout {
		t.Fatalf("disconnect accessors wrong")
	}
}

func TestGameIDs(t *testing.T) {
	u := &User{}
	if u.GameIDs() != nil {
		t.Fatalf("fresh user should have no games")
	}

	u.PrependGameID(7)
	u.PrependGameID(9)
	u.PrependGameID(12)

	ids := u.GameIDs()
	if len(ids) != 3 || ids[0] != 12 || ids[1] != 9 || ids[2] != 7 {
		t.Fatalf("GameIDs = %v, want most recent first", ids)
	}
}

func TestTimerTask(t *testing.T) {
	var task TimerTask
	if task.IsSet() {
		t.Fatalf("zero task should not be set")
	}
	task = TimerTask{ID: "abc", ETA: time.Now()}
	if !task.IsSet() {
		t.Fatalf("task with handle should be set")
	}
}
