package models

import (
	"strconv"
	"strings"
	"time"
)

// GameState is the lifecycle state of a game.
type GameState string

const (
	StateCreated  GameState = "CREATED"
	StateStarted  GameState = "STARTED"
	StateFinished GameState = "FINISHED"
)

// Game results in PGN-style notation. ResultCancelled marks games that were
// interrupted before they counted (no first move, etc).
const (
	ResultUnknown   = "*"
	ResultWhiteWon  = "1-0"
	ResultBlackWon  = "0-1"
	ResultDraw      = "1/2-1/2"
	ResultCancelled = "-"
)

// User is the live player record kept in the store. Credentials and the
// durable account of record live in Postgres (internal/accounts); this view
// carries everything the engine and matchmaker mutate under lock.
type User struct {
	ID             int64
	Login          string
	Rating         int
	GamesPlayed    int
	KFactor        int
	CurGameID      int64 // 0 when not playing
	InSearch       bool
	SessionID      string // current transport session, "" when offline
	LastSessionSet time.Time
	RawGameIDs     string // LIFO, comma separated
	AvatarHash     string
}

// GameIDs returns the user's finished games, most recent first.
func (u *User) GameIDs() []int64 {
	if u.RawGameIDs == "" {
		return nil
	}
	parts := strings.Split(u.RawGameIDs, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// PrependGameID pushes a finished game on top of the user's history.
func (u *User) PrependGameID(gameID int64) {
	id := strconv.FormatInt(gameID, 10)
	if u.RawGameIDs == "" {
		u.RawGameIDs = id
		return
	}
	u.RawGameIDs = id + "," + u.RawGameIDs
}

// TimerTask is a scheduled callback handle stored on the game so that a
// reconnecting client can be told how much wait time is left and so that
// end_game can revoke everything still pending.
type TimerTask struct {
	ID  string
	ETA time.Time
}

func (t TimerTask) IsSet() bool { return t.ID != "" }

// Game is the live game record. Moves are stored as comma separated SAN to
// keep append O(1) and order explicit; the board is reconstructed by replay.
// Clocks are remaining durations with microsecond resolution.
type Game struct {
	ID int64

	WhiteUserID int64
	BlackUserID int64

	// Ratings are snapshotted at creation so the rating changes shown to
	// the players stay stable for the whole game.
	WhiteRating int
	BlackRating int

	State  GameState
	Result string

	RawMoves     string
	LastMoveTime time.Time // zero until the first move

	TotalClock time.Duration
	WhiteClock time.Duration
	BlackClock time.Duration

	FirstMoveTimeout       TimerTask
	WhiteTimeIsUp          TimerTask
	BlackTimeIsUp          TimerTask
	WhiteDisconnectTimeout TimerTask
	BlackDisconnectTimeout TimerTask

	// DrawOfferSender is the user id of a pending draw offer, 0 if none.
	DrawOfferSender int64
}

func (g *Game) Moves() []string {
	if g.RawMoves == "" {
		return nil
	}
	return strings.Split(g.RawMoves, ",")
}

func (g *Game) MovesCount() int {
	if g.RawMoves == "" {
		return 0
	}
	return strings.Count(g.RawMoves, ",") + 1
}

func (g *Game) AppendMove(san string) {
	if g.RawMoves == "" {
		g.RawMoves = san
		return
	}
	g.RawMoves += "," + san
}

// WhiteToMove reports whether white is next to move, derived from the number
// of plies played.
func (g *Game) WhiteToMove() bool {
	return g.MovesCount()%2 == 0
}

func (g *Game) IsParticipant(userID int64) bool {
	return userID == g.WhiteUserID || userID == g.BlackUserID
}

func (g *Game) OpponentOf(userID int64) int64 {
	if userID == g.WhiteUserID {
		return g.BlackUserID
	}
	return g.WhiteUserID
}

// ClockOf returns the stored remaining clock for one side.
func (g *Game) ClockOf(userID int64) time.Duration {
	if userID == g.WhiteUserID {
		return g.WhiteClock
	}
	return g.BlackClock
}

func (g *Game) SetClockOf(userID int64, d time.Duration) {
	if userID == g.WhiteUserID {
		g.WhiteClock = d
	} else {
		g.BlackClock = d
	}
}

func (g *Game) TimeIsUpOf(userID int64) *TimerTask {
	if userID == g.WhiteUserID {
		return &g.WhiteTimeIsUp
	}
	return &g.BlackTimeIsUp
}

func (g *Game) DisconnectTimeoutOf(userID int64) *TimerTask {
	if userID == g.WhiteUserID {
		return &g.WhiteDisconnectTimeout
	}
	return &g.BlackDisconnectTimeout
}

// GameRequest is a matchmaking queue entry. At most one live request exists
// per user; requests are destroyed on pairing or cancellation.
type GameRequest struct {
	ID                 int64
	UserID             int64
	TimeControlSeconds int
}
