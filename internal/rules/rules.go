// Package rules wraps the chess rules library behind the few operations the
// game engine needs: replaying a SAN move list, applying a move, and
// classifying terminal positions.
package rules

import (
	"fmt"

	"github.com/corentings/chess/v2"
)

// Results in PGN notation, as stored on the game record.
const (
	ResultWhiteWon = "1-0"
	ResultBlackWon = "0-1"
	ResultDraw     = "1/2-1/2"
)

// Position is a board state reconstructed by replaying a game's moves.
type Position struct {
	game *chess.Game
}

// Replay rebuilds a position from an ordered SAN move list. An error means
// the stored move list is corrupt.
func Replay(moves []string) (*Position, error) {
	g := chess.NewGame()
	for i, san := range moves {
		if err := g.PushMove(san, nil); err != nil {
			return nil, fmt.Errorf("replay move %d (%s): %w", i+1, san, err)
		}
	}
	return &Position{game: g}, nil
}

// FromFEN builds a position directly from FEN. Replay history is empty, so
// repetition claims are unavailable; fine for material and legality checks.
func FromFEN(fen string) (*Position, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("parse fen: %w", err)
	}
	return &Position{game: chess.NewGame(opt)}, nil
}

// Push parses and applies one SAN move. Parse and legality failures come
// back as a single error; the caller drops the request silently.
func (p *Position) Push(san string) error {
	return p.game.PushMove(san, nil)
}

func (p *Position) WhiteToMove() bool {
	return p.game.Position().Turn() == chess.White
}

func (p *Position) FEN() string {
	return p.game.FEN()
}

// Terminal reports whether the position ends the game, with the result and
// the human-readable reason for the game_ended event. Threefold repetition
// and the fifty-move rule are claimable rather than automatic in the
// library, so they are claimed here.
func (p *Position) Terminal() (result, reason string, over bool) {
	if p.game.Outcome() == chess.NoOutcome {
		for _, m := range p.game.EligibleDraws() {
			if m == chess.ThreefoldRepetition || m == chess.FiftyMoveRule {
				p.game.Draw(m)
				break
			}
		}
	}

	switch p.game.Outcome() {
	case chess.WhiteWon:
		return ResultWhiteWon, "Checkmate. White won.", true
	case chess.BlackWon:
		return ResultBlackWon, "Checkmate. Black won.", true
	case chess.Draw:
		return ResultDraw, "Draw.", true
	default:
		return "", "", false
	}
}

// HasInsufficientMaterial reports whether the given side cannot mate even
// with the opponent's cooperation. Used when the opponent's flag falls: a
// side that cannot win on the board gets a draw, not a win.
func (p *Position) HasInsufficientMaterial(white bool) bool {
	side := chess.Black
	if white {
		side = chess.White
	}

	var pawns, rooks, queens, knights, bishops int
	var ownPieces int
	var oppPawns, oppKnights, oppRooks, oppBishops int
	darkBishop, lightBishop := false, false

	for sq, piece := range p.game.Position().Board().SquareMap() {
		own := piece.Color() == side
		if own {
			ownPieces++
		}
		switch piece.Type() {
		case chess.Pawn:
			if own {
				pawns++
			} else {
				oppPawns++
			}
		case chess.Rook:
			if own {
				rooks++
			} else {
				oppRooks++
			}
		case chess.Queen:
			if own {
				queens++
			}
		case chess.Knight:
			if own {
				knights++
			} else {
				oppKnights++
			}
		case chess.Bishop:
			if own {
				bishops++
			} else {
				oppBishops++
			}
			if (int(sq.File())+int(sq.Rank()))%2 == 0 {
				darkBishop = true
			} else {
				lightBishop = true
			}
		}
	}

	if pawns > 0 || rooks > 0 || queens > 0 {
		return false
	}
	if knights > 0 {
		// A lone knight can only mate with help from opposing pawns or
		// minor or rook material forming the net.
		return ownPieces <= 2 &&
			oppPawns == 0 && oppKnights == 0 && oppRooks == 0 && oppBishops == 0
	}
	if bishops > 0 {
		// Bishops on a single square color cannot mate unless pawns or
		// knights (either side's) can block or promote.
		sameColor := !darkBishop || !lightBishop
		return sameColor && pawns == 0 && oppPawns == 0 && knights == 0 && oppKnights == 0
	}
	return true
}
