// Package accounts is the durable account of record. Credentials, settled
// ratings and the finished-game archive live in Postgres; everything a game
// in progress mutates lives in the store.
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/hydrachess/backend/internal/models"
)

var ErrNoAccount = errors.New("account not found")

type Account struct {
	ID           int64     `db:"id"`
	Login        string    `db:"login"`
	PasswordHash string    `db:"password_hash"`
	Rating       int       `db:"rating"`
	GamesPlayed  int       `db:"games_played"`
	KFactor      int       `db:"k_factor"`
	AvatarHash   string    `db:"avatar_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

// ArchivedGame is a finished game as stored for history queries.
type ArchivedGame struct {
	ID                int64     `db:"id" json:"id"`
	WhiteUserID       int64     `db:"white_user_id" json:"-"`
	BlackUserID       int64     `db:"black_user_id" json:"-"`
	WhiteLogin        string    `db:"white_login" json:"white_login"`
	BlackLogin        string    `db:"black_login" json:"black_login"`
	WhiteRating       int       `db:"white_rating" json:"white_rating"`
	BlackRating       int       `db:"black_rating" json:"black_rating"`
	Moves             string    `db:"moves" json:"moves"`
	Result            string    `db:"result" json:"result"`
	TotalClockSeconds int       `db:"total_clock_seconds" json:"total_clock_seconds"`
	FinishedAt        time.Time `db:"finished_at" json:"finished_at"`
}

type Repo struct {
	db *sqlx.DB
}

func NewRepo(db *sqlx.DB) *Repo {
	return &Repo{db: db}
}

// CreateAccount inserts a new account row. The id comes from the store's
// user id sequence so both sides agree on identity.
func (r *Repo) CreateAccount(ctx context.Context, a *Account) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, login, password_hash, rating, games_played, k_factor, avatar_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.Login, a.PasswordHash, a.Rating, a.GamesPlayed, a.KFactor, a.AvatarHash)
	if err != nil {
		return fmt.Errorf("create account %s: %w", a.Login, err)
	}
	return nil
}

func (r *Repo) AccountByLogin(ctx context.Context, login string) (*Account, error) {
	var a Account
	err := r.db.GetContext(ctx, &a, `SELECT * FROM users WHERE login = $1`, login)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoAccount
	}
	if err != nil {
		return nil, fmt.Errorf("account by login %s: %w", login, err)
	}
	return &a, nil
}

func (r *Repo) AccountByID(ctx context.Context, id int64) (*Account, error) {
	var a Account
	err := r.db.GetContext(ctx, &a, `SELECT * FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoAccount
	}
	if err != nil {
		return nil, fmt.Errorf("account by id %d: %w", id, err)
	}
	return &a, nil
}

// SaveUserStats mirrors settled rating state from the store.
func (r *Repo) SaveUserStats(ctx context.Context, userID int64, rating, gamesPlayed, kFactor int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET rating = $2, games_played = $3, k_factor = $4 WHERE id = $1`,
		userID, rating, gamesPlayed, kFactor)
	if err != nil {
		return fmt.Errorf("save stats for user %d: %w", userID, err)
	}
	return nil
}

func (r *Repo) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`,
		userID, passwordHash)
	if err != nil {
		return fmt.Errorf("update password for user %d: %w", userID, err)
	}
	return nil
}

func (r *Repo) SaveAvatar(ctx context.Context, userID int64, avatarHash string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET avatar_hash = $2 WHERE id = $1`,
		userID, avatarHash)
	if err != nil {
		return fmt.Errorf("save avatar for user %d: %w", userID, err)
	}
	return nil
}

// RecordGame archives a finished game. ON CONFLICT keeps a re-run of the
// archive task harmless.
func (r *Repo) RecordGame(ctx context.Context, g *models.Game, whiteLogin, blackLogin string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO games (id, white_user_id, black_user_id, white_login, black_login,
			white_rating, black_rating, moves, result, total_clock_seconds)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING`,
		g.ID, g.WhiteUserID, g.BlackUserID, whiteLogin, blackLogin,
		g.WhiteRating, g.BlackRating, g.RawMoves, g.Result,
		int(g.TotalClock/time.Second))
	if err != nil {
		return fmt.Errorf("archive game %d: %w", g.ID, err)
	}
	return nil
}

func (r *Repo) GameByID(ctx context.Context, id int64) (*ArchivedGame, error) {
	var g ArchivedGame
	err := r.db.GetContext(ctx, &g, `SELECT * FROM games WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoAccount
	}
	if err != nil {
		return nil, fmt.Errorf("game by id %d: %w", id, err)
	}
	return &g, nil
}

// GamesByUser pages through a user's finished games, most recent first.
func (r *Repo) GamesByUser(ctx context.Context, userID int64, offset, limit int) ([]*ArchivedGame, error) {
	games := []*ArchivedGame{}
	err := r.db.SelectContext(ctx, &games, `
		SELECT * FROM games
		WHERE white_user_id = $1 OR black_user_id = $1
		ORDER BY finished_at DESC
		OFFSET $2 LIMIT $3`,
		userID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("games by user %d: %w", userID, err)
	}
	return games, nil
}

func (r *Repo) GamesPlayed(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM games WHERE white_user_id = $1 OR black_user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("games played by user %d: %w", userID, err)
	}
	return n, nil
}

// HashPassword produces the stored bcrypt hash of a plaintext password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether a plaintext password matches the stored hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
