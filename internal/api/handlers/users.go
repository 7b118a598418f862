package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hydrachess/backend/internal/accounts"
	"github.com/hydrachess/backend/internal/store"
)

func currentUserID(c *gin.Context) int64 {
	return c.GetInt64("user_id")
}

// Me returns the caller's live profile: login, rating, and whether they are
// currently playing or queued.
func Me(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := st.GetUser(c.Request.Context(), currentUserID(c))
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		if err != nil {
			log.Printf("[API] get user %d: %v", currentUserID(c), err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"id":           user.ID,
			"login":        user.Login,
			"rating":       user.Rating,
			"k_factor":     user.KFactor,
			"games_played": user.GamesPlayed,
			"cur_game_id":  user.CurGameID,
			"in_search":    user.InSearch,
			"avatar_hash":  user.AvatarHash,
		})
	}
}

// UpdatePassword rotates the caller's password after checking the old one.
func UpdatePassword(repo *accounts.Repo) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			OldPassword string `json:"old_password"`
			NewPassword string `json:"new_password"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "old_password and new_password required"})
			return
		}
		if len(req.NewPassword) < 6 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 6 characters"})
			return
		}

		ctx := c.Request.Context()
		userID := currentUserID(c)
		account, err := repo.AccountByID(ctx, userID)
		if err != nil {
			log.Printf("[API] account lookup %d: %v", userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if !accounts.CheckPassword(account.PasswordHash, req.OldPassword) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "wrong password"})
			return
		}

		hash, err := accounts.HashPassword(req.NewPassword)
		if err != nil {
			log.Printf("[API] hash password for %d: %v", userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if err := repo.UpdatePassword(ctx, userID, hash); err != nil {
			log.Printf("[API] update password for %d: %v", userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"updated": true})
	}
}

// MyGames pages through the caller's finished games, most recent first.
func MyGames(repo *accounts.Repo) gin.HandlerFunc {
	return func(c *gin.Context) {
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 100 {
			limit = 20
		}

		userID := currentUserID(c)
		games, err := repo.GamesByUser(c.Request.Context(), userID, offset, limit)
		if err != nil {
			log.Printf("[API] games by user %d: %v", userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"games": games})
	}
}

// MyGamesCount returns how many finished games the caller has in the archive.
func MyGamesCount(repo *accounts.Repo) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := currentUserID(c)
		n, err := repo.GamesPlayed(c.Request.Context(), userID)
		if err != nil {
			log.Printf("[API] games played %d: %v", userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"games_played": n})
	}
}
