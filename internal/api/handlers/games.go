package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hydrachess/backend/internal/accounts"
)

// GetGame returns an archived finished game. Live games are only visible
// over the WebSocket.
func GetGame(repo *accounts.Repo) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid game id"})
			return
		}

		g, err := repo.GameByID(c.Request.Context(), id)
		if errors.Is(err, accounts.ErrNoAccount) {
			c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
			return
		}
		if err != nil {
			log.Printf("[API] game by id %d: %v", id, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusOK, g)
	}
}
