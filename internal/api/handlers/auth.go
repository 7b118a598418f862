package handlers

import (
	"errors"
	"log"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hydrachess/backend/internal/accounts"
	"github.com/hydrachess/backend/internal/config"
	"github.com/hydrachess/backend/internal/middleware"
	"github.com/hydrachess/backend/internal/models"
	"github.com/hydrachess/backend/internal/store"
)

const (
	startRating  = 1200
	startKFactor = 40
)

var loginPattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)

type credentials struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// SignUp registers an account and its live store record, then issues a token.
func SignUp(repo *accounts.Repo, st *store.Store, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req credentials
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "login and password required"})
			return
		}
		if !loginPattern.MatchString(req.Login) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "login must be 3-20 letters, digits or underscores"})
			return
		}
		if len(req.Password) < 6 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 6 characters"})
			return
		}

		hash, err := accounts.HashPassword(req.Password)
		if err != nil {
			log.Printf("[AUTH] hash password for %s: %v", req.Login, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		ctx := c.Request.Context()
		user := &models.User{
			Login:   req.Login,
			Rating:  startRating,
			KFactor: startKFactor,
		}
		if err := st.CreateUser(ctx, user); err != nil {
			if errors.Is(err, store.ErrLoginTaken) {
				c.JSON(http.StatusConflict, gin.H{"error": "login already taken"})
				return
			}
			log.Printf("[AUTH] create user %s: %v", req.Login, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		if err := repo.CreateAccount(ctx, &accounts.Account{
			ID:           user.ID,
			Login:        user.Login,
			PasswordHash: hash,
			Rating:       user.Rating,
			KFactor:      user.KFactor,
		}); err != nil {
			log.Printf("[AUTH] create account %s: %v", req.Login, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		token, err := middleware.GenerateToken(cfg.JWTSecret, user.ID,
			time.Duration(cfg.TokenTTLHours)*time.Hour)
		if err != nil {
			log.Printf("[AUTH] issue token for %s: %v", req.Login, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"token": token,
			"user": gin.H{
				"id":     user.ID,
				"login":  user.Login,
				"rating": user.Rating,
			},
		})
	}
}

// SignIn validates credentials and issues a token.
func SignIn(repo *accounts.Repo, st *store.Store, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req credentials
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "login and password required"})
			return
		}

		ctx := c.Request.Context()
		account, err := repo.AccountByLogin(ctx, req.Login)
		if errors.Is(err, accounts.ErrNoAccount) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "wrong login or password"})
			return
		}
		if err != nil {
			log.Printf("[AUTH] account lookup %s: %v", req.Login, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if !accounts.CheckPassword(account.PasswordHash, req.Password) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "wrong login or password"})
			return
		}

		token, err := middleware.GenerateToken(cfg.JWTSecret, account.ID,
			time.Duration(cfg.TokenTTLHours)*time.Hour)
		if err != nil {
			log.Printf("[AUTH] issue token for %s: %v", req.Login, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		user, err := st.GetUser(ctx, account.ID)
		rating := account.Rating
		if err == nil {
			rating = user.Rating
		}

		c.JSON(http.StatusOK, gin.H{
			"token": token,
			"user": gin.H{
				"id":     account.ID,
				"login":  account.Login,
				"rating": rating,
			},
		})
	}
}
