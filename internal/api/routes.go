package api

import (
	"github.com/gin-gonic/gin"

	"github.com/hydrachess/backend/internal/accounts"
	"github.com/hydrachess/backend/internal/api/handlers"
	"github.com/hydrachess/backend/internal/config"
	"github.com/hydrachess/backend/internal/middleware"
	"github.com/hydrachess/backend/internal/store"
	"github.com/hydrachess/backend/internal/ws"
)

// SetupRoutes configures all API routes.
func SetupRoutes(router *gin.Engine, repo *accounts.Repo, st *store.Store, gateway *ws.Gateway, cfg *config.Config) {
	router.Use(middleware.CORSMiddleware(cfg))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck)

		auth := v1.Group("/auth")
		{
			auth.POST("/sign-up", handlers.SignUp(repo, st, cfg))
			auth.POST("/sign-in", handlers.SignIn(repo, st, cfg))
		}

		me := v1.Group("/me", middleware.AuthRequired(cfg.JWTSecret))
		{
			me.GET("", handlers.Me(st))
			me.PUT("/password", handlers.UpdatePassword(repo))
			me.GET("/games", handlers.MyGames(repo))
			me.GET("/games/count", handlers.MyGamesCount(repo))
		}

		v1.GET("/games/:id", handlers.GetGame(repo))

		// WebSocket endpoint; auth comes from the token query parameter.
		v1.GET("/ws", gateway.HandleWebSocket)
	}
}
