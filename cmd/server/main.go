package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hydrachess/backend/internal/accounts"
	"github.com/hydrachess/backend/internal/api"
	"github.com/hydrachess/backend/internal/config"
	"github.com/hydrachess/backend/internal/database"
	"github.com/hydrachess/backend/internal/game"
	"github.com/hydrachess/backend/internal/migrations"
	"github.com/hydrachess/backend/internal/redis"
	"github.com/hydrachess/backend/internal/session"
	"github.com/hydrachess/backend/internal/store"
	"github.com/hydrachess/backend/internal/tasks"
	"github.com/hydrachess/backend/internal/timers"
	"github.com/hydrachess/backend/internal/ws"
)

func main() {
	cfg := config.Load()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if os.Getenv("MIGRATE_ON_START") == "true" {
		log.Println("Running DB migrations on startup...")
		if err := migrations.RunMigrations(cfg.DatabaseURL); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	rdb, err := redis.Connect(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()

	ctx := context.Background()

	st := store.New(rdb)
	repo := accounts.NewRepo(db)
	router := session.NewRouter(rdb, st)

	queue := tasks.NewQueue(ctx)
	defer queue.Stop()

	timerSvc := timers.NewService(rdb, queue,
		time.Duration(cfg.TimerPollMillis)*time.Millisecond)

	engine := game.NewEngine(st, timerSvc, router, queue, repo)
	engine.RegisterTimerHandlers(timerSvc)
	timerSvc.Start(ctx)

	hub := ws.NewHub()
	go hub.Run()
	ws.StartEventSubscriber(ctx, rdb, hub)

	gateway := ws.NewGateway(hub, engine, router, st, queue, cfg.JWTSecret)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	ginRouter := gin.Default()
	api.SetupRoutes(ginRouter, repo, st, gateway, cfg)

	port := cfg.Port
	if port == "" {
		port = "8080"
	}
	log.Printf("Starting hydrachess server on port %s", port)
	if err := ginRouter.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
