package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/astropair/astropair/internal/app"
	"github.com/astropair/astropair/internal/astro"
	"github.com/astropair/astropair/internal/cache"
	"github.com/astropair/astropair/internal/config"
	"github.com/astropair/astropair/internal/db"
	"github.com/astropair/astropair/internal/logger"
	"github.com/astropair/astropair/internal/quiz"
	"github.com/astropair/astropair/internal/server"
	"github.com/astropair/astropair/internal/service/match"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	logger.InitFromConfig(cfg)
	log := logger.L()

	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		os.Exit(1)
	}

	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		os.Exit(1)
	}

	appCtx := app.New(database, redisCache, log, cfg)

	matchSvc := match.NewService(appCtx, astro.NewGrader(), quiz.NewGrader())
	router := server.NewRouter(cfg, server.NewMatchHandler(matchSvc))
	srv := server.NewServer(cfg, router)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("starting HTTP server", "host", cfg.Server.Host, "port", cfg.Server.Port)
		if err := srv.Start(); err != nil {
			log.Error("server error", "err", err)
			quit <- syscall.SIGTERM
		}
	}()

	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown failed", "err", err)
		os.Exit(1)
	}
	log.Info("server exited")
}
