package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/benbeisheim/chess-backend/internal/config"
	"github.com/benbeisheim/chess-backend/internal/controller"
	"github.com/benbeisheim/chess-backend/internal/logging"
	"github.com/benbeisheim/chess-backend/internal/middleware"
	"github.com/benbeisheim/chess-backend/internal/opponent"
	"github.com/benbeisheim/chess-backend/internal/service"
	"github.com/benbeisheim/chess-backend/internal/store"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", os.Getenv("CHESS_CONFIG"), "path to a JSON config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.Development)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	strategy, err := opponent.New(cfg.OpponentOptions(), logger)
	if err != nil {
		logger.Fatal("opponent", zap.Error(err))
	}
	if closer, ok := strategy.(io.Closer); ok {
		defer closer.Close()
	}

	opts := service.ManagerOptions{
		Strategy:    strategy,
		ThinkDelay:  cfg.ThinkDelay.D(),
		IdleTimeout: cfg.IdleTimeout.D(),
		Logger:      logger,
	}
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		db, err := store.NewRedis(ctx, cfg.RedisURL, cfg.IdleTimeout.D())
		cancel()
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer db.Close()
		opts.Store = db
	}

	// Initialize services
	gameManager := service.NewGameManager(opts)
	defer gameManager.Close()
	if n, err := gameManager.Restore(context.Background()); err != nil {
		logger.Warn("restore sessions", zap.Error(err))
	} else if n > 0 {
		logger.Info("restored sessions", zap.Int("count", n))
	}
	gameService := service.NewGameService(gameManager)

	// Initialize controllers
	gameController := controller.NewGameController(gameService, logger)
	wsController := controller.NewWebSocketController(gameService, logger)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	corsConfig := cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, X-Player-ID",
		AllowMethods: "GET, POST, OPTIONS",
	}
	if len(cfg.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = strings.Join(cfg.CORSOrigins, ", ")
		corsConfig.AllowCredentials = true
	}
	app.Use(cors.New(corsConfig))
	app.Use(middleware.RequestLogger(logger))
	controller.RegisterRoutes(app, gameController, wsController, cfg.CORSOrigins)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down")
		if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
			logger.Warn("shutdown", zap.Error(err))
		}
	}()

	logger.Info("listening",
		zap.String("addr", cfg.ListenAddr),
		zap.String("strategy", strategy.Name()),
	)
	if err := app.Listen(cfg.ListenAddr); err != nil {
		logger.Error("listen", zap.Error(err))
	}
}
