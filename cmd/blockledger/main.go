package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blockledger/internal/config"
	"blockledger/internal/handlers"
	"blockledger/internal/ledger"
	logger2 "blockledger/internal/logger"
	"blockledger/internal/services"
	"blockledger/internal/storage/sqlite"

	_ "github.com/mattn/go-sqlite3"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	logger := logger2.Init(cfg.Env)

	db, err := sql.Open("sqlite3", cfg.StoragePath)
	if err != nil {
		log.Fatal("Database connection failed: ", err)
	}

	storage := sqlite.NewStorage(db, logger)
	if err := storage.Init(); err != nil {
		log.Fatal("Storage init failed: ", err)
	}

	led, err := ledger.New(storage, ledger.Params{
		Difficulty:  cfg.Mining.Difficulty,
		BlockReward: cfg.Mining.BlockReward,
		Workers:     cfg.Mining.Workers,
	}, logger)
	if err != nil {
		log.Fatal("Ledger init failed: ", err)
	}

	service := services.NewLedgerService(led, storage, cfg.Mining.FaucetAmount, logger)

	handler := handlers.NewHandler(service, logger)
	router := handlers.NewRouter(handler)

	srv := &http.Server{
		Addr:        cfg.Address,
		Handler:     router,
		ReadTimeout: cfg.Timeout,
		IdleTimeout: cfg.IdleTimeout,
	}

	go func() {
		logger.Info("Starting server", "address", cfg.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error: ", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server shutdown failed: ", err)
	}

	logger.Info("Closing database connection")
	if err := db.Close(); err != nil {
		logger.Error("Database close failed", "error", err)
	}

	logger.Info("Server gracefully stopped")
}
