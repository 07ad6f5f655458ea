package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/drewhoward/gamenight/go/internal/catalog"
	"github.com/drewhoward/gamenight/go/internal/dbconfig"
	"github.com/drewhoward/gamenight/go/internal/game"
	"github.com/drewhoward/gamenight/go/internal/gateway"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(logLevelFromEnv())

	// Seed catalog is static configuration; without it there is no game.
	questionsPath := getEnv("QUESTIONS_PATH", "./questions.yaml")
	seed, err := catalog.Load(questionsPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", questionsPath).Msg("failed to load question catalog")
	}

	// Open the database and create the schema. Failure here is the one
	// unrecoverable startup error; snapshot reads past this point fall back
	// to the in-memory baseline instead.
	dbCfg := dbconfig.NewConfigFromEnv()
	db, err := setupDatabase(dbCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	repo := game.NewRepository(db)
	if err := repo.InitSchema(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("failed to create database schema")
	}

	// Startup reconciliation: seed on first run, otherwise rebuild state from
	// the snapshot and the catalog's answered flags.
	app := game.NewApp(repo)
	app.Bootstrap(context.Background(), seed)

	gatewayService := gateway.NewService(gateway.DefaultConfig(), app)
	server := setupServer(gatewayService)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := gatewayService.Start(ctx); err != nil {
			log.Error().Err(err).Msg("gateway service failed")
		}
	}()

	go func() {
		log.Info().Str("addr", server.Addr).Int("questions", len(seed)).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	// Cancel service context so the connection manager closes every client
	// with a normal-closure frame.
	cancel()
	time.Sleep(1 * time.Second)

	log.Info().Msg("gamenight shutdown complete")
}
