package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hirevet/advisor/backend/internal/config"
	"github.com/hirevet/advisor/backend/internal/handler"
	"github.com/hirevet/advisor/backend/internal/prompt"
	"github.com/hirevet/advisor/backend/internal/service/ai"
	"github.com/hirevet/advisor/backend/internal/service/session"
	"github.com/hirevet/advisor/backend/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("no .env file, using system environment only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	log.Info().Msg("running startup checks")

	st, err := store.Open(cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("unable to connect to database, check DATABASE_* configuration")
	}
	defer st.Close()

	if err := st.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("database connection test failed")
	}

	source := prompt.NewFileSource(cfg.Prompt.TemplatePath)
	if _, err := source.Template(); err != nil {
		log.Fatal().Err(err).Str("path", cfg.Prompt.TemplatePath).Msg("system prompt template not found")
	}

	client, err := ai.NewClient(ctx, cfg.Model)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to initialize generation backend, check ARK_* and MODEL configuration")
	}
	if err := client.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("generation backend connection test failed")
	}

	log.Info().Msg("all startup checks passed")

	renderer := prompt.NewRenderer(source, cfg.Prompt.ApplicantEmail)
	controller := session.NewController(st, st, renderer, client)
	registry := session.NewRegistry(30 * time.Minute)

	router := handler.NewRouter(controller, registry, st, st)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", serverCfg.Addr).Msg("advisor backend listening")
	if err := runServer(ctx, srv); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
