// main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/ViniZap4/lumi-board/auth"
	"github.com/ViniZap4/lumi-board/board"
	"github.com/ViniZap4/lumi-board/config"
	"github.com/ViniZap4/lumi-board/dispatch"
	httphandlers "github.com/ViniZap4/lumi-board/http"
	"github.com/ViniZap4/lumi-board/logging"
	"github.com/ViniZap4/lumi-board/store"
	"github.com/ViniZap4/lumi-board/ws"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if err := logging.Setup(cfg.LogLevel, cfg.LogFormat, os.Stderr); err != nil {
		log.Fatal().Err(err).Msg("invalid logging configuration")
	}

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	tokenHash, err := auth.TokenHash(cfg.Password, cfg.PasswordHash)
	if err != nil {
		return err
	}

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	hub := ws.NewHub()
	go hub.Run(hubCtx)

	rooms := board.NewDirectory(st)
	notes := board.NewRegistry(st)
	events := dispatch.New(rooms, notes, hub, hub)

	server := httphandlers.NewServer(hubCtx, hub, events, rooms, notes, httphandlers.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		TokenHash:      tokenHash,
		Client: ws.ClientOptions{
			MaxMessageSize: cfg.MaxMessageSize,
			RateBurst:      cfg.RateLimit.Burst,
			RateInterval:   cfg.RateLimit.Interval,
		},
	})
	app := server.App()

	listenErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr()).Str("store", cfg.Store).Msg("server starting")
		listenErr <- app.Listen(cfg.Addr())
	}()

	select {
	case err := <-listenErr:
		stopHub()
		<-hub.Done()
		return err
	case <-ctx.Done():
	}

	log.Info().Dur("timeout", cfg.ShutdownTimeout).Msg("shutting down")
	stopHub()
	<-hub.Done()
	if err := app.ShutdownWithTimeout(cfg.ShutdownTimeout); err != nil {
		log.Error().Err(err).Msg("HTTP shutdown incomplete")
	}
	log.Info().Msg("server stopped")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.Store == config.StoreMemory {
		log.Warn().Msg("using the in-memory store, rooms and notes are lost on restart")
		return store.NewMemory(), nil
	}

	if err := store.Migrate(cfg.DatabaseURL); err != nil {
		return nil, err
	}
	return store.OpenPostgres(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
}
