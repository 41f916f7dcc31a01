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
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/codeduel/internal/config"
	"github.com/mcdev12/codeduel/internal/duel"
	"github.com/mcdev12/codeduel/internal/gateway"
	"github.com/mcdev12/codeduel/internal/ledger"
	"github.com/mcdev12/codeduel/internal/problem"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	cfg := config.Load()
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	catalog, err := problem.Load(cfg.ProblemsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load problem catalog")
	}

	led := ledger.New()
	seedParticipants(led, cfg.StartingPoints)

	engineCfg := duel.DefaultConfig()
	engineCfg.CountdownSeconds = cfg.CountdownSeconds
	engineCfg.MatchSeconds = cfg.MatchSeconds
	engineCfg.HistorySize = cfg.HistorySize
	engineCfg.EvictAfter = cfg.EvictAfter

	var pub duel.Publisher
	if cfg.NATSURL != "" {
		jsCfg := gateway.DefaultJetStreamConfig()
		jsCfg.URL = cfg.NATSURL
		jsPub, err := gateway.NewJetStreamPublisher(jsCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create JetStream publisher")
		}
		defer jsPub.Close()
		pub = jsPub
	}

	cm := gateway.NewConnectionManager(gateway.DefaultConnectionConfig())
	engine := duel.NewEngine(engineCfg, clockwork.NewRealClock(), led, catalog, cm, pub)
	svc := gateway.NewService(engine, cm)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go cm.Start(ctx)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: svc.Handler(),
	}

	go func() {
		log.Info().
			Str("port", cfg.Port).
			Int("problems", catalog.Len()).
			Bool("nats_enabled", pub != nil).
			Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// seedParticipants stands in for a real identity service: the engine only
// pairs participants the ledger already knows about.
func seedParticipants(led *ledger.Ledger, startingPoints int) {
	led.Register("user1", "Player One", startingPoints)
	led.Register("user2", "Player Two", startingPoints)
}
