package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"courtside/internal/checkpoint"
	"courtside/internal/config"
	"courtside/internal/game"
	"courtside/internal/logging"
	"courtside/internal/notify"
	"courtside/internal/realtime"
	"courtside/internal/ruleset"
	"courtside/internal/store"
	httptransport "courtside/internal/transport/http"
	"courtside/internal/tracker"
	"courtside/internal/ws"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.LoadApp()
	if err != nil {
		panic(err)
	}
	if err := logging.Init(cfg.Log); err != nil {
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.New(cfg.Server.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("store init failed")
	}
	defer st.Close()
	if err := st.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("db ping failed")
	}

	checkpoints := openCheckpoints(ctx, cfg)

	var presets map[string]game.Ruleset
	if cfg.Server.RulesetsPath != "" {
		presets, err = ruleset.LoadPresets(cfg.Server.RulesetsPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.Server.RulesetsPath).Msg("load rulesets failed")
		}
		log.Info().Int("count", len(presets)).Str("path", cfg.Server.RulesetsPath).Msg("custom rulesets loaded")
	}
	rules := ruleset.NewResolver(st, ruleset.Defaults{
		Ruleset: cfg.Tracker.DefaultRuleset,
		Automation: game.AutomationFlags{
			Clock:      cfg.Tracker.AutomationClock,
			Possession: cfg.Tracker.AutomationPossession,
			Sequences:  cfg.Tracker.AutomationSequences,
		},
	}, presets)

	hub := realtime.NewHub()
	go realtime.NewPGListener(st.DSN(), hub).Run(ctx)

	registry := tracker.NewRegistry(tracker.Deps{
		Store:       st,
		Changes:     hub,
		Checkpoints: checkpoints,
		Rules:       rules,
		Config:      cfg.Tracker,
	}, notify.NewBroker(0))

	r := httptransport.NewRouter(st, registry, ws.NewServer(registry), cfg.Server)
	httptransport.LogRoutes(r)

	server := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		// Sessions first so every clock is checkpointed and pending writes drain.
		registry.CloseAll(shutdownCtx)
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown failed")
		}
	}()

	log.Info().Str("addr", cfg.Server.HTTPAddr).Msg("http listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server stopped")
	}
	log.Info().Msg("server stopped")
}

func openCheckpoints(ctx context.Context, cfg config.AppConfig) tracker.Checkpointer {
	window := cfg.Tracker.CheckpointWindow
	if cfg.Server.RedisAddr == "" {
		return checkpoint.NewMemoryStore(window)
	}
	client, err := checkpoint.Dial(ctx, cfg.Server.RedisAddr, cfg.Server.RedisPassword, cfg.Server.RedisDB)
	if err != nil {
		log.Warn().Err(err).Str("addr", cfg.Server.RedisAddr).Msg("redis unavailable; keeping clock checkpoints in memory")
		return checkpoint.NewMemoryStore(window)
	}
	log.Info().Str("addr", cfg.Server.RedisAddr).Msg("clock checkpoints in redis")
	return checkpoint.NewRedisStore(client, window)
}
