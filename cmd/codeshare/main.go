package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cwrk-planet/logger/pkg/logger"

	"github.com/cwrk-planet/codeshare/config"
	"github.com/cwrk-planet/codeshare/internal/cache"
	"github.com/cwrk-planet/codeshare/internal/domain"
	"github.com/cwrk-planet/codeshare/internal/gateway"
	"github.com/cwrk-planet/codeshare/internal/realtime"
	"github.com/cwrk-planet/codeshare/internal/session"
)

func main() {
	roomID := flag.String("room", "", "room id to open; empty creates a fresh room")
	flag.Parse()

	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting codeshare",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	identity := session.IdentityFromTokens(cfg.Auth.AccessToken, cfg.Auth.IDToken)
	if identity.IsGuest() {
		slog.Info("no credentials, guest mode: rooms stay on this machine")
	}

	// --- wiring ---
	b := &session.Bootstrap{
		Cache:    cache.New(cfg.Cache.Path),
		Identity: identity,
	}
	if cfg.API.BaseURL != "" {
		b.Gateway = gateway.New(gateway.Options{
			BaseURL: cfg.API.BaseURL,
			Timeout: cfg.APITimeout(),
			Token:   identity.Token,
			Email:   identity.Email,
		})
	}
	if cfg.Realtime.URL != "" {
		b.Channel = realtime.NewChannel(cfg.Realtime.URL)
	}
	b.Engine.Notify = func(err error) {
		fmt.Fprintf(os.Stderr, "! save failed, retrying: %v\n", err)
	}
	b.Engine.OnApply = func(room domain.Room) {
		fmt.Printf("--- remote update ---\n%s\n", room.Content)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := b.Resolve(ctx, *roomID)
	if err != nil {
		log.Fatalf("resolve room: %v", err)
	}
	if s.Redirect {
		fmt.Printf("room created: %s\n", s.Room.ID)
	}
	slog.Info("session ready", "room", s.Room.ID, "role", s.Role)
	s.Start(ctx)

	// stdin lines are keystrokes: each replaces the buffer
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			s.Engine.Edit(sc.Text())
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("shutdown signal", "sig", sig)

	if err := s.Close(); err != nil {
		slog.Warn("session close", "err", err)
	}
	slog.Info("stopped")
}
