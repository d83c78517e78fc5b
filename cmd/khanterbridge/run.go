// Copyright 2024-2026 Aiku AI

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.mau.fi/util/exzerolog"

	"github.com/aiku/khanterbridge/pkg/config"
	"github.com/aiku/khanterbridge/pkg/connector"
	"github.com/aiku/khanterbridge/pkg/httpapi"
	"github.com/aiku/khanterbridge/pkg/kvstore"
	"github.com/aiku/khanterbridge/pkg/modules"
	"github.com/aiku/khanterbridge/pkg/modules/basics"
)

const shutdownTimeout = 15 * time.Second

func run(ctx context.Context, opts runOptions) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
	}
	if !opts.noUpdate {
		if _, _, err := config.Upgrade(opts.configPath, true); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Failed to update config: %v\n", err)
		}
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		return err
	}
	log, err := cfg.Logger()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		return err
	}
	exzerolog.SetupDefaults(log)
	redirectLibraryLogs(*log)

	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("Invalid configuration")
		return err
	}
	log.Info().Str("version", Tag).Str("commit", Commit).Msg("Starting khanterbridge")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := newBot(cfg, *log)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize bot")
		return err
	}
	return b.run(ctx)
}

type bot struct {
	cfg      *config.Config
	session  *discordgo.Session
	registry *modules.Registry
	http     *httpapi.Server
	log      zerolog.Logger
}

func newBot(cfg *config.Config, log zerolog.Logger) (*bot, error) {
	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent
	session.LogLevel = discordgo.LogWarning

	store := kvstore.New(cfg.Storage.Directory, log)
	registry := modules.NewRegistry(modules.Deps{
		Sender:  modules.NewDiscordSender(session),
		Session: session,
		Store:   store,
		Config:  cfg,
		Log:     log,
	}, log)
	registry.Register(basics.Name, basics.Factory)
	registry.Register(connector.ModuleName, telegramFactory)

	return &bot{
		cfg:      cfg,
		session:  session,
		registry: registry,
		http:     httpapi.New(cfg.HTTP, store, registry, log),
		log:      log,
	}, nil
}

func (b *bot) run(ctx context.Context) error {
	b.session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		b.onReady(ctx, r)
	})
	b.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		b.registry.HandleMessage(ctx, m.Message)
	})

	httpErr := make(chan error, 1)
	go func() {
		httpErr <- b.http.Start()
	}()

	if err := b.session.Open(); err != nil {
		b.log.Error().Err(err).Msg("Failed to connect to Discord")
		b.shutdown()
		return fmt.Errorf("failed to connect to discord: %w", err)
	}

	var err error
	select {
	case <-ctx.Done():
		b.log.Info().Msg("Shutting down")
	case err = <-httpErr:
		if err != nil {
			b.log.Error().Err(err).Msg("HTTP server failed")
		}
	}
	b.shutdown()
	return err
}

func (b *bot) onReady(ctx context.Context, r *discordgo.Ready) {
	b.log.Info().Str("user", r.User.Username).Int("guilds", len(r.Guilds)).Msg("Discord session ready")
	if err := httpapi.MarkReady(b.cfg.HTTP); err != nil {
		b.log.Warn().Err(err).Msg("Failed to mark bot as ready")
	}
	var loaded []string
	for _, name := range b.cfg.Modules.Autoload {
		if err := b.registry.Load(ctx, name); err != nil {
			b.log.Error().Err(err).Str("module", name).Msg("Failed to autoload module")
			continue
		}
		loaded = append(loaded, name)
	}
	b.log.Info().Array("modules", exzerolog.ArrayOfStrs(loaded)).Msg("Autoload finished")
}

func (b *bot) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	unloaded := b.registry.UnloadAll(ctx)
	b.log.Info().Array("modules", exzerolog.ArrayOfStrs(unloaded)).Msg("Modules unloaded")
	if err := b.session.Close(); err != nil {
		b.log.Warn().Err(err).Msg("Failed to close Discord session")
	}
	if err := b.http.Shutdown(ctx); err != nil {
		b.log.Warn().Err(err).Msg("Failed to stop HTTP server")
	}
	if err := httpapi.ClearReady(b.cfg.HTTP); err != nil {
		b.log.Warn().Err(err).Msg("Failed to clear ready marker")
	}
}
