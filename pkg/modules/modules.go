// Copyright 2024-2026 Aiku AI

// Package modules loads and unloads the bot's command modules at runtime and
// fans every inbound Discord message out to the loaded ones.
package modules

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/aiku/khanterbridge/pkg/config"
	"github.com/aiku/khanterbridge/pkg/kvstore"
)

var (
	// ErrUnknownModule is returned when no factory is registered under a name.
	ErrUnknownModule = errors.New("unknown module")
	// ErrNotLoaded is returned when unloading a module that is not loaded.
	ErrNotLoaded = errors.New("module not loaded")
)

// Module handles Discord messages. Handle is called for every non-bot
// message while the module is loaded.
type Module interface {
	Handle(ctx context.Context, msg *discordgo.Message) error
}

// Initializer is implemented by modules that need to start work after
// construction, such as background pollers.
type Initializer interface {
	Init(ctx context.Context) error
}

// Shutdowner is implemented by modules that hold resources to release on
// unload.
type Shutdowner interface {
	Shutdown(ctx context.Context) error
}

// Sender posts messages to Discord channels.
type Sender interface {
	SendMessage(ctx context.Context, channelID, content string) error
}

// Deps are the shared handles passed to every module factory.
type Deps struct {
	Sender  Sender
	Session *discordgo.Session
	Store   *kvstore.Store
	Config  *config.Config
	Log     zerolog.Logger
}

// Factory constructs a module instance.
type Factory func(deps Deps) (Module, error)
