// Copyright 2024-2026 Aiku AI

package main

import (
	"errors"

	"github.com/aiku/khanterbridge/pkg/connector"
	"github.com/aiku/khanterbridge/pkg/modules"
)

// telegramFactory builds the Telegram module. The Bot API token is checked
// with getMe before the module is registered.
func telegramFactory(deps modules.Deps) (modules.Module, error) {
	if deps.Config == nil {
		return nil, errors.New("telegram module needs a config")
	}
	cfg := deps.Config.Telegram
	bot, err := connector.Connect(&cfg)
	if err != nil {
		return nil, err
	}
	deps.Log.Info().Str("username", bot.Self.UserName).Msg("Connected to Telegram")
	tb, err := connector.NewTelegramBridge(cfg, bot, deps.Sender, deps.Store, deps.Log)
	if err != nil {
		return nil, err
	}
	return tb, nil
}
