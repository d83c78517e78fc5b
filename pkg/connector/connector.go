// Copyright 2024-2026 Aiku AI

package connector

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/aiku/khanterbridge/pkg/kvstore"
)

// ModuleName is the name the bridge is loaded under.
const ModuleName = "Telegram"

// TelegramBridge relays messages between bridged Discord channels and
// Telegram chats and handles the bridge administration commands.
type TelegramBridge struct {
	Config Config

	aliases *AliasResolver
	bridges *BridgeRegistry
	cursor  *CursorStore
	sender  *telegramSender
	discord DiscordSender
	poller  *Poller
	log     zerolog.Logger
}

// NewTelegramBridge wires a bridge over the given clients and storage. The
// poller is created idle; Init starts it.
func NewTelegramBridge(cfg Config, api TelegramAPI, discord DiscordSender, store *kvstore.Store, log zerolog.Logger) (*TelegramBridge, error) {
	if err := cfg.PostProcess(); err != nil {
		return nil, fmt.Errorf("failed to post-process config: %w", err)
	}
	log = log.With().Str("component", "telegram_bridge").Logger()
	tb := &TelegramBridge{
		Config:  cfg,
		aliases: NewAliasResolver(store, log),
		bridges: NewBridgeRegistry(store, log),
		cursor:  NewCursorStore(store, log),
		discord: discord,
		log:     log,
	}
	tb.sender = newTelegramSender(api, &tb.Config, log)
	tb.poller = NewPoller(api, tb.cursor, tb.relayTelegramUpdate, tb.Config.PollEvery(), tb.Config.PollTimeout, log)
	return tb, nil
}

// Init starts the Telegram poller. The poller outlives the caller's context
// and runs until Shutdown.
func (tb *TelegramBridge) Init(ctx context.Context) error {
	tb.log.Info().
		Int("bridges", tb.bridges.List().Len()).
		Int("aliases", tb.aliases.List().Len()).
		Msg("Bridge map loaded")
	tb.poller.Start(context.WithoutCancel(ctx))
	return nil
}

// Shutdown stops the poller, waiting for an in-flight tick unless ctx ends
// first.
func (tb *TelegramBridge) Shutdown(ctx context.Context) error {
	stopped := make(chan struct{})
	go func() {
		tb.poller.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to stop telegram poller: %w", ctx.Err())
	}
}

// Handle processes a Discord message: bridge commands are executed and
// anything else is relayed to the bridged Telegram chat.
func (tb *TelegramBridge) Handle(ctx context.Context, msg *discordgo.Message) error {
	if msg == nil {
		return nil
	}
	if reply, ok := tb.runCommand(ctx, strings.Fields(msg.Content)); ok {
		if err := tb.discord.SendMessage(ctx, msg.ChannelID, reply); err != nil {
			return fmt.Errorf("failed to send command reply: %w", err)
		}
		return nil
	}
	tb.relayDiscordMessage(ctx, msg)
	return nil
}

// AddBridge resolves target to a Discord channel and bridges it to chatID.
func (tb *TelegramBridge) AddBridge(target string, chatID int64) (string, error) {
	channelID := ResolveChannel(tb.aliases, target)
	return channelID, tb.bridges.Add(channelID, chatID)
}

// RemoveBridge resolves target to a Discord channel and removes its bridge.
func (tb *TelegramBridge) RemoveBridge(target string) (string, error) {
	channelID := ResolveChannel(tb.aliases, target)
	return channelID, tb.bridges.Remove(channelID)
}

// Bridges returns the bridge registry.
func (tb *TelegramBridge) Bridges() *BridgeRegistry { return tb.bridges }

// Aliases returns the alias resolver.
func (tb *TelegramBridge) Aliases() *AliasResolver { return tb.aliases }

// Cursor returns the Telegram cursor store.
func (tb *TelegramBridge) Cursor() *CursorStore { return tb.cursor }

// Poller returns the Telegram poller.
func (tb *TelegramBridge) Poller() *Poller { return tb.poller }

// ResolveChannel turns a typed channel reference or alias into a Discord
// channel ID.
func ResolveChannel(aliases *AliasResolver, ref string) string {
	return aliases.Resolve(ParseChannelRef(ref))
}
