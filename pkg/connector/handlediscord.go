// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package connector

import (
	"context"

	"github.com/bwmarrin/discordgo"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/aiku/khanterbridge/pkg/connector/discordfmt"
)

// relayDiscordMessage forwards a Discord message to the bridged Telegram
// chat. Messages from channels without a bridge are dropped silently and
// send failures are logged, not retried.
func (tb *TelegramBridge) relayDiscordMessage(ctx context.Context, msg *discordgo.Message) {
	channelID := tb.aliases.Resolve(msg.ChannelID)
	chatID, ok := tb.bridges.ForwardLookup(channelID)
	if !ok {
		return
	}
	log := tb.log.With().
		Str("channel_id", channelID).
		Int64("chat_id", chatID).
		Str("message_id", msg.ID).
		Logger()

	caption := discordCaption(discordAuthorName(msg), discordfmtParse(msg))

	if len(msg.Attachments) == 0 {
		text := tgbotapi.NewMessage(chatID, caption)
		text.ParseMode = tgbotapi.ModeMarkdown
		if err := tb.sender.Send(ctx, text); err != nil {
			log.Warn().Err(err).Msg("Failed to relay Discord message to Telegram")
			return
		}
		log.Debug().Msg("Relayed Discord message to Telegram")
		return
	}

	for _, att := range msg.Attachments {
		if att == nil || att.URL == "" {
			continue
		}
		kind := discordfmt.Classify(att)
		if err := tb.sender.Send(ctx, mediaMessage(kind, chatID, att.URL, caption)); err != nil {
			log.Warn().Err(err).
				Str("attachment_id", att.ID).
				Str("kind", kind.String()).
				Msg("Failed to relay Discord attachment to Telegram")
			continue
		}
		log.Debug().Str("attachment_id", att.ID).Str("kind", kind.String()).Msg("Relayed Discord attachment to Telegram")
	}
}

// mediaMessage builds the typed Telegram send for an attachment URL.
func mediaMessage(kind discordfmt.Kind, chatID int64, url, caption string) tgbotapi.Chattable {
	file := tgbotapi.FileURL(url)
	switch kind {
	case discordfmt.KindPhoto:
		m := tgbotapi.NewPhoto(chatID, file)
		m.Caption, m.ParseMode = caption, tgbotapi.ModeMarkdown
		return m
	case discordfmt.KindVideo:
		m := tgbotapi.NewVideo(chatID, file)
		m.Caption, m.ParseMode = caption, tgbotapi.ModeMarkdown
		return m
	case discordfmt.KindAudio:
		m := tgbotapi.NewAudio(chatID, file)
		m.Caption, m.ParseMode = caption, tgbotapi.ModeMarkdown
		return m
	default:
		m := tgbotapi.NewDocument(chatID, file)
		m.Caption, m.ParseMode = caption, tgbotapi.ModeMarkdown
		return m
	}
}
