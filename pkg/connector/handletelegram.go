// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package connector

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// relayTelegramUpdate delivers one Telegram update to every Discord channel
// bridged to its chat. Delivery failures are logged and not retried.
func (tb *TelegramBridge) relayTelegramUpdate(ctx context.Context, upd tgbotapi.Update) {
	log := tb.log.With().Int("update_id", upd.UpdateID).Logger()

	msg := upd.Message
	if msg == nil || msg.Chat == nil || msg.Chat.ID == 0 {
		log.Debug().Msg("Skipping update without message")
		return
	}
	chatID := msg.Chat.ID
	channels := tb.bridges.ReverseLookupAll(chatID)
	if len(channels) == 0 {
		log.Debug().Int64("chat_id", chatID).Msg("Skipping update from unbridged chat")
		return
	}
	parsed, ok := telegramfmtParse(msg)
	if !ok {
		log.Debug().Int64("chat_id", chatID).Msg("Skipping unsupported message content")
		return
	}

	line := telegramLine(tb.telegramSenderName(msg), parsed.Body)
	for _, channelID := range channels {
		if err := tb.discord.SendMessage(ctx, channelID, line); err != nil {
			log.Warn().Err(err).
				Int64("chat_id", chatID).
				Str("channel_id", channelID).
				Msg("Failed to relay Telegram message to Discord")
			continue
		}
		log.Debug().
			Int64("chat_id", chatID).
			Str("channel_id", channelID).
			Str("kind", parsed.Kind.String()).
			Msg("Relayed Telegram message to Discord")
	}
}
