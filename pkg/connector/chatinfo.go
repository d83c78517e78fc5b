// Copyright 2024-2026 Aiku AI

package connector

import (
	"strconv"

	"github.com/bwmarrin/discordgo"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// telegramSenderName renders the name shown on Discord for a Telegram
// message. Channel posts have no sender and use the chat title.
func (tb *TelegramBridge) telegramSenderName(msg *tgbotapi.Message) string {
	if msg.From != nil {
		name := tb.Config.FormatDisplayname(DisplaynameParams{
			Username:  msg.From.UserName,
			FirstName: msg.From.FirstName,
			LastName:  msg.From.LastName,
		})
		if name != "" {
			return name
		}
		return "user" + strconv.FormatInt(msg.From.ID, 10)
	}
	if msg.SenderChat != nil && msg.SenderChat.Title != "" {
		return msg.SenderChat.Title
	}
	if msg.Chat != nil && msg.Chat.Title != "" {
		return msg.Chat.Title
	}
	return "unknown"
}

// discordAuthorName renders the name shown on Telegram for a Discord message.
func discordAuthorName(msg *discordgo.Message) string {
	if msg.Author == nil {
		return "unknown"
	}
	if msg.Author.Username != "" {
		return msg.Author.Username
	}
	return msg.Author.ID
}
