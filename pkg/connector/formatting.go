// Copyright 2024-2026 Aiku AI

package connector

import (
	"github.com/bwmarrin/discordgo"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/aiku/khanterbridge/pkg/connector/discordfmt"
	"github.com/aiku/khanterbridge/pkg/connector/telegramfmt"
)

// discordCaption builds the text or caption sent to Telegram for a Discord
// message.
func discordCaption(author, text string) string {
	return "**" + author + "** (Discord): " + text
}

// telegramLine builds the Discord message for a Telegram message.
func telegramLine(sender, body string) string {
	return "**" + sender + "** (Telegram): " + body
}

// discordfmtParse converts Discord message content to Telegram text.
func discordfmtParse(msg *discordgo.Message) string {
	return discordfmt.Parse(msg)
}

// telegramfmtParse converts a Telegram message to a Discord body.
func telegramfmtParse(msg *tgbotapi.Message) (telegramfmt.ParsedMessage, bool) {
	return telegramfmt.Parse(msg)
}
