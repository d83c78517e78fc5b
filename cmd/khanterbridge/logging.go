// Copyright 2024-2026 Aiku AI

package main

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// telegramLogger sends tgbotapi's debug output to zerolog.
type telegramLogger struct {
	log zerolog.Logger
}

func (l telegramLogger) Println(v ...any) {
	l.log.Debug().Msg(strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

func (l telegramLogger) Printf(format string, v ...any) {
	l.log.Debug().Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// discordLogger maps discordgo log levels onto zerolog.
func discordLogger(log zerolog.Logger) func(msgL, caller int, format string, a ...any) {
	return func(msgL, _ int, format string, a ...any) {
		var evt *zerolog.Event
		switch msgL {
		case discordgo.LogError:
			evt = log.Error()
		case discordgo.LogWarning:
			evt = log.Warn()
		case discordgo.LogInformational:
			evt = log.Info()
		default:
			evt = log.Debug()
		}
		evt.Msg(strings.TrimSpace(fmt.Sprintf(format, a...)))
	}
}

func redirectLibraryLogs(log zerolog.Logger) {
	_ = tgbotapi.SetLogger(telegramLogger{log: log.With().Str("component", "tgbotapi").Logger()})
	discordgo.Logger = discordLogger(log.With().Str("component", "discordgo").Logger())
}
