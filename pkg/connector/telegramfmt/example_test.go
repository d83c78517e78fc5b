// Copyright 2024-2026 Aiku AI

package telegramfmt_test

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/aiku/khanterbridge/pkg/connector/telegramfmt"
)

func ExampleParse() {
	msg := &tgbotapi.Message{Voice: &tgbotapi.Voice{FileID: "abc"}}
	parsed, ok := telegramfmt.Parse(msg)
	fmt.Println(parsed.Body, ok)
	// Output: [Audio received] true
}
