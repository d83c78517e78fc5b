// Copyright 2024-2026 Aiku AI

// Package telegramfmt converts Telegram messages to Discord message bodies.
package telegramfmt

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Placeholders sent to Discord instead of Telegram media.
const (
	PhotoPlaceholder = "[Photo received]"
	VideoPlaceholder = "[Video received]"
	AudioPlaceholder = "[Audio received]"
)

// Kind is the content class of a Telegram message.
type Kind int

const (
	KindUnsupported Kind = iota
	KindText
	KindPhoto
	KindVideo
	KindAudio
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindPhoto:
		return "photo"
	case KindVideo:
		return "video"
	case KindAudio:
		return "audio"
	default:
		return "unsupported"
	}
}

// ParsedMessage holds the result of converting a Telegram message.
type ParsedMessage struct {
	Kind Kind
	Body string
}

// Classify returns the content class of msg. Media wins over text, in the
// order photo, video, audio/voice.
func Classify(msg *tgbotapi.Message) Kind {
	switch {
	case msg == nil:
		return KindUnsupported
	case len(msg.Photo) > 0:
		return KindPhoto
	case msg.Video != nil:
		return KindVideo
	case msg.Audio != nil, msg.Voice != nil:
		return KindAudio
	case msg.Text != "":
		return KindText
	default:
		return KindUnsupported
	}
}

// Parse converts msg to a Discord body. Media become placeholders, followed
// by the caption when there is one. ok is false for content that is not
// relayed (stickers, documents, service messages).
func Parse(msg *tgbotapi.Message) (parsed ParsedMessage, ok bool) {
	kind := Classify(msg)
	var body string
	switch kind {
	case KindPhoto:
		body = PhotoPlaceholder
	case KindVideo:
		body = VideoPlaceholder
	case KindAudio:
		body = AudioPlaceholder
	case KindText:
		return ParsedMessage{Kind: kind, Body: msg.Text}, true
	default:
		return ParsedMessage{Kind: KindUnsupported}, false
	}
	if caption := strings.TrimSpace(msg.Caption); caption != "" {
		body += " " + caption
	}
	return ParsedMessage{Kind: kind, Body: body}, true
}
