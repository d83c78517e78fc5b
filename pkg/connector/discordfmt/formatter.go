// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package discordfmt converts Discord messages to Telegram text and classifies
// Discord attachments into Telegram media kinds.
package discordfmt

import (
	"mime"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// Kind is the Telegram send method an attachment maps to.
type Kind int

const (
	KindDocument Kind = iota
	KindPhoto
	KindVideo
	KindAudio
)

func (k Kind) String() string {
	switch k {
	case KindPhoto:
		return "photo"
	case KindVideo:
		return "video"
	case KindAudio:
		return "audio"
	default:
		return "document"
	}
}

var (
	customEmojiRe = regexp.MustCompile(`<a?(:[A-Za-z0-9_~]+:)\d+>`)
	roleMentionRe = regexp.MustCompile(`<@&\d+>`)
)

// mediaExtensions covers common media files whose type the system MIME
// table may not know.
var mediaExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".mp3":  "audio/mpeg",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".flac": "audio/flac",
}

// Parse returns the text of msg with user mentions replaced by @username and
// custom emoji reduced to their :name: form.
func Parse(msg *discordgo.Message) string {
	if msg == nil {
		return ""
	}
	text := msg.ContentWithMentionsReplaced()
	text = customEmojiRe.ReplaceAllString(text, "$1")
	text = roleMentionRe.ReplaceAllString(text, "@role")
	return strings.TrimSpace(text)
}

// Classify maps an attachment to a Telegram media kind. The declared content
// type wins; without one the filename extension is used.
func Classify(att *discordgo.MessageAttachment) Kind {
	if att == nil {
		return KindDocument
	}
	ct := strings.ToLower(strings.TrimSpace(att.ContentType))
	if ct == "" {
		ext := strings.ToLower(filepath.Ext(att.Filename))
		if known, ok := mediaExtensions[ext]; ok {
			ct = known
		} else {
			ct = strings.ToLower(mime.TypeByExtension(ext))
		}
	}
	switch {
	case strings.HasPrefix(ct, "image/"):
		return KindPhoto
	case strings.Contains(ct, "video"):
		return KindVideo
	case strings.Contains(ct, "audio"), strings.Contains(ct, "voice"):
		return KindAudio
	default:
		return KindDocument
	}
}
