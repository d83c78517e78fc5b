// Copyright 2024-2026 Aiku AI

package modules

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
)

// maxMessageLength is Discord's limit for message content, in characters.
const maxMessageLength = 2000

// DiscordSender sends messages through a discordgo session.
type DiscordSender struct {
	session *discordgo.Session
}

var _ Sender = (*DiscordSender)(nil)

// NewDiscordSender wraps session.
func NewDiscordSender(session *discordgo.Session) *DiscordSender {
	return &DiscordSender{session: session}
}

// SendMessage posts content to channelID. Content over Discord's length
// limit is split into several messages, on line breaks where possible.
// Mentions in content are rendered but never ping anyone.
func (d *DiscordSender) SendMessage(ctx context.Context, channelID, content string) error {
	if d.session == nil {
		return errors.New("discord session is not set")
	}
	for _, part := range splitMessage(content, maxMessageLength) {
		if _, err := d.session.ChannelMessageSendComplex(channelID, plainMessage(part), discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("failed to send message to %s: %w", channelID, err)
		}
	}
	return nil
}

// Latency returns the gateway heartbeat round trip.
func (d *DiscordSender) Latency() time.Duration {
	if d.session == nil {
		return 0
	}
	return d.session.HeartbeatLatency()
}

// plainMessage wraps content with an empty allowed mentions list, so
// @everyone, @here and user or role mentions stay inert.
func plainMessage(content string) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content:         content,
		AllowedMentions: &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{}},
	}
}

// splitMessage cuts content into parts of at most limit characters. Empty
// content yields no parts.
func splitMessage(content string, limit int) []string {
	var parts []string
	for content != "" {
		if utf8.RuneCountInString(content) <= limit {
			parts = append(parts, content)
			break
		}
		cut := runeOffset(content, limit)
		if nl := strings.LastIndexByte(content[:cut], '\n'); nl > 0 {
			parts = append(parts, content[:nl])
			content = content[nl+1:]
			continue
		}
		parts = append(parts, content[:cut])
		content = content[cut:]
	}
	return parts
}

// runeOffset returns the byte offset of the n-th rune in s.
func runeOffset(s string, n int) int {
	i := 0
	for offset := range s {
		if i == n {
			return offset
		}
		i++
	}
	return len(s)
}
