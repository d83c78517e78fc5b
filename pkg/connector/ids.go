// Copyright 2024-2026 Aiku AI

package connector

import (
	"fmt"
	"strconv"
	"strings"
)

// Dataset names inside the storage directory.
const (
	bridgesDataset = "bridges"
	aliasesDataset = "aliases"
	offsetDataset  = "telegram_offset"
)

// ParseTelegramChatID parses a Telegram chat ID. Group IDs are negative.
func ParseTelegramChatID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid telegram chat id %q: %w", s, err)
	}
	return id, nil
}

// FormatTelegramChatID renders a Telegram chat ID.
func FormatTelegramChatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// ParseChannelRef turns a channel reference typed in Discord into a channel
// ID or alias. Channel mentions (<#123>) are unwrapped, anything else is
// returned trimmed.
func ParseChannelRef(ref string) string {
	ref = strings.TrimSpace(ref)
	if strings.HasPrefix(ref, "<#") && strings.HasSuffix(ref, ">") && len(ref) > 3 {
		return ref[2 : len(ref)-1]
	}
	return ref
}
