// Copyright 2024-2026 Aiku AI

package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrUsage marks malformed command arguments.
var ErrUsage = errors.New("invalid command usage")

const (
	bridgeHint      = "Sub-commands: `add`, `remove`, `status`, `list`, `fixoffset`."
	bridgeAddUsage  = "Use: `!bridge add <discordId|alias> <telegramId>`"
	bridgeRmUsage   = "Use: `!bridge remove <discordId|alias>`"
	fixOffsetUsage  = "Use: `!bridge fixoffset [latest]`"
	setAliasUsage   = "Usage: `!set <alias> <channelId>`"
	noBridgesReply  = "No active bridges."
	bridgesHeader   = "Active Bridges:"
	storageFailure  = "⚠️ Could not save the change, check the bot logs."
	telegramFailure = "⚠️ Could not reach Telegram, check the bot logs."
)

// runCommand executes a bridge administration command. It reports false
// when fields is not a command handled by this module.
func (tb *TelegramBridge) runCommand(ctx context.Context, fields []string) (reply string, handled bool) {
	if len(fields) == 0 {
		return "", false
	}
	switch fields[0] {
	case "!bridge":
		return tb.bridgeCommand(ctx, fields), true
	case "!set":
		return tb.setCommand(fields), true
	default:
		return "", false
	}
}

func (tb *TelegramBridge) bridgeCommand(ctx context.Context, fields []string) string {
	if len(fields) < 2 {
		return bridgeHint
	}
	switch fields[1] {
	case "add":
		target, chatID, err := parseBridgeAdd(fields)
		if err != nil {
			return bridgeAddUsage
		}
		channelID, err := tb.AddBridge(target, chatID)
		if err != nil {
			tb.log.Error().Err(err).Msg("Failed to add bridge")
			return storageFailure
		}
		return fmt.Sprintf("✅ Bridge added: Discord %s ↔ Telegram %d", channelID, chatID)
	case "remove":
		if len(fields) != 3 {
			return bridgeRmUsage
		}
		channelID, err := tb.RemoveBridge(fields[2])
		if err != nil {
			tb.log.Error().Err(err).Msg("Failed to remove bridge")
			return storageFailure
		}
		return fmt.Sprintf("❌ Bridge removed: Discord %s", channelID)
	case "list":
		return renderBridgeList(tb.bridges)
	case "status":
		return renderBridgeStatus(tb.bridges)
	case "fixoffset":
		return tb.fixOffsetCommand(ctx, fields)
	default:
		return bridgeHint
	}
}

func (tb *TelegramBridge) fixOffsetCommand(ctx context.Context, fields []string) string {
	switch {
	case len(fields) == 2:
		if err := tb.cursor.Reset(); err != nil {
			tb.log.Error().Err(err).Msg("Failed to reset Telegram offset")
			return storageFailure
		}
		return "✅ Telegram offset reset to 0."
	case len(fields) == 3 && strings.EqualFold(fields[2], "latest"):
		var reply string
		tb.poller.Exclusive(func() {
			reply = tb.moveOffsetToLatest(ctx)
		})
		return reply
	default:
		return fixOffsetUsage
	}
}

// moveOffsetToLatest stores the newest pending update ID as the cursor. It
// must not run alongside a poll tick.
func (tb *TelegramBridge) moveOffsetToLatest(ctx context.Context) string {
	latest, err := tb.sender.LatestUpdateID(ctx)
	if err != nil {
		tb.log.Warn().Err(err).Msg("Failed to query latest Telegram update")
		return telegramFailure
	}
	if err := tb.cursor.Set(latest); err != nil {
		tb.log.Error().Err(err).Msg("Failed to store Telegram offset")
		return storageFailure
	}
	tb.log.Info().Int64("offset", latest).Msg("Telegram offset moved to latest update")
	return fmt.Sprintf("✅ Telegram offset set to %d.", latest)
}

func (tb *TelegramBridge) setCommand(fields []string) string {
	if len(fields) < 3 {
		return setAliasUsage
	}
	alias, channel := fields[1], ParseChannelRef(fields[2])
	if err := tb.aliases.Set(alias, channel); err != nil {
		tb.log.Error().Err(err).Msg("Failed to set alias")
		return storageFailure
	}
	return fmt.Sprintf("✅ Alias '%s' set for channel %s", alias, channel)
}

// parseBridgeAdd validates `!bridge add <target> <telegramId>`.
func parseBridgeAdd(fields []string) (target string, chatID int64, err error) {
	if len(fields) != 4 {
		return "", 0, fmt.Errorf("%w: expected 2 arguments, got %d", ErrUsage, len(fields)-2)
	}
	chatID, err = ParseTelegramChatID(fields[3])
	if err != nil {
		return "", 0, fmt.Errorf("%w: %w", ErrUsage, err)
	}
	return fields[2], chatID, nil
}

func renderBridgeList(bridges *BridgeRegistry) string {
	m := bridges.List()
	if m.Len() == 0 {
		return noBridgesReply
	}
	lines := []string{bridgesHeader}
	m.Range(func(key string, value gjson.Result) bool {
		lines = append(lines, fmt.Sprintf("Discord **%s** ↔ Telegram **%s**", key, value.String()))
		return true
	})
	return strings.Join(lines, "\n")
}

func renderBridgeStatus(bridges *BridgeRegistry) string {
	m := bridges.List()
	if m.Len() == 0 {
		return noBridgesReply
	}
	raw, err := m.MarshalJSON()
	if err != nil {
		return noBridgesReply
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "    "); err != nil {
		return noBridgesReply
	}
	return bridgesHeader + "\n```json\n" + buf.String() + "\n```"
}
