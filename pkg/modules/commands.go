// Copyright 2024-2026 Aiku AI

package modules

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

const (
	loadUsage   = "Usage: `!load <module>`"
	unloadUsage = "Usage: `!unload <module|all>`"
)

// HandleMessage is the entry point for Discord messages. Bot messages are
// dropped so relayed messages never loop back. Module management commands
// are answered here; everything else is dispatched to the loaded modules.
func (r *Registry) HandleMessage(ctx context.Context, msg *discordgo.Message) {
	if msg == nil || msg.Author == nil || msg.Author.Bot {
		return
	}
	fields := strings.Fields(msg.Content)
	if len(fields) == 0 {
		r.Dispatch(ctx, msg)
		return
	}

	var reply string
	switch fields[0] {
	case "!load":
		reply = r.loadCommand(ctx, fields)
	case "!unload":
		reply = r.unloadCommand(ctx, fields)
	case "!modules":
		reply = r.modulesReply()
	default:
		r.Dispatch(ctx, msg)
		return
	}
	if err := r.deps.Sender.SendMessage(ctx, msg.ChannelID, reply); err != nil {
		r.log.Warn().Err(err).Str("channel_id", msg.ChannelID).Msg("Failed to send module command reply")
	}
}

func (r *Registry) loadCommand(ctx context.Context, fields []string) string {
	if len(fields) != 2 {
		return loadUsage
	}
	name := fields[1]
	err := r.Load(ctx, name)
	switch {
	case errors.Is(err, ErrUnknownModule):
		return fmt.Sprintf("⚠️ Unknown module %s. Available: %s", name, joinOrNone(r.ListAvailable()))
	case err != nil:
		r.log.Error().Err(err).Str("module", name).Msg("Failed to load module")
		return fmt.Sprintf("⚠️ Could not load module %s, check the bot logs.", name)
	}
	canonical, _ := r.Canonical(name)
	return fmt.Sprintf("✅ Module %s loaded.", canonical)
}

func (r *Registry) unloadCommand(ctx context.Context, fields []string) string {
	if len(fields) != 2 {
		return unloadUsage
	}
	name := fields[1]
	if strings.EqualFold(name, "all") {
		unloaded := r.UnloadAll(ctx)
		if len(unloaded) == 0 {
			return "No modules loaded."
		}
		return fmt.Sprintf("❌ Unloaded %d modules: %s", len(unloaded), strings.Join(unloaded, ", "))
	}
	canonical, ok := r.Canonical(name)
	if !ok {
		canonical = name
	}
	if err := r.Unload(ctx, name); err != nil {
		return fmt.Sprintf("⚠️ Module %s is not loaded.", canonical)
	}
	return fmt.Sprintf("❌ Module %s unloaded.", canonical)
}

func (r *Registry) modulesReply() string {
	return "Loaded: " + joinOrNone(r.ListLoaded()) + "\nAvailable: " + joinOrNone(r.ListAvailable())
}

func joinOrNone(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}
