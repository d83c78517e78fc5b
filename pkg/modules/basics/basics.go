// Copyright 2024-2026 Aiku AI

// Package basics implements the Basics module: !ping and !uptime.
package basics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/aiku/khanterbridge/pkg/modules"
)

// Name is the name the module is registered under.
const Name = "Basics"

// Module answers !ping with the gateway latency and !uptime with the time
// since it was loaded.
type Module struct {
	sender  modules.Sender
	latency func() time.Duration
	started time.Time
	now     func() time.Time
	log     zerolog.Logger
}

var _ modules.Module = (*Module)(nil)

// New creates the module. latency reports the push gateway round trip.
func New(sender modules.Sender, latency func() time.Duration, log zerolog.Logger) *Module {
	return &Module{
		sender:  sender,
		latency: latency,
		started: time.Now(),
		now:     time.Now,
		log:     log,
	}
}

type latencyReporter interface {
	Latency() time.Duration
}

// Factory builds the module from registry dependencies. The latency comes
// from the sender when it reports one, otherwise from the session.
func Factory(deps modules.Deps) (modules.Module, error) {
	latency := func() time.Duration { return 0 }
	if lr, ok := deps.Sender.(latencyReporter); ok {
		latency = lr.Latency
	} else if deps.Session != nil {
		latency = deps.Session.HeartbeatLatency
	}
	return New(deps.Sender, latency, deps.Log), nil
}

// Handle replies to !ping and !uptime. Other messages are ignored.
func (m *Module) Handle(ctx context.Context, msg *discordgo.Message) error {
	var reply string
	switch strings.TrimSpace(msg.Content) {
	case "!ping":
		reply = fmt.Sprintf("🏓 Pong %d ms", m.latency().Round(time.Millisecond).Milliseconds())
	case "!uptime":
		reply = "My up time is: " + formatUptime(m.now().Sub(m.started))
	default:
		return nil
	}
	if err := m.sender.SendMessage(ctx, msg.ChannelID, reply); err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}
	return nil
}

// formatUptime renders d as HH:MM:SS. Hours keep counting past a day.
func formatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs%3600/60, secs%60)
}
