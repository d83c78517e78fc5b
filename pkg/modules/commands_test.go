// Copyright 2024-2026 Aiku AI

package modules

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/google/go-cmp/cmp"
)

type sentMessage struct {
	ChannelID string
	Content   string
}

// mockSender captures replies.
type mockSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (m *mockSender) SendMessage(_ context.Context, channelID, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMessage{ChannelID: channelID, Content: content})
	return nil
}

func (m *mockSender) Replies() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.sent))
	for i, s := range m.sent {
		out[i] = s.Content
	}
	return out
}

func userMessage(content string) *discordgo.Message {
	return &discordgo.Message{
		ID:        "m1",
		ChannelID: "ops",
		Content:   content,
		Author:    &discordgo.User{ID: "u1", Username: "admin"},
	}
}

func newCommandRegistry(t *testing.T) (*Registry, *mockSender, *journal) {
	t.Helper()
	r, sender := newTestRegistry()
	j := &journal{}
	r.Register("Basics", func(Deps) (Module, error) { return &fakeModule{name: "basics", journal: j}, nil })
	r.Register("Telegram", func(Deps) (Module, error) { return &fakeModule{name: "telegram", journal: j}, nil })
	r.Register("Broken", func(Deps) (Module, error) { return nil, errors.New("missing token") })
	return r, sender, j
}

func TestHandleMessage_ModuleCommands(t *testing.T) {
	t.Parallel()
	r, sender, _ := newCommandRegistry(t)
	ctx := context.Background()

	steps := []struct {
		in, want string
	}{
		{"!modules", "Loaded: none\nAvailable: Basics, Broken, Telegram"},
		{"!load", loadUsage},
		{"!load a b", loadUsage},
		{"!load basics", "✅ Module Basics loaded."},
		{"!load Basics", "✅ Module Basics loaded."},
		{"!load Telegram", "✅ Module Telegram loaded."},
		{"!load Jokes", "⚠️ Unknown module Jokes. Available: Broken"},
		{"!load Broken", "⚠️ Could not load module Broken, check the bot logs."},
		{"!modules", "Loaded: Basics, Telegram\nAvailable: Broken"},
		{"!unload", unloadUsage},
		{"!unload Ghost", "⚠️ Module Ghost is not loaded."},
		{"!unload basics", "❌ Module Basics unloaded."},
		{"!unload basics", "⚠️ Module Basics is not loaded."},
		{"!load Basics", "✅ Module Basics loaded."},
		{"!unload all", "❌ Unloaded 2 modules: Basics, Telegram"},
		{"!unload all", "No modules loaded."},
	}
	for _, s := range steps {
		before := len(sender.Replies())
		r.HandleMessage(ctx, userMessage(s.in))
		replies := sender.Replies()[before:]
		if len(replies) != 1 {
			t.Fatalf("%q: expected one reply, got %v", s.in, replies)
		}
		if replies[0] != s.want {
			t.Errorf("%q:\n got %q\nwant %q", s.in, replies[0], s.want)
		}
	}
}

// TestHandleMessage_DropsBots verifies bot-authored messages reach neither
// the admin commands nor the modules.
func TestHandleMessage_DropsBots(t *testing.T) {
	t.Parallel()
	r, sender, j := newCommandRegistry(t)
	_ = r.Load(context.Background(), "Telegram")

	for _, content := range []string{"**bob** (Telegram): yo", "!load Basics"} {
		msg := userMessage(content)
		msg.Author.Bot = true
		r.HandleMessage(context.Background(), msg)
	}
	noAuthor := userMessage("hi")
	noAuthor.Author = nil
	r.HandleMessage(context.Background(), noAuthor)
	r.HandleMessage(context.Background(), nil)

	if len(sender.Replies()) != 0 {
		t.Errorf("no replies expected, got %v", sender.Replies())
	}
	if diff := cmp.Diff([]string{"telegram:init"}, j.Events()); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
	if r.IsLoaded("Basics") {
		t.Error("bot message should not load modules")
	}
}

func TestHandleMessage_DispatchesOtherMessages(t *testing.T) {
	t.Parallel()
	r, sender, j := newCommandRegistry(t)
	_ = r.Load(context.Background(), "Basics")
	_ = r.Load(context.Background(), "Telegram")

	for _, content := range []string{"!ping", "!bridge list", "hello", "", "!loaded"} {
		r.HandleMessage(context.Background(), userMessage(content))
	}

	var handled []string
	for _, e := range j.Events() {
		if strings.Contains(e, ":handle:") {
			handled = append(handled, e)
		}
	}
	want := []string{
		"basics:handle:!ping", "telegram:handle:!ping",
		"basics:handle:!bridge list", "telegram:handle:!bridge list",
		"basics:handle:hello", "telegram:handle:hello",
		"basics:handle:", "telegram:handle:",
		"basics:handle:!loaded", "telegram:handle:!loaded",
	}
	if diff := cmp.Diff(want, handled); diff != "" {
		t.Errorf("handled (-want +got):\n%s", diff)
	}
	if len(sender.Replies()) != 0 {
		t.Errorf("the registry should not reply to dispatched messages, got %v", sender.Replies())
	}
}

func TestHandleMessage_ReplyFailureIsLogged(t *testing.T) {
	t.Parallel()
	r, sender, _ := newCommandRegistry(t)
	sender.err = errors.New("discord down")

	r.HandleMessage(context.Background(), userMessage("!load Basics"))

	if !r.IsLoaded("Basics") {
		t.Error("load should succeed even when the reply fails")
	}
}
