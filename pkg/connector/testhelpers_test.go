// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package connector

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/aiku/khanterbridge/pkg/kvstore"
)

const testToken = "123:TEST"

// apiCall records one Bot API request.
type apiCall struct {
	Method string
	Form   url.Values
}

// apiFailure is a canned Bot API error response.
type apiFailure struct {
	Code        int
	Description string
	// Times limits how many calls fail; 0 means every call.
	Times int
}

// fakeTelegram is a test helper that wraps an httptest.Server simulating the
// Telegram Bot API. It records calls and serves queued updates.
type fakeTelegram struct {
	Server *httptest.Server

	mu      sync.Mutex
	calls   []apiCall
	updates []tgbotapi.Update
	// Failures maps Bot API methods to error responses.
	Failures map[string]*apiFailure
}

func newFakeTelegram(t *testing.T) *fakeTelegram {
	t.Helper()
	f := &fakeTelegram{Failures: make(map[string]*apiFailure)}
	f.Server = httptest.NewServer(http.HandlerFunc(f.handler))
	t.Cleanup(f.Server.Close)
	return f
}

// Endpoint returns the API endpoint pattern pointing at the fake.
func (f *fakeTelegram) Endpoint() string {
	return f.Server.URL + "/bot%s/%s"
}

// Bot creates a real Bot API client talking to the fake.
func (f *fakeTelegram) Bot(t *testing.T) *tgbotapi.BotAPI {
	t.Helper()
	bot, err := tgbotapi.NewBotAPIWithClient(testToken, f.Endpoint(), f.Server.Client())
	if err != nil {
		t.Fatalf("NewBotAPIWithClient: %v", err)
	}
	return bot
}

func (f *fakeTelegram) QueueUpdates(updates ...tgbotapi.Update) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, updates...)
}

func (f *fakeTelegram) Fail(method string, code int, description string, times int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Failures[method] = &apiFailure{Code: code, Description: description, Times: times}
}

func (f *fakeTelegram) Calls() []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]apiCall, len(f.calls))
	copy(cp, f.calls)
	return cp
}

// CallsTo returns the recorded calls of one method.
func (f *fakeTelegram) CallsTo(method string) []apiCall {
	var out []apiCall
	for _, c := range f.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeTelegram) handler(w http.ResponseWriter, r *http.Request) {
	prefix := "/bot" + testToken + "/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		writeAPIError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	method := strings.TrimPrefix(r.URL.Path, prefix)
	_ = r.ParseForm()

	f.mu.Lock()
	f.calls = append(f.calls, apiCall{Method: method, Form: r.PostForm})
	failure := f.Failures[method]
	if failure != nil && failure.Times > 0 {
		failure.Times--
		if failure.Times == 0 {
			delete(f.Failures, method)
		}
	}
	f.mu.Unlock()

	if failure != nil {
		writeAPIError(w, failure.Code, failure.Description)
		return
	}

	switch method {
	case "getMe":
		writeAPIResult(w, tgbotapi.User{ID: 1, IsBot: true, FirstName: "Bridge", UserName: "bridge_bot"})
	case "getUpdates":
		writeAPIResult(w, f.pendingUpdates(r.PostForm))
	case "sendMessage", "sendPhoto", "sendVideo", "sendAudio", "sendDocument":
		chatID, _ := strconv.ParseInt(r.PostForm.Get("chat_id"), 10, 64)
		writeAPIResult(w, tgbotapi.Message{
			MessageID: len(f.Calls()),
			Chat:      &tgbotapi.Chat{ID: chatID, Type: "group"},
			Text:      r.PostForm.Get("text"),
		})
	default:
		writeAPIError(w, http.StatusNotFound, "Not Found: method not found")
	}
}

// pendingUpdates mimics getUpdates offset semantics: a positive offset
// returns updates with an ID at or above it, a negative one returns the last
// -offset updates.
func (f *fakeTelegram) pendingUpdates(form url.Values) []tgbotapi.Update {
	offset, _ := strconv.Atoi(form.Get("offset"))
	f.mu.Lock()
	defer f.mu.Unlock()
	if offset < 0 {
		start := max(len(f.updates)+offset, 0)
		return append([]tgbotapi.Update{}, f.updates[start:]...)
	}
	out := []tgbotapi.Update{}
	for _, upd := range f.updates {
		if upd.UpdateID >= offset {
			out = append(out, upd)
		}
	}
	return out
}

func writeAPIResult(w http.ResponseWriter, result any) {
	raw, _ := json.Marshal(result)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": json.RawMessage(raw)})
}

func writeAPIError(w http.ResponseWriter, code int, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error_code": code, "description": description})
}

// mockTelegram is an in-memory TelegramAPI with Telegram offset semantics.
type mockTelegram struct {
	mu      sync.Mutex
	updates []tgbotapi.Update
	configs []tgbotapi.UpdateConfig
	sent    []tgbotapi.Chattable
	getErr  error
	sendErr error
	onGet   func()
}

func (m *mockTelegram) GetUpdates(cfg tgbotapi.UpdateConfig) ([]tgbotapi.Update, error) {
	m.mu.Lock()
	m.configs = append(m.configs, cfg)
	onGet, err := m.onGet, m.getErr
	m.mu.Unlock()
	if onGet != nil {
		onGet()
	}
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []tgbotapi.Update
	for _, upd := range m.updates {
		if upd.UpdateID >= cfg.Offset {
			out = append(out, upd)
		}
	}
	return out, nil
}

func (m *mockTelegram) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, c)
	if m.sendErr != nil {
		return tgbotapi.Message{}, m.sendErr
	}
	return tgbotapi.Message{MessageID: len(m.sent)}, nil
}

func (m *mockTelegram) Offsets() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int, len(m.configs))
	for i, c := range m.configs {
		out[i] = c.Offset
	}
	return out
}

// discordPost is one message sent through mockDiscord.
type discordPost struct {
	ChannelID string
	Content   string
}

// mockDiscord captures Discord sends for assertions.
type mockDiscord struct {
	mu    sync.Mutex
	posts []discordPost
	// FailChannels makes sends to these channels fail.
	FailChannels map[string]bool
}

var errDiscordDown = errors.New("discord unavailable")

func (m *mockDiscord) SendMessage(_ context.Context, channelID, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailChannels[channelID] {
		return errDiscordDown
	}
	m.posts = append(m.posts, discordPost{ChannelID: channelID, Content: content})
	return nil
}

func (m *mockDiscord) Posts() []discordPost {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]discordPost, len(m.posts))
	copy(cp, m.posts)
	return cp
}

// newTestBridge creates a bridge over api with a temp storage directory.
func newTestBridge(t *testing.T, api TelegramAPI) (*TelegramBridge, *mockDiscord, *kvstore.Store) {
	t.Helper()
	store := kvstore.New(t.TempDir(), zerolog.Nop())
	discord := &mockDiscord{}
	cfg := Config{SendRate: 1000, SendBurst: 100}
	tb, err := NewTelegramBridge(cfg, api, discord, store, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewTelegramBridge: %v", err)
	}
	return tb, discord, store
}

// textUpdate builds a text message update from a Telegram user.
func textUpdate(id int, chatID int64, username, text string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: id,
		Message: &tgbotapi.Message{
			MessageID: id,
			From:      &tgbotapi.User{ID: 99, FirstName: "First", UserName: username},
			Chat:      &tgbotapi.Chat{ID: chatID, Type: "group"},
			Text:      text,
		},
	}
}
