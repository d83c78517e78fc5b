// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package connector

import (
	"context"
	"errors"
	"net/http"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

func newTestSender(api TelegramAPI) *telegramSender {
	return newTelegramSender(api, &Config{SendRate: 1000, SendBurst: 100}, zerolog.Nop())
}

// TestConnect_VerifiesToken verifies that Connect calls getMe on the fake.
func TestConnect_VerifiesToken(t *testing.T) {
	t.Parallel()
	fake := newFakeTelegram(t)

	bot, err := Connect(&Config{Token: testToken, APIEndpoint: fake.Endpoint()})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if bot.Self.UserName != "bridge_bot" {
		t.Errorf("Self.UserName: got %q", bot.Self.UserName)
	}
	if len(fake.CallsTo("getMe")) != 1 {
		t.Errorf("expected one getMe call, got %d", len(fake.CallsTo("getMe")))
	}
}

func TestConnect_MissingToken(t *testing.T) {
	t.Parallel()
	if _, err := Connect(&Config{}); err == nil {
		t.Fatal("Connect without a token should fail")
	}
}

// TestConnect_Unauthorized verifies that a rejected token surfaces as an error.
func TestConnect_Unauthorized(t *testing.T) {
	t.Parallel()
	fake := newFakeTelegram(t)
	fake.Fail("getMe", http.StatusUnauthorized, "Unauthorized", 0)

	if _, err := Connect(&Config{Token: testToken, APIEndpoint: fake.Endpoint()}); err == nil {
		t.Fatal("Connect should fail when getMe is rejected")
	}
}

func TestSend_MarkdownFallback(t *testing.T) {
	t.Parallel()
	fake := newFakeTelegram(t)
	sender := newTestSender(fake.Bot(t))
	fake.Fail("sendMessage", http.StatusBadRequest, "Bad Request: can't parse entities: Can't find end of the entity starting at byte offset 2", 1)

	msg := tgbotapi.NewMessage(555, "**a_b** (Discord): hi")
	msg.ParseMode = tgbotapi.ModeMarkdown
	if err := sender.Send(context.Background(), msg); err != nil {
		t.Fatalf("Send: %v", err)
	}

	calls := fake.CallsTo("sendMessage")
	if len(calls) != 2 {
		t.Fatalf("expected 2 sendMessage calls, got %d", len(calls))
	}
	if calls[0].Form.Get("parse_mode") != "Markdown" {
		t.Errorf("first attempt parse_mode: got %q", calls[0].Form.Get("parse_mode"))
	}
	if calls[1].Form.Get("parse_mode") != "" {
		t.Errorf("fallback should have no parse_mode, got %q", calls[1].Form.Get("parse_mode"))
	}
	if calls[1].Form.Get("text") != "**a_b** (Discord): hi" {
		t.Errorf("fallback text: got %q", calls[1].Form.Get("text"))
	}
}

// TestSend_OtherErrorsNotRetried verifies only markup errors trigger a resend.
func TestSend_OtherErrorsNotRetried(t *testing.T) {
	t.Parallel()
	fake := newFakeTelegram(t)
	sender := newTestSender(fake.Bot(t))
	fake.Fail("sendMessage", http.StatusForbidden, "Forbidden: bot was kicked from the group chat", 0)

	msg := tgbotapi.NewMessage(555, "hi")
	msg.ParseMode = tgbotapi.ModeMarkdown
	err := sender.Send(context.Background(), msg)

	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusForbidden {
		t.Fatalf("expected a 403 API error, got %v", err)
	}
	if n := len(fake.CallsTo("sendMessage")); n != 1 {
		t.Errorf("expected 1 sendMessage call, got %d", n)
	}
}

func TestSend_FallbackFailure(t *testing.T) {
	t.Parallel()
	fake := newFakeTelegram(t)
	sender := newTestSender(fake.Bot(t))
	fake.Fail("sendPhoto", http.StatusBadRequest, "Bad Request: can't parse entities", 0)

	photo := tgbotapi.NewPhoto(555, tgbotapi.FileURL("https://cdn.example/x.png"))
	photo.Caption, photo.ParseMode = "**bob**", tgbotapi.ModeMarkdown
	if err := sender.Send(context.Background(), photo); err == nil {
		t.Fatal("expected an error when the plain resend also fails")
	}
	if n := len(fake.CallsTo("sendPhoto")); n != 2 {
		t.Errorf("expected 2 sendPhoto calls, got %d", n)
	}
}

func TestSend_CanceledContext(t *testing.T) {
	t.Parallel()
	api := &mockTelegram{}
	sender := newTelegramSender(api, &Config{SendRate: 0.001, SendBurst: 1}, zerolog.Nop())

	// Spend the only token, then wait on a canceled context.
	if err := sender.Send(context.Background(), tgbotapi.NewMessage(1, "a")); err != nil {
		t.Fatalf("first Send: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sender.Send(ctx, tgbotapi.NewMessage(1, "b")); err == nil {
		t.Fatal("Send should fail on a canceled context")
	}
	if len(api.sent) != 1 {
		t.Errorf("expected 1 message sent, got %d", len(api.sent))
	}
}

func TestLatestUpdateID(t *testing.T) {
	t.Parallel()
	fake := newFakeTelegram(t)
	sender := newTestSender(fake.Bot(t))

	latest, err := sender.LatestUpdateID(context.Background())
	if err != nil {
		t.Fatalf("LatestUpdateID on empty queue: %v", err)
	}
	if latest != 0 {
		t.Errorf("empty queue: got %d", latest)
	}

	fake.QueueUpdates(textUpdate(10, 1, "a", "x"), textUpdate(11, 1, "a", "y"), textUpdate(17, 1, "a", "z"))
	latest, err = sender.LatestUpdateID(context.Background())
	if err != nil {
		t.Fatalf("LatestUpdateID: %v", err)
	}
	if latest != 17 {
		t.Errorf("got %d, want 17", latest)
	}

	calls := fake.CallsTo("getUpdates")
	last := calls[len(calls)-1]
	if last.Form.Get("offset") != "-1" || last.Form.Get("limit") != "1" {
		t.Errorf("unexpected getUpdates params: %v", last.Form)
	}
}

func TestLatestUpdateID_Error(t *testing.T) {
	t.Parallel()
	sender := newTestSender(&mockTelegram{getErr: errors.New("network down")})
	if _, err := sender.LatestUpdateID(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestIsMarkupError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("can't parse entities"), false},
		{"markup", &tgbotapi.Error{Code: 400, Message: "Bad Request: can't parse entities: x"}, true},
		{"wrapped", errors.Join(errors.New("ctx"), &tgbotapi.Error{Code: 400, Message: "Bad Request: Can't parse entities"}), true},
		{"other 400", &tgbotapi.Error{Code: 400, Message: "Bad Request: chat not found"}, false},
		{"wrong code", &tgbotapi.Error{Code: 403, Message: "can't parse entities"}, false},
	}
	for _, tt := range tests {
		if got := isMarkupError(tt.err); got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestWithoutParseMode(t *testing.T) {
	t.Parallel()
	file := tgbotapi.FileURL("https://cdn.example/f")
	photo := tgbotapi.NewPhoto(1, file)
	photo.ParseMode = tgbotapi.ModeMarkdown
	video := tgbotapi.NewVideo(1, file)
	video.ParseMode = tgbotapi.ModeMarkdown
	audio := tgbotapi.NewAudio(1, file)
	audio.ParseMode = tgbotapi.ModeMarkdown
	doc := tgbotapi.NewDocument(1, file)
	doc.ParseMode = tgbotapi.ModeMarkdown
	text := tgbotapi.NewMessage(1, "x")
	text.ParseMode = tgbotapi.ModeMarkdown

	for _, c := range []tgbotapi.Chattable{photo, video, audio, doc, text} {
		plain, ok := withoutParseMode(c)
		if !ok {
			t.Fatalf("%T should be supported", c)
		}
		var mode string
		switch p := plain.(type) {
		case tgbotapi.PhotoConfig:
			mode = p.ParseMode
		case tgbotapi.VideoConfig:
			mode = p.ParseMode
		case tgbotapi.AudioConfig:
			mode = p.ParseMode
		case tgbotapi.DocumentConfig:
			mode = p.ParseMode
		case tgbotapi.MessageConfig:
			mode = p.ParseMode
		}
		if mode != "" {
			t.Errorf("%T still has parse mode %q", c, mode)
		}
	}
	if _, ok := withoutParseMode(tgbotapi.NewChatAction(1, tgbotapi.ChatTyping)); ok {
		t.Error("chat actions have no parse mode")
	}
}
