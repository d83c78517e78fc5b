// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package connector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// TelegramAPI is the subset of the Bot API client used by the bridge.
// *tgbotapi.BotAPI satisfies it; tests inject fakes.
type TelegramAPI interface {
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// DiscordSender posts plain messages to Discord channels.
type DiscordSender interface {
	SendMessage(ctx context.Context, channelID, content string) error
}

var _ TelegramAPI = (*tgbotapi.BotAPI)(nil)

// Connect creates a Bot API client and verifies the token with getMe.
func Connect(cfg *Config) (*tgbotapi.BotAPI, error) {
	if cfg.Token == "" {
		return nil, errors.New("telegram token is not set")
	}
	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = DefaultAPIEndpoint
	}
	client := &http.Client{Timeout: cfg.HTTPTimeout()}
	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	return bot, nil
}

// telegramSender wraps outbound Bot API calls with a rate limiter and a
// plain-text retry when Telegram rejects the markup.
type telegramSender struct {
	api     TelegramAPI
	limiter *rate.Limiter
	log     zerolog.Logger
}

func newTelegramSender(api TelegramAPI, cfg *Config, log zerolog.Logger) *telegramSender {
	limit := rate.Limit(cfg.SendRate)
	if cfg.SendRate <= 0 {
		limit = rate.Inf
	}
	burst := max(cfg.SendBurst, 1)
	return &telegramSender{
		api:     api,
		limiter: rate.NewLimiter(limit, burst),
		log:     log.With().Str("component", "tg_sender").Logger(),
	}
}

// Send delivers c, waiting for the limiter first. A message whose markup
// fails to parse is resent once without a parse mode.
func (s *telegramSender) Send(ctx context.Context, c tgbotapi.Chattable) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("failed to wait for send slot: %w", err)
	}
	_, err := s.api.Send(c)
	if err == nil {
		return nil
	}
	if !isMarkupError(err) {
		return err
	}
	plain, ok := withoutParseMode(c)
	if !ok {
		return err
	}
	s.log.Debug().Err(err).Msg("Telegram rejected markup, resending as plain text")
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("failed to wait for send slot: %w", err)
	}
	if _, err := s.api.Send(plain); err != nil {
		return fmt.Errorf("failed to send plain text fallback: %w", err)
	}
	return nil
}

// LatestUpdateID asks Telegram for the newest pending update. It returns 0
// when the queue is empty.
func (s *telegramSender) LatestUpdateID(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	updates, err := s.api.GetUpdates(tgbotapi.UpdateConfig{Offset: -1, Limit: 1})
	if err != nil {
		return 0, fmt.Errorf("failed to fetch latest update: %w", err)
	}
	var latest int64
	for _, upd := range updates {
		latest = max(latest, int64(upd.UpdateID))
	}
	return latest, nil
}

func isMarkupError(err error) bool {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusBadRequest &&
			strings.Contains(strings.ToLower(apiErr.Message), "can't parse entities")
	}
	return false
}

// withoutParseMode returns a copy of c with its parse mode cleared.
func withoutParseMode(c tgbotapi.Chattable) (tgbotapi.Chattable, bool) {
	switch cfg := c.(type) {
	case tgbotapi.MessageConfig:
		cfg.ParseMode = ""
		return cfg, true
	case tgbotapi.PhotoConfig:
		cfg.ParseMode = ""
		return cfg, true
	case tgbotapi.VideoConfig:
		cfg.ParseMode = ""
		return cfg, true
	case tgbotapi.AudioConfig:
		cfg.ParseMode = ""
		return cfg, true
	case tgbotapi.DocumentConfig:
		cfg.ParseMode = ""
		return cfg, true
	default:
		return nil, false
	}
}
