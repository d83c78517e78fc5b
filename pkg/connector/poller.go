// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package connector

import (
	"context"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// UpdateHandler processes a single Telegram update.
type UpdateHandler func(ctx context.Context, upd tgbotapi.Update)

// Poller periodically fetches Telegram updates after the stored cursor and
// hands them to an UpdateHandler in order. Ticks run on a single goroutine
// and never overlap, with each other or with Exclusive callers.
//
// A Poller starts at most once. After Stop it cannot be restarted.
type Poller struct {
	api      TelegramAPI
	cursor   *CursorStore
	handle   UpdateHandler
	interval time.Duration
	timeout  int
	log      zerolog.Logger

	// tickMu is held for the whole of a tick.
	tickMu sync.Mutex

	startOnce sync.Once
	mu        sync.Mutex
	stopped   bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewPoller creates an idle poller. timeout is the getUpdates long-poll
// timeout in seconds.
func NewPoller(api TelegramAPI, cursor *CursorStore, handle UpdateHandler, interval time.Duration, timeout int, log zerolog.Logger) *Poller {
	if interval <= 0 {
		interval = defaultPollInterval * time.Second
	}
	return &Poller{
		api:      api,
		cursor:   cursor,
		handle:   handle,
		interval: interval,
		timeout:  max(timeout, 0),
		log:      log.With().Str("component", "tg_poller").Logger(),
	}
}

// Start launches the poll loop. Only the first call on a poller that has not
// been stopped has an effect; it reports whether this call started the loop.
func (p *Poller) Start(ctx context.Context) bool {
	started := false
	p.startOnce.Do(func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.stopped {
			return
		}
		ctx, p.cancel = context.WithCancel(ctx)
		p.done = make(chan struct{})
		started = true
		go p.run(ctx)
	})
	return started
}

// Stop cancels the poll loop and waits for the current tick to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	p.stopped = true
	cancel, done := p.cancel, p.done
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the loop is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil && !p.stopped
}

// Exclusive runs fn while no tick is in flight. Ticks due meanwhile wait for
// fn to return. Telegram rejects concurrent getUpdates calls, so other
// getUpdates callers go through here.
func (p *Poller) Exclusive(fn func()) {
	p.tickMu.Lock()
	defer p.tickMu.Unlock()
	fn()
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)

	p.log.Info().
		Dur("interval", p.interval).
		Int64("offset", p.cursor.Get()).
		Msg("Starting Telegram poller")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info().Msg("Telegram poller stopped")
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

// tick fetches one batch of updates. Errors and panics are logged and end
// the tick; the next tick starts again from the stored cursor.
func (p *Poller) tick(ctx context.Context) {
	p.tickMu.Lock()
	defer p.tickMu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Interface("panic", r).Msg("Recovered from panic in poll tick")
		}
	}()

	offset := p.cursor.Get()
	updates, err := p.api.GetUpdates(tgbotapi.UpdateConfig{
		Offset:  int(offset + 1),
		Timeout: p.timeout,
	})
	if err != nil {
		p.log.Warn().Err(err).Int64("offset", offset).Msg("Failed to fetch Telegram updates")
		return
	}

	for _, upd := range updates {
		if ctx.Err() != nil {
			return
		}
		p.dispatch(ctx, upd)

		advanced, err := p.cursor.advance(int64(upd.UpdateID))
		if err != nil {
			p.log.Error().Err(err).Int("update_id", upd.UpdateID).Msg("Failed to persist Telegram offset")
			continue
		}
		if !advanced {
			p.log.Debug().Int("update_id", upd.UpdateID).Msg("Update at or below stored offset")
		}
	}
}

func (p *Poller) dispatch(ctx context.Context, upd tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().
				Interface("panic", r).
				Int("update_id", upd.UpdateID).
				Msg("Recovered from panic while handling update")
		}
	}()
	p.handle(ctx, upd)
}
