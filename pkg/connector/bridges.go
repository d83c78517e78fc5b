// Copyright 2024-2026 Aiku AI

package connector

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/aiku/khanterbridge/pkg/kvstore"
)

// BridgeRegistry stores the Discord channel -> Telegram chat mapping. Every
// call re-reads the dataset so edits made by commands, the admin API or an
// operator are seen without invalidation.
type BridgeRegistry struct {
	store *kvstore.Store
	log   zerolog.Logger
}

// NewBridgeRegistry creates a registry backed by the bridges dataset.
func NewBridgeRegistry(store *kvstore.Store, log zerolog.Logger) *BridgeRegistry {
	return &BridgeRegistry{
		store: store,
		log:   log.With().Str("component", "bridges").Logger(),
	}
}

// Add creates or replaces the bridge for a Discord channel.
func (b *BridgeRegistry) Add(channelID string, chatID int64) error {
	unlock := b.store.Lock(bridgesDataset)
	defer unlock()

	m := b.store.Load(bridgesDataset)
	if err := m.Set(channelID, chatID); err != nil {
		return err
	}
	if err := b.store.Save(bridgesDataset, m); err != nil {
		return fmt.Errorf("failed to save bridge for %s: %w", channelID, err)
	}
	b.log.Info().Str("channel_id", channelID).Int64("chat_id", chatID).Msg("Bridge added")
	return nil
}

// Remove deletes the bridge for a Discord channel. Removing a channel that
// is not bridged is not an error.
func (b *BridgeRegistry) Remove(channelID string) error {
	unlock := b.store.Lock(bridgesDataset)
	defer unlock()

	m := b.store.Load(bridgesDataset)
	if !m.Delete(channelID) {
		return nil
	}
	if err := b.store.Save(bridgesDataset, m); err != nil {
		return fmt.Errorf("failed to remove bridge for %s: %w", channelID, err)
	}
	b.log.Info().Str("channel_id", channelID).Msg("Bridge removed")
	return nil
}

// ForwardLookup returns the Telegram chat bridged to a Discord channel.
func (b *BridgeRegistry) ForwardLookup(channelID string) (int64, bool) {
	return b.store.Load(bridgesDataset).Int(channelID)
}

// ReverseLookup returns the first Discord channel, in stored order, that is
// bridged to chatID.
func (b *BridgeRegistry) ReverseLookup(chatID int64) (string, bool) {
	channels := b.reverse(chatID, true)
	if len(channels) == 0 {
		return "", false
	}
	return channels[0], true
}

// ReverseLookupAll returns every Discord channel bridged to chatID in stored
// order.
func (b *BridgeRegistry) ReverseLookupAll(chatID int64) []string {
	return b.reverse(chatID, false)
}

func (b *BridgeRegistry) reverse(chatID int64, firstOnly bool) []string {
	var channels []string
	b.store.Load(bridgesDataset).Range(func(key string, value gjson.Result) bool {
		if id, ok := resultChatID(value); ok && id == chatID {
			channels = append(channels, key)
			return !firstOnly
		}
		return true
	})
	return channels
}

// List returns a snapshot of every bridge.
func (b *BridgeRegistry) List() *kvstore.Mapping {
	return b.store.Load(bridgesDataset)
}

// resultChatID accepts numbers and numeric strings, since hand-edited files
// sometimes quote chat IDs.
func resultChatID(value gjson.Result) (int64, bool) {
	switch value.Type {
	case gjson.Number:
		return value.Int(), true
	case gjson.String:
		id, err := ParseTelegramChatID(value.Str)
		return id, err == nil
	default:
		return 0, false
	}
}
