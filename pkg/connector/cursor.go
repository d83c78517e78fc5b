// Copyright 2024-2026 Aiku AI

package connector

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aiku/khanterbridge/pkg/kvstore"
)

// CursorStore persists the ID of the last processed Telegram update.
// It does not enforce monotonicity; that is the poller's job.
type CursorStore struct {
	store *kvstore.Store
	log   zerolog.Logger
}

// NewCursorStore creates a cursor store backed by the offset dataset.
func NewCursorStore(store *kvstore.Store, log zerolog.Logger) *CursorStore {
	return &CursorStore{
		store: store,
		log:   log.With().Str("component", "cursor").Logger(),
	}
}

// Get returns the stored cursor, or 0 when none is stored.
func (c *CursorStore) Get() int64 {
	return c.store.LoadInt(offsetDataset)
}

// Set stores the cursor.
func (c *CursorStore) Set(updateID int64) error {
	unlock := c.store.Lock(offsetDataset)
	defer unlock()
	return c.save(updateID)
}

func (c *CursorStore) save(updateID int64) error {
	if err := c.store.SaveInt(offsetDataset, updateID); err != nil {
		return fmt.Errorf("failed to save telegram offset: %w", err)
	}
	return nil
}

// Reset sets the cursor back to 0.
func (c *CursorStore) Reset() error {
	if err := c.Set(0); err != nil {
		return err
	}
	c.log.Info().Msg("Telegram offset reset")
	return nil
}

// advance stores updateID only if it is greater than the stored value and
// reports whether it did.
func (c *CursorStore) advance(updateID int64) (bool, error) {
	unlock := c.store.Lock(offsetDataset)
	defer unlock()
	if updateID <= c.Get() {
		return false, nil
	}
	return true, c.save(updateID)
}
