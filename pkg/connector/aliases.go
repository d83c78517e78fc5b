// Copyright 2024-2026 Aiku AI

package connector

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aiku/khanterbridge/pkg/kvstore"
)

// AliasResolver maps human-friendly names to Discord channel IDs. Aliases
// only ever apply to the Discord side of a bridge.
type AliasResolver struct {
	store *kvstore.Store
	log   zerolog.Logger
}

// NewAliasResolver creates a resolver backed by the aliases dataset.
func NewAliasResolver(store *kvstore.Store, log zerolog.Logger) *AliasResolver {
	return &AliasResolver{
		store: store,
		log:   log.With().Str("component", "aliases").Logger(),
	}
}

// Resolve returns the channel ID an alias points to, or id itself when it
// is not an alias. The table is re-read on every call.
func (a *AliasResolver) Resolve(id string) string {
	target, ok := a.store.Load(aliasesDataset).String(id)
	if !ok || target == "" {
		return id
	}
	return target
}

// Set creates or replaces an alias and persists it.
func (a *AliasResolver) Set(alias, target string) error {
	unlock := a.store.Lock(aliasesDataset)
	defer unlock()

	m := a.store.Load(aliasesDataset)
	if err := m.Set(alias, target); err != nil {
		return err
	}
	if err := a.store.Save(aliasesDataset, m); err != nil {
		return fmt.Errorf("failed to save alias %q: %w", alias, err)
	}
	a.log.Info().Str("alias", alias).Str("channel_id", target).Msg("Alias set")
	return nil
}

// List returns a snapshot of every alias.
func (a *AliasResolver) List() *kvstore.Mapping {
	return a.store.Load(aliasesDataset)
}
