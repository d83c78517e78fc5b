// Copyright 2024-2026 Aiku AI

package modules

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

type registration struct {
	name    string
	factory Factory
}

type loadedModule struct {
	name   string
	module Module
}

// Registry owns the module lifecycle. Factories are registered at startup;
// modules are then loaded and unloaded by name, which matches
// case-insensitively and is reported in its registered form.
type Registry struct {
	deps Deps
	log  zerolog.Logger

	// lifecycleMu serialises Load and Unload so a module is never
	// constructed twice.
	lifecycleMu sync.Mutex

	mu        sync.RWMutex
	factories map[string]registration
	loaded    []loadedModule
}

// NewRegistry creates an empty registry. deps is handed to every factory.
func NewRegistry(deps Deps, log zerolog.Logger) *Registry {
	return &Registry{
		deps:      deps,
		log:       log.With().Str("component", "modules").Logger(),
		factories: make(map[string]registration),
	}
}

// Register adds a factory under name. Registering a name twice replaces the
// earlier factory.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(name)
	if _, exists := r.factories[key]; exists {
		r.log.Warn().Str("module", name).Msg("Module registered twice, replacing factory")
	}
	r.factories[key] = registration{name: name, factory: factory}
}

// Canonical returns the registered form of name.
func (r *Registry) Canonical(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.factories[strings.ToLower(name)]
	return reg.name, ok
}

// Load constructs and initialises the named module. Loading a module that is
// already loaded does nothing. A module whose construction or Init fails is
// not registered.
func (r *Registry) Load(ctx context.Context, name string) error {
	r.lifecycleMu.Lock()
	defer r.lifecycleMu.Unlock()

	r.mu.RLock()
	reg, ok := r.factories[strings.ToLower(name)]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownModule, name)
	}
	if r.IsLoaded(reg.name) {
		return nil
	}

	log := r.log.With().Str("module", reg.name).Logger()
	deps := r.deps
	deps.Log = log

	mod, err := construct(reg.factory, deps)
	if err != nil {
		return fmt.Errorf("failed to construct module %s: %w", reg.name, err)
	}
	if initer, ok := mod.(Initializer); ok {
		if err := safeCall(func() error { return initer.Init(ctx) }); err != nil {
			r.shutdown(ctx, reg.name, mod)
			return fmt.Errorf("failed to initialize module %s: %w", reg.name, err)
		}
	}

	r.mu.Lock()
	r.loaded = append(r.loaded, loadedModule{name: reg.name, module: mod})
	r.mu.Unlock()
	log.Info().Msg("Module loaded")
	return nil
}

// Unload shuts the named module down and removes it. Shutdown errors are
// logged; the module is removed regardless.
func (r *Registry) Unload(ctx context.Context, name string) error {
	r.lifecycleMu.Lock()
	defer r.lifecycleMu.Unlock()
	return r.unloadLocked(ctx, name)
}

func (r *Registry) unloadLocked(ctx context.Context, name string) error {
	r.mu.Lock()
	idx := slices.IndexFunc(r.loaded, func(lm loadedModule) bool {
		return strings.EqualFold(lm.name, name)
	})
	if idx < 0 {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotLoaded, name)
	}
	lm := r.loaded[idx]
	r.loaded = slices.Delete(r.loaded, idx, idx+1)
	r.mu.Unlock()

	r.shutdown(ctx, lm.name, lm.module)
	r.log.Info().Str("module", lm.name).Msg("Module unloaded")
	return nil
}

// UnloadAll unloads every module in reverse load order and returns their
// names in the order they were unloaded.
func (r *Registry) UnloadAll(ctx context.Context) []string {
	r.lifecycleMu.Lock()
	defer r.lifecycleMu.Unlock()

	names := r.ListLoaded()
	slices.Reverse(names)
	for _, name := range names {
		if err := r.unloadLocked(ctx, name); err != nil {
			r.log.Warn().Err(err).Str("module", name).Msg("Failed to unload module")
		}
	}
	return names
}

// Dispatch delivers msg to every loaded module in load order. A module that
// fails or panics is logged and does not stop delivery to the others.
func (r *Registry) Dispatch(ctx context.Context, msg *discordgo.Message) {
	if msg == nil {
		return
	}
	r.mu.RLock()
	snapshot := slices.Clone(r.loaded)
	r.mu.RUnlock()

	for _, lm := range snapshot {
		err := safeCall(func() error { return lm.module.Handle(ctx, msg) })
		if err != nil {
			r.log.Error().Err(err).
				Str("module", lm.name).
				Str("channel_id", msg.ChannelID).
				Str("message_id", msg.ID).
				Msg("Module failed to handle message")
		}
	}
}

// IsLoaded reports whether the named module is loaded.
func (r *Registry) IsLoaded(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.ContainsFunc(r.loaded, func(lm loadedModule) bool {
		return strings.EqualFold(lm.name, name)
	})
}

// ListLoaded returns the loaded module names in load order.
func (r *Registry) ListLoaded() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.loaded))
	for i, lm := range r.loaded {
		names[i] = lm.name
	}
	return names
}

// ListAvailable returns the registered modules that are not loaded, sorted.
func (r *Registry) ListAvailable() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var names []string
	for _, reg := range r.factories {
		loaded := slices.ContainsFunc(r.loaded, func(lm loadedModule) bool {
			return lm.name == reg.name
		})
		if !loaded {
			names = append(names, reg.name)
		}
	}
	slices.Sort(names)
	return names
}

func (r *Registry) shutdown(ctx context.Context, name string, mod Module) {
	sd, ok := mod.(Shutdowner)
	if !ok {
		return
	}
	if err := safeCall(func() error { return sd.Shutdown(ctx) }); err != nil {
		r.log.Error().Err(err).Str("module", name).Msg("Module shutdown failed")
	}
}

func construct(factory Factory, deps Deps) (mod Module, err error) {
	err = safeCall(func() error {
		mod, err = factory(deps)
		return err
	})
	if err == nil && mod == nil {
		err = errors.New("factory returned no module")
	}
	return mod, err
}

// safeCall runs fn and turns a panic into an error.
func safeCall(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn()
}
