// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package kvstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

const (
	defaultDirPerm  = 0o700
	defaultFilePerm = 0o600
)

// Options controls the permissions of created files and directories.
type Options struct {
	DirPerm  os.FileMode
	FilePerm os.FileMode
}

// Store reads and writes datasets inside a single directory.
type Store struct {
	dir  string
	opts Options
	log  zerolog.Logger

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New creates a store rooted at dir. The directory is created lazily on the
// first write.
func New(dir string, log zerolog.Logger) *Store {
	return NewWithOptions(dir, Options{}, log)
}

// NewWithOptions is like New with explicit permissions.
func NewWithOptions(dir string, opts Options, log zerolog.Logger) *Store {
	if opts.DirPerm == 0 {
		opts.DirPerm = defaultDirPerm
	}
	if opts.FilePerm == 0 {
		opts.FilePerm = defaultFilePerm
	}
	return &Store{
		dir:   filepath.Clean(strings.TrimSpace(dir)),
		opts:  opts,
		log:   log.With().Str("component", "kvstore").Logger(),
		locks: make(map[string]*sync.Mutex),
	}
}

// Dir returns the storage directory.
func (s *Store) Dir() string {
	return s.dir
}

// Lock acquires the mutex of a dataset and returns its release function.
// Callers doing load-modify-save cycles hold it across the whole cycle.
func (s *Store) Lock(dataset string) func() {
	s.locksMu.Lock()
	mu, ok := s.locks[dataset]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[dataset] = mu
	}
	s.locksMu.Unlock()
	mu.Lock()
	return mu.Unlock
}

func (s *Store) path(dataset, ext string) (string, error) {
	name := strings.TrimSpace(dataset)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidDataset, dataset)
	}
	return filepath.Join(s.dir, name+ext), nil
}

// Load returns the mapping stored under dataset. Missing, empty or corrupt
// files yield an empty mapping.
func (s *Store) Load(dataset string) *Mapping {
	path, err := s.path(dataset, ".json")
	if err != nil {
		s.log.Warn().Err(err).Msg("Refusing to load dataset")
		return NewMapping()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Warn().Err(err).Str("path", path).Msg("Failed to read dataset, using empty mapping")
		}
		return NewMapping()
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return NewMapping()
	}
	m := NewMapping()
	if err := m.UnmarshalJSON(data); err != nil {
		s.log.Warn().Err(err).Str("path", path).Msg("Failed to decode dataset, using empty mapping")
		return NewMapping()
	}
	return m
}

// Save replaces the dataset with m.
func (s *Store) Save(dataset string, m *Mapping) error {
	path, err := s.path(dataset, ".json")
	if err != nil {
		return err
	}
	if m == nil {
		m = NewMapping()
	}
	raw, err := m.MarshalJSON()
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrEncodeFailed, dataset, err)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "    "); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrEncodeFailed, dataset, err)
	}
	buf.WriteByte('\n')
	return s.writeAtomic(path, buf.Bytes())
}

// LoadInt returns the integer stored under dataset, or 0 when the file is
// missing or does not hold an integer.
func (s *Store) LoadInt(dataset string) int64 {
	path, err := s.path(dataset, ".txt")
	if err != nil {
		s.log.Warn().Err(err).Msg("Refusing to load dataset")
		return 0
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Warn().Err(err).Str("path", path).Msg("Failed to read dataset, using 0")
		}
		return 0
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return 0
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		s.log.Warn().Err(err).Str("path", path).Msg("Failed to parse dataset, using 0")
		return 0
	}
	return n
}

// SaveInt replaces the dataset with the decimal form of n.
func (s *Store) SaveInt(dataset string, n int64) error {
	path, err := s.path(dataset, ".txt")
	if err != nil {
		return err
	}
	return s.writeAtomic(path, []byte(strconv.FormatInt(n, 10)))
}

func (s *Store) writeAtomic(path string, content []byte) error {
	parent := filepath.Dir(path)
	if err := os.MkdirAll(parent, s.opts.DirPerm); err != nil {
		return fmt.Errorf("%w: create dir %s: %v", ErrWriteFailed, parent, err)
	}

	tmp, err := os.CreateTemp(parent, filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("%w: create temp for %s: %v", ErrWriteFailed, path, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("%w: write temp for %s: %v", ErrWriteFailed, path, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("%w: sync temp for %s: %v", ErrWriteFailed, path, err)
	}
	if err := tmp.Chmod(s.opts.FilePerm); err != nil {
		return fmt.Errorf("%w: chmod temp for %s: %v", ErrWriteFailed, path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp for %s: %v", ErrWriteFailed, path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("%w: rename temp for %s: %v", ErrWriteFailed, path, err)
	}

	// Directory sync is best effort.
	if dir, err := os.Open(parent); err == nil {
		_ = dir.Sync()
		_ = dir.Close()
	}
	return nil
}
