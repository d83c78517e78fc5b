// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package kvstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Mapping is an insertion-ordered map from string keys to JSON primitive
// values. Order matters to callers that scan values (reverse lookups), so it
// is preserved through Load and Save.
type Mapping struct {
	keys   []string
	values map[string]json.RawMessage
}

// NewMapping returns an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{values: make(map[string]json.RawMessage)}
}

// Len returns the number of keys.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns a copy of the keys in order.
func (m *Mapping) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Has reports whether key is present.
func (m *Mapping) Has(key string) bool {
	if m == nil {
		return false
	}
	_, ok := m.values[key]
	return ok
}

// Get returns the parsed value for key.
func (m *Mapping) Get(key string) (gjson.Result, bool) {
	if m == nil {
		return gjson.Result{}, false
	}
	raw, ok := m.values[key]
	if !ok {
		return gjson.Result{}, false
	}
	return gjson.ParseBytes(raw), true
}

// String returns the value for key as a string. Numbers are rendered in their
// JSON form.
func (m *Mapping) String(key string) (string, bool) {
	res, ok := m.Get(key)
	if !ok {
		return "", false
	}
	return res.String(), true
}

// Int returns the value for key as an integer. Numeric strings are accepted
// since hand-edited files sometimes quote ids.
func (m *Mapping) Int(key string) (int64, bool) {
	res, ok := m.Get(key)
	if !ok {
		return 0, false
	}
	return resultInt(res)
}

func resultInt(res gjson.Result) (int64, bool) {
	switch res.Type {
	case gjson.Number:
		return res.Int(), true
	case gjson.String:
		n, err := strconv.ParseInt(strings.TrimSpace(res.Str), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// Set stores value under key. Existing keys keep their position.
func (m *Mapping) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: key %q: %v", ErrEncodeFailed, key, err)
	}
	m.setRaw(key, raw)
	return nil
}

func (m *Mapping) setRaw(key string, raw json.RawMessage) {
	if m.values == nil {
		m.values = make(map[string]json.RawMessage)
	}
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = raw
}

// Delete removes key and reports whether it was present.
func (m *Mapping) Delete(key string) bool {
	if m == nil {
		return false
	}
	if _, ok := m.values[key]; !ok {
		return false
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
	return true
}

// Range calls fn for every entry in order until fn returns false.
func (m *Mapping) Range(fn func(key string, value gjson.Result) bool) {
	if m == nil {
		return
	}
	for _, k := range m.keys {
		if !fn(k, gjson.ParseBytes(m.values[k])) {
			return
		}
	}
}

// Equal reports whether both mappings hold the same keys in the same order
// with equivalent values.
func (m *Mapping) Equal(other *Mapping) bool {
	if m.Len() != other.Len() {
		return false
	}
	for i, k := range m.Keys() {
		if other.keys[i] != k {
			return false
		}
		if !bytes.Equal(compact(m.values[k]), compact(other.values[k])) {
			return false
		}
	}
	return true
}

func compact(raw json.RawMessage) []byte {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}

// MarshalJSON encodes the mapping as a JSON object in key order.
func (m *Mapping) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(compact(m.values[k]))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping document order. Later
// duplicate keys overwrite the earlier value in place.
func (m *Mapping) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("%w: invalid JSON", ErrDecodeFailed)
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return fmt.Errorf("%w: expected object, got %s", ErrDecodeFailed, doc.Type)
	}
	m.keys = nil
	m.values = make(map[string]json.RawMessage)
	doc.ForEach(func(key, value gjson.Result) bool {
		m.setRaw(key.String(), json.RawMessage(value.Raw))
		return true
	})
	return nil
}
