// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package kvstore persists small datasets as individual files inside one
// storage directory.
//
// Each dataset is either an ordered JSON object ([Store.Load], [Store.Save])
// or a single plain-text integer ([Store.LoadInt], [Store.SaveInt]). Reads
// always go back to disk and degrade to an empty value when a file is
// missing or unreadable, so a corrupt dataset never takes the others down.
// Writes replace the file atomically and report failures wrapped in
// [ErrWriteFailed]; callers decide whether to retry.
//
// The store assumes it is the only process writing to its directory.
package kvstore
