// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package connector implements the Discord-Telegram bridge.
//
// Discord delivers messages to the bot through its gateway; Telegram is
// polled. A bridge maps one Discord channel to one Telegram chat and is
// stored in the bridges dataset of a [kvstore.Store], next to the alias
// table and the Telegram update cursor. Every lookup re-reads the dataset,
// so changes made by commands, the admin API or an operator editing the
// files apply on the next message or tick.
//
// # Core Types
//
// [TelegramBridge] is the "Telegram" bot module. It relays Discord messages
// to Telegram and executes the !bridge and !set commands.
//
// [Poller] fetches Telegram updates after the stored cursor on a fixed
// interval. The cursor advances after every update whether or not it was
// delivered, which gives at-least-once delivery across restarts.
//
// [BridgeRegistry], [AliasResolver] and [CursorStore] are thin views over
// the datasets.
//
// # Sub-packages
//
//   - discordfmt converts Discord messages to Telegram text and classifies
//     attachments.
//   - telegramfmt converts Telegram messages to Discord text.
package connector
