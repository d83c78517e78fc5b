// Copyright 2024-2026 Aiku AI

package config

import (
	"errors"
	"io/fs"
	"os"

	up "go.mau.fi/util/configupgrade"

	"github.com/aiku/khanterbridge/pkg/connector"
)

func upgradeConfig(helper up.Helper) {
	helper.Copy(up.Str, "discord", "token")
	helper.Copy(up.Str, "storage", "directory")
	helper.Copy(up.Str, "http", "listen")
	helper.Copy(up.Str, "http", "ready_marker")
	helper.Copy(up.Str, "http", "admin_token")
	helper.Copy(up.List, "modules", "autoload")
	helper.Copy(up.Map, "logging")
}

// Upgrader merges a user config onto the current example config.
var Upgrader = up.MergeUpgraders(ExampleConfig,
	&up.StructUpgrader{
		SimpleUpgrader: upgradeConfig,
		Blocks: [][]string{
			{"telegram"},
			{"storage"},
			{"http"},
			{"modules"},
			{"logging"},
		},
	},
	&up.ProxyUpgrader{
		Prefix: []string{"telegram"},
		Target: up.SimpleUpgrader(connector.UpgradeConfig),
	},
)

// Upgrade rewrites the config at path so it carries every key of the
// example config while keeping the user's values. Nothing happens when the
// file does not exist.
func Upgrade(path string, save bool) ([]byte, bool, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	return up.Do(path, save, Upgrader)
}
