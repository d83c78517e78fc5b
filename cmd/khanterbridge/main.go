// Copyright 2024-2026 Aiku AI

// Command khanterbridge is a Discord bot that relays messages between
// bridged Discord channels and Telegram chats. Discord events are pushed
// over the gateway, Telegram updates are polled from the Bot API.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/aiku/khanterbridge/pkg/config"
)

// These are filled at build time with -ldflags.
var (
	Tag       = "unknown"
	Commit    = "unknown"
	BuildTime = "unknown"
)

type runOptions struct {
	configPath      string
	generateExample bool
	noUpdate        bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:          "khanterbridge",
		Short:        "Discord and Telegram bridge bot",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.generateExample {
				return writeExampleConfig(opts.configPath)
			}
			return run(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "config.yaml", "Path to the config file.")
	cmd.Flags().BoolVarP(&opts.generateExample, "generate-example-config", "e", false, "Write the example config to the config path and exit.")
	cmd.Flags().BoolVar(&opts.noUpdate, "no-update", false, "Don't add missing keys to the config file on startup.")
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "khanterbridge %s (commit %s, built %s)\n", Tag, Commit, BuildTime)
		},
	}
}

func writeExampleConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("refusing to overwrite existing config %s", path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to check config path: %w", err)
	}
	if err := os.WriteFile(path, []byte(config.ExampleConfig), 0o600); err != nil {
		return fmt.Errorf("failed to write example config: %w", err)
	}
	return nil
}
