// SPDX-License-Identifier: AGPL-3.0-or-later

// Command dedupd drives the bibliographic dedup engine: a "run" mode that
// sweeps records needing dedup, and a "check" mode that verifies
// dedup-group invariants.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bibliodedup/core/internal/config"
	"github.com/bibliodedup/core/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "dedupd",
		Short: "Bibliographic record dedup engine",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if configPath != "" {
			if err := os.Setenv(config.ConfigPathEnvVar, configPath); err != nil {
				return err
			}
		}
		return nil
	}

	root.AddCommand(newRunCmd(), newCheckCmd())
	return root
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("dedupd: load config: %w", err)
	}
	logging.Init(logging.Config{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		Caller:    cfg.Log.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})
	return cfg, nil
}
