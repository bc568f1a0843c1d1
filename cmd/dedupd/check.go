// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bibliodedup/core/internal/dedup"
	"github.com/bibliodedup/core/internal/formatmap"
	"github.com/bibliodedup/core/internal/logging"
	"github.com/bibliodedup/core/internal/store"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify dedup-group back-link invariants and report repairs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			st, err := store.New(store.Config{
				Path:         cfg.Store.Path,
				Threads:      cfg.Store.Threads,
				QueryTimeout: cfg.Store.QueryTimeout,
			})
			if err != nil {
				return fmt.Errorf("dedupd: open store: %w", err)
			}
			defer func() { _ = st.Close() }()

			mapper := formatmap.NewStaticMapper(cfg.Engine.FormatMap)
			engine := dedup.New(st, mapper)

			ctx := cmd.Context()
			groupIDs, err := st.LiveGroupIDs(ctx)
			if err != nil {
				return fmt.Errorf("dedupd: list live groups: %w", err)
			}

			total := 0
			for _, id := range groupIDs {
				g, err := st.FindOneGroup(ctx, id)
				if err != nil {
					logging.Error().Err(err).Str("group", id).Msg("dedupd: failed to load group")
					continue
				}
				repairs, err := engine.CheckDedupRecord(ctx, g)
				if err != nil {
					logging.Error().Err(err).Str("group", id).Msg("dedupd: check failed")
					continue
				}
				for _, line := range repairs {
					fmt.Println(line)
					total++
				}
			}
			logging.Info().Int("groups", len(groupIDs)).Int("repairs", total).Msg("dedupd: check complete")
			return nil
		},
	}
}
