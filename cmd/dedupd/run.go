// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/bibliodedup/core/internal/dedup"
	"github.com/bibliodedup/core/internal/formatmap"
	"github.com/bibliodedup/core/internal/logging"
	"github.com/bibliodedup/core/internal/store"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Sweep records needing dedup through the engine, worker-pool style",
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

			if cfg.Metrics.Enabled {
				serveMetrics(cfg.Metrics.Addr)
			}

			mapper := formatmap.NewStaticMapper(cfg.Engine.FormatMap)
			engine := dedup.New(st, mapper)

			ctx := cmd.Context()
			ids, err := st.RecordIDsNeedingDedup(ctx)
			if err != nil {
				return fmt.Errorf("dedupd: list records needing dedup: %w", err)
			}
			logging.Info().Int("count", len(ids)).Msg("dedupd: sweep starting")

			return runWorkerPool(ctx, ids, cfg.Engine.Workers, func(id string) {
				recCtx := logging.ContextWithNewCorrelationID(ctx)
				r, err := st.FindOneRecord(recCtx, id)
				if err != nil {
					logging.CtxErr(recCtx, err).Str("record", id).Msg("dedupd: failed to load record")
					return
				}
				if _, err := engine.DedupRecord(recCtx, r); err != nil {
					logging.CtxErr(recCtx, err).Str("record", id).Msg("dedupd: dedup failed")
				}
			})
		},
	}
}

// runWorkerPool partitions ids across n workers: multiple workers call
// dedup(R) concurrently for different subject records, and a single
// dedup(R) call is internally sequential.
func runWorkerPool(ctx context.Context, ids []string, n int, process func(id string)) error {
	if n <= 0 {
		n = 1
	}
	work := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range work {
				select {
				case <-ctx.Done():
					return
				default:
					process(id)
				}
			}
		}()
	}
	for _, id := range ids {
		select {
		case work <- id:
		case <-ctx.Done():
			close(work)
			wg.Wait()
			return ctx.Err()
		}
	}
	close(work)
	wg.Wait()
	return nil
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logging.Warn().Err(err).Str("addr", addr).Msg("dedupd: metrics server stopped")
		}
	}()
}
