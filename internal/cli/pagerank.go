package cli

import (
	"github.com/spf13/cobra"

	"github.com/codepr/crawlwave/internal/config"
	"github.com/codepr/crawlwave/internal/storage"
)

func newPageRankCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "page-rank <wave>",
		Short: "Recompute and persist PageRank scores for an already-crawled wave",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			waveName := args[0]
			ctx := cmd.Context()

			backend, err := openBackend(ctx, cfg, waveName)
			if err != nil {
				return err
			}
			defer backend.Close()

			ranker, err := backend.BuildRanker(ctx)
			if err != nil {
				return err
			}
			return storage.PageRank(ctx, ranker)
		},
	}
}
