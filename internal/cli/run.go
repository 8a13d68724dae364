package cli

import (
	"github.com/spf13/cobra"

	"github.com/codepr/crawlwave/internal/config"
	"github.com/codepr/crawlwave/internal/crawler/master"
	"github.com/codepr/crawlwave/internal/directives"
	"github.com/codepr/crawlwave/internal/storage"
)

func newRunCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "run <source> <wave>",
		Short: "Crawl a directive module's seeds to quota, durably, under the given wave name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, waveName := args[0], args[1]
			ctx := cmd.Context()

			d, err := directives.Load(source, cfg.ImportPath)
			if err != nil {
				return err
			}

			backend, err := openBackend(ctx, cfg, waveName)
			if err != nil {
				return err
			}
			defer backend.Close()

			masterBackend, err := backend.BuildMaster(ctx)
			if err != nil {
				return err
			}
			workerFlow, err := backend.BuildWorkerFactory(ctx)
			if err != nil {
				return err
			}
			ranker, err := backend.BuildRanker(ctx)
			if err != nil {
				return err
			}

			schema, err := directives.Schema(d)
			if err != nil {
				return err
			}
			analyses := make([]storage.NamedType, len(schema))
			for i, a := range schema {
				analyses[i] = storage.NamedType{Name: a.Name, Type: a.Type}
			}

			seeds, err := parseSeeds(d.Seeds)
			if err != nil {
				return err
			}

			env := newCrawlEnv(cfg, d)
			m := &master.Master{
				Backend:    masterBackend,
				Ranker:     ranker,
				Workers:    buildWorkers(cfg, d, env),
				WorkerFlow: workerFlow,
				Profile:    cfg.Profile,
				Counter:    env.counter,
			}

			params := master.Parameters{
				Seeds:          seeds,
				Analyses:       analyses,
				Quota:          d.Variables.AsPositiveInt(directives.VarQuota),
				MaxDepth:       d.Variables.AsPositiveInt(directives.VarMaxDepth),
				EnablePageRank: d.Variables.AsBool(directives.VarEnablePageRank),
			}

			return m.Run(ctx, params)
		},
	}
}
