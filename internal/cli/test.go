package cli

import (
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/codepr/crawlwave/internal/config"
	"github.com/codepr/crawlwave/internal/crawler/worker"
	"github.com/codepr/crawlwave/internal/directives"
	"github.com/codepr/crawlwave/internal/prettyprint"
	"github.com/codepr/crawlwave/internal/storage/dummystore"
)

func newTestCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "test <source> <url>",
		Short: "Run a directive module's pipeline against a single URL without persisting anything",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := directives.Load(args[0], cfg.ImportPath)
			if err != nil {
				return err
			}
			u, err := url.Parse(args[1])
			if err != nil {
				return err
			}

			env := newCrawlEnv(cfg, d)
			w := &worker.Worker{
				ID:             0,
				Downloader:     env.downloader,
				Boundaries:     &d.Boundaries,
				Origins:        env.origins,
				Directives:     d,
				Counter:        env.counter,
				Profile:        cfg.Profile,
				RequestTimeout: time.Duration(d.Variables.AsPositiveFloat(directives.VarRequestTimeout) * float64(time.Second)),
				MaxBodySize:    int64(d.Variables.AsPositiveInt(directives.VarMaxBodySize)),
			}

			wb, err := dummystore.New().BuildWorkerFactory(cmd.Context())
			if err != nil {
				return err
			}
			dummyWorkerBackend, err := wb.Build(cmd.Context())
			if err != nil {
				return err
			}

			report := w.TestRunURL(cmd.Context(), dummyWorkerBackend, u)
			prettyprint.TestRunReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
}
