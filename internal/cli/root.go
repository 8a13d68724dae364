// Package cli assembles the crawlwave command tree: validate, test, run,
// rm and page-rank, the five subcommands lib-lopez/src/lib.rs's main!
// macro generates, wired here over cobra the way rohmanhakim-docs-crawler
// and masahif-linktadoru build their crawler CLIs (a root command carrying
// persistent flags, one cobra.Command per verb, config resolved once via
// internal/config before any subcommand body runs).
package cli

import (
	"github.com/spf13/cobra"

	"github.com/codepr/crawlwave/internal/config"
	"github.com/codepr/crawlwave/internal/logging"
)

// NewRootCmd builds the crawlwave command tree. version is embedded in the
// --version output.
func NewRootCmd(version string) *cobra.Command {
	var configFile string
	cfg := &config.Config{}

	root := &cobra.Command{
		Use:          "crawlwave",
		Short:        "A polite, resumable web crawler driven by directive modules",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(configFile)
			if err != nil {
				return err
			}
			*cfg = *loaded

			flags := cmd.Flags()
			if v, _ := flags.GetString("import-path"); flags.Changed("import-path") {
				cfg.ImportPath = v
			}
			if v, _ := flags.GetBool("verbose"); flags.Changed("verbose") {
				cfg.Verbose = v
			}
			if v, _ := flags.GetString("backend"); flags.Changed("backend") {
				cfg.Backend = v
			}
			if v, _ := flags.GetString("db-path"); flags.Changed("db-path") {
				cfg.DBPath = v
			}

			logging.Configure(cfg.Verbose)
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "optional config file (toml/yaml/json)")
	flags.String("import-path", "", "root directory `root/...`-relative directive imports resolve against")
	flags.Bool("verbose", false, "enable debug-level logging")
	flags.String("backend", "sqlite", "storage backend: bbolt or sqlite")
	flags.String("db-path", "crawlwave.db", "path to the storage backend's database file")

	root.AddCommand(
		newValidateCmd(cfg),
		newTestCmd(cfg),
		newRunCmd(cfg),
		newRmCmd(cfg),
		newPageRankCmd(cfg),
	)
	return root
}
