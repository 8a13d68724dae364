package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codepr/crawlwave/internal/config"
	"github.com/codepr/crawlwave/internal/directives"
)

func newValidateCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <source>",
		Short: "Parse and type-check a directive module without crawling",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := directives.Load(args[0], cfg.ImportPath)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}
