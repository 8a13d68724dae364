package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codepr/crawlwave/internal/config"
)

func newRmCmd(cfg *config.Config) *cobra.Command {
	var ignoreMissing bool

	cmd := &cobra.Command{
		Use:   "rm <wave>",
		Short: "Delete a wave's durable state entirely",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			waveName := args[0]
			ctx := cmd.Context()

			backend, err := openBackend(ctx, cfg, waveName)
			if err != nil {
				return err
			}
			defer backend.Close()

			report, err := backend.Remove(ctx)
			if err != nil {
				return err
			}
			if !report.WasRemoved && !ignoreMissing {
				return fmt.Errorf("cli: wave %q does not exist", waveName)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d page(s) from wave %q\n", report.RemovedPages, waveName)
			return nil
		},
	}
	cmd.Flags().BoolVar(&ignoreMissing, "ignore", false, "do not fail if the wave does not exist")
	return cmd
}
