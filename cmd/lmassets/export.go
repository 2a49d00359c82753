package main

import (
	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Convert trained recurrent model weights into the engine weight file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := newBuilder()
			if err != nil {
				return err
			}

			rep, err := b.ExportWeights()
			if err != nil {
				return err
			}

			printReport(cmd.OutOrStdout(), rep)

			return nil
		},
	}
}
