package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPrepareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prepare",
		Short: "Build the sequence vocabulary, JSON side tables and training windows from a text corpus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := newBuilder()
			if err != nil {
				return err
			}

			rep, err := b.PrepareDataset()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printReport(out, rep)
			_, _ = fmt.Fprintf(out, "  %d tokens, vocabulary %d words, %d sequences\n", rep.Tokens, rep.VocabSize, rep.Sequences)

			return nil
		},
	}
}
