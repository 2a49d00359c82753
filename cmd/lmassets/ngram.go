package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newNGramCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ngram",
		Short: "Compile unigram and bigram counts into the n-gram vocabulary and bigram tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := newBuilder()
			if err != nil {
				return err
			}

			rep, err := b.CompileNGram()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printReport(out, rep)
			_, _ = fmt.Fprintf(out, "  vocabulary %d words; bigrams dropped %d, filtered %d, truncated %d; malformed lines %d\n",
				rep.VocabSize, rep.Dropped, rep.Filtered, rep.Truncated, rep.Skipped)

			return nil
		},
	}
}
