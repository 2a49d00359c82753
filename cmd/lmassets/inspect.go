package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/example/go-lmassets/internal/format"
	"github.com/example/go-lmassets/internal/ngram"
	"github.com/example/go-lmassets/internal/vocab"
	"github.com/example/go-lmassets/internal/weights"
	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Print the header and leading records of a binary asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			return inspect(cmd.OutOrStdout(), data, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Number of records to print")

	return cmd
}

func inspect(w io.Writer, data []byte, limit int) error {
	limit = max(limit, 0)

	spec, err := format.Sniff(data)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(w, "format: %s\n", spec)
	_, _ = fmt.Fprintf(w, "bytes: %d\n", len(data))

	switch spec.Name {
	case format.NGram.Name:
		return inspectNGram(w, data, limit)
	case format.LSTM.Name:
		return inspectLSTM(w, data)
	default:
		return fmt.Errorf("no inspector for %s", spec)
	}
}

// inspectNGram tells the two n-gram tables apart by which decoding accounts
// for every byte.
func inspectNGram(w io.Writer, data []byte, limit int) error {
	if words, err := ngram.DecodeVocab(format.NGram, data); err == nil && vocabBytes(words) == int64(len(data)) {
		_, _ = fmt.Fprintf(w, "table: vocabulary\nrecords: %d\n", len(words))

		for i, r := range words[:min(limit, len(words))] {
			_, _ = fmt.Fprintf(w, "  %6d  %-20s %5d\n", i, r.Word, r.Frequency)
		}

		return nil
	}

	bigrams, err := ngram.DecodeBigrams(format.NGram, data)
	if err != nil {
		return err
	}

	if ngram.BigramSize(len(bigrams)) != int64(len(data)) {
		return errors.New("file matches neither n-gram table layout")
	}

	_, _ = fmt.Fprintf(w, "table: bigrams\nrecords: %d\n", len(bigrams))

	for _, r := range bigrams[:min(limit, len(bigrams))] {
		_, _ = fmt.Fprintf(w, "  %6d -> %6d  %5d\n", r.Left, r.Right, r.Frequency)
	}

	return nil
}

func vocabBytes(records []ngram.VocabRecord) int64 {
	entries := make([]vocab.Entry, len(records))
	for i, r := range records {
		entries[i].Word = r.Word
	}

	return ngram.VocabSize(entries)
}

func inspectLSTM(w io.Writer, data []byte) error {
	d, err := weights.ReadDims(data)
	if err != nil {
		return err
	}

	want := weights.ExpectedSize(d)

	_, _ = fmt.Fprintf(w, "vocab_size: %d\nembedding_dim: %d\nhidden_size: %d\nsequence_length: %d\n",
		d.VocabSize, d.EmbeddingDim, d.HiddenSize, d.SequenceLength)
	_, _ = fmt.Fprintf(w, "expected bytes: %d\n", want)

	if want != int64(len(data)) {
		return fmt.Errorf("size mismatch: header implies %d bytes, file has %d", want, len(data))
	}

	return nil
}
