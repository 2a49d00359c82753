package build

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"

	"github.com/example/go-lmassets/internal/artifact"
	"github.com/example/go-lmassets/internal/corpus"
	"github.com/example/go-lmassets/internal/format"
	"github.com/example/go-lmassets/internal/vocab"
)

var errEmptyCorpus = errors.New("build: corpus produced no tokens")

// PrepareDataset turns the training corpus into the sequence vocabulary, its
// JSON side tables and the packed training windows.
func (b *Builder) PrepareDataset() (*Report, error) {
	rep := &Report{Stage: "prepare"}
	cfg := b.cfg.Sequence

	if b.cfg.Paths.Corpus == "" {
		return nil, errors.New("build: no corpus path configured")
	}

	text, err := corpus.LoadText(b.cfg.Paths.Corpus, cfg.TextColumn)
	if err != nil {
		return nil, fmt.Errorf("build: load corpus: %w", err)
	}

	tokens := corpus.Tokenize(corpus.Clean(text))
	if len(tokens) == 0 {
		return nil, errEmptyCorpus
	}

	rep.Tokens = len(tokens)

	counts := vocab.NewCounter()
	counts.AddAll(tokens)

	v, err := vocab.Build(counts, vocab.Options{
		MaxSize:      cfg.MaxSize,
		MinFrequency: cfg.MinFrequency,
		Variant:      vocab.Sequence,
	})
	if err != nil {
		return nil, fmt.Errorf("build: sequence vocabulary: %w", err)
	}

	rep.VocabSize = v.Len()

	seqs := vocab.Sequences(tokens, v, cfg.Length)
	rep.Sequences = len(seqs)

	b.log.Info("prepared dataset",
		slog.String("stage", rep.Stage),
		slog.String("path", b.cfg.Paths.Corpus),
		slog.Int("tokens", len(tokens)),
		slog.Int("distinct", counts.Len()),
		slog.Int("count", v.Len()),
		slog.Int("sequences", len(seqs)),
	)

	var outs []output

	for _, t := range []struct {
		name  string
		write func(*bytes.Buffer, *vocab.Vocabulary) error
		n     int
	}{
		{IndexFile, func(w *bytes.Buffer, v *vocab.Vocabulary) error { return vocab.WriteIndexJSON(w, v) }, v.Len()},
		{ReverseFile, func(w *bytes.Buffer, v *vocab.Vocabulary) error { return vocab.WriteReverseJSON(w, v) }, v.Len()},
		{FreqFile, func(w *bytes.Buffer, v *vocab.Vocabulary) error { return vocab.WriteFreqJSON(w, v) }, len(v.Words())},
	} {
		var buf bytes.Buffer
		if err := t.write(&buf, v); err != nil {
			return nil, fmt.Errorf("build: %s: %w", t.name, err)
		}

		outs = append(outs, output{t.name, artifact.KindJSON, buf.Bytes(), int64(buf.Len()), t.n})
	}

	outs = append(outs, output{
		SequencesFile, artifact.KindSequences,
		encodeSequences(seqs, cfg.Length),
		SequencesSize(len(seqs), cfg.Length),
		len(seqs),
	})

	if err := b.commit(rep, outs); err != nil {
		return nil, err
	}

	return rep, nil
}

// SequencesSize is the byte size of n packed windows of length+1 indices.
func SequencesSize(n, length int) int64 {
	return int64(n) * int64(length+1) * 4
}

func encodeSequences(seqs [][]uint32, length int) []byte {
	enc := format.NewEncoder(int(SequencesSize(len(seqs), length)))

	for _, row := range seqs {
		for _, id := range row {
			enc.Uint32(id)
		}
	}

	return enc.Data()
}
