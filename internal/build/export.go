package build

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"

	"github.com/example/go-lmassets/internal/artifact"
	"github.com/example/go-lmassets/internal/safetensors"
	"github.com/example/go-lmassets/internal/vocab"
	"github.com/example/go-lmassets/internal/weights"
)

// ExportWeights converts a trainer checkpoint into the engine weight file.
// The vocabulary size comes from the configured word_indices.json, which is
// copied next to the weights, or from the embedding rows when none is given.
// Any shape mismatch aborts before a file is written.
func (b *Builder) ExportWeights() (*Report, error) {
	rep := &Report{Stage: "export"}

	set, err := b.loadSet()
	if err != nil {
		return nil, err
	}

	vocabSize, indexData, err := b.vocabSize(set)
	if err != nil {
		return nil, err
	}

	d := weights.Dims{
		VocabSize:      vocabSize,
		EmbeddingDim:   b.cfg.LSTM.EmbeddingDim,
		HiddenSize:     b.cfg.LSTM.HiddenSize,
		SequenceLength: b.cfg.Sequence.Length,
	}

	data, err := weights.Encode(d, set)
	if err != nil {
		return nil, fmt.Errorf("build: export weights: %w", err)
	}

	rep.VocabSize = vocabSize

	b.log.Info("encoded weights",
		slog.String("stage", rep.Stage),
		slog.String("path", b.cfg.Paths.Weights),
		slog.Int("vocab_size", d.VocabSize),
		slog.Int("embedding_dim", d.EmbeddingDim),
		slog.Int("hidden_size", d.HiddenSize),
		slog.Int("bytes", len(data)),
	)

	outs := []output{{LSTMFile, artifact.KindLSTM, data, weights.ExpectedSize(d), d.VocabSize}}
	if indexData != nil {
		outs = append(outs, output{IndexFile, artifact.KindJSON, indexData, int64(len(indexData)), vocabSize})
	}

	if err := b.commit(rep, outs); err != nil {
		return nil, err
	}

	return rep, nil
}

func (b *Builder) loadSet() (*weights.Set, error) {
	if b.cfg.Paths.Weights == "" {
		return nil, fmt.Errorf("build: no weights path configured")
	}

	store, err := safetensors.Open(b.cfg.Paths.Weights, safetensors.Options{
		KeyMapper: safetensors.StripPrefix(b.cfg.LSTM.TensorPrefix),
	})
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	defer store.Close()

	set := &weights.Set{}

	for _, p := range weights.KerasNames.Pairs() {
		t, err := store.Dense(p[1])
		if err != nil {
			return nil, fmt.Errorf("build: %s: %w", p[0], err)
		}

		if err := set.Assign(p[0], t); err != nil {
			return nil, err
		}
	}

	return set, nil
}

func (b *Builder) vocabSize(set *weights.Set) (int, []byte, error) {
	path := b.cfg.Paths.VocabJSON
	if path == "" {
		shape := set.Embedding.Shape()
		if len(shape) != 2 {
			return 0, nil, &weights.ShapeMismatchError{
				Tensor: weights.NameEmbedding,
				Want:   []int64{-1, int64(b.cfg.LSTM.EmbeddingDim)},
				Got:    shape,
			}
		}

		return int(shape[0]), nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, nil, fmt.Errorf("build: read vocabulary: %w", err)
	}

	words, err := vocab.ReadIndexJSON(bytes.NewReader(data))
	if err != nil {
		return 0, nil, fmt.Errorf("build: %s: %w", path, err)
	}

	return len(words), data, nil
}
