package build

import (
	"fmt"
	"log/slog"

	"github.com/example/go-lmassets/internal/artifact"
	"github.com/example/go-lmassets/internal/corpus"
	"github.com/example/go-lmassets/internal/format"
	"github.com/example/go-lmassets/internal/ngram"
	"github.com/example/go-lmassets/internal/vocab"
)

// CompileNGram builds the dictionary vocabulary from unigram counts, selects
// bigrams over it and writes both n-gram artifacts. An empty bigram path
// yields an empty bigram table.
func (b *Builder) CompileNGram() (*Report, error) {
	rep := &Report{Stage: "ngram"}
	cfg := b.cfg.Dictionary

	v, err := b.dictionary(rep)
	if err != nil {
		return nil, err
	}

	candidates, err := b.bigramCandidates(rep)
	if err != nil {
		return nil, err
	}

	sel := ngram.SelectBigrams(candidates, v, cfg.MaxBigrams)
	rep.Dropped = sel.Dropped
	rep.Truncated = sel.Truncated

	b.log.Info("selected bigrams",
		slog.String("stage", rep.Stage),
		slog.Int("count", len(sel.Bigrams)),
		slog.Int("dropped", sel.Dropped),
		slog.Int("truncated", sel.Truncated),
		slog.Int("filtered", rep.Filtered),
	)

	entries := v.Entries()

	vocabData, err := ngram.EncodeVocab(format.NGram, entries)
	if err != nil {
		return nil, fmt.Errorf("build: encode vocabulary: %w", err)
	}

	bigramData, err := ngram.EncodeBigrams(format.NGram, sel.Bigrams)
	if err != nil {
		return nil, fmt.Errorf("build: encode bigrams: %w", err)
	}

	err = b.commit(rep, []output{
		{NGramVocabFile, artifact.KindNGramVocab, vocabData, ngram.VocabSize(entries), len(entries)},
		{NGramBigramFile, artifact.KindNGramBigram, bigramData, ngram.BigramSize(len(sel.Bigrams)), len(sel.Bigrams)},
	})
	if err != nil {
		return nil, err
	}

	return rep, nil
}

func (b *Builder) dictionary(rep *Report) (*vocab.Vocabulary, error) {
	cfg := b.cfg.Dictionary

	f, err := openInput("unigrams", b.cfg.Paths.Unigrams)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	counts, st, err := corpus.ReadUnigrams(f, cfg.MaxWordLen)
	if err != nil {
		return nil, fmt.Errorf("build: read unigrams: %w", err)
	}

	rep.Lines += st.Lines
	rep.Skipped += st.Skipped

	v, err := vocab.Build(counts, vocab.Options{
		MaxSize:      cfg.MaxSize,
		MinFrequency: cfg.MinFrequency,
		Variant:      vocab.Dictionary,
	})
	if err != nil {
		return nil, fmt.Errorf("build: dictionary: %w", err)
	}

	rep.VocabSize = v.Len()

	b.log.Info("built dictionary",
		slog.String("stage", rep.Stage),
		slog.String("path", b.cfg.Paths.Unigrams),
		slog.Int("count", v.Len()),
		slog.Int("skipped", st.Skipped),
	)

	return v, nil
}

func (b *Builder) bigramCandidates(rep *Report) ([]ngram.Candidate, error) {
	if b.cfg.Paths.Bigrams == "" {
		b.log.Warn("no bigram file configured, writing an empty bigram table", slog.String("stage", rep.Stage))
		return nil, nil
	}

	f, err := openInput("bigrams", b.cfg.Paths.Bigrams)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pairs, st, err := corpus.ReadBigrams(f)
	if err != nil {
		return nil, fmt.Errorf("build: read bigrams: %w", err)
	}

	rep.Lines += st.Lines
	rep.Skipped += st.Skipped

	out := make([]ngram.Candidate, 0, len(pairs))

	for _, p := range pairs {
		if p.Count < b.cfg.Dictionary.MinBigramFrequency {
			rep.Filtered++
			continue
		}

		out = append(out, ngram.Candidate{Left: p.Left, Right: p.Right, Frequency: p.Count})
	}

	return out, nil
}
