// Package build drives the asset pipeline: it reads corpus statistics and
// trainer output, runs the codecs and commits the results to the output
// directory under a lock, recording each file in the manifest.
package build

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/example/go-lmassets/internal/artifact"
	"github.com/example/go-lmassets/internal/config"
)

// File names inside the output directory.
const (
	NGramVocabFile  = "ngram_vocab.bin"
	NGramBigramFile = "ngram_bigram.bin"
	LSTMFile        = "lstm_model.bin"
	IndexFile       = "word_indices.json"
	ReverseFile     = "idx_to_word.json"
	FreqFile        = "word_freqs.json"
	SequencesFile   = "sequences.u32"
)

const defaultLockTimeout = 5 * time.Second

type Options struct {
	Logger      *slog.Logger
	Now         func() time.Time
	LockTimeout time.Duration
}

// Builder runs pipeline stages for one configuration.
type Builder struct {
	cfg         config.Config
	log         *slog.Logger
	now         func() time.Time
	lockTimeout time.Duration
}

func New(cfg config.Config, opts Options) *Builder {
	b := &Builder{
		cfg:         cfg,
		log:         opts.Logger,
		now:         opts.Now,
		lockTimeout: opts.LockTimeout,
	}

	if b.log == nil {
		b.log = slog.Default()
	}

	if b.now == nil {
		b.now = time.Now
	}

	if b.lockTimeout <= 0 {
		b.lockTimeout = defaultLockTimeout
	}

	return b
}

// Report summarizes one stage.
type Report struct {
	Stage     string
	OutDir    string
	Artifacts []artifact.Entry

	Lines     int // input lines read
	Skipped   int // malformed input lines
	Filtered  int // bigrams below the minimum count
	Dropped   int // bigrams with a word outside the vocabulary
	Truncated int // bigrams cut by the maximum count
	VocabSize int
	Tokens    int
	Sequences int
}

// output is one file waiting to be committed.
type output struct {
	name    string
	kind    string
	data    []byte
	want    int64
	records int
}

// commit verifies every output, then writes them atomically and updates the
// manifest while holding the output directory lock. A size failure aborts
// before any file is touched.
func (b *Builder) commit(rep *Report, outs []output) error {
	for _, o := range outs {
		if err := artifact.Verify(o.name, int64(len(o.data)), o.want); err != nil {
			return err
		}
	}

	dir := b.cfg.Paths.OutDir

	unlock, err := artifact.LockDir(dir, b.lockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	manifest, err := artifact.LoadManifest(dir)
	if err != nil {
		return err
	}

	for _, o := range outs {
		path := filepath.Join(dir, o.name)
		if err := artifact.WriteFile(path, o.data, o.want); err != nil {
			return err
		}

		entry := artifact.Describe(o.name, o.kind, o.data, o.records)
		manifest.Put(entry)
		rep.Artifacts = append(rep.Artifacts, entry)

		b.log.Info("wrote artifact",
			slog.String("stage", rep.Stage),
			slog.String("path", path),
			slog.Int64("bytes", entry.Bytes),
			slog.Int("count", o.records),
		)
	}

	if err := manifest.Save(dir, b.now()); err != nil {
		return err
	}

	rep.OutDir = dir

	return nil
}

func openInput(kind, path string) (*os.File, error) {
	if path == "" {
		return nil, fmt.Errorf("build: no %s path configured", kind)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("build: open %s: %w", kind, err)
	}

	return f, nil
}
