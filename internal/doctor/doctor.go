// Package doctor verifies a compiled assets directory offline: every file is
// decoded, re-measured against its size formula, compared with the manifest
// and cross-checked against the other artifacts.
package doctor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/example/go-lmassets/internal/artifact"
	"github.com/example/go-lmassets/internal/build"
	"github.com/example/go-lmassets/internal/format"
	"github.com/example/go-lmassets/internal/ngram"
	"github.com/example/go-lmassets/internal/vocab"
	"github.com/example/go-lmassets/internal/weights"
)

// PassMark and FailMark are the prefix symbols printed for each check result.
const (
	PassMark = "✓"
	FailMark = "✗"
)

// Config selects the directory to check.
type Config struct {
	Dir string
	// SequenceLength is the context length of sequences.u32 rows. Zero
	// skips the row-width check.
	SequenceLength int
}

// Result collects the outcome of all checks.
type Result struct {
	failures []string
}

// Failed returns true if any check failed.
func (r *Result) Failed() bool { return len(r.failures) > 0 }

// Failures returns the list of failure messages.
func (r *Result) Failures() []string { return append([]string(nil), r.failures...) }

// AddFailure appends an external failure message to the result.
func (r *Result) AddFailure(msg string) { r.failures = append(r.failures, msg) }

func (r *Result) fail(msg string) { r.failures = append(r.failures, msg) }

// defaultKinds maps the pipeline's file names to artifact kinds, in check order.
var defaultKinds = []struct{ name, kind string }{
	{build.NGramVocabFile, artifact.KindNGramVocab},
	{build.NGramBigramFile, artifact.KindNGramBigram},
	{build.IndexFile, artifact.KindJSON},
	{build.ReverseFile, artifact.KindJSON},
	{build.FreqFile, artifact.KindJSON},
	{build.SequencesFile, artifact.KindSequences},
	{build.LSTMFile, artifact.KindLSTM},
}

// facts are what decoded artifacts report for the cross checks.
type facts struct {
	vocabCount int
	bigrams    []ngram.BigramRecord
	indexLen   int
	lstmVocab  int
	seqMax     int64
	haveVocab  bool
	haveBigram bool
	haveIndex  bool
	haveLSTM   bool
	haveSeq    bool
}

type checker struct {
	cfg   Config
	w     io.Writer
	res   *Result
	facts facts
}

func (c *checker) pass(layout string, args ...any) {
	fmt.Fprintf(c.w, "%s %s\n", PassMark, fmt.Sprintf(layout, args...))
}

func (c *checker) failf(layout string, args ...any) {
	msg := fmt.Sprintf(layout, args...)
	c.res.fail(msg)
	fmt.Fprintf(c.w, "%s %s\n", FailMark, msg)
}

// Run executes all checks and writes human-readable output to w.
// Each check line is prefixed with PassMark or FailMark.
func Run(cfg Config, w io.Writer) Result {
	var res Result

	c := &checker{cfg: cfg, w: w, res: &res}

	manifest, err := artifact.LoadManifest(cfg.Dir)
	if err != nil {
		c.failf("manifest: %v", err)
		return res
	}

	entries := manifest.Artifacts
	if len(entries) == 0 {
		fmt.Fprintf(w, "%s manifest: none, checking default file names\n", PassMark)

		for _, d := range defaultKinds {
			if _, err := os.Stat(filepath.Join(cfg.Dir, d.name)); err == nil {
				entries = append(entries, artifact.Entry{Name: d.name, Kind: d.kind})
			}
		}

		if len(entries) == 0 {
			c.failf("assets in %s: no artifacts found", cfg.Dir)
			return res
		}
	} else {
		c.pass("manifest: %d artifacts, written %s", len(entries), manifest.CreatedAt.Format("2006-01-02 15:04:05Z07:00"))
	}

	for _, e := range entries {
		c.checkEntry(e)
	}

	c.crossCheck()

	return res
}

func (c *checker) checkEntry(e artifact.Entry) {
	path := filepath.Join(c.cfg.Dir, e.Name)

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		c.failf("%s: listed in manifest but missing", e.Name)
		return
	}

	if err != nil {
		c.failf("%s: %v", e.Name, err)
		return
	}

	if e.SHA256 != "" {
		got := artifact.Describe(e.Name, e.Kind, data, 0)
		if got.SHA256 != e.SHA256 || got.Bytes != e.Bytes {
			c.failf("%s: content differs from manifest (sha256 %s…, %d bytes; manifest %s…, %d bytes)",
				e.Name, got.SHA256[:12], got.Bytes, short(e.SHA256), e.Bytes)
			return
		}
	}

	var detail string

	switch e.Kind {
	case artifact.KindNGramVocab:
		detail, err = c.checkVocab(data)
	case artifact.KindNGramBigram:
		detail, err = c.checkBigrams(data)
	case artifact.KindLSTM:
		detail, err = c.checkLSTM(data)
	case artifact.KindSequences:
		detail, err = c.checkSequences(data)
	case artifact.KindJSON:
		detail, err = c.checkJSON(e.Name, data)
	default:
		err = fmt.Errorf("unknown kind %q", e.Kind)
	}

	if err != nil {
		c.failf("%s: %v", e.Name, err)
		return
	}

	c.pass("%s: %s, %d bytes", e.Name, detail, len(data))
}

func short(sum string) string {
	if len(sum) > 12 {
		return sum[:12]
	}

	return sum
}

func (c *checker) checkVocab(data []byte) (string, error) {
	records, err := ngram.DecodeVocab(format.NGram, data)
	if err != nil {
		return "", err
	}

	entries := make([]vocab.Entry, len(records))
	for i, r := range records {
		entries[i] = vocab.Entry{Word: r.Word}
	}

	if err := artifact.Verify(build.NGramVocabFile, int64(len(data)), ngram.VocabSize(entries)); err != nil {
		return "", err
	}

	c.facts.vocabCount = len(records)
	c.facts.haveVocab = true

	return fmt.Sprintf("%d words", len(records)), nil
}

func (c *checker) checkBigrams(data []byte) (string, error) {
	records, err := ngram.DecodeBigrams(format.NGram, data)
	if err != nil {
		return "", err
	}

	if err := artifact.Verify(build.NGramBigramFile, int64(len(data)), ngram.BigramSize(len(records))); err != nil {
		return "", err
	}

	c.facts.bigrams = records
	c.facts.haveBigram = true

	return fmt.Sprintf("%d bigrams", len(records)), nil
}

func (c *checker) checkLSTM(data []byte) (string, error) {
	d, err := weights.ReadDims(data)
	if err != nil {
		return "", err
	}

	if err := d.Validate(); err != nil {
		return "", err
	}

	if err := artifact.Verify(build.LSTMFile, int64(len(data)), weights.ExpectedSize(d)); err != nil {
		return "", err
	}

	if _, _, err := weights.Decode(data); err != nil {
		return "", err
	}

	c.facts.lstmVocab = d.VocabSize
	c.facts.haveLSTM = true

	return fmt.Sprintf("vocab_size=%d embedding_dim=%d hidden_size=%d sequence_length=%d",
		d.VocabSize, d.EmbeddingDim, d.HiddenSize, d.SequenceLength), nil
}

func (c *checker) checkSequences(data []byte) (string, error) {
	row := 4
	if c.cfg.SequenceLength > 0 {
		row = (c.cfg.SequenceLength + 1) * 4
	}

	if len(data)%row != 0 {
		return "", fmt.Errorf("%d bytes is not a whole number of %d-byte rows", len(data), row)
	}

	dec := format.NewDecoder(data)
	c.facts.seqMax = -1

	for dec.Remaining() > 0 {
		v, err := dec.Uint32()
		if err != nil {
			return "", err
		}

		c.facts.seqMax = max(c.facts.seqMax, int64(v))
	}

	c.facts.haveSeq = true

	if c.cfg.SequenceLength > 0 {
		return fmt.Sprintf("%d sequences", len(data)/row), nil
	}

	return fmt.Sprintf("%d indices", len(data)/4), nil
}

func (c *checker) checkJSON(name string, data []byte) (string, error) {
	if name != build.IndexFile {
		if !json.Valid(data) {
			return "", errors.New("invalid JSON")
		}

		return "valid JSON", nil
	}

	words, err := vocab.ReadIndexJSON(bytes.NewReader(data))
	if err != nil {
		return "", err
	}

	c.facts.indexLen = len(words)
	c.facts.haveIndex = true

	return fmt.Sprintf("%d words", len(words)), nil
}

func (c *checker) crossCheck() {
	f := c.facts

	if f.haveVocab && f.haveBigram {
		bad := 0
		for _, b := range f.bigrams {
			if int(b.Left) >= f.vocabCount || int(b.Right) >= f.vocabCount {
				bad++
			}
		}

		if bad > 0 {
			c.failf("bigram indices: %d of %d reference words beyond the %d-word vocabulary", bad, len(f.bigrams), f.vocabCount)
		} else {
			c.pass("bigram indices: all within the %d-word vocabulary", f.vocabCount)
		}
	}

	if f.haveIndex && f.haveLSTM {
		if f.indexLen != f.lstmVocab {
			c.failf("vocabulary agreement: %s has %d words, %s vocab_size is %d",
				build.IndexFile, f.indexLen, build.LSTMFile, f.lstmVocab)
		} else {
			c.pass("vocabulary agreement: %s matches %s (%d words)", build.IndexFile, build.LSTMFile, f.indexLen)
		}
	}

	if f.haveIndex && f.haveSeq && f.seqMax >= int64(f.indexLen) {
		c.failf("sequence indices: index %d beyond the %d-word vocabulary", f.seqMax, f.indexLen)
	}
}
