// Package testutil provides fixture writers shared by pipeline, doctor and
// CLI tests.
//
// Typical usage:
//
//	func TestExport(t *testing.T) {
//	    dir := t.TempDir()
//	    d := weights.Dims{VocabSize: 6, EmbeddingDim: 3, HiddenSize: 2, SequenceLength: 5}
//	    testutil.WriteTrainerWeights(t, filepath.Join(dir, "w.safetensors"), "", testutil.TrainerSet(t, d))
//	    ...
//	}
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/go-lmassets/internal/safetensors"
	"github.com/example/go-lmassets/internal/tensor"
	"github.com/example/go-lmassets/internal/vocab"
	"github.com/example/go-lmassets/internal/weights"
)

// WriteLines writes lines joined by newlines, creating parent directories.
func WriteLines(tb testing.TB, path string, lines ...string) string {
	tb.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		tb.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}

	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		tb.Fatalf("write %s: %v", path, err)
	}

	return path
}

// Ramp returns a tensor whose i-th element is base+i.
func Ramp(tb testing.TB, base float32, shape ...int64) *tensor.Tensor {
	tb.Helper()

	n := int64(1)
	for _, d := range shape {
		n *= d
	}

	data := make([]float32, n)
	for i := range data {
		data[i] = base + float32(i)
	}

	t, err := tensor.New(data, shape)
	if err != nil {
		tb.Fatalf("tensor.New(%v): %v", shape, err)
	}

	return t
}

// TrainerSet builds a weight set in trainer orientation with distinct
// values per tensor, so transposes and ordering are observable.
func TrainerSet(tb testing.TB, d weights.Dims) *weights.Set {
	tb.Helper()

	v, e, h := int64(d.VocabSize), int64(d.EmbeddingDim), int64(d.HiddenSize)

	return &weights.Set{
		Embedding:     Ramp(tb, 0, v, e),
		GateKernel:    Ramp(tb, 1000, e, 4*h),
		GateRecurrent: Ramp(tb, 2000, h, 4*h),
		GateBias:      Ramp(tb, 3000, 4*h),
		ProjKernel:    Ramp(tb, 4000, h, v),
		ProjBias:      Ramp(tb, 5000, v),
	}
}

// WriteTrainerWeights saves set as a safetensors checkpoint using the Keras
// variable names, each prefixed with prefix. Nil tensors are omitted.
func WriteTrainerWeights(tb testing.TB, path, prefix string, set *weights.Set) string {
	tb.Helper()

	byName := set.Tensors()

	var out []safetensors.Tensor

	for _, p := range weights.KerasNames.Pairs() {
		t := byName[p[0]]
		if t == nil {
			continue
		}

		out = append(out, safetensors.FromDense(prefix+p[1], t))
	}

	if err := safetensors.WriteFile(path, out, map[string]string{"format": "keras"}); err != nil {
		tb.Fatalf("write weights %s: %v", path, err)
	}

	return path
}

// WriteIndexJSON writes a sequence vocabulary side table holding <PAD>,
// <UNK> and words, in that order.
func WriteIndexJSON(tb testing.TB, path string, words ...string) *vocab.Vocabulary {
	tb.Helper()

	v, err := vocab.FromWords(vocab.Sequence, append([]string{vocab.PadToken, vocab.UnkToken}, words...))
	if err != nil {
		tb.Fatalf("vocab.FromWords: %v", err)
	}

	f, err := os.Create(path)
	if err != nil {
		tb.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	if err := vocab.WriteIndexJSON(f, v); err != nil {
		tb.Fatalf("write %s: %v", path, err)
	}

	return v
}
