package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/go-lmassets/internal/build"
	"github.com/example/go-lmassets/internal/testutil"
	"github.com/example/go-lmassets/internal/weights"
)

var dims = weights.Dims{VocabSize: 6, EmbeddingDim: 3, HiddenSize: 2, SequenceLength: 5}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var out, errOut bytes.Buffer

	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append(args, "--log-level", "error"))

	err := root.Execute()

	return out.String(), errOut.String(), err
}

type fixture struct {
	src    string
	outDir string
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	src := t.TempDir()
	f := fixture{src: src, outDir: filepath.Join(t.TempDir(), "assets")}

	testutil.WriteLines(t, filepath.Join(src, "unigrams.tsv"), "the\t10", "cat\t5", "sat\t2", "bad line")
	testutil.WriteLines(t, filepath.Join(src, "bigrams.tsv"), "the cat\t4", "cat sat\t3", "cat dog\t9")
	testutil.WriteTrainerWeights(t, filepath.Join(src, "w.safetensors"), "", testutil.TrainerSet(t, dims))
	testutil.WriteIndexJSON(t, filepath.Join(src, "word_indices.json"), "the", "cat", "sat", "on")

	return f
}

func (f fixture) ngram(t *testing.T) string {
	t.Helper()

	out, _, err := execute(t, "ngram",
		"--unigrams", filepath.Join(f.src, "unigrams.tsv"),
		"--bigrams", filepath.Join(f.src, "bigrams.tsv"),
		"--out-dir", f.outDir)
	if err != nil {
		t.Fatalf("ngram: %v", err)
	}

	return out
}

func TestNGramCmd_WritesTables(t *testing.T) {
	f := newFixture(t)
	out := f.ngram(t)

	for _, want := range []string{"wrote 2 artifacts", build.NGramVocabFile, build.NGramBigramFile, "vocabulary 3 words", "dropped 1", "malformed lines 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	if _, err := os.Stat(filepath.Join(f.outDir, build.NGramVocabFile)); err != nil {
		t.Fatalf("vocabulary file not written: %v", err)
	}
}

func TestExportThenDoctor(t *testing.T) {
	f := newFixture(t)
	f.ngram(t)

	common := []string{
		"--weights", filepath.Join(f.src, "w.safetensors"),
		"--vocab-json", filepath.Join(f.src, "word_indices.json"),
		"--embedding-dim", "3",
		"--hidden-size", "2",
		"--sequence-length", "5",
		"--out-dir", f.outDir,
	}

	out, _, err := execute(t, append([]string{"export"}, common...)...)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	if !strings.Contains(out, build.LSTMFile) {
		t.Errorf("export output missing %s:\n%s", build.LSTMFile, out)
	}

	out, errOut, err := execute(t, "doctor", "--out-dir", f.outDir, "--sequence-length", "5")
	if err != nil {
		t.Fatalf("doctor: %v\nstdout:\n%s\nstderr:\n%s", err, out, errOut)
	}

	if !strings.Contains(out, "doctor checks passed") {
		t.Errorf("expected pass line:\n%s", out)
	}
}

func TestDoctorCmd_FailsOnEmptyDir(t *testing.T) {
	out, errOut, err := execute(t, "doctor", "--out-dir", t.TempDir())
	if err == nil {
		t.Fatalf("expected doctor failure:\n%s", out)
	}

	if !strings.Contains(errOut, "FAIL:") {
		t.Errorf("expected FAIL lines on stderr, got %q", errOut)
	}
}

func TestPrepareCmd(t *testing.T) {
	corpusDir := t.TempDir()
	testutil.WriteLines(t, filepath.Join(corpusDir, "a.txt"),
		"The cat sat on the mat.",
		"The dog didn't sit on the mat!",
	)

	outDir := filepath.Join(t.TempDir(), "assets")

	out, _, err := execute(t, "prepare", "--corpus", corpusDir, "--out-dir", outDir,
		"--sequence-length", "3", "--sequence-min-frequency", "1")
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}

	if !strings.Contains(out, build.SequencesFile) {
		t.Errorf("prepare output missing %s:\n%s", build.SequencesFile, out)
	}

	for _, name := range []string{build.IndexFile, build.ReverseFile, build.FreqFile, build.SequencesFile} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}
}

func TestInspectCmd(t *testing.T) {
	f := newFixture(t)
	f.ngram(t)

	out, _, err := execute(t, "inspect", filepath.Join(f.outDir, build.NGramVocabFile), "--limit", "2")
	if err != nil {
		t.Fatalf("inspect vocabulary: %v", err)
	}

	for _, want := range []string{"ngram", "table: vocabulary", "records: 3", "the"} {
		if !strings.Contains(out, want) {
			t.Errorf("vocabulary output missing %q:\n%s", want, out)
		}
	}

	if strings.Contains(out, "sat") {
		t.Errorf("--limit 2 should hide the third word:\n%s", out)
	}

	out, _, err = execute(t, "inspect", filepath.Join(f.outDir, build.NGramBigramFile))
	if err != nil {
		t.Fatalf("inspect bigrams: %v", err)
	}

	if !strings.Contains(out, "table: bigrams") || !strings.Contains(out, "records: 2") {
		t.Errorf("unexpected bigram output:\n%s", out)
	}
}

func TestInspect_LSTMAndGarbage(t *testing.T) {
	data, err := weights.Encode(dims, testutil.TrainerSet(t, dims))
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := inspect(&out, data, 5); err != nil {
		t.Fatalf("inspect: %v", err)
	}

	if !strings.Contains(out.String(), "hidden_size: 2") {
		t.Errorf("unexpected output:\n%s", out.String())
	}

	if err := inspect(&out, data[:len(data)-4], 5); err == nil {
		t.Error("expected size mismatch error for truncated weights")
	}

	if err := inspect(&out, []byte("not an asset file"), 5); err == nil {
		t.Error("expected error for unknown magic")
	}
}
