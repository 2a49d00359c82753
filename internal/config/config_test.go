package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

// fakeBinder wraps a pflag.FlagSet to satisfy the flagBinder interface.
type fakeBinder struct {
	fs *pflag.FlagSet
}

func (f *fakeBinder) Flags() *pflag.FlagSet { return f.fs }

// newFlagBinder creates a FlagSet with all config flags registered at their defaults.
func newFlagBinder(t *testing.T, defaults Config, args ...string) *fakeBinder {
	t.Helper()

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, defaults)

	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	return &fakeBinder{fs: fs}
}

// chdirTemp moves into an empty directory so no stray lmassets.yaml is found.
func chdirTemp(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })

	return dir
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Dictionary.MaxSize != 50000 {
		t.Errorf("Dictionary.MaxSize = %d; want 50000", cfg.Dictionary.MaxSize)
	}

	if cfg.Dictionary.MaxWordLen != 20 {
		t.Errorf("Dictionary.MaxWordLen = %d; want 20", cfg.Dictionary.MaxWordLen)
	}

	if cfg.Dictionary.MaxBigrams != 200000 {
		t.Errorf("Dictionary.MaxBigrams = %d; want 200000", cfg.Dictionary.MaxBigrams)
	}

	if cfg.Sequence.MaxSize != 20000 || cfg.Sequence.MinFrequency != 5 || cfg.Sequence.Length != 5 {
		t.Errorf("Sequence = %+v; want max 20000, min 5, length 5", cfg.Sequence)
	}

	if cfg.LSTM.EmbeddingDim != 256 || cfg.LSTM.HiddenSize != 256 {
		t.Errorf("LSTM = %+v; want 256/256", cfg.LSTM)
	}

	if cfg.Paths.OutDir != "assets" {
		t.Errorf("Paths.OutDir = %q; want assets", cfg.Paths.OutDir)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q; want info", cfg.LogLevel)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v", err)
	}
}

func TestRegisterFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, DefaultConfig())

	for _, b := range bindings {
		if fs.Lookup(b.flag) == nil {
			t.Errorf("flag --%s for %s not registered", b.flag, b.key)
		}
	}

	if got := fs.Lookup("max-bigrams").DefValue; got != "200000" {
		t.Errorf("--max-bigrams default = %q; want 200000", got)
	}
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)

	defaults := DefaultConfig()

	cfg, err := Load(LoadOptions{Cmd: newFlagBinder(t, defaults), Defaults: defaults})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg != defaults {
		t.Errorf("Load() = %+v; want defaults %+v", cfg, defaults)
	}
}

func TestLoad_FlagOverride(t *testing.T) {
	chdirTemp(t)

	defaults := DefaultConfig()
	binder := newFlagBinder(t, defaults,
		"--out-dir=build/assets",
		"--max-bigrams=10",
		"--sequence-min-frequency=2",
		"--hidden-size=64",
		"--tensor-prefix=model/",
		"--log-level=debug",
	)

	cfg, err := Load(LoadOptions{Cmd: binder, Defaults: defaults})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Paths.OutDir != "build/assets" {
		t.Errorf("Paths.OutDir = %q; want build/assets", cfg.Paths.OutDir)
	}

	if cfg.Dictionary.MaxBigrams != 10 {
		t.Errorf("Dictionary.MaxBigrams = %d; want 10", cfg.Dictionary.MaxBigrams)
	}

	if cfg.Sequence.MinFrequency != 2 {
		t.Errorf("Sequence.MinFrequency = %d; want 2", cfg.Sequence.MinFrequency)
	}

	if cfg.LSTM.HiddenSize != 64 || cfg.LSTM.TensorPrefix != "model/" {
		t.Errorf("LSTM = %+v; want hidden 64, prefix model/", cfg.LSTM)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q; want debug", cfg.LogLevel)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	chdirTemp(t)
	t.Setenv("LMASSETS_LOG_LEVEL", "warn")
	t.Setenv("LMASSETS_PATHS_OUT_DIR", "/tmp/out")
	t.Setenv("LMASSETS_DICTIONARY_MAX_SIZE", "1234")

	cfg, err := Load(LoadOptions{Defaults: DefaultConfig()})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q; want warn", cfg.LogLevel)
	}

	if cfg.Paths.OutDir != "/tmp/out" {
		t.Errorf("Paths.OutDir = %q; want /tmp/out", cfg.Paths.OutDir)
	}

	if cfg.Dictionary.MaxSize != 1234 {
		t.Errorf("Dictionary.MaxSize = %d; want 1234", cfg.Dictionary.MaxSize)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := chdirTemp(t)
	cfgFile := filepath.Join(dir, "custom.yaml")

	content := `
log_level: error
paths:
  out_dir: compiled
dictionary:
  max_size: 3000
sequence:
  text_column: body
lstm:
  embedding_dim: 32
`

	if err := os.WriteFile(cfgFile, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	defaults := DefaultConfig()

	// Unset flags must not shadow config file values; set flags win.
	cfg, err := Load(LoadOptions{
		Cmd:        newFlagBinder(t, defaults, "--embedding-dim=48"),
		ConfigFile: cfgFile,
		Defaults:   defaults,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogLevel != "error" {
		t.Errorf("LogLevel = %q; want error", cfg.LogLevel)
	}

	if cfg.Paths.OutDir != "compiled" {
		t.Errorf("Paths.OutDir = %q; want compiled", cfg.Paths.OutDir)
	}

	if cfg.Dictionary.MaxSize != 3000 {
		t.Errorf("Dictionary.MaxSize = %d; want 3000", cfg.Dictionary.MaxSize)
	}

	if cfg.Sequence.TextColumn != "body" {
		t.Errorf("Sequence.TextColumn = %q; want body", cfg.Sequence.TextColumn)
	}

	if cfg.LSTM.EmbeddingDim != 48 {
		t.Errorf("LSTM.EmbeddingDim = %d; want 48", cfg.LSTM.EmbeddingDim)
	}
}

func TestLoad_DiscoversConfigInWorkingDir(t *testing.T) {
	dir := chdirTemp(t)

	if err := os.WriteFile(filepath.Join(dir, "lmassets.yaml"), []byte("sequence:\n  length: 7\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(LoadOptions{Defaults: DefaultConfig()})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Sequence.Length != 7 {
		t.Errorf("Sequence.Length = %d; want 7", cfg.Sequence.Length)
	}
}

func TestLoad_InvalidConfigFile(t *testing.T) {
	dir := chdirTemp(t)
	cfgFile := filepath.Join(dir, "bad.yaml")

	if err := os.WriteFile(cfgFile, []byte("paths: [unclosed"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := Load(LoadOptions{ConfigFile: cfgFile, Defaults: DefaultConfig()}); err == nil {
		t.Fatal("Load() should fail for invalid YAML")
	}
}

func TestLoad_MissingExplicitConfigFile(t *testing.T) {
	dir := chdirTemp(t)

	_, err := Load(LoadOptions{ConfigFile: filepath.Join(dir, "absent.yaml"), Defaults: DefaultConfig()})
	if err == nil {
		t.Fatal("Load() should fail for a missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"dictionary at index limit", func(c *Config) { c.Dictionary.MaxSize = MaxDictionarySize }, ""},
		{"dictionary beyond index limit", func(c *Config) { c.Dictionary.MaxSize = MaxDictionarySize + 1 }, "dictionary.max_size"},
		{"zero word length", func(c *Config) { c.Dictionary.MaxWordLen = 0 }, "max_word_len"},
		{"negative bigrams", func(c *Config) { c.Dictionary.MaxBigrams = -1 }, "max_bigrams"},
		{"sequence only sentinels", func(c *Config) { c.Sequence.MaxSize = 2 }, "sequence.max_size"},
		{"zero sequence length", func(c *Config) { c.Sequence.Length = 0 }, "sequence.length"},
		{"zero hidden", func(c *Config) { c.LSTM.HiddenSize = 0 }, "lstm dims"},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, "log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v; want nil", err)
				}

				return
			}

			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v; want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"info", slog.LevelInfo},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"Error", slog.LevelError},
	}

	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if err != nil {
			t.Fatalf("ParseLogLevel(%q) error: %v", tt.in, err)
		}

		if got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v; want %v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseLogLevel("verbose"); err == nil {
		t.Error("want error for unknown log level")
	}
}
