package main

import (
	"testing"

	"github.com/example/go-lmassets/internal/config"
)

func TestNewRootCmd_HasExpectedSubcommands(t *testing.T) {
	root := NewRootCmd()

	want := []string{"ngram", "prepare", "export", "doctor", "inspect"}
	for _, name := range want {
		found := false

		for _, sub := range root.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}

		if !found {
			t.Errorf("expected subcommand %q not found in root", name)
		}
	}
}

func TestNewRootCmd_HasPersistentFlags(t *testing.T) {
	root := NewRootCmd()

	for _, name := range []string{"config", "unigrams", "out-dir", "log-level", "sequence-length"} {
		if root.PersistentFlags().Lookup(name) == nil {
			t.Errorf("expected --%s persistent flag to be registered", name)
		}
	}
}

func TestSetupLogger_DoesNotPanic(_ *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		setupLogger(level)
	}
}

func TestSetupLogger_InvalidLevelFallsBackToInfo(_ *testing.T) {
	setupLogger("not-a-level")
}

func TestRequireConfig(t *testing.T) {
	origCfg, origLoaded := activeCfg, cfgLoaded

	t.Cleanup(func() { activeCfg, cfgLoaded = origCfg, origLoaded })

	cfgLoaded = false

	if _, err := requireConfig(); err == nil {
		t.Fatal("expected error when config is not loaded")
	}

	activeCfg = config.DefaultConfig()
	activeCfg.Paths.OutDir = "/some/assets"
	cfgLoaded = true

	got, err := requireConfig()
	if err != nil {
		t.Fatalf("requireConfig returned unexpected error: %v", err)
	}

	if got.Paths.OutDir != "/some/assets" {
		t.Errorf("unexpected OutDir: %q", got.Paths.OutDir)
	}
}

func TestRoot_RejectsInvalidConfig(t *testing.T) {
	root := NewRootCmd()
	root.SetArgs([]string{"doctor", "--sequence-length", "0"})

	if err := root.Execute(); err == nil {
		t.Fatal("expected validation error for sequence length 0")
	}
}
