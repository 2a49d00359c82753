package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/example/go-lmassets/internal/build"
	"github.com/example/go-lmassets/internal/config"
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	activeCfg config.Config
	cfgLoaded bool
)

func NewRootCmd() *cobra.Command {
	defaults := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:           "lmassets",
		Short:         "Compile language-model assets for the on-device keyboard engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load(config.LoadOptions{
				Cmd:        cmd,
				ConfigFile: cfgFile,
				Defaults:   defaults,
			})
			if err != nil {
				return err
			}

			if err := loaded.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			activeCfg = loaded
			cfgLoaded = true
			setupLogger(loaded.LogLevel)

			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Optional config file (yaml|toml|json)")
	config.RegisterFlags(cmd.PersistentFlags(), defaults)

	cmd.AddCommand(newNGramCmd())
	cmd.AddCommand(newPrepareCmd())
	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newInspectCmd())

	return cmd
}

// setupLogger configures the process-wide slog default logger.
func setupLogger(levelStr string) {
	lvl, err := config.ParseLogLevel(levelStr)
	if err != nil {
		lvl = slog.LevelInfo
	}

	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(h))
}

func requireConfig() (config.Config, error) {
	if !cfgLoaded {
		return config.Config{}, errors.New("configuration not loaded")
	}

	return activeCfg, nil
}

func newBuilder() (*build.Builder, error) {
	cfg, err := requireConfig()
	if err != nil {
		return nil, err
	}

	return build.New(cfg, build.Options{Logger: slog.Default()}), nil
}

// printReport writes a short human summary of a finished stage.
func printReport(w io.Writer, rep *build.Report) {
	_, _ = fmt.Fprintf(w, "%s: wrote %d artifacts to %s\n", rep.Stage, len(rep.Artifacts), rep.OutDir)

	for _, a := range rep.Artifacts {
		_, _ = fmt.Fprintf(w, "  %-18s %10d bytes  %8d records  sha256 %s\n", a.Name, a.Bytes, a.Records, a.SHA256[:16])
	}
}
