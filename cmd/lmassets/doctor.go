package main

import (
	"errors"
	"fmt"

	"github.com/example/go-lmassets/internal/doctor"
	"github.com/spf13/cobra"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Verify every artifact in the output directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "assets: %s\n", cfg.Paths.OutDir)

			result := doctor.Run(doctor.Config{
				Dir:            cfg.Paths.OutDir,
				SequenceLength: cfg.Sequence.Length,
			}, out)

			if result.Failed() {
				errOut := cmd.ErrOrStderr()
				for _, f := range result.Failures() {
					_, _ = fmt.Fprintf(errOut, "FAIL: %s\n", f)
				}

				return errors.New("doctor checks failed")
			}

			_, _ = fmt.Fprintln(out, "doctor checks passed")

			return nil
		},
	}
}
