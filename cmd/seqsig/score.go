package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/inodb/seqsig/internal/output"
	"github.com/inodb/seqsig/internal/signature"
)

const defaultFamily = "001"

func newScoreCmd() *cobra.Command {
	var (
		family     string
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "score <session-id>",
		Short: "Score a protein family against a saved signature",
		Long: `Score every wild-type protein of a family against the signature saved in a
session, leaving out the proteins that built it. Proteins are written
highest score first with their residue and match colour at every position
whose signature value reaches the cutoff.`,
		Example: `  seqsig score 6f1c... --family 001 --cutoff 60 -o scores.tsv`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			cutoff := viper.GetInt("signature.cutoff")
			if cutoff < 0 || cutoff > 100 {
				return usageError{fmt.Errorf("cutoff %d out of range 0-100", cutoff)}
			}

			data, err := sessionCache().Load(args[0])
			if err != nil {
				return err
			}

			src, closeSrc, err := openSource()
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, closeSrc()) }()

			m, err := signature.NewMatcher(data, data.ProteinSet, src, cutoff)
			if err != nil {
				return err
			}
			m.SetLogger(logger)
			m.SetWorkers(viper.GetInt("score.workers"))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if _, err := m.ScoreProteinClass(ctx, family); err != nil {
				if ctx.Err() != nil && cmd.Context().Err() == nil {
					return fmt.Errorf("scoring interrupted: %w", context.Cause(ctx))
				}
				return err
			}

			out, err := createOutput(outputFile)
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, out.Close()) }()

			w := output.NewReportWriter(out)
			if err := w.Write(m); err != nil {
				return fmt.Errorf("writing report: %w", err)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&family, "family", defaultFamily, "Family slug prefix of the proteins to score")
	cmd.Flags().Int("cutoff", signature.DefaultCutoff, "Minimum signature value of a scored position (0-100)")
	cmd.Flags().Int("workers", 0, "Concurrent scorers (default: number of CPUs)")
	cmd.Flags().String("species", "", "Species of the scored proteins (default: Human)")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	viper.BindPFlag("signature.cutoff", cmd.Flags().Lookup("cutoff"))
	viper.BindPFlag("score.workers", cmd.Flags().Lookup("workers"))
	viper.BindPFlag("score.species", cmd.Flags().Lookup("species"))

	return cmd
}
