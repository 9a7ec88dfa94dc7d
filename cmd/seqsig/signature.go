package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/inodb/seqsig/internal/alignment"
	"github.com/inodb/seqsig/internal/output"
	"github.com/inodb/seqsig/internal/signature"
)

func newSignatureCmd() *cobra.Command {
	var (
		segments   []string
		positive   []string
		negative   []string
		outputFile string
		noSave     bool
	)

	cmd := &cobra.Command{
		Use:   "signature",
		Short: "Calculate the sequence signature of two protein sets",
		Long: `Align the positive and negative protein sets over the given segments, compute
the per-position feature differences and write them as a table. The signature
is saved as a session whose ID is printed to stderr; pass it to "seqsig score".`,
		Example: `  seqsig signature --segments TM3,TM6 \
    --positive adrb2_human,adrb1_human --negative opsd_bovin,opsd_human -o signature.tsv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if len(segments) == 0 || len(positive) == 0 || len(negative) == 0 {
				return usageError{fmt.Errorf("--segments, --positive and --negative are required")}
			}

			src, closeSrc, err := openSource()
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, closeSrc()) }()

			builder := alignment.NewResidueBuilder(src)
			builder.SetLogger(logger)
			engine := signature.NewEngine(builder)
			engine.SetLogger(logger)

			res, err := engine.Run(cmd.Context(), segments, positive, negative)
			if err != nil {
				return err
			}

			display, err := res.DisplayData()
			if err != nil {
				return err
			}
			out, err := createOutput(outputFile)
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, out.Close()) }()

			w := output.NewSignatureWriter(out)
			if err := w.Write(display); err != nil {
				return fmt.Errorf("writing signature: %w", err)
			}
			if err := w.Flush(); err != nil {
				return fmt.Errorf("writing signature: %w", err)
			}

			if noSave {
				return nil
			}
			data, err := res.SessionData()
			if err != nil {
				return err
			}
			id, err := sessionCache().Save(data)
			if err != nil {
				return err
			}
			logger.Info("saved session", zap.String("id", id), zap.Int("positions", display.NumResidueColumns))
			fmt.Fprintf(os.Stderr, "Session: %s\n", id)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&segments, "segments", nil, "Segments to align (comma-separated)")
	cmd.Flags().StringSliceVar(&positive, "positive", nil, "Entry names of the positive set")
	cmd.Flags().StringSliceVar(&negative, "negative", nil, "Entry names of the negative set")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "Do not save a session")

	return cmd
}
