package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/inodb/seqsig/internal/store"
)

func newImportCmd() *cobra.Command {
	var (
		proteins string
		residues string
		numbers  string
		force    bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load protein data into the DuckDB store",
		Long: `Load tab-separated files with a header line into the DuckDB store.
Each file replaces the contents of its table. Files that have not changed
since the last import are skipped unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			files := []importFile{
				{store.Proteins, proteins},
				{store.Residues, residues},
				{store.GenericNumbers, numbers},
			}
			given := false
			for _, f := range files {
				given = given || f.path != ""
			}
			if !given {
				return usageError{fmt.Errorf("at least one of --proteins, --residues or --numbers is required")}
			}

			s, err := store.Open(viper.GetString("db"))
			if err != nil {
				return err
			}
			err = runImport(cmd, s, files, force)
			return multierr.Append(err, s.Close())
		},
	}

	cmd.Flags().StringVar(&proteins, "proteins", "", "Proteins TSV")
	cmd.Flags().StringVar(&residues, "residues", "", "Residues TSV")
	cmd.Flags().StringVar(&numbers, "numbers", "", "Generic numbers TSV")
	cmd.Flags().BoolVar(&force, "force", false, "Reimport unchanged files")

	return cmd
}

type importFile struct {
	table store.Table
	path  string
}

func runImport(cmd *cobra.Command, s *store.Store, files []importFile, force bool) error {
	ctx := cmd.Context()
	for _, f := range files {
		if f.path == "" {
			continue
		}
		fp, err := store.StatFile(f.path)
		if err != nil {
			return fmt.Errorf("stat %s: %w", f.path, err)
		}
		if !force && s.UpToDate(ctx, f.table, fp) {
			logger.Info("table up to date, skipping", zap.String("table", string(f.table)), zap.String("path", f.path))
			continue
		}
		if err := s.ImportTSV(ctx, f.table, f.path); err != nil {
			return err
		}
		n, err := s.Count(ctx, f.table)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Loaded %d rows into %s\n", n, f.table)
	}
	return nil
}
