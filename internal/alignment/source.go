package alignment

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
)

// Source kinds accepted by NewSource.
const (
	SourceDuckDB = "duckdb"
	SourceFASTA  = "fasta"
)

// Source is a residue source that can also list family members for scoring.
type Source interface {
	ResidueSource
	FetchFamilyMembers(ctx context.Context, familySlug string, exclude []string) ([]Protein, error)
	FetchResidues(ctx context.Context, p Protein, labels []string) (map[string]Residue, error)
}

// SourceOptions configures NewSource.
type SourceOptions struct {
	Kind string

	// Store is returned for SourceDuckDB.
	Store Source

	// FASTA strategy inputs.
	Fs     afero.Fs
	FASTA  string
	Layout string
}

// NewSource selects the residue source named by opts.Kind.
func NewSource(opts SourceOptions) (Source, error) {
	switch opts.Kind {
	case SourceDuckDB, "":
		if opts.Store == nil {
			return nil, fmt.Errorf("duckdb source: no store configured")
		}
		return opts.Store, nil
	case SourceFASTA:
		if opts.FASTA == "" || opts.Layout == "" {
			return nil, fmt.Errorf("fasta source: alignment.fasta and alignment.layout are required")
		}
		fs := opts.Fs
		if fs == nil {
			fs = afero.NewOsFs()
		}
		return NewFASTASource(fs, opts.FASTA, opts.Layout)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSource, opts.Kind)
}

var _ Source = (*FASTASource)(nil)
