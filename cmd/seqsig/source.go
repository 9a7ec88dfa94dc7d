package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/inodb/seqsig/internal/alignment"
	"github.com/inodb/seqsig/internal/session"
	"github.com/inodb/seqsig/internal/store"
)

// openSource opens the residue source named by alignment.source. The
// returned close function releases the store, if one was opened.
func openSource() (alignment.Source, func() error, error) {
	kind := viper.GetString("alignment.source")
	species := viper.GetString("score.species")
	noop := func() error { return nil }

	opts := alignment.SourceOptions{
		Kind:   kind,
		Fs:     afero.NewOsFs(),
		FASTA:  viper.GetString("alignment.fasta"),
		Layout: viper.GetString("alignment.layout"),
	}
	closeFn := noop
	if kind == alignment.SourceDuckDB || kind == "" {
		s, err := store.Open(viper.GetString("db"))
		if err != nil {
			return nil, nil, err
		}
		s.SetSpecies(species)
		opts.Store = s
		closeFn = s.Close
	}

	src, err := alignment.NewSource(opts)
	if err != nil {
		return nil, nil, multierr.Append(err, closeFn())
	}
	if fs, ok := src.(*alignment.FASTASource); ok {
		fs.SetSpecies(species)
		logger.Info("loaded FASTA alignment",
			zap.String("path", opts.FASTA),
			zap.Int("proteins", fs.ProteinCount()))
	}
	return src, closeFn, nil
}

func sessionCache() *session.Cache {
	return session.NewCache(afero.NewOsFs(), viper.GetString("session.dir"))
}

// createOutput returns stdout for an empty path.
func createOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
