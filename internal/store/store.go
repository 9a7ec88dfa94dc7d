// Package store provides a DuckDB-backed protein store: protein records,
// generic-numbered residues and per-scheme display labels. It serves both
// alignment building and family scoring.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/multierr"
)

// ErrProteinNotFound is returned when an entry name has no protein record.
var ErrProteinNotFound = errors.New("protein not found")

// DefaultSpecies is the species FetchFamilyMembers filters on.
const DefaultSpecies = "Human"

// Table names a store table.
type Table string

const (
	Proteins       Table = "proteins"
	Residues       Table = "residues"
	GenericNumbers Table = "generic_numbers"
)

type column struct {
	name string
	typ  string
}

// schemas lists the columns of each table in TSV/appender order.
var schemas = map[Table][]column{
	Proteins: {
		{"id", "VARCHAR"},
		{"entry_name", "VARCHAR"},
		{"family_slug", "VARCHAR"},
		{"family_name", "VARCHAR"},
		{"species", "VARCHAR"},
		{"sequence_type", "VARCHAR"},
		{"scheme_slug", "VARCHAR"},
		{"scheme_name", "VARCHAR"},
	},
	Residues: {
		{"protein_id", "VARCHAR"},
		{"segment", "VARCHAR"},
		{"generic_number", "VARCHAR"},
		{"sequence_number", "BIGINT"},
		{"amino_acid", "VARCHAR"},
	},
	GenericNumbers: {
		{"label", "VARCHAR"},
		{"scheme_slug", "VARCHAR"},
		{"display", "VARCHAR"},
	},
}

// Store manages a DuckDB connection holding protein data.
type Store struct {
	db      *sql.DB
	path    string
	species string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path, species: DefaultSpecies}
	if err := s.ensureSchema(); err != nil {
		return nil, multierr.Append(fmt.Errorf("ensure schema: %w", err), db.Close())
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SetSpecies sets the species used to filter family members.
func (s *Store) SetSpecies(species string) {
	s.species = species
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	for _, t := range []Table{Proteins, Residues, GenericNumbers} {
		cols := make([]string, len(schemas[t]))
		for i, c := range schemas[t] {
			cols[i] = c.name + " " + c.typ
		}
		if _, err := s.db.Exec(fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", t, strings.Join(cols, ", "))); err != nil {
			return fmt.Errorf("create %s: %w", t, err)
		}
	}
	// Indexes for residue and numbering lookups
	s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_residues_protein ON residues (protein_id)`)
	s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_proteins_entry ON proteins (entry_name)`)
	return ensureImportsTable(s.db)
}

// Count returns the number of rows in a table.
func (s *Store) Count(ctx context.Context, t Table) (int64, error) {
	if _, ok := schemas[t]; !ok {
		return 0, fmt.Errorf("unknown table %q", t)
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+string(t)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", t, err)
	}
	return n, nil
}

// placeholders returns n comma-separated '?' parameters.
func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

func stringArgs(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
