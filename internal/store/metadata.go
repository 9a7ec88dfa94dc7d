package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/multierr"
)

// FileFingerprint holds stat-based identity for an imported file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

func ensureImportsTable(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS imports (
		table_name VARCHAR PRIMARY KEY,
		path VARCHAR,
		size BIGINT,
		mod_time VARCHAR,
		imported_at VARCHAR
	)`)
	return err
}

// UpToDate reports whether table was last imported from a file with the
// same fingerprint.
func (s *Store) UpToDate(ctx context.Context, t Table, fp FileFingerprint) bool {
	var path, modTime string
	var size int64
	err := s.db.QueryRowContext(ctx,
		`SELECT path, size, mod_time FROM imports WHERE table_name = ?`, string(t)).
		Scan(&path, &size, &modTime)
	if err != nil {
		return false
	}
	return path == fp.Path && size == fp.Size && modTime == fp.ModTime.UTC().Format(time.RFC3339Nano)
}

func recordImport(ctx context.Context, tx *sql.Tx, t Table, fp FileFingerprint) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM imports WHERE table_name = ?`, string(t)); err != nil {
		return fmt.Errorf("clear import record: %w", err)
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO imports VALUES (?, ?, ?, ?, ?)`,
		string(t), fp.Path, fp.Size,
		fp.ModTime.UTC().Format(time.RFC3339Nano),
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("record import: %w", err)
	}
	return nil
}

// ImportTSV replaces the contents of table with a tab-separated file with a
// header line. Columns must be in the table's order:
//
//	proteins:        id entry_name family_slug family_name species sequence_type scheme_slug scheme_name
//	residues:        protein_id segment generic_number sequence_number amino_acid
//	generic_numbers: label scheme_slug display
//
// The file may be gzipped. The table and its import record are replaced in
// one transaction, so a failed load leaves both as they were.
func (s *Store) ImportTSV(ctx context.Context, t Table, path string) (err error) {
	cols, ok := schemas[t]
	if !ok {
		return fmt.Errorf("unknown table %q", t)
	}
	fp, err := StatFile(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	colDefs := make([]string, len(cols))
	for i, c := range cols {
		colDefs[i] = fmt.Sprintf("'%s': '%s'", c.name, c.typ)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import of %s: %w", t, err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(); !errors.Is(rbErr, sql.ErrTxDone) {
			err = multierr.Append(err, rbErr)
		}
	}()

	// Clear any existing data first (idempotent reload)
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+string(t)); err != nil {
		return fmt.Errorf("clear %s: %w", t, err)
	}

	query := fmt.Sprintf(`INSERT INTO %s
		SELECT * FROM read_csv('%s', delim='\t', header=true,
			columns={%s})`, t, strings.ReplaceAll(path, "'", "''"), strings.Join(colDefs, ", "))

	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("loading %s: %w", t, err)
	}
	if err := recordImport(ctx, tx, t, fp); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import of %s: %w", t, err)
	}
	return nil
}
