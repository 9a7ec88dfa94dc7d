package store

import (
	"context"
	"database/sql/driver"
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/seqsig/internal/alignment"
	"github.com/inodb/seqsig/internal/gn"
)

// ResidueRow is a residue together with the protein it belongs to.
type ResidueRow struct {
	ProteinID string
	alignment.Residue
}

// Numbering is the display label of a generic number in one scheme.
type Numbering struct {
	Label      string
	SchemeSlug string
	Display    string
}

// appendRows batch-inserts rows into table using the Appender API.
func (s *Store) appendRows(ctx context.Context, t Table, n int, row func(i int) []driver.Value) error {
	if n == 0 {
		return nil
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", string(t))
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for i := 0; i < n; i++ {
		if err := appender.AppendRow(row(i)...); err != nil {
			return fmt.Errorf("append %s row: %w", t, err)
		}
	}

	return appender.Flush()
}

// AddProteins inserts protein records. Duplicate IDs within the batch are
// written once.
func (s *Store) AddProteins(ctx context.Context, proteins []alignment.Protein) error {
	seen := make(map[string]bool, len(proteins))
	deduped := make([]alignment.Protein, 0, len(proteins))
	for _, p := range proteins {
		if !seen[p.ID] {
			seen[p.ID] = true
			deduped = append(deduped, p)
		}
	}
	return s.appendRows(ctx, Proteins, len(deduped), func(i int) []driver.Value {
		p := deduped[i]
		return []driver.Value{
			p.ID, p.EntryName, p.FamilySlug, p.FamilyName,
			p.Species, p.SequenceType, p.Scheme.Slug, p.Scheme.Name,
		}
	})
}

// AddResidues inserts generic-numbered residues.
func (s *Store) AddResidues(ctx context.Context, residues []ResidueRow) error {
	return s.appendRows(ctx, Residues, len(residues), func(i int) []driver.Value {
		r := residues[i]
		return []driver.Value{r.ProteinID, r.Segment, r.Label, r.SequenceNumber, r.AminoAcid}
	})
}

// AddNumbering inserts per-scheme display labels.
func (s *Store) AddNumbering(ctx context.Context, numbers []Numbering) error {
	return s.appendRows(ctx, GenericNumbers, len(numbers), func(i int) []driver.Value {
		n := numbers[i]
		return []driver.Value{n.Label, n.SchemeSlug, n.Display}
	})
}

const proteinColumns = `id, entry_name,
	COALESCE(family_slug, ''), COALESCE(family_name, ''),
	COALESCE(species, ''), COALESCE(sequence_type, ''),
	COALESCE(scheme_slug, ''), COALESCE(scheme_name, '')`

// scanProteins scans rows selected with proteinColumns.
func scanProteins(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]alignment.Protein, error) {
	var out []alignment.Protein
	for rows.Next() {
		var p alignment.Protein
		if err := rows.Scan(
			&p.ID, &p.EntryName, &p.FamilySlug, &p.FamilyName,
			&p.Species, &p.SequenceType, &p.Scheme.Slug, &p.Scheme.Name,
		); err != nil {
			return nil, fmt.Errorf("scan protein: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate proteins: %w", err)
	}
	return out, nil
}

// LoadProteins resolves entry names to protein records, in the order given.
func (s *Store) LoadProteins(ctx context.Context, entryNames []string) ([]alignment.Protein, error) {
	if len(entryNames) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+proteinColumns+` FROM proteins WHERE entry_name IN (`+placeholders(len(entryNames))+`)`,
		stringArgs(entryNames)...)
	if err != nil {
		return nil, fmt.Errorf("query proteins: %w", err)
	}
	defer rows.Close()

	found, err := scanProteins(rows)
	if err != nil {
		return nil, err
	}
	byEntry := make(map[string]alignment.Protein, len(found))
	for _, p := range found {
		byEntry[p.EntryName] = p
	}

	out := make([]alignment.Protein, 0, len(entryNames))
	for _, name := range entryNames {
		p, ok := byEntry[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrProteinNotFound, name)
		}
		out = append(out, p)
	}
	return out, nil
}

// Residues returns p's residues in the given segments, in sequence order.
func (s *Store) Residues(ctx context.Context, p alignment.Protein, segments []string) ([]alignment.Residue, error) {
	if len(segments) == 0 {
		return nil, nil
	}
	args := append([]any{p.ID}, stringArgs(segments)...)
	rows, err := s.db.QueryContext(ctx,
		`SELECT segment, generic_number, COALESCE(amino_acid, ''), COALESCE(sequence_number, 0)
		FROM residues
		WHERE protein_id = ? AND segment IN (`+placeholders(len(segments))+`)
		ORDER BY sequence_number`, args...)
	if err != nil {
		return nil, fmt.Errorf("query residues: %w", err)
	}
	defer rows.Close()

	var out []alignment.Residue
	for rows.Next() {
		var r alignment.Residue
		if err := rows.Scan(&r.Segment, &r.Label, &r.AminoAcid, &r.SequenceNumber); err != nil {
			return nil, fmt.Errorf("scan residue: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate residues: %w", err)
	}
	return out, nil
}

// Numbering returns scheme slug -> label -> display label for the given
// schemes and labels.
func (s *Store) Numbering(ctx context.Context, schemes []gn.Scheme, labels []string) (map[string]map[string]string, error) {
	out := make(map[string]map[string]string, len(schemes))
	if len(schemes) == 0 || len(labels) == 0 {
		return out, nil
	}
	slugs := make([]string, len(schemes))
	for i, sc := range schemes {
		slugs[i] = sc.Slug
	}
	args := append(stringArgs(slugs), stringArgs(labels)...)
	rows, err := s.db.QueryContext(ctx,
		`SELECT scheme_slug, label, COALESCE(display, '')
		FROM generic_numbers
		WHERE scheme_slug IN (`+placeholders(len(slugs))+`)
		AND label IN (`+placeholders(len(labels))+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("query numbering: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var slug, label, display string
		if err := rows.Scan(&slug, &label, &display); err != nil {
			return nil, fmt.Errorf("scan numbering: %w", err)
		}
		if out[slug] == nil {
			out[slug] = make(map[string]string)
		}
		out[slug][label] = display
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate numbering: %w", err)
	}
	return out, nil
}

// FetchFamilyMembers returns the wild-type proteins of the configured
// species whose family slug starts with familySlug, ordered by family slug
// and entry name. Consensus entries and the excluded IDs are left out.
func (s *Store) FetchFamilyMembers(ctx context.Context, familySlug string, exclude []string) ([]alignment.Protein, error) {
	query := `SELECT ` + proteinColumns + ` FROM proteins
		WHERE starts_with(family_slug, ?)
		AND species = ?
		AND sequence_type = 'wt'
		AND NOT ends_with(entry_name, '-consensus')`
	args := []any{familySlug, s.species}
	if len(exclude) > 0 {
		query += ` AND id NOT IN (` + placeholders(len(exclude)) + `)`
		args = append(args, stringArgs(exclude)...)
	}
	query += ` ORDER BY family_slug, entry_name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query family %s: %w", familySlug, err)
	}
	defer rows.Close()

	return scanProteins(rows)
}

// FetchResidues returns p's residues at the given generic numbers, keyed by
// label.
func (s *Store) FetchResidues(ctx context.Context, p alignment.Protein, labels []string) (map[string]alignment.Residue, error) {
	out := make(map[string]alignment.Residue, len(labels))
	if len(labels) == 0 {
		return out, nil
	}
	args := append([]any{p.ID}, stringArgs(labels)...)
	rows, err := s.db.QueryContext(ctx,
		`SELECT segment, generic_number, COALESCE(amino_acid, ''), COALESCE(sequence_number, 0)
		FROM residues
		WHERE protein_id = ? AND generic_number IN (`+placeholders(len(labels))+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("query residues: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r alignment.Residue
		if err := rows.Scan(&r.Segment, &r.Label, &r.AminoAcid, &r.SequenceNumber); err != nil {
			return nil, fmt.Errorf("scan residue: %w", err)
		}
		out[r.Label] = r
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate residues: %w", err)
	}
	return out, nil
}

var _ alignment.Source = (*Store)(nil)
