package alignment

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/inodb/seqsig/internal/gn"
)

// Layout maps columns of an aligned FASTA file onto segments and generic
// numbers. It is read from YAML:
//
//	segments:
//	  - name: TM3
//	    positions:
//	      - label: 3x50
//	        column: 112
//	        display:
//	          gpcrdba: 3.50x50
type Layout struct {
	Segments []LayoutSegment `yaml:"segments"`
}

// LayoutSegment lists the generic positions of one segment.
type LayoutSegment struct {
	Name      string           `yaml:"name"`
	Positions []LayoutPosition `yaml:"positions"`
}

// LayoutPosition ties a generic number to a 1-based alignment column.
type LayoutPosition struct {
	Label   string            `yaml:"label"`
	Column  int               `yaml:"column"`
	Display map[string]string `yaml:"display"`
}

// FASTASource serves proteins and residues from an aligned FASTA file.
// Headers are pipe-delimited:
//
//	>id|entry_name|family_slug|scheme_slug|scheme_name|species|sequence_type
//
// Only the first field is required; entry_name defaults to id, species to
// "Human" and sequence_type to "wt". Gap characters ('-' and '.') mark
// positions without a residue.
type FASTASource struct {
	layout   Layout
	proteins []Protein
	byEntry  map[string]int
	seqs     map[string]string // protein ID -> aligned sequence
	species  string
}

// NewFASTASource reads the FASTA and layout files from fs.
func NewFASTASource(fs afero.Fs, fastaPath, layoutPath string) (*FASTASource, error) {
	lf, err := fs.Open(layoutPath)
	if err != nil {
		return nil, fmt.Errorf("open layout: %w", err)
	}
	defer lf.Close()
	layout, err := ParseLayout(lf)
	if err != nil {
		return nil, err
	}

	ff, err := fs.Open(fastaPath)
	if err != nil {
		return nil, fmt.Errorf("open FASTA file: %w", err)
	}
	defer ff.Close()

	src := &FASTASource{layout: layout, species: "Human"}
	if err := src.parseFASTA(ff); err != nil {
		return nil, err
	}
	return src, nil
}

// ParseLayout decodes a YAML layout.
func ParseLayout(r io.Reader) (Layout, error) {
	var l Layout
	if err := yaml.NewDecoder(r).Decode(&l); err != nil {
		return Layout{}, fmt.Errorf("decode layout: %w", err)
	}
	for _, s := range l.Segments {
		for _, p := range s.Positions {
			if p.Column < 1 {
				return Layout{}, fmt.Errorf("segment %s position %s: column must be >= 1", s.Name, p.Label)
			}
		}
	}
	return l, nil
}

// SetSpecies sets the species used to filter family members.
func (s *FASTASource) SetSpecies(species string) {
	s.species = species
}

func (s *FASTASource) parseFASTA(reader io.Reader) error {
	scanner := bufio.NewScanner(reader)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	s.byEntry = make(map[string]int)
	s.seqs = make(map[string]string)

	var current *Protein
	var seq strings.Builder
	flush := func() {
		if current != nil {
			s.seqs[current.ID] = seq.String()
			s.byEntry[current.EntryName] = len(s.proteins)
			s.proteins = append(s.proteins, *current)
		}
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ">") {
			flush()
			p := parseHeader(line)
			if _, dup := s.seqs[p.ID]; dup {
				return fmt.Errorf("duplicate FASTA entry %q", p.ID)
			}
			if _, dup := s.byEntry[p.EntryName]; dup {
				return fmt.Errorf("duplicate FASTA entry name %q", p.EntryName)
			}
			current = &p
			seq.Reset()
			continue
		}
		if current == nil {
			return fmt.Errorf("sequence data before first FASTA header")
		}
		seq.WriteString(line)
	}
	flush()

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan FASTA: %w", err)
	}
	return nil
}

func parseHeader(header string) Protein {
	fields := strings.Split(strings.TrimPrefix(header, ">"), "|")
	get := func(i int) string {
		if i < len(fields) {
			return strings.TrimSpace(fields[i])
		}
		return ""
	}
	p := Protein{
		ID:           get(0),
		EntryName:    get(1),
		FamilySlug:   get(2),
		Scheme:       gn.Scheme{Slug: get(3), Name: get(4)},
		Species:      get(5),
		SequenceType: get(6),
	}
	if p.EntryName == "" {
		p.EntryName = p.ID
	}
	if p.Scheme.Name == "" {
		p.Scheme.Name = p.Scheme.Slug
	}
	if p.Species == "" {
		p.Species = "Human"
	}
	if p.SequenceType == "" {
		p.SequenceType = "wt"
	}
	return p
}

// ProteinCount returns the number of sequences read.
func (s *FASTASource) ProteinCount() int {
	return len(s.proteins)
}

// LoadProteins returns the proteins with the given entry names, in order.
func (s *FASTASource) LoadProteins(_ context.Context, entryNames []string) ([]Protein, error) {
	out := make([]Protein, 0, len(entryNames))
	for _, name := range entryNames {
		i, ok := s.byEntry[name]
		if !ok {
			return nil, fmt.Errorf("protein %q not found in FASTA", name)
		}
		out = append(out, s.proteins[i])
	}
	return out, nil
}

// Residues returns the residues of p found in the requested segments.
func (s *FASTASource) Residues(_ context.Context, p Protein, segments []string) ([]Residue, error) {
	seq, ok := s.seqs[p.ID]
	if !ok {
		return nil, fmt.Errorf("protein %q not found in FASTA", p.ID)
	}
	want := make(map[string]bool, len(segments))
	for _, seg := range segments {
		want[seg] = true
	}
	var out []Residue
	for _, seg := range s.layout.Segments {
		if !want[seg.Name] {
			continue
		}
		for _, pos := range seg.Positions {
			if r, ok := residueAt(seq, pos.Column); ok {
				out = append(out, Residue{
					Segment:        seg.Name,
					Label:          pos.Label,
					AminoAcid:      r,
					SequenceNumber: sequenceNumber(seq, pos.Column),
				})
			}
		}
	}
	return out, nil
}

// Numbering returns the display labels declared in the layout.
func (s *FASTASource) Numbering(_ context.Context, schemes []gn.Scheme, labels []string) (map[string]map[string]string, error) {
	want := make(map[string]bool, len(labels))
	for _, l := range labels {
		want[l] = true
	}
	out := make(map[string]map[string]string, len(schemes))
	for _, sch := range schemes {
		out[sch.Slug] = make(map[string]string)
	}
	for _, seg := range s.layout.Segments {
		for _, pos := range seg.Positions {
			if !want[pos.Label] {
				continue
			}
			for _, sch := range schemes {
				if d, ok := pos.Display[sch.Slug]; ok {
					out[sch.Slug][pos.Label] = d
				}
			}
		}
	}
	return out, nil
}

// FetchFamilyMembers returns the wild-type proteins of the configured
// species whose family slug starts with familySlug, minus exclude.
func (s *FASTASource) FetchFamilyMembers(_ context.Context, familySlug string, exclude []string) ([]Protein, error) {
	skip := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}
	var out []Protein
	for _, p := range s.proteins {
		if skip[p.ID] || !strings.HasPrefix(p.FamilySlug, familySlug) {
			continue
		}
		if p.Species != s.species || p.SequenceType != "wt" || strings.HasSuffix(p.EntryName, "-consensus") {
			continue
		}
		out = append(out, p)
	}
	sortProteins(out)
	return out, nil
}

// FetchResidues returns p's residues at the given labels, keyed by label.
func (s *FASTASource) FetchResidues(ctx context.Context, p Protein, labels []string) (map[string]Residue, error) {
	want := make(map[string]bool, len(labels))
	for _, l := range labels {
		want[l] = true
	}
	var segments []string
	for _, seg := range s.layout.Segments {
		segments = append(segments, seg.Name)
	}
	rs, err := s.Residues(ctx, p, segments)
	if err != nil {
		return nil, err
	}
	out := make(map[string]Residue, len(labels))
	for _, r := range rs {
		if want[r.Label] {
			out[r.Label] = r
		}
	}
	return out, nil
}

func residueAt(seq string, column int) (string, bool) {
	if column < 1 || column > len(seq) {
		return "", false
	}
	c := seq[column-1]
	if c == '-' || c == '.' {
		return "", false
	}
	return strings.ToUpper(string(c)), true
}

// sequenceNumber counts the residues up to and including column.
func sequenceNumber(seq string, column int) int64 {
	var n int64
	for i := 0; i < column && i < len(seq); i++ {
		if seq[i] != '-' && seq[i] != '.' {
			n++
		}
	}
	return n
}
