// Package alignment provides per-segment protein alignments keyed by generic
// residue numbers, along with the per-position feature-group statistics the
// signature engine consumes.
package alignment

import (
	"context"
	"errors"
	"sort"

	"github.com/inodb/seqsig/internal/gn"
	"github.com/inodb/seqsig/internal/matrix"
)

var (
	// ErrNoProteins is returned when an alignment is requested for an empty set.
	ErrNoProteins = errors.New("no proteins to align")
	// ErrUnknownSource is returned for an unrecognised alignment source name.
	ErrUnknownSource = errors.New("unknown alignment source")
)

// Protein describes a protein record.
type Protein struct {
	ID           string
	EntryName    string
	FamilySlug   string
	FamilyName   string
	Species      string
	SequenceType string
	Scheme       gn.Scheme
}

// Residue is a generic-numbered residue of a protein.
type Residue struct {
	Segment        string
	Label          string // generic number in the reference numbering
	AminoAcid      string // one-letter code
	SequenceNumber int64
}

// Entry is one position of a protein row in an alignment.
type Entry struct {
	Label   string
	Present bool
	Symbol  string
	Quality int
}

// ConsensusEntry is one position of an alignment's consensus sequence.
type ConsensusEntry struct {
	Label   string
	Symbol  string
	Quality int
	Colour  int
}

// Neutral colour bucket used for consensus positions without data.
const NeutralColour = 100

// FeatureStat is the frequency (0-100) of a feature group at a position,
// with its display bucket (-1 for zero).
type FeatureStat struct {
	Value  int
	Bucket int
}

// NewFeatureStat computes the display bucket for a frequency.
func NewFeatureStat(v int) FeatureStat {
	if v == 0 {
		return FeatureStat{Value: 0, Bucket: -1}
	}
	return FeatureStat{Value: v, Bucket: v / 10}
}

// Segment is a named structural region and its ordered position labels.
type Segment struct {
	Name      string
	Positions []string
}

// ProteinRow is a protein's aligned residues, per segment.
type ProteinRow struct {
	Protein  Protein
	Segments map[string][]Entry
}

// Alignment is a set of proteins aligned by generic number.
type Alignment struct {
	Proteins []ProteinRow
	Segments []Segment
	Schemes  []gn.Scheme

	// GenericNumbers maps scheme slug -> segment -> ordered positions.
	GenericNumbers map[string]map[string][]gn.Position

	// Consensus maps segment -> one entry per segment position.
	Consensus map[string][]ConsensusEntry

	// FeatureStats is indexed [group][segment][position], with segments in
	// the order of Segments.
	FeatureStats [][][]FeatureStat
}

// Builder builds alignments for a set of proteins. Implementations are
// selected at startup and injected into the signature engine.
type Builder interface {
	LoadProteins(ctx context.Context, entryNames []string) ([]Protein, error)
	Build(ctx context.Context, proteins []Protein, segments []string, schemes []gn.Scheme) (*Alignment, error)
}

// ResidueSource supplies protein records and their generic-numbered residues.
type ResidueSource interface {
	LoadProteins(ctx context.Context, entryNames []string) ([]Protein, error)
	Residues(ctx context.Context, p Protein, segments []string) ([]Residue, error)
	// Numbering returns scheme slug -> label -> display label. Labels
	// missing from the result are displayed as-is.
	Numbering(ctx context.Context, schemes []gn.Scheme, labels []string) (map[string]map[string]string, error)
}

// SegmentIndex returns the index of the named segment, or -1.
func (a *Alignment) SegmentIndex(name string) int {
	for i, s := range a.Segments {
		if s.Name == name {
			return i
		}
	}
	return -1
}

// NumPositions returns the total number of aligned positions.
func (a *Alignment) NumPositions() int {
	n := 0
	for _, s := range a.Segments {
		n += len(s.Positions)
	}
	return n
}

// HasPosition reports whether the alignment itself aligned the label in the
// named segment.
func (a *Alignment) HasPosition(segment, label string) bool {
	i := a.SegmentIndex(segment)
	if i < 0 {
		return false
	}
	for _, p := range a.Segments[i].Positions {
		if p == label {
			return true
		}
	}
	return false
}

// SegmentFeatures returns the feature frequencies of a segment as a
// [group][position] matrix in the alignment's own position order.
func (a *Alignment) SegmentFeatures(segment string) *matrix.Int {
	si := a.SegmentIndex(segment)
	if si < 0 {
		return matrix.New(len(a.FeatureStats), 0)
	}
	m := matrix.New(len(a.FeatureStats), len(a.Segments[si].Positions))
	for g, bySegment := range a.FeatureStats {
		for p, st := range bySegment[si] {
			m.Set(g, p, st.Value)
		}
	}
	return m
}

// Clone returns a deep copy of the alignment.
func (a *Alignment) Clone() *Alignment {
	out := &Alignment{
		Schemes:        append([]gn.Scheme(nil), a.Schemes...),
		GenericNumbers: make(map[string]map[string][]gn.Position, len(a.GenericNumbers)),
		Consensus:      make(map[string][]ConsensusEntry, len(a.Consensus)),
	}
	for _, s := range a.Segments {
		out.Segments = append(out.Segments, Segment{Name: s.Name, Positions: append([]string(nil), s.Positions...)})
	}
	for _, row := range a.Proteins {
		segs := make(map[string][]Entry, len(row.Segments))
		for k, v := range row.Segments {
			segs[k] = append([]Entry(nil), v...)
		}
		out.Proteins = append(out.Proteins, ProteinRow{Protein: row.Protein, Segments: segs})
	}
	for scheme, bySeg := range a.GenericNumbers {
		m := make(map[string][]gn.Position, len(bySeg))
		for seg, ps := range bySeg {
			m[seg] = append([]gn.Position(nil), ps...)
		}
		out.GenericNumbers[scheme] = m
	}
	for seg, c := range a.Consensus {
		out.Consensus[seg] = append([]ConsensusEntry(nil), c...)
	}
	for _, bySeg := range a.FeatureStats {
		g := make([][]FeatureStat, len(bySeg))
		for i, ps := range bySeg {
			g[i] = append([]FeatureStat(nil), ps...)
		}
		out.FeatureStats = append(out.FeatureStats, g)
	}
	return out
}

// sortProteins orders proteins by family slug, then entry name.
func sortProteins(ps []Protein) {
	sort.SliceStable(ps, func(i, j int) bool {
		if ps[i].FamilySlug != ps[j].FamilySlug {
			return ps[i].FamilySlug < ps[j].FamilySlug
		}
		return ps[i].EntryName < ps[j].EntryName
	})
}
