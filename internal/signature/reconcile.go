package signature

import (
	"errors"
	"fmt"

	"github.com/inodb/seqsig/internal/alignment"
	"github.com/inodb/seqsig/internal/gn"
)

// ErrSegmentMismatch is returned when two alignments or a session's
// difference matrix do not cover the same segments and positions.
var ErrSegmentMismatch = errors.New("segment mismatch")

// Gap symbols written into reconciled alignments at positions one set lacks.
const (
	rowGapSymbol       = "_"
	consensusGapSymbol = "-"
)

// Positions maps scheme slug -> segment -> ordered generic positions. Every
// scheme lists the same labels in the same order; only Display differs.
type Positions map[string]map[string][]gn.Position

// Reconciled holds two alignments rewritten onto a common position set.
//
// Proteins and Consensus of both alignments cover the common positions.
// Segments, GenericNumbers and FeatureStats still describe what each
// alignment aligned itself, which the engine needs to pad feature columns.
type Reconciled struct {
	Schemes   []gn.Scheme
	Segments  []alignment.Segment
	Positions Positions
	Positive  *alignment.Alignment
	Negative  *alignment.Alignment
}

// MergeSchemes returns every distinct numbering scheme used by the proteins,
// sorted by slug. The first scheme is the reference for position ordering.
func MergeSchemes(sets ...[]alignment.Protein) []gn.Scheme {
	seen := make(map[string]bool)
	var out []gn.Scheme
	for _, set := range sets {
		for _, p := range set {
			if p.Scheme.Slug != "" && !seen[p.Scheme.Slug] {
				seen[p.Scheme.Slug] = true
				out = append(out, p.Scheme)
			}
		}
	}
	gn.SortSchemes(out)
	return out
}

// Reconcile computes the union of numbering schemes and of aligned positions
// per segment, and returns copies of both alignments whose protein rows and
// consensus sequences cover exactly the common positions. The inputs are
// not modified.
func Reconcile(pos, neg *alignment.Alignment) (*Reconciled, error) {
	if pos == nil || neg == nil {
		return nil, fmt.Errorf("reconcile: nil alignment")
	}
	if len(pos.Segments) != len(neg.Segments) {
		return nil, fmt.Errorf("%w: %d vs %d segments", ErrSegmentMismatch, len(pos.Segments), len(neg.Segments))
	}

	schemes := mergeAlignmentSchemes(pos, neg)

	rec := &Reconciled{
		Schemes:   schemes,
		Positions: make(Positions, len(schemes)),
	}
	for _, s := range schemes {
		rec.Positions[s.Slug] = make(map[string][]gn.Position, len(neg.Segments))
	}

	for _, seg := range neg.Segments {
		pi := pos.SegmentIndex(seg.Name)
		if pi < 0 {
			return nil, fmt.Errorf("%w: segment %s missing from positive alignment", ErrSegmentMismatch, seg.Name)
		}
		labels := gn.UnionLabels(pos.Segments[pi].Positions, seg.Positions)
		rec.Segments = append(rec.Segments, alignment.Segment{Name: seg.Name, Positions: labels})

		for _, s := range schemes {
			display := make(map[string]string)
			for _, p := range gn.Union(pos.GenericNumbers[s.Slug][seg.Name], neg.GenericNumbers[s.Slug][seg.Name]) {
				display[p.Label] = p.Display
			}
			ps := make([]gn.Position, len(labels))
			for i, l := range labels {
				d, ok := display[l]
				if !ok {
					d = l
				}
				ps[i] = gn.Position{Label: l, Display: d}
			}
			rec.Positions[s.Slug][seg.Name] = ps
		}
	}

	rec.Positive = pos.Clone()
	rec.Negative = neg.Clone()
	for _, a := range []*alignment.Alignment{rec.Positive, rec.Negative} {
		a.Schemes = append([]gn.Scheme(nil), schemes...)
		expandRows(a, rec.Segments)
		expandConsensus(a, rec.Segments)
	}
	return rec, nil
}

func mergeAlignmentSchemes(alns ...*alignment.Alignment) []gn.Scheme {
	var sets [][]alignment.Protein
	var declared []alignment.Protein
	for _, a := range alns {
		var ps []alignment.Protein
		for _, row := range a.Proteins {
			ps = append(ps, row.Protein)
		}
		sets = append(sets, ps)
		for _, s := range a.Schemes {
			declared = append(declared, alignment.Protein{Scheme: s})
		}
	}
	return MergeSchemes(append(sets, declared)...)
}

// expandRows rewrites every protein row onto the common positions, inserting
// gap entries where the protein's alignment had no column.
func expandRows(a *alignment.Alignment, segments []alignment.Segment) {
	for i := range a.Proteins {
		row := &a.Proteins[i]
		for _, seg := range segments {
			have := make(map[string]alignment.Entry, len(row.Segments[seg.Name]))
			for _, e := range row.Segments[seg.Name] {
				have[e.Label] = e
			}
			entries := make([]alignment.Entry, len(seg.Positions))
			for j, l := range seg.Positions {
				if e, ok := have[l]; ok {
					entries[j] = e
				} else {
					entries[j] = alignment.Entry{Label: l, Present: false, Symbol: rowGapSymbol}
				}
			}
			row.Segments[seg.Name] = entries
		}
	}
}

// expandConsensus rewrites the consensus onto the common positions with
// neutral placeholders for missing columns.
func expandConsensus(a *alignment.Alignment, segments []alignment.Segment) {
	for _, seg := range segments {
		have := make(map[string]alignment.ConsensusEntry, len(a.Consensus[seg.Name]))
		for _, c := range a.Consensus[seg.Name] {
			have[c.Label] = c
		}
		out := make([]alignment.ConsensusEntry, len(seg.Positions))
		for j, l := range seg.Positions {
			if c, ok := have[l]; ok {
				out[j] = c
			} else {
				out[j] = alignment.ConsensusEntry{Label: l, Symbol: consensusGapSymbol, Colour: alignment.NeutralColour}
			}
		}
		a.Consensus[seg.Name] = out
	}
}
