package alignment

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/inodb/seqsig/internal/aagroup"
	"github.com/inodb/seqsig/internal/gn"
)

// ResidueBuilder builds alignments by stacking the generic-numbered residues
// of each protein supplied by a ResidueSource.
type ResidueBuilder struct {
	src    ResidueSource
	groups *aagroup.Catalogue
	logger *zap.Logger
}

// NewResidueBuilder creates a builder over src using the default catalogue.
func NewResidueBuilder(src ResidueSource) *ResidueBuilder {
	return &ResidueBuilder{
		src:    src,
		groups: aagroup.Default,
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for debug messages.
func (b *ResidueBuilder) SetLogger(l *zap.Logger) {
	b.logger = l
}

// LoadProteins resolves entry names to protein records.
func (b *ResidueBuilder) LoadProteins(ctx context.Context, entryNames []string) ([]Protein, error) {
	return b.src.LoadProteins(ctx, entryNames)
}

// Build aligns the proteins over the given segments. The position set of
// each segment is the sorted union of the labels found in any protein.
func (b *ResidueBuilder) Build(ctx context.Context, proteins []Protein, segments []string, schemes []gn.Scheme) (*Alignment, error) {
	if len(proteins) == 0 {
		return nil, ErrNoProteins
	}

	// protein index -> segment -> label -> residue
	residues := make([]map[string]map[string]Residue, len(proteins))
	labelsBySeg := make(map[string][]string, len(segments))
	for i, p := range proteins {
		rs, err := b.src.Residues(ctx, p, segments)
		if err != nil {
			return nil, fmt.Errorf("residues of %s: %w", p.EntryName, err)
		}
		bySeg := make(map[string]map[string]Residue)
		for _, r := range rs {
			if bySeg[r.Segment] == nil {
				bySeg[r.Segment] = make(map[string]Residue)
			}
			bySeg[r.Segment][r.Label] = r
			labelsBySeg[r.Segment] = append(labelsBySeg[r.Segment], r.Label)
		}
		residues[i] = bySeg
	}

	aln := &Alignment{
		Schemes:        append([]gn.Scheme(nil), schemes...),
		GenericNumbers: make(map[string]map[string][]gn.Position, len(schemes)),
		Consensus:      make(map[string][]ConsensusEntry, len(segments)),
	}
	var allLabels []string
	for _, seg := range segments {
		labels := gn.UnionLabels(labelsBySeg[seg])
		aln.Segments = append(aln.Segments, Segment{Name: seg, Positions: labels})
		allLabels = append(allLabels, labels...)
	}

	numbering, err := b.src.Numbering(ctx, schemes, allLabels)
	if err != nil {
		return nil, fmt.Errorf("numbering: %w", err)
	}
	for _, s := range schemes {
		bySeg := make(map[string][]gn.Position, len(aln.Segments))
		for _, seg := range aln.Segments {
			ps := make([]gn.Position, len(seg.Positions))
			for i, l := range seg.Positions {
				display := numbering[s.Slug][l]
				if display == "" {
					display = l
				}
				ps[i] = gn.Position{Label: l, Display: display}
			}
			bySeg[seg.Name] = ps
		}
		aln.GenericNumbers[s.Slug] = bySeg
	}

	for i, p := range proteins {
		row := ProteinRow{Protein: p, Segments: make(map[string][]Entry, len(aln.Segments))}
		for _, seg := range aln.Segments {
			entries := make([]Entry, len(seg.Positions))
			for j, l := range seg.Positions {
				if r, ok := residues[i][seg.Name][l]; ok && !aagroup.IsGapSymbol(r.AminoAcid) {
					entries[j] = Entry{Label: l, Present: true, Symbol: r.AminoAcid}
				} else {
					entries[j] = Entry{Label: l, Present: false, Symbol: aagroup.GapSymbol}
				}
			}
			row.Segments[seg.Name] = entries
		}
		aln.Proteins = append(aln.Proteins, row)
	}

	b.calculateStatistics(aln)

	b.logger.Debug("built alignment",
		zap.Int("proteins", len(aln.Proteins)),
		zap.Int("positions", aln.NumPositions()))
	return aln, nil
}

// calculateStatistics fills residue qualities, the consensus sequence and
// the per-group feature frequencies.
func (b *ResidueBuilder) calculateStatistics(aln *Alignment) {
	n := len(aln.Proteins)
	aln.FeatureStats = make([][][]FeatureStat, b.groups.Len())
	for g := range aln.FeatureStats {
		aln.FeatureStats[g] = make([][]FeatureStat, len(aln.Segments))
	}

	for si, seg := range aln.Segments {
		consensus := make([]ConsensusEntry, len(seg.Positions))
		for g := range aln.FeatureStats {
			aln.FeatureStats[g][si] = make([]FeatureStat, len(seg.Positions))
		}

		for j, label := range seg.Positions {
			symbolCount := make(map[string]int)
			var order []string
			groupCount := make([]int, b.groups.Len())
			for _, row := range aln.Proteins {
				sym := row.Segments[seg.Name][j].Symbol
				if symbolCount[sym] == 0 {
					order = append(order, sym)
				}
				symbolCount[sym]++
				for _, g := range b.groups.GroupsOf(sym) {
					groupCount[g]++
				}
			}

			for g, c := range groupCount {
				aln.FeatureStats[g][si][j] = NewFeatureStat(percent(c, n))
			}

			best := order[0]
			for _, sym := range order[1:] {
				if symbolCount[sym] > symbolCount[best] {
					best = sym
				}
			}
			q := percent(symbolCount[best], n)
			consensus[j] = ConsensusEntry{Label: label, Symbol: best, Quality: q, Colour: q / 10}

			for _, row := range aln.Proteins {
				e := &row.Segments[seg.Name][j]
				if e.Present {
					e.Quality = percent(symbolCount[e.Symbol], n)
				}
			}
		}
		aln.Consensus[seg.Name] = consensus
	}
}

func percent(count, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(count) * 100 / float64(total)))
}
