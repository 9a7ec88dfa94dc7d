package signature

import (
	"fmt"

	"github.com/inodb/seqsig/internal/alignment"
	"github.com/inodb/seqsig/internal/gn"
	"github.com/inodb/seqsig/internal/matrix"
)

// Result is a calculated sequence signature. It is not modified after
// Calculate returns.
type Result struct {
	Schemes   []gn.Scheme
	Segments  []alignment.Segment
	Positions Positions

	// Positive and Negative are the reconciled alignments, with feature
	// statistics padded to the common positions.
	Positive *alignment.Alignment
	Negative *alignment.Alignment

	// Per segment [group][position] matrices.
	PositiveFeatures map[string]*matrix.Int
	NegativeFeatures map[string]*matrix.Int
	Difference       map[string]*matrix.Int

	Signature         map[string][]FeatureCall
	ConsensusPositive map[string][]FeatureCall
	ConsensusNegative map[string][]FeatureCall

	// ProteinSet holds the IDs of the positive proteins.
	ProteinSet []string

	positiveColumns int
	negativeColumns int
	calculated      bool
}

// DiffCell is a difference value with its colour bucket and a tooltip
// showing the positive and negative frequencies.
type DiffCell struct {
	Value   int
	Bucket  int
	Tooltip string
}

// DisplayData is the read-only view consumed by renderers and exporters.
type DisplayData struct {
	NumResidueColumns         int
	NumSequencesPositive      int
	NumResidueColumnsPositive int
	NumSequencesNegative      int
	NumResidueColumnsNegative int

	Schemes   []gn.Scheme
	Segments  []alignment.Segment
	Positions Positions

	// Features is indexed [group][segment][position].
	Features [][][]DiffCell

	Signature         map[string][]FeatureCall
	ConsensusPositive map[string][]FeatureCall
	ConsensusNegative map[string][]FeatureCall

	Positive *alignment.Alignment
	Negative *alignment.Alignment
}

// SessionData is the minimal state needed to build a Matcher in a later,
// independent request.
type SessionData struct {
	Positions  Positions
	Difference map[string]*matrix.Int
	Schemes    []gn.Scheme
	Segments   []alignment.Segment
	ProteinSet []string
}

// DisplayData prepares the display view of the signature.
func (r *Result) DisplayData() (DisplayData, error) {
	if r == nil || !r.calculated {
		return DisplayData{}, ErrNotCalculated
	}
	d := DisplayData{
		NumSequencesPositive:      len(r.Positive.Proteins),
		NumResidueColumnsPositive: r.positiveColumns,
		NumSequencesNegative:      len(r.Negative.Proteins),
		NumResidueColumnsNegative: r.negativeColumns,
		Schemes:                   r.Schemes,
		Segments:                  r.Segments,
		Positions:                 r.Positions,
		Signature:                 r.Signature,
		ConsensusPositive:         r.ConsensusPositive,
		ConsensusNegative:         r.ConsensusNegative,
		Positive:                  r.Positive,
		Negative:                  r.Negative,
	}
	for _, s := range r.Segments {
		d.NumResidueColumns += len(s.Positions)
	}

	var groups int
	if len(r.Segments) > 0 {
		groups = r.Difference[r.Segments[0].Name].NumRows()
	}
	d.Features = make([][][]DiffCell, groups)
	for g := range d.Features {
		d.Features[g] = make([][]DiffCell, len(r.Segments))
		for si, s := range r.Segments {
			diff := r.Difference[s.Name]
			pos, neg := r.PositiveFeatures[s.Name], r.NegativeFeatures[s.Name]
			cells := make([]DiffCell, diff.NumCols())
			for c := range cells {
				v := diff.At(g, c)
				cells[c] = DiffCell{
					Value:   v,
					Bucket:  Bucket(v),
					Tooltip: fmt.Sprintf("%d - %d", pos.At(g, c), neg.At(g, c)),
				}
			}
			d.Features[g][si] = cells
		}
	}
	return d, nil
}

// SessionData extracts the serializable state for a later Matcher.
func (r *Result) SessionData() (SessionData, error) {
	if r == nil || !r.calculated {
		return SessionData{}, ErrNotCalculated
	}
	diff := make(map[string]*matrix.Int, len(r.Difference))
	for k, m := range r.Difference {
		diff[k] = m.Clone()
	}
	return SessionData{
		Positions:  r.Positions,
		Difference: diff,
		Schemes:    append([]gn.Scheme(nil), r.Schemes...),
		Segments:   r.Segments,
		ProteinSet: append([]string(nil), r.ProteinSet...),
	}, nil
}
