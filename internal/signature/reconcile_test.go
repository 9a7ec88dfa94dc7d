package signature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/seqsig/internal/alignment"
	"github.com/inodb/seqsig/internal/gn"
)

func segAlignment(proteinID string, scheme gn.Scheme, segments ...alignment.Segment) *alignment.Alignment {
	a := &alignment.Alignment{
		Schemes:        []gn.Scheme{scheme},
		Segments:       segments,
		GenericNumbers: map[string]map[string][]gn.Position{scheme.Slug: {}},
		Consensus:      map[string][]alignment.ConsensusEntry{},
	}
	row := alignment.ProteinRow{
		Protein:  alignment.Protein{ID: proteinID, Scheme: scheme},
		Segments: map[string][]alignment.Entry{},
	}
	for _, s := range segments {
		var ps []gn.Position
		for _, l := range s.Positions {
			ps = append(ps, gn.Position{Label: l, Display: scheme.Slug + ":" + l})
			row.Segments[s.Name] = append(row.Segments[s.Name], alignment.Entry{Label: l, Present: true, Symbol: "A", Quality: 100})
			a.Consensus[s.Name] = append(a.Consensus[s.Name], alignment.ConsensusEntry{Label: l, Symbol: "A", Quality: 100, Colour: 10})
		}
		a.GenericNumbers[scheme.Slug][s.Name] = ps
	}
	a.Proteins = []alignment.ProteinRow{row}
	return a
}

func TestMergeSchemes(t *testing.T) {
	b := gn.Scheme{Slug: "gpcrdbb", Name: "GPCRdb(B)"}
	got := MergeSchemes(
		[]alignment.Protein{{Scheme: b}, {Scheme: schemeA}},
		[]alignment.Protein{{Scheme: schemeA}, {}},
	)
	assert.Equal(t, []gn.Scheme{schemeA, b}, got)
}

func TestReconcile(t *testing.T) {
	schemeB := gn.Scheme{Slug: "gpcrdbb"}
	pos := segAlignment("p", schemeA,
		alignment.Segment{Name: "TM3", Positions: []string{"3x49", "3x50"}},
		alignment.Segment{Name: "TM4", Positions: []string{"4x50"}})
	neg := segAlignment("n", schemeB,
		alignment.Segment{Name: "TM3", Positions: []string{"3x50", "3x51"}},
		alignment.Segment{Name: "TM4", Positions: nil})

	rec, err := Reconcile(pos, neg)
	require.NoError(t, err)

	assert.Equal(t, []gn.Scheme{schemeA, schemeB}, rec.Schemes)
	require.Len(t, rec.Segments, 2)
	assert.Equal(t, []string{"3x49", "3x50", "3x51"}, rec.Segments[0].Positions)
	assert.Equal(t, []string{"4x50"}, rec.Segments[1].Positions)

	// every scheme lists all labels; displays come from either side
	a := rec.Positions["gpcrdba"]["TM3"]
	b := rec.Positions["gpcrdbb"]["TM3"]
	assert.Equal(t, gn.Labels(a), gn.Labels(b))
	assert.Equal(t, "gpcrdba:3x49", a[0].Display)
	assert.Equal(t, "3x49", b[0].Display)
	assert.Equal(t, "gpcrdbb:3x51", b[2].Display)

	posRow := rec.Positive.Proteins[0].Segments["TM3"]
	require.Len(t, posRow, 3)
	assert.Equal(t, alignment.Entry{Label: "3x51", Symbol: "_"}, posRow[2])
	negRow := rec.Negative.Proteins[0].Segments["TM3"]
	assert.Equal(t, alignment.Entry{Label: "3x49", Symbol: "_"}, negRow[0])
	assert.True(t, negRow[1].Present)

	negCons := rec.Negative.Consensus["TM4"]
	require.Len(t, negCons, 1)
	assert.Equal(t, alignment.ConsensusEntry{Label: "4x50", Symbol: "-", Colour: alignment.NeutralColour}, negCons[0])

	// inputs are untouched
	assert.Len(t, pos.Proteins[0].Segments["TM3"], 2)
	assert.Len(t, neg.Consensus["TM4"], 0)
	assert.Equal(t, []string{"3x50", "3x51"}, rec.Negative.Segments[0].Positions, "own positions are kept")
}

func TestReconcile_SegmentMismatch(t *testing.T) {
	pos := segAlignment("p", schemeA, alignment.Segment{Name: "TM3"})
	neg := segAlignment("n", schemeA, alignment.Segment{Name: "TM3"}, alignment.Segment{Name: "TM4"})
	_, err := Reconcile(pos, neg)
	assert.ErrorIs(t, err, ErrSegmentMismatch)

	neg = segAlignment("n", schemeA, alignment.Segment{Name: "TM5"})
	_, err = Reconcile(pos, neg)
	assert.ErrorIs(t, err, ErrSegmentMismatch)

	_, err = Reconcile(nil, neg)
	assert.Error(t, err)
}
