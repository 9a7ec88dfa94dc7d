package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/seqsig/internal/aagroup"
	"github.com/inodb/seqsig/internal/alignment"
	"github.com/inodb/seqsig/internal/gn"
	"github.com/inodb/seqsig/internal/signature"
)

var schemeA = gn.Scheme{Slug: "gpcrdba", Name: "GPCRdb(A)"}

func lines(t *testing.T, buf *bytes.Buffer) [][]string {
	t.Helper()
	var out [][]string
	for _, l := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
		out = append(out, strings.Split(l, "\t"))
	}
	return out
}

func testDisplayData() signature.DisplayData {
	n := aagroup.Default.Len()
	features := make([][][]signature.DiffCell, n)
	for g := range features {
		features[g] = [][]signature.DiffCell{{
			{Value: 0, Bucket: -1, Tooltip: "0 - 0"},
			{Value: 0, Bucket: -1, Tooltip: "0 - 0"},
		}}
	}
	pos, _ := aagroup.Default.Index("pos")
	features[pos][0][1] = signature.DiffCell{Value: 50, Bucket: 7, Tooltip: "100 - 50"}

	call := func(code string, v int) signature.FeatureCall {
		i, _ := aagroup.Default.Index(code)
		return signature.FeatureCall{Feature: i, Code: code, Value: v, Bucket: signature.Bucket(v)}
	}
	return signature.DisplayData{
		NumResidueColumns:         2,
		NumSequencesPositive:      3,
		NumResidueColumnsPositive: 2,
		NumSequencesNegative:      4,
		NumResidueColumnsNegative: 1,
		Schemes:                   []gn.Scheme{schemeA},
		Segments:                  []alignment.Segment{{Name: "TM3", Positions: []string{"3x49", "3x50"}}},
		Positions: signature.Positions{"gpcrdba": {"TM3": {
			{Label: "3x49", Display: "3.49x49"}, {Label: "3x50", Display: "3.50x50"},
		}}},
		Features:          features,
		Signature:         map[string][]signature.FeatureCall{"TM3": {call("-", 0), call("pos", 50)}},
		ConsensusPositive: map[string][]signature.FeatureCall{"TM3": {call("hp", 100), call("pos", 100)}},
		ConsensusNegative: map[string][]signature.FeatureCall{"TM3": {call("hp", 100), call("pos", 50)}},
	}
}

func TestSignatureWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewSignatureWriter(&buf)
	require.NoError(t, w.Write(testDisplayData()))
	require.NoError(t, w.Flush())

	rows := lines(t, &buf)
	require.Len(t, rows, 6)
	assert.Equal(t, []string{"## positions=2"}, rows[0])
	assert.Equal(t, []string{"## positive sequences=3 columns=2"}, rows[1])

	header := rows[3]
	assert.Equal(t, []string{"#segment", "label", "gpcrdba", "signature", "signature_value",
		"positive", "positive_value", "negative", "negative_value"}, header[:9])
	assert.Len(t, header, 9+aagroup.Default.Len())

	second := rows[5]
	assert.Equal(t, []string{"TM3", "3x50", "3.50x50", "pos", "50", "pos", "100", "pos", "50"}, second[:9])
	pos, _ := aagroup.Default.Index("pos")
	assert.Equal(t, "pos", header[9+pos])
	assert.Equal(t, "50 (100 - 50)", second[9+pos])
	assert.Equal(t, "0 (0 - 0)", second[9])
}

// fakeReport is a fixed ReportSource.
type fakeReport struct {
	segments []signature.RelevantSegment
	scored   []*signature.ScoredProtein
}

func (f *fakeReport) Cutoff() int { return 45 }

func (f *fakeReport) Schemes() []gn.Scheme { return []gn.Scheme{schemeA} }

func (f *fakeReport) RelevantSegments() []signature.RelevantSegment { return f.segments }

func (f *fakeReport) RelevantPositions() signature.Positions {
	return signature.Positions{"gpcrdba": {
		"TM3": {{Label: "3x50", Display: "3.50x50"}},
		"TM6": {{Label: "6x48", Display: "<b>6.48</b>x48"}, {Label: "6x49", Display: "broken"}},
	}}
}

func (f *fakeReport) Consensus() map[string][]signature.FeatureCall {
	return map[string][]signature.FeatureCall{
		"TM3": {{Code: "pos", Value: 50}},
		"TM6": {{Code: "ar", Value: 80}, {Code: "-", Value: 45}},
	}
}

func (f *fakeReport) ProteinReport() []*signature.ScoredProtein { return f.scored }

func TestReportWriter(t *testing.T) {
	src := &fakeReport{
		segments: []signature.RelevantSegment{
			{Name: "TM3", Labels: []string{"3x50"}},
			{Name: "TM6", Labels: []string{"6x48", "6x49"}},
		},
		scored: []*signature.ScoredProtein{{
			Protein:    alignment.Protein{EntryName: "adrb2_human", FamilySlug: "001_001", FamilyName: "Adrenoceptors"},
			Score:      1.3,
			Normalized: 74.2857,
			Matches: []signature.SegmentMatch{
				{Segment: "TM3", Positions: []signature.PositionMatch{{Residue: "R", Colour: signature.ColourGreen}}},
				{Segment: "TM6", Positions: []signature.PositionMatch{
					{Residue: "W", Colour: signature.ColourGreen},
					{Residue: "F", Colour: signature.ColourRed},
				}},
			},
		}},
	}

	var buf bytes.Buffer
	w := NewReportWriter(&buf)
	require.NoError(t, w.Write(src))
	require.NoError(t, w.Flush())

	rows := lines(t, &buf)
	require.Len(t, rows, 9)
	assert.Equal(t, []string{"## cutoff=45"}, rows[0])
	assert.Equal(t, []string{"#entry_name", "family", "score", "normalized_score", "3x50", "6x48", "6x49"}, rows[1])
	assert.Equal(t, []string{"#segment", "", "", "", "TM3", "TM6", "TM6"}, rows[2])
	assert.Equal(t, []string{"#GPCRdb(A) tm", "", "", "", "3", "6", ""}, rows[3])
	assert.Equal(t, []string{"#GPCRdb(A) bw", "", "", "", "50", "48", ""}, rows[4])
	assert.Equal(t, []string{"#GPCRdb(A) gpcrdb", "", "", "", "50", "48", ""}, rows[5])
	assert.Equal(t, []string{"#CONSENSUS", "", "", "", "pos", "ar", "-"}, rows[6])
	assert.Equal(t, []string{"#CONSENSUS value", "", "", "", "50", "80", "45"}, rows[7])
	assert.Equal(t, []string{"adrb2_human", "Adrenoceptors", "1.30", "74.3", "R:green", "W:green", "F:red"}, rows[8])
}

func TestReportWriter_Empty(t *testing.T) {
	var buf bytes.Buffer
	w := NewReportWriter(&buf)
	require.NoError(t, w.Write(&fakeReport{}))
	require.NoError(t, w.Flush())

	rows := lines(t, &buf)
	assert.Len(t, rows, 8, "cutoff, header, segment, three scheme rows and two consensus rows")
}
