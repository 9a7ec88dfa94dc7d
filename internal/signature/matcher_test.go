package signature

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/seqsig/internal/aagroup"
	"github.com/inodb/seqsig/internal/alignment"
	"github.com/inodb/seqsig/internal/gn"
	"github.com/inodb/seqsig/internal/matrix"
)

// singlePosition returns session data for one TM3 position at 3x50 where
// only the given group has a non-zero difference.
func singlePosition(code string, value int) SessionData {
	diff := matrix.New(aagroup.Default.Len(), 1)
	diff.Set(grp(code), 0, value)
	return SessionData{
		Schemes:    []gn.Scheme{schemeA},
		Segments:   []alignment.Segment{{Name: "TM3", Positions: []string{"3x50"}}},
		Positions:  Positions{"gpcrdba": {"TM3": {{Label: "3x50", Display: "3.50x50"}}}},
		Difference: map[string]*matrix.Int{"TM3": diff},
	}
}

func sessionFor(t *testing.T, src *memSource) SessionData {
	t.Helper()
	sd, err := runSignature(t, src).SessionData()
	require.NoError(t, err)
	return sd
}

func TestScoreProtein_SinglePosition(t *testing.T) {
	src := newMemSource()
	src.add("a", "001", res("3x50", "A"))
	src.add("w", "001", res("3x50", "W"))
	src.add("none", "001")

	m, err := NewMatcher(singlePosition("sma", 60), nil, src, DefaultCutoff)
	require.NoError(t, err)
	ctx := context.Background()

	tests := []struct {
		id         string
		score      float64
		normalized float64
		colour     Colour
		residue    string
	}{
		{"a", 0.6, 100, ColourGreen, "A"},
		{"w", 0, 0, ColourRed, "W"},
		{"none", 0, 0, ColourRed, "_"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			sp, err := m.ScoreProtein(ctx, alignment.Protein{ID: tt.id})
			require.NoError(t, err)
			assert.InDelta(t, tt.score, sp.Score, 1e-9)
			assert.InDelta(t, tt.normalized, sp.Normalized, 1e-9)
			require.Len(t, sp.Matches, 1)
			pm := sp.Matches[0].Positions[0]
			assert.Equal(t, tt.colour, pm.Colour)
			assert.Equal(t, tt.residue, pm.Residue)
			assert.Equal(t, "sma", pm.Code)
			assert.Equal(t, 60, pm.Value)
			assert.Equal(t, "3x50", pm.Label)
		})
	}
}

func TestScoreProtein_ExpectedGap(t *testing.T) {
	src := newMemSource()
	src.add("none", "001")
	src.add("gapped", "001", res("3x50", "-"))
	src.add("y", "001", res("3x50", "Y"))

	m, err := NewMatcher(singlePosition("-", 60), nil, src, DefaultCutoff)
	require.NoError(t, err)
	ctx := context.Background()

	sp, err := m.ScoreProtein(ctx, alignment.Protein{ID: "none"})
	require.NoError(t, err)
	assert.InDelta(t, 0.6, sp.Score, 1e-9)
	assert.Equal(t, ColourGreen, sp.Matches[0].Positions[0].Colour)

	sp, err = m.ScoreProtein(ctx, alignment.Protein{ID: "gapped"})
	require.NoError(t, err)
	assert.InDelta(t, 0.6, sp.Score, 1e-9)
	assert.Equal(t, "_", sp.Matches[0].Positions[0].Residue)

	sp, err = m.ScoreProtein(ctx, alignment.Protein{ID: "y"})
	require.NoError(t, err)
	assert.Zero(t, sp.Score)
	assert.Equal(t, ColourRed, sp.Matches[0].Positions[0].Colour)
}

func TestScoreProtein_ZeroNorm(t *testing.T) {
	src := newMemSource()
	src.add("a", "001", res("3x50", "A"))

	m, err := NewMatcher(singlePosition("sma", 0), nil, src, 0)
	require.NoError(t, err)
	require.Len(t, m.RelevantSegments(), 1)

	sp, err := m.ScoreProtein(context.Background(), alignment.Protein{ID: "a"})
	require.NoError(t, err)
	assert.Zero(t, sp.Score)
	assert.Zero(t, sp.Normalized)
	assert.Equal(t, ColourWhite, sp.Matches[0].Positions[0].Colour)
}

func TestScoreProtein_NoRelevantPositions(t *testing.T) {
	src := newMemSource()
	src.add("a", "001", res("3x50", "A"))

	m, err := NewMatcher(singlePosition("sma", 30), nil, src, DefaultCutoff)
	require.NoError(t, err)
	assert.Empty(t, m.RelevantSegments())

	sp, err := m.ScoreProtein(context.Background(), alignment.Protein{ID: "a"})
	require.NoError(t, err)
	assert.Zero(t, sp.Normalized)
	assert.Empty(t, sp.Matches)
	assert.Zero(t, src.fetched, "no residues fetched without relevant positions")
}

func TestNewMatcher_Validation(t *testing.T) {
	src := newMemSource()
	_, err := NewMatcher(singlePosition("sma", 60), nil, src, 101)
	assert.Error(t, err)
	_, err = NewMatcher(singlePosition("sma", 60), nil, src, -1)
	assert.Error(t, err)

	sd := singlePosition("sma", 60)
	sd.Segments[0].Positions = append(sd.Segments[0].Positions, "3x51")
	_, err = NewMatcher(sd, nil, src, DefaultCutoff)
	assert.ErrorIs(t, err, ErrSegmentMismatch)

	sd = singlePosition("sma", 60)
	delete(sd.Difference, "TM3")
	_, err = NewMatcher(sd, nil, src, DefaultCutoff)
	assert.ErrorIs(t, err, ErrSegmentMismatch)
}

func TestMatcher_RelevantPositions(t *testing.T) {
	src := signatureSource()
	sd := sessionFor(t, src)

	m, err := NewMatcher(sd, sd.ProteinSet, src, DefaultCutoff)
	require.NoError(t, err)
	require.Len(t, m.RelevantSegments(), 1)
	assert.Equal(t, []string{"3x49", "3x50", "3x51"}, m.RelevantSegments()[0].Labels)

	m, err = NewMatcher(sd, sd.ProteinSet, src, 60)
	require.NoError(t, err)
	rs := m.RelevantSegments()[0]
	assert.Equal(t, []string{"3x49", "3x51"}, rs.Labels)
	assert.Equal(t, []int{0, 2}, rs.Columns)
	assert.Equal(t, []gn.Position{{Label: "3x49", Display: "3x49"}, {Label: "3x51", Display: "3x51"}},
		m.RelevantPositions()["gpcrdba"]["TM3"])

	cons := m.Consensus()["TM3"]
	require.Len(t, cons, 2)
	assert.Equal(t, "alhp", cons[0].Code)
	assert.Equal(t, "-", cons[1].Code)
}

func TestMatcher_CutoffMonotonic(t *testing.T) {
	src := signatureSource()
	sd := sessionFor(t, src)

	count := func(cutoff int) int {
		m, err := NewMatcher(sd, nil, src, cutoff)
		require.NoError(t, err)
		n := 0
		for _, rs := range m.RelevantSegments() {
			n += len(rs.Labels)
		}
		return n
	}
	prev := count(0)
	for c := 10; c <= 100; c += 10 {
		n := count(c)
		assert.LessOrEqual(t, n, prev, "cutoff %d", c)
		prev = n
	}
}

func TestScoreProteinClass(t *testing.T) {
	src := signatureSource()
	sd := sessionFor(t, src)
	src.add("x", "001_003", res("3x49", "A"), res("3x50", "K"))
	src.add("y", "001_003", res("3x49", "W"), res("3x50", "D"), res("3x51", "Y"))
	src.add("z", "001_003", res("3x49", "V"))
	src.add("other", "002_001", res("3x49", "A"))

	m, err := NewMatcher(sd, sd.ProteinSet, src, DefaultCutoff)
	require.NoError(t, err)
	m.SetWorkers(3)

	scored, err := m.ScoreProteinClass(context.Background(), "001")
	require.NoError(t, err)

	var ids []string
	for _, sp := range scored {
		ids = append(ids, sp.Protein.ID)
		assert.NotContains(t, sd.ProteinSet, sp.Protein.ID)
	}
	// x: 100+50+100, z: 100+100, n1: 50, n2: 0, y: 0
	assert.Equal(t, []string{"x", "z", "n1", "n2", "y"}, ids)
	assert.InDelta(t, 2.5, scored[0].Score, 1e-9)
	assert.InDelta(t, 100, scored[0].Normalized, 1e-9)
	assert.InDelta(t, 80, scored[1].Normalized, 1e-9)

	assert.Equal(t, scored, m.ProteinReport())
	sigs := m.ProteinSignatures()
	assert.Len(t, sigs, 5)
	assert.Equal(t, ColourRed, sigs["y"][0].Positions[2].Colour)
	assert.Equal(t, "Y", sigs["y"][0].Positions[2].Residue)
	assert.Len(t, m.ScoredProteins(), 5)
}

func TestScoreProteinClass_StableTies(t *testing.T) {
	src := newMemSource()
	names := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for _, n := range names {
		src.add(n, "001", res("3x50", "W"))
	}
	m, err := NewMatcher(singlePosition("sma", 60), nil, src, DefaultCutoff)
	require.NoError(t, err)
	m.SetWorkers(4)

	scored, err := m.ScoreProteinClass(context.Background(), "001")
	require.NoError(t, err)
	require.Len(t, scored, len(names))
	for i, sp := range scored {
		assert.Equal(t, names[i], sp.Protein.ID)
	}
}

func TestScoreProteinClass_Errors(t *testing.T) {
	src := newMemSource()
	for _, n := range []string{"a", "b", "c"} {
		src.add(n, "001", res("3x50", "A"))
	}
	m, err := NewMatcher(singlePosition("sma", 60), nil, src, DefaultCutoff)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.ScoreProteinClass(ctx, "001")
	assert.ErrorIs(t, err, context.Canceled)

	src.fail["b"] = errBoom
	_, err = m.ScoreProteinClass(context.Background(), "001")
	assert.ErrorIs(t, err, errBoom)
}
