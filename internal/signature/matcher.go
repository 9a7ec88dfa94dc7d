package signature

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/inodb/seqsig/internal/aagroup"
	"github.com/inodb/seqsig/internal/alignment"
	"github.com/inodb/seqsig/internal/gn"
	"github.com/inodb/seqsig/internal/matrix"
)

// DefaultCutoff is the minimum difference value of a relevant position.
const DefaultCutoff = 40

// ProteinStore supplies candidate proteins and their residues.
type ProteinStore interface {
	// FetchFamilyMembers returns the proteins of a family (slug prefix),
	// excluding the given protein IDs.
	FetchFamilyMembers(ctx context.Context, familySlug string, exclude []string) ([]alignment.Protein, error)
	// FetchResidues returns p's residues at the given generic numbers, keyed
	// by label. Labels without a residue are absent from the map.
	FetchResidues(ctx context.Context, p alignment.Protein, labels []string) (map[string]alignment.Residue, error)
}

// Colour tags a per-position match.
type Colour string

const (
	ColourGreen Colour = "green" // expected feature observed
	ColourRed   Colour = "red"   // expected feature not observed
	ColourWhite Colour = "white" // no positive signal at the position
)

// RelevantSegment is a segment with at least one position at or above the
// cutoff.
type RelevantSegment struct {
	Name    string
	Labels  []string    // reference labels of the kept positions
	Columns []int       // indices of the kept positions in the segment
	Matrix  *matrix.Int // difference values, [group][kept position]
}

// PositionMatch is the match detail of one relevant position.
type PositionMatch struct {
	Code    string
	Name    string
	Value   int
	Colour  Colour
	Residue string // observed residue, "_" if none
	Label   string
}

// SegmentMatch holds the match details of one relevant segment.
type SegmentMatch struct {
	Segment   string
	Positions []PositionMatch
}

// ScoredProtein is a candidate with its signature scores.
type ScoredProtein struct {
	Protein    alignment.Protein
	Score      float64 // sum of matched values / 100
	Normalized float64 // percentage of the maximum achievable score
	Matches    []SegmentMatch
}

// Matcher scores proteins against the relevant part of a signature.
type Matcher struct {
	data      SessionData
	cutoff    int
	store     ProteinStore
	groups    *aagroup.Catalogue
	exclude   map[string]bool
	relevant  []RelevantSegment
	positions Positions
	consensus map[string][]FeatureCall
	features  map[string][]int
	norm      int
	report    []*ScoredProtein
	workers   int
	logger    *zap.Logger
}

// NewMatcher filters the signature in data down to the positions whose
// preferred dominant difference is at least cutoff (0-100). proteinSet lists
// the IDs of the proteins that built the signature; they are never scored
// by ScoreProteinClass.
func NewMatcher(data SessionData, proteinSet []string, store ProteinStore, cutoff int) (*Matcher, error) {
	if cutoff < 0 || cutoff > 100 {
		return nil, fmt.Errorf("cutoff %d out of range 0-100", cutoff)
	}
	m := &Matcher{
		data:    data,
		cutoff:  cutoff,
		store:   store,
		groups:  aagroup.Default,
		exclude: make(map[string]bool, len(proteinSet)),
		logger:  zap.NewNop(),
	}
	for _, id := range proteinSet {
		m.exclude[id] = true
	}
	if err := m.findRelevantPositions(); err != nil {
		return nil, err
	}
	m.buildConsensus()
	return m, nil
}

// SetLogger sets the logger for info and debug messages.
func (m *Matcher) SetLogger(l *zap.Logger) {
	m.logger = l
}

// SetWorkers sets the number of concurrent scorers used by
// ScoreProteinClass. Zero means runtime.NumCPU().
func (m *Matcher) SetWorkers(n int) {
	m.workers = n
}

// Cutoff returns the cutoff the matcher was built with.
func (m *Matcher) Cutoff() int { return m.cutoff }

// Schemes returns the numbering schemes of the signature.
func (m *Matcher) Schemes() []gn.Scheme { return m.data.Schemes }

// RelevantSegments returns the segments that kept at least one position.
func (m *Matcher) RelevantSegments() []RelevantSegment { return m.relevant }

// RelevantPositions returns the kept positions per scheme and segment.
func (m *Matcher) RelevantPositions() Positions { return m.positions }

// Consensus returns the feature expected at each relevant position.
func (m *Matcher) Consensus() map[string][]FeatureCall { return m.consensus }

func (m *Matcher) findRelevantPositions() error {
	m.positions = make(Positions, len(m.data.Schemes))
	for _, s := range m.data.Schemes {
		m.positions[s.Slug] = make(map[string][]gn.Position)
	}

	for _, seg := range m.data.Segments {
		diff, ok := m.data.Difference[seg.Name]
		if !ok {
			return fmt.Errorf("%w: no difference matrix for %s", ErrSegmentMismatch, seg.Name)
		}
		if diff.NumCols() != len(seg.Positions) {
			return fmt.Errorf("%w: %s has %d positions but %d matrix columns",
				ErrSegmentMismatch, seg.Name, len(seg.Positions), diff.NumCols())
		}
		if diff.NumRows() != m.groups.Len() {
			return fmt.Errorf("%w: %s matrix has %d groups, catalogue has %d",
				ErrSegmentMismatch, seg.Name, diff.NumRows(), m.groups.Len())
		}

		dominant := m.groups.Dominant(diff.Cols())
		var keep []int
		for c, f := range dominant {
			if diff.At(f, c) >= m.cutoff {
				keep = append(keep, c)
			}
		}
		if len(keep) == 0 {
			continue
		}

		rs := RelevantSegment{Name: seg.Name, Columns: keep, Matrix: diff.SelectCols(keep)}
		for _, c := range keep {
			rs.Labels = append(rs.Labels, seg.Positions[c])
		}
		m.relevant = append(m.relevant, rs)

		for _, s := range m.data.Schemes {
			all := m.data.Positions[s.Slug][seg.Name]
			kept := make([]gn.Position, 0, len(keep))
			for _, c := range keep {
				if c < len(all) {
					kept = append(kept, all[c])
				} else {
					kept = append(kept, gn.Position{Label: seg.Positions[c], Display: seg.Positions[c]})
				}
			}
			m.positions[s.Slug][seg.Name] = kept
		}
	}
	return nil
}

func (m *Matcher) buildConsensus() {
	m.consensus = make(map[string][]FeatureCall, len(m.relevant))
	m.features = make(map[string][]int, len(m.relevant))
	m.norm = 0
	for _, rs := range m.relevant {
		calls := featureCalls(m.groups, rs.Matrix)
		m.consensus[rs.Name] = calls
		feats := make([]int, len(calls))
		for i, c := range calls {
			feats[i] = c.Feature
		}
		m.features[rs.Name] = feats
		for _, v := range rs.Matrix.MaxCols() {
			m.norm += v
		}
	}
}

// relevantLabels returns every relevant label across segments, in order.
func (m *Matcher) relevantLabels() []string {
	var out []string
	for _, rs := range m.relevant {
		out = append(out, rs.Labels...)
	}
	return out
}

// ScoreProtein compares p's residue at every relevant position with the
// expected feature. Matches add the position's value; mismatches add
// nothing. A missing residue matches only an expected gap.
func (m *Matcher) ScoreProtein(ctx context.Context, p alignment.Protein) (*ScoredProtein, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	labels := m.relevantLabels()
	residues := map[string]alignment.Residue{}
	if len(labels) > 0 {
		var err error
		residues, err = m.store.FetchResidues(ctx, p, labels)
		if err != nil {
			return nil, fmt.Errorf("fetch residues of %s: %w", p.EntryName, err)
		}
	}

	raw := 0
	sp := &ScoredProtein{Protein: p}
	for _, rs := range m.relevant {
		feats := m.features[rs.Name]
		matches := make([]PositionMatch, len(rs.Labels))
		for i, label := range rs.Labels {
			f := feats[i]
			g := m.groups.Group(f)
			val := rs.Matrix.At(f, i)
			pm := PositionMatch{Code: g.Code, Name: g.Name, Value: val, Residue: "_", Label: label}

			r, ok := residues[label]
			present := ok && !aagroup.IsGapSymbol(r.AminoAcid)
			var matched bool
			if present {
				pm.Residue = r.AminoAcid
				matched = m.groups.Contains(f, r.AminoAcid)
			} else {
				matched = f == m.groups.Gap()
			}

			switch {
			case val <= 0:
				pm.Colour = ColourWhite
			case matched:
				pm.Colour = ColourGreen
				raw += val
			default:
				pm.Colour = ColourRed
			}
			matches[i] = pm
		}
		sp.Matches = append(sp.Matches, SegmentMatch{Segment: rs.Name, Positions: matches})
	}

	sp.Score = float64(raw) / 100
	if m.norm != 0 {
		sp.Normalized = float64(raw) / float64(m.norm) * 100
	}
	return sp, nil
}

// ScoreProteinClass scores every member of a protein family except the
// proteins that built the signature, and sorts them by score, highest
// first. Equal scores keep the store's order.
func (m *Matcher) ScoreProteinClass(ctx context.Context, familySlug string) ([]*ScoredProtein, error) {
	start := time.Now()

	exclude := make([]string, 0, len(m.exclude))
	for id := range m.exclude {
		exclude = append(exclude, id)
	}
	sort.Strings(exclude)

	fetched, err := m.store.FetchFamilyMembers(ctx, familySlug, exclude)
	if err != nil {
		return nil, fmt.Errorf("fetch family %s: %w", familySlug, err)
	}
	candidates := make([]alignment.Protein, 0, len(fetched))
	for _, p := range fetched {
		if !m.exclude[p.ID] {
			candidates = append(candidates, p)
		}
	}

	scored, err := m.scoreAll(ctx, candidates)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	m.report = scored

	m.logger.Info("scored protein family",
		zap.String("family", familySlug),
		zap.Int("proteins", len(scored)),
		zap.Duration("elapsed", time.Since(start)))
	return scored, nil
}

// ProteinReport returns the proteins scored by the last ScoreProteinClass
// call, highest score first.
func (m *Matcher) ProteinReport() []*ScoredProtein {
	return m.report
}

// ProteinSignatures returns the per-position match details of the last
// ScoreProteinClass call, keyed by protein ID.
func (m *Matcher) ProteinSignatures() map[string][]SegmentMatch {
	out := make(map[string][]SegmentMatch, len(m.report))
	for _, sp := range m.report {
		out[sp.Protein.ID] = sp.Matches
	}
	return out
}

// ScoredProteins returns the proteins of the report in order.
func (m *Matcher) ScoredProteins() []alignment.Protein {
	out := make([]alignment.Protein, len(m.report))
	for i, sp := range m.report {
		out[i] = sp.Protein
	}
	return out
}
