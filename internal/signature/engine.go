// Package signature computes sequence signatures: the positional feature
// differences between a positive and a negative set of aligned proteins, and
// scores other proteins for similarity to the positive set.
package signature

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/inodb/seqsig/internal/aagroup"
	"github.com/inodb/seqsig/internal/alignment"
	"github.com/inodb/seqsig/internal/gn"
	"github.com/inodb/seqsig/internal/matrix"
)

// ErrNotCalculated is returned when display or session data is requested
// before the signature was calculated.
var ErrNotCalculated = errors.New("signature not calculated")

// FeatureCall is the feature group assigned to one position.
type FeatureCall struct {
	Feature int // group index
	Code    string
	Name    string
	Value   int
	Bucket  int
}

// Bucket maps a value in [-100,100] to a colour bucket: value/20+5
// (truncated toward zero), or -1 for exactly zero.
func Bucket(v int) int {
	if v == 0 {
		return -1
	}
	return v/20 + 5
}

// Engine builds both alignments and computes their feature differences.
type Engine struct {
	builder alignment.Builder
	groups  *aagroup.Catalogue
	logger  *zap.Logger
}

// NewEngine creates an engine that builds alignments with b.
func NewEngine(b alignment.Builder) *Engine {
	return &Engine{
		builder: b,
		groups:  aagroup.Default,
		logger:  zap.NewNop(),
	}
}

// SetLogger sets the logger for info and debug messages.
func (e *Engine) SetLogger(l *zap.Logger) {
	e.logger = l
}

// Setup loads both protein sets, unifies their numbering schemes, builds
// both alignments concurrently and reconciles them.
func (e *Engine) Setup(ctx context.Context, segments, positive, negative []string) (*Reconciled, error) {
	posProteins, err := e.builder.LoadProteins(ctx, positive)
	if err != nil {
		return nil, fmt.Errorf("load positive set: %w", err)
	}
	negProteins, err := e.builder.LoadProteins(ctx, negative)
	if err != nil {
		return nil, fmt.Errorf("load negative set: %w", err)
	}
	if len(posProteins) == 0 || len(negProteins) == 0 {
		return nil, alignment.ErrNoProteins
	}

	schemes := MergeSchemes(posProteins, negProteins)

	var alnPos, alnNeg *alignment.Alignment
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := e.builder.Build(gctx, posProteins, segments, schemes)
		if err != nil {
			return fmt.Errorf("build positive alignment: %w", err)
		}
		alnPos = a
		return nil
	})
	g.Go(func() error {
		a, err := e.builder.Build(gctx, negProteins, segments, schemes)
		if err != nil {
			return fmt.Errorf("build negative alignment: %w", err)
		}
		alnNeg = a
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	e.logger.Info("alignments built",
		zap.Int("positive", len(posProteins)),
		zap.Int("negative", len(negProteins)),
		zap.Int("schemes", len(schemes)))

	return Reconcile(alnPos, alnNeg)
}

// Run is Setup followed by Calculate.
func (e *Engine) Run(ctx context.Context, segments, positive, negative []string) (*Result, error) {
	rec, err := e.Setup(ctx, segments, positive, negative)
	if err != nil {
		return nil, err
	}
	return e.Calculate(rec)
}

// Calculate computes the difference matrix, the signature and the consensus
// feature profile of each set. rec is not modified.
func (e *Engine) Calculate(rec *Reconciled) (*Result, error) {
	start := time.Now()

	res := &Result{
		Schemes:           append([]gn.Scheme(nil), rec.Schemes...),
		Segments:          rec.Segments,
		Positions:         rec.Positions,
		Positive:          rec.Positive.Clone(),
		Negative:          rec.Negative.Clone(),
		PositiveFeatures:  make(map[string]*matrix.Int, len(rec.Segments)),
		NegativeFeatures:  make(map[string]*matrix.Int, len(rec.Segments)),
		Difference:        make(map[string]*matrix.Int, len(rec.Segments)),
		Signature:         make(map[string][]FeatureCall, len(rec.Segments)),
		ConsensusPositive: make(map[string][]FeatureCall, len(rec.Segments)),
		ConsensusNegative: make(map[string][]FeatureCall, len(rec.Segments)),
		positiveColumns:   rec.Positive.NumPositions(),
		negativeColumns:   rec.Negative.NumPositions(),
	}
	for _, row := range rec.Positive.Proteins {
		res.ProteinSet = append(res.ProteinSet, row.Protein.ID)
	}

	for _, seg := range rec.Segments {
		pf, err := e.padded(rec.Positive, seg)
		if err != nil {
			return nil, fmt.Errorf("positive %s: %w", seg.Name, err)
		}
		nf, err := e.padded(rec.Negative, seg)
		if err != nil {
			return nil, fmt.Errorf("negative %s: %w", seg.Name, err)
		}
		diff, err := matrix.Sub(pf, nf)
		if err != nil {
			return nil, fmt.Errorf("difference %s: %w", seg.Name, err)
		}

		res.PositiveFeatures[seg.Name] = pf
		res.NegativeFeatures[seg.Name] = nf
		res.Difference[seg.Name] = diff
		res.Signature[seg.Name] = e.featureCalls(diff)
		res.ConsensusPositive[seg.Name] = e.featureCalls(pf)
		res.ConsensusNegative[seg.Name] = e.featureCalls(nf)
	}

	adoptCommonPositions(res.Positive, res.Segments, res.Positions, res.PositiveFeatures)
	adoptCommonPositions(res.Negative, res.Segments, res.Positions, res.NegativeFeatures)
	res.calculated = true

	e.logger.Debug("signature calculated",
		zap.Int("segments", len(res.Segments)),
		zap.Duration("elapsed", time.Since(start)))
	return res, nil
}

// padded returns the [group][common position] feature matrix of one segment.
// Positions the alignment did not align itself get the fully gapped
// default column.
func (e *Engine) padded(a *alignment.Alignment, seg alignment.Segment) (*matrix.Int, error) {
	own := a.SegmentFeatures(seg.Name)
	if own.NumRows() != e.groups.Len() {
		return nil, fmt.Errorf("feature statistics have %d groups, catalogue has %d", own.NumRows(), e.groups.Len())
	}
	ownCol := make(map[string]int)
	if si := a.SegmentIndex(seg.Name); si >= 0 {
		for i, l := range a.Segments[si].Positions {
			ownCol[l] = i
		}
	}
	cols := make([][]int, len(seg.Positions))
	for i, l := range seg.Positions {
		if c, ok := ownCol[l]; ok {
			cols[i] = own.Col(c)
		} else {
			cols[i] = e.groups.DefaultColumn()
		}
	}
	return matrix.FromCols(e.groups.Len(), cols)
}

// PreferredFeature applies the "prefer fewer amino acids" rule to feature at
// column col of m until it stabilises.
func (e *Engine) PreferredFeature(m *matrix.Int, col, feature int) int {
	return e.groups.Prefer(m.Col(col), feature)
}

// featureCalls assigns the preferred dominant feature to every column.
func (e *Engine) featureCalls(m *matrix.Int) []FeatureCall {
	dominant := m.ArgmaxCols()
	for c, f := range dominant {
		dominant[c] = e.PreferredFeature(m, c, f)
	}
	return calls(e.groups, m, dominant)
}

func featureCalls(groups *aagroup.Catalogue, m *matrix.Int) []FeatureCall {
	return calls(groups, m, groups.Dominant(m.Cols()))
}

func calls(groups *aagroup.Catalogue, m *matrix.Int, dominant []int) []FeatureCall {
	out := make([]FeatureCall, len(dominant))
	for c, f := range dominant {
		g := groups.Group(f)
		v := m.At(f, c)
		out[c] = FeatureCall{Feature: f, Code: g.Code, Name: g.Name, Value: v, Bucket: Bucket(v)}
	}
	return out
}

// adoptCommonPositions moves an alignment fully onto the common positions,
// replacing its feature statistics with the padded frequencies.
func adoptCommonPositions(a *alignment.Alignment, segments []alignment.Segment, positions Positions, features map[string]*matrix.Int) {
	a.Segments = nil
	for _, s := range segments {
		a.Segments = append(a.Segments, alignment.Segment{Name: s.Name, Positions: append([]string(nil), s.Positions...)})
	}
	a.GenericNumbers = make(map[string]map[string][]gn.Position, len(positions))
	for scheme, bySeg := range positions {
		m := make(map[string][]gn.Position, len(bySeg))
		for seg, ps := range bySeg {
			m[seg] = append([]gn.Position(nil), ps...)
		}
		a.GenericNumbers[scheme] = m
	}

	var rows int
	for _, f := range features {
		rows = f.NumRows()
		break
	}
	stats := make([][][]alignment.FeatureStat, rows)
	for g := range stats {
		stats[g] = make([][]alignment.FeatureStat, len(segments))
		for si, s := range segments {
			f := features[s.Name]
			row := make([]alignment.FeatureStat, f.NumCols())
			for c := range row {
				row[c] = alignment.NewFeatureStat(f.At(g, c))
			}
			stats[g][si] = row
		}
	}
	a.FeatureStats = stats
}
