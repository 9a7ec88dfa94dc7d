package signature

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/inodb/seqsig/internal/aagroup"
	"github.com/inodb/seqsig/internal/alignment"
	"github.com/inodb/seqsig/internal/gn"
)

var schemeA = gn.Scheme{Slug: "gpcrdba", Name: "GPCRdb(A)"}

func grp(code string) int {
	i, ok := aagroup.Default.Index(code)
	if !ok {
		panic("unknown group " + code)
	}
	return i
}

// memSource is an in-memory residue source and protein store.
type memSource struct {
	mu       sync.Mutex
	proteins []alignment.Protein
	residues map[string]map[string]alignment.Residue // protein ID -> label -> residue
	fail     map[string]error
	fetched  int
}

func newMemSource() *memSource {
	return &memSource{residues: map[string]map[string]alignment.Residue{}, fail: map[string]error{}}
}

func (m *memSource) add(id, family string, residues ...alignment.Residue) {
	m.proteins = append(m.proteins, alignment.Protein{
		ID:           id,
		EntryName:    id + "_human",
		FamilySlug:   family,
		Species:      "Human",
		SequenceType: "wt",
		Scheme:       schemeA,
	})
	byLabel := make(map[string]alignment.Residue, len(residues))
	for _, r := range residues {
		byLabel[r.Label] = r
	}
	m.residues[id] = byLabel
}

func (m *memSource) LoadProteins(_ context.Context, names []string) ([]alignment.Protein, error) {
	var out []alignment.Protein
	for _, n := range names {
		found := false
		for _, p := range m.proteins {
			if p.EntryName == n {
				out = append(out, p)
				found = true
			}
		}
		if !found {
			return nil, fmt.Errorf("protein %s not found", n)
		}
	}
	return out, nil
}

func (m *memSource) Residues(_ context.Context, p alignment.Protein, segments []string) ([]alignment.Residue, error) {
	want := map[string]bool{}
	for _, s := range segments {
		want[s] = true
	}
	var out []alignment.Residue
	for _, r := range m.residues[p.ID] {
		if want[r.Segment] {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memSource) Numbering(context.Context, []gn.Scheme, []string) (map[string]map[string]string, error) {
	return map[string]map[string]string{"gpcrdba": {"3x50": "3.50x50"}}, nil
}

func (m *memSource) FetchFamilyMembers(_ context.Context, family string, _ []string) ([]alignment.Protein, error) {
	var out []alignment.Protein
	for _, p := range m.proteins {
		if len(p.FamilySlug) >= len(family) && p.FamilySlug[:len(family)] == family {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memSource) FetchResidues(_ context.Context, p alignment.Protein, labels []string) (map[string]alignment.Residue, error) {
	m.mu.Lock()
	m.fetched++
	m.mu.Unlock()
	if err := m.fail[p.ID]; err != nil {
		return nil, err
	}
	out := map[string]alignment.Residue{}
	for _, l := range labels {
		if r, ok := m.residues[p.ID][l]; ok {
			out[l] = r
		}
	}
	return out, nil
}

func res(label, aa string) alignment.Residue {
	return alignment.Residue{Segment: "TM3", Label: label, AminoAcid: aa}
}

// signatureSource holds two positive proteins aligned at 3x49-3x50 and two
// negative proteins aligned at 3x50-3x51.
//
// Expected signature for TM3 [3x49 3x50 3x51]:
//
//	3x49  alhp  100
//	3x50  pos    50
//	3x51  gap   100
func signatureSource() *memSource {
	src := newMemSource()
	src.add("p1", "001_001", res("3x49", "A"), res("3x50", "R"))
	src.add("p2", "001_001", res("3x49", "A"), res("3x50", "R"))
	src.add("n1", "001_002", res("3x50", "R"), res("3x51", "W"))
	src.add("n2", "001_002", res("3x51", "W"))
	return src
}

var errBoom = errors.New("boom")
