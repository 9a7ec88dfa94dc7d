// Package aagroup defines the amino-acid feature groups used to profile
// alignment positions, together with the "prefer smaller groups" table used
// to break ties between equally valid features.
package aagroup

import (
	"fmt"
	"sort"
	"strings"
)

// GapSymbol is the residue symbol used for an unaligned position.
const GapSymbol = "-"

// Group is a named set of amino acids sharing a physicochemical property.
type Group struct {
	Code    string // short code, e.g. "sma"
	Name    string // display name, e.g. "Small"
	Members string // one-letter amino acid codes
}

// Size returns the number of amino acids in the group.
func (g Group) Size() int {
	return len(g.Members)
}

// IsGap reports whether the group is the implicit gap group.
func (g Group) IsGap() bool {
	return g.Members == GapSymbol
}

// DefaultGroups is the process-wide ordered catalogue. The index of a group
// in this list is its feature identifier everywhere else.
var DefaultGroups = []Group{
	{Code: "hp", Name: "Hydrophobic", Members: "ACFILMPVWY"},
	{Code: "alhp", Name: "Aliphatic hydrophobic", Members: "ACILMPV"},
	{Code: "arhp", Name: "Aromatic hydrophobic", Members: "FWY"},
	{Code: "ar", Name: "Aromatic", Members: "FHWY"},
	{Code: "pol", Name: "Polar", Members: "DEHKNQRST"},
	{Code: "hbd", Name: "H-bond donor", Members: "HKNQRSTWY"},
	{Code: "hba", Name: "H-bond acceptor", Members: "DEHNQSTY"},
	{Code: "neg", Name: "Negative charge", Members: "DE"},
	{Code: "pos", Name: "Positive charge", Members: "HKR"},
	{Code: "lar", Name: "Large", Members: "EFHIKLMQRWY"},
	{Code: "sma", Name: "Small", Members: "ACDGNPSTV"},
	{Code: "-", Name: "Gap", Members: GapSymbol},
}

// Default is the catalogue built from DefaultGroups at startup.
// It is never mutated and may be shared between goroutines.
var Default = MustNew(DefaultGroups)

// Catalogue is an immutable, indexed view of a group list.
type Catalogue struct {
	groups     []Group
	gap        int
	preference map[int][]int
	byResidue  map[byte][]int
	byCode     map[string]int
}

// New builds a catalogue. Exactly one group must be the gap group.
func New(groups []Group) (*Catalogue, error) {
	c := &Catalogue{
		groups:    append([]Group(nil), groups...),
		gap:       -1,
		byResidue: make(map[byte][]int),
		byCode:    make(map[string]int, len(groups)),
	}
	for i, g := range c.groups {
		if g.Size() == 0 {
			return nil, fmt.Errorf("group %q has no members", g.Code)
		}
		if _, dup := c.byCode[g.Code]; dup {
			return nil, fmt.Errorf("duplicate group code %q", g.Code)
		}
		c.byCode[g.Code] = i
		if g.IsGap() {
			if c.gap >= 0 {
				return nil, fmt.Errorf("more than one gap group")
			}
			c.gap = i
		}
		for j := 0; j < len(g.Members); j++ {
			aa := upper(g.Members[j])
			c.byResidue[aa] = append(c.byResidue[aa], i)
		}
	}
	if c.gap < 0 {
		return nil, fmt.Errorf("catalogue has no gap group")
	}
	c.preference = buildPreference(c.groups)
	return c, nil
}

// MustNew is like New but panics on an invalid group list.
func MustNew(groups []Group) *Catalogue {
	c, err := New(groups)
	if err != nil {
		panic(err)
	}
	return c
}

// buildPreference maps every group to the groups strictly smaller than it,
// smallest size first. Groups of equal size keep catalogue order.
func buildPreference(groups []Group) map[int][]int {
	bySize := make(map[int][]int)
	for i, g := range groups {
		bySize[g.Size()] = append(bySize[g.Size()], i)
	}
	sizes := make([]int, 0, len(bySize))
	for s := range bySize {
		sizes = append(sizes, s)
	}
	sort.Ints(sizes)

	pref := make(map[int][]int, len(groups))
	for k, size := range sizes {
		var smaller []int
		for _, s := range sizes[:k] {
			smaller = append(smaller, bySize[s]...)
		}
		for _, g := range bySize[size] {
			pref[g] = smaller
		}
	}
	return pref
}

// Len returns the number of groups.
func (c *Catalogue) Len() int { return len(c.groups) }

// Group returns the group at index i.
func (c *Catalogue) Group(i int) Group { return c.groups[i] }

// Gap returns the index of the gap group.
func (c *Catalogue) Gap() int { return c.gap }

// Index returns the index of the group with the given code.
func (c *Catalogue) Index(code string) (int, bool) {
	i, ok := c.byCode[code]
	return i, ok
}

// Preference returns the groups preferred over group i, smallest first.
// The returned slice must not be modified.
func (c *Catalogue) Preference(i int) []int {
	return c.preference[i]
}

// DefaultColumn returns a feature column describing a fully gapped
// position: 100 for the gap group and 0 elsewhere.
func (c *Catalogue) DefaultColumn() []int {
	col := make([]int, len(c.groups))
	col[c.gap] = 100
	return col
}

// GroupsOf returns the indices of the groups containing the residue.
// An empty or unknown symbol is treated as a gap.
func (c *Catalogue) GroupsOf(residue string) []int {
	if residue == "" {
		return []int{c.gap}
	}
	groups, ok := c.byResidue[upper(residue[0])]
	if !ok {
		return []int{c.gap}
	}
	return groups
}

// Contains reports whether group i contains the residue.
func (c *Catalogue) Contains(i int, residue string) bool {
	for _, g := range c.GroupsOf(residue) {
		if g == i {
			return true
		}
	}
	return false
}

// IsGapSymbol reports whether a residue symbol stands for "no residue".
func IsGapSymbol(s string) bool {
	return s == "" || strings.Trim(s, "-_.") == ""
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 'a' + 'A'
	}
	return b
}
