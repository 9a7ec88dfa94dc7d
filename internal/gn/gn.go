// Package gn handles generic residue numbers: scheme-specific position labels
// such as "3x50" that are comparable across proteins regardless of their raw
// sequence index.
package gn

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Scheme identifies a residue numbering convention.
type Scheme struct {
	Slug string
	Name string
}

// Position is a generic number. Label is the position in the reference
// numbering and is shared by all schemes; Display is how the position is
// written in a particular scheme (e.g. "3.50x50").
type Position struct {
	Label   string
	Display string
}

// SortSchemes orders schemes by slug. The first scheme is the reference.
func SortSchemes(schemes []Scheme) {
	sort.SliceStable(schemes, func(i, j int) bool { return schemes[i].Slug < schemes[j].Slug })
}

// Compare orders two labels. Labels are split on 'x' and '.'; components are
// compared by their leading integer and then by the remaining suffix, so
// "1x50" < "1x51" < "1x51a" < "2x40" < "10x40".
func Compare(a, b string) int {
	ca, cb := components(a), components(b)
	for i := 0; i < len(ca) && i < len(cb); i++ {
		if c := compareComponent(ca[i], cb[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(ca) < len(cb):
		return -1
	case len(ca) > len(cb):
		return 1
	}
	return 0
}

// Less reports whether label a sorts before b.
func Less(a, b string) bool { return Compare(a, b) < 0 }

// Sort sorts labels in place.
func Sort(labels []string) {
	sort.SliceStable(labels, func(i, j int) bool { return Less(labels[i], labels[j]) })
}

// SortPositions sorts positions in place by label.
func SortPositions(ps []Position) {
	sort.SliceStable(ps, func(i, j int) bool { return Less(ps[i].Label, ps[j].Label) })
}

// UnionLabels returns the sorted union of label sets without duplicates.
func UnionLabels(sets ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, set := range sets {
		for _, l := range set {
			if !seen[l] {
				seen[l] = true
				out = append(out, l)
			}
		}
	}
	Sort(out)
	return out
}

// Union returns the sorted union of position lists keyed by label. When a
// label occurs more than once the first Display seen wins.
func Union(sets ...[]Position) []Position {
	seen := make(map[string]bool)
	var out []Position
	for _, set := range sets {
		for _, p := range set {
			if !seen[p.Label] {
				seen[p.Label] = true
				out = append(out, p)
			}
		}
	}
	SortPositions(out)
	return out
}

// Labels returns the labels of ps in order.
func Labels(ps []Position) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Label
	}
	return out
}

var (
	tagRe   = regexp.MustCompile(`<[^>]*>`)
	splitRe = regexp.MustCompile(`[.x]`)
)

// Split breaks a display label such as "3.50x50" into its segment, scheme
// and reference components. HTML markup is ignored. A label that does not
// have exactly three components yields three empty strings.
func Split(display string) (segment, scheme, reference string) {
	parts := splitRe.Split(tagRe.ReplaceAllString(display, ""), -1)
	if len(parts) != 3 {
		return "", "", ""
	}
	return parts[0], parts[1], parts[2]
}

type component struct {
	num    int
	hasNum bool
	suffix string
}

func components(label string) []component {
	fields := strings.FieldsFunc(label, func(r rune) bool { return r == 'x' || r == '.' })
	out := make([]component, len(fields))
	for i, f := range fields {
		end := 0
		for end < len(f) && f[end] >= '0' && f[end] <= '9' {
			end++
		}
		c := component{suffix: f[end:]}
		if end > 0 {
			if n, err := strconv.Atoi(f[:end]); err == nil {
				c.num, c.hasNum = n, true
			} else {
				c.suffix = f
			}
		}
		out[i] = c
	}
	return out
}

func compareComponent(a, b component) int {
	switch {
	case a.hasNum && b.hasNum:
		if a.num != b.num {
			if a.num < b.num {
				return -1
			}
			return 1
		}
	case a.hasNum:
		return -1
	case b.hasNum:
		return 1
	}
	return strings.Compare(a.suffix, b.suffix)
}
