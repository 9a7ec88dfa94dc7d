package gn

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1x50", "1x51", -1},
		{"1x51", "2x40", -1},
		{"2x40", "10x40", -1},
		{"1x50", "1x501", -1},
		{"1x51", "1x51a", -1},
		{"1x51a", "1x51b", -1},
		{"3x50", "3x50", 0},
		{"3.50x50", "3.50x50", 0},
		{"45x50", "3x50", 1},
		{"1x50", "1", 1},
		{"ab", "1x50", 1},
	}
	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, Compare(tt.a, tt.b))
			assert.Equal(t, -tt.want, Compare(tt.b, tt.a))
		})
	}
}

func TestSort(t *testing.T) {
	labels := []string{"2x40", "10x40", "1x51", "1x50", "1x51a"}
	Sort(labels)
	assert.Equal(t, []string{"1x50", "1x51", "1x51a", "2x40", "10x40"}, labels)
}

func TestUnionLabels(t *testing.T) {
	got := UnionLabels([]string{"1x50", "2x40"}, []string{"1x51", "1x50"})
	assert.Equal(t, []string{"1x50", "1x51", "2x40"}, got)
	assert.Empty(t, UnionLabels())
}

func TestUnion_FirstDisplayWins(t *testing.T) {
	a := []Position{{Label: "1x50", Display: "1.50x50"}}
	b := []Position{{Label: "1x49", Display: "1.49x49"}, {Label: "1x50", Display: "other"}}
	got := Union(a, b)
	assert.Equal(t, []Position{
		{Label: "1x49", Display: "1.49x49"},
		{Label: "1x50", Display: "1.50x50"},
	}, got)
	assert.Equal(t, []string{"1x49", "1x50"}, Labels(got))
}

func TestSortSchemes(t *testing.T) {
	s := []Scheme{{Slug: "gpcrdbb", Name: "B"}, {Slug: "gpcrdba", Name: "A"}}
	SortSchemes(s)
	assert.Equal(t, "gpcrdba", s[0].Slug)
}

func TestSplit(t *testing.T) {
	tests := []struct {
		in            string
		seg, sch, ref string
	}{
		{"3.50x50", "3", "50", "50"},
		{"<b>3.50</b>x50", "3", "50", "50"},
		{"3x50", "", "", ""},
		{"", "", "", ""},
		{"1.2.3.4", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			seg, sch, ref := Split(tt.in)
			assert.Equal(t, tt.seg, seg)
			assert.Equal(t, tt.sch, sch)
			assert.Equal(t, tt.ref, ref)
		})
	}
}
