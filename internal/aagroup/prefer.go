package aagroup

// preferOnce returns the smallest group preferred over feature whose value in
// column equals the value of feature. If none exists, feature is returned.
func (c *Catalogue) preferOnce(column []int, feature int) int {
	target := column[feature]
	best := feature
	bestSize := c.groups[feature].Size()
	for _, g := range c.preference[feature] {
		if column[g] == target && c.groups[g].Size() < bestSize {
			best = g
			bestSize = c.groups[g].Size()
		}
	}
	return best
}

// Prefer applies the "prefer fewer amino acids" rule to a dominant feature
// until it no longer changes. column holds one value per group.
//
// Each substitution moves to a strictly smaller group, so the loop ends after
// at most Len() steps.
func (c *Catalogue) Prefer(column []int, feature int) int {
	for range c.groups {
		next := c.preferOnce(column, feature)
		if next == feature {
			return feature
		}
		feature = next
	}
	return feature
}

// Dominant returns the preferred dominant feature of every column of a
// [group][position] table: argmax over groups followed by Prefer.
func (c *Catalogue) Dominant(columns [][]int) []int {
	out := make([]int, len(columns))
	for i, col := range columns {
		out[i] = c.Prefer(col, argmax(col))
	}
	return out
}

// argmax returns the index of the first maximum.
func argmax(values []int) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}
