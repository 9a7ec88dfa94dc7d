package signature

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/seqsig/internal/alignment"
)

func makeItems(n int) <-chan WorkItem {
	ch := make(chan WorkItem, n)
	for i := 0; i < n; i++ {
		ch <- WorkItem{Seq: i, Protein: alignment.Protein{ID: fmt.Sprintf("p%03d", i)}}
	}
	close(ch)
	return ch
}

func newTestMatcher(t *testing.T) *Matcher {
	t.Helper()
	src := newMemSource()
	m, err := NewMatcher(singlePosition("sma", 60), nil, src, DefaultCutoff)
	require.NoError(t, err)
	return m
}

func TestParallelScore_OrderPreservation(t *testing.T) {
	m := newTestMatcher(t)

	results := m.ParallelScore(context.Background(), makeItems(200), 8)

	var collected []int
	err := OrderedCollect(results, func(r WorkResult) error {
		require.NoError(t, r.Err)
		assert.Equal(t, fmt.Sprintf("p%03d", r.Seq), r.Scored.Protein.ID)
		collected = append(collected, r.Seq)
		return nil
	})
	require.NoError(t, err)

	assert.Len(t, collected, 200)
	for i, seq := range collected {
		assert.Equal(t, i, seq, "result %d out of order", i)
	}
}

func TestParallelScore_DefaultWorkers(t *testing.T) {
	m := newTestMatcher(t)

	var n int
	err := OrderedCollect(m.ParallelScore(context.Background(), makeItems(20), 0), func(WorkResult) error {
		n++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 20, n)
}

func TestOrderedCollect_ErrorDrains(t *testing.T) {
	m := newTestMatcher(t)

	results := m.ParallelScore(context.Background(), makeItems(100), 4)
	count := 0
	err := OrderedCollect(results, func(r WorkResult) error {
		count++
		if r.Seq == 5 {
			return errBoom
		}
		return nil
	})
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 6, count)
}
