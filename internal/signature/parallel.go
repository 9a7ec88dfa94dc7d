package signature

import (
	"context"
	"runtime"
	"sync"

	"github.com/inodb/seqsig/internal/alignment"
)

// WorkItem holds a candidate protein ready for scoring.
type WorkItem struct {
	Seq     int
	Protein alignment.Protein
}

// WorkResult holds the score of a single protein.
type WorkResult struct {
	Seq    int
	Scored *ScoredProtein
	Err    error
}

// ParallelScore scores work items using a pool of workers.
// Results are sent to the returned channel in arrival order (not sequence order).
// Use OrderedCollect to consume results in sequence-number order.
// If workers is 0, runtime.NumCPU() is used.
func (m *Matcher) ParallelScore(ctx context.Context, items <-chan WorkItem, workers int) <-chan WorkResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan WorkResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for item := range items {
				sp, err := m.ScoreProtein(ctx, item.Protein)
				results <- WorkResult{Seq: item.Seq, Scored: sp, Err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// OrderedCollect calls fn for each result in sequence-number order.
// It buffers out-of-order results in a pending map and emits them
// as soon as the next expected sequence number is available.
// Blocks until the results channel is closed.
func OrderedCollect(results <-chan WorkResult, fn func(WorkResult) error) error {
	pending := make(map[int]WorkResult)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				// Drain remaining results to unblock workers.
				for range results {
				}
				return err
			}
		}
	}

	return nil
}

// scoreAll scores the candidates concurrently and returns them in input
// order. The first error cancels the remaining work.
func (m *Matcher) scoreAll(ctx context.Context, candidates []alignment.Protein) ([]*ScoredProtein, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	items := make(chan WorkItem)
	go func() {
		defer close(items)
		for i, p := range candidates {
			select {
			case items <- WorkItem{Seq: i, Protein: p}:
			case <-ctx.Done():
				return
			}
		}
	}()

	out := make([]*ScoredProtein, 0, len(candidates))
	err := OrderedCollect(m.ParallelScore(ctx, items, m.workers), func(r WorkResult) error {
		if r.Err != nil {
			cancel()
			return r.Err
		}
		out = append(out, r.Scored)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
