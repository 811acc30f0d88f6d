package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noSleep makes retries instant while recording the requested delays.
type noSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (n *noSleep) Sleep(ctx context.Context, d time.Duration) error {
	n.mu.Lock()
	n.delays = append(n.delays, d)
	n.mu.Unlock()
	return ctx.Err()
}

func instantPolicy(attempts int) (RetryPolicy, *noSleep) {
	s := &noSleep{}
	return RetryPolicy{Attempts: attempts, BaseDelay: DefaultRetryDelay, Sleep: s.Sleep}, s
}

func newTestProcessor[T, R any](t *testing.T, concurrency, attempts int) *Processor[T, R] {
	t.Helper()
	p, err := NewProcessor[T, R](concurrency)
	require.NoError(t, err)
	policy, _ := instantPolicy(attempts)
	p, err = p.WithRetryPolicy(policy)
	require.NoError(t, err)
	return p
}

func TestProcessor_Run(t *testing.T) {
	t.Run("seven items, one always failing", func(t *testing.T) {
		items := []string{"A", "B", "C", "D", "E", "F", "G"}
		p := newTestProcessor[string, string](t, 5, 3)

		var rounds int32
		p.WithProgressCallback(func(_, _, _, _ int) { atomic.AddInt32(&rounds, 1) })

		var calls sync.Map
		result, err := p.Run(context.Background(), items, func(_ context.Context, item string) (string, error) {
			n, _ := calls.LoadOrStore(item, new(int32))
			atomic.AddInt32(n.(*int32), 1)
			if item == "B" {
				return "", errors.New("duplicate code")
			}
			return "id-" + item, nil
		})
		require.NoError(t, err)

		assert.Equal(t, int32(2), rounds)
		assert.Equal(t, 2, result.Rounds)
		assert.Equal(t, 7, result.Total)
		assert.Equal(t, 6, result.SuccessCount)
		assert.Equal(t, 1, result.FailureCount)
		assert.Equal(t, []RowError{{Row: 2, Error: "duplicate code"}}, result.Errors)

		bCalls, _ := calls.Load("B")
		assert.Equal(t, int32(3), atomic.LoadInt32(bCalls.(*int32)))
		aCalls, _ := calls.Load("A")
		assert.Equal(t, int32(1), atomic.LoadInt32(aCalls.(*int32)))

		require.Len(t, result.FailureItems, 1)
		assert.Equal(t, "B", result.FailureItems[0].Item)
		assert.Equal(t, 1, result.FailureItems[0].Index)
		assert.Equal(t, 3, result.FailureItems[0].Attempts)
	})

	t.Run("results keep input order regardless of completion order", func(t *testing.T) {
		items := make([]int, 12)
		for i := range items {
			items[i] = i
		}
		p := newTestProcessor[int, int](t, 4, 1)

		result, err := p.Run(context.Background(), items, func(_ context.Context, item int) (int, error) {
			// later items in a round finish first
			time.Sleep(time.Duration(4-item%4) * time.Millisecond)
			if item%3 == 0 {
				return 0, fmt.Errorf("bad %d", item)
			}
			return item * 10, nil
		})
		require.NoError(t, err)

		var successIdx, failureIdx []int
		for _, s := range result.SuccessItems {
			successIdx = append(successIdx, s.Index)
			assert.Equal(t, s.Item*10, s.Data)
		}
		for _, f := range result.FailureItems {
			failureIdx = append(failureIdx, f.Index)
		}
		assert.Equal(t, []int{1, 2, 4, 5, 7, 8, 10, 11}, successIdx)
		assert.Equal(t, []int{0, 3, 6, 9}, failureIdx)
		assert.Equal(t, result.Total, result.SuccessCount+result.FailureCount)
	})

	t.Run("in-flight calls never exceed concurrency", func(t *testing.T) {
		items := make([]int, 23)
		p := newTestProcessor[int, struct{}](t, 5, 1)

		var inFlight, peak int32
		_, err := p.Run(context.Background(), items, func(_ context.Context, _ int) (struct{}, error) {
			n := atomic.AddInt32(&inFlight, 1)
			for {
				old := atomic.LoadInt32(&peak)
				if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			return struct{}{}, nil
		})
		require.NoError(t, err)
		assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(5))
	})

	t.Run("next round waits for the slowest item", func(t *testing.T) {
		items := []int{0, 1, 2, 3}
		p := newTestProcessor[int, int](t, 2, 1)

		var mu sync.Mutex
		var events []string
		record := func(e string) {
			mu.Lock()
			events = append(events, e)
			mu.Unlock()
		}
		fastDone := make(chan struct{})

		_, err := p.Run(context.Background(), items, func(_ context.Context, item int) (int, error) {
			record(fmt.Sprintf("start %d", item))
			switch item {
			case 0:
				// hold item 0 until its round-mate has finished
				<-fastDone
				time.Sleep(20 * time.Millisecond)
			case 1:
				defer close(fastDone)
			}
			record(fmt.Sprintf("end %d", item))
			return item, nil
		})
		require.NoError(t, err)

		pos := make(map[string]int, len(events))
		for i, e := range events {
			pos[e] = i
		}
		require.Len(t, pos, 8)
		assert.Less(t, pos["end 0"], pos["start 2"])
		assert.Less(t, pos["end 0"], pos["start 3"])
		assert.Less(t, pos["end 1"], pos["start 2"])
	})

	t.Run("progress reports cumulative counts", func(t *testing.T) {
		items := []int{1, 2, 3, 4, 5}
		p := newTestProcessor[int, int](t, 2, 1)

		type call struct{ current, total, ok, failed int }
		var calls []call
		p.WithProgressCallback(func(current, total, ok, failed int) {
			calls = append(calls, call{current, total, ok, failed})
		})

		var snaps []ProgressSnapshot
		p.WithSnapshotCallback(func(snap ProgressSnapshot) { snaps = append(snaps, snap) })

		var completed *Result[int, int]
		p.WithCompleteCallback(func(r *Result[int, int]) { completed = r })

		result, err := p.Run(context.Background(), items, func(_ context.Context, item int) (int, error) {
			if item == 4 {
				return 0, errors.New("rejected")
			}
			return item, nil
		})
		require.NoError(t, err)

		assert.Equal(t, []call{{2, 5, 2, 0}, {4, 5, 3, 1}, {5, 5, 4, 1}}, calls)
		require.Len(t, snaps, 3)
		for i, snap := range snaps {
			assert.Equal(t, i+1, snap.ProcessedRounds)
			assert.Equal(t, 3, snap.TotalRounds)
		}
		last := snaps[len(snaps)-1]
		assert.Equal(t, result.SuccessCount, last.SuccessCount)
		assert.Equal(t, result.FailureCount, last.FailureCount)
		assert.Zero(t, last.Remaining)
		assert.Same(t, result, completed)
	})

	t.Run("custom row numbering", func(t *testing.T) {
		p := newTestProcessor[int, int](t, 5, 1)
		p.WithRowNumbering(func(index int) int { return index + 3 })

		result, err := p.Run(context.Background(), []int{0, 1}, func(_ context.Context, item int) (int, error) {
			if item == 1 {
				return 0, errors.New("nope")
			}
			return item, nil
		})
		require.NoError(t, err)
		assert.Equal(t, []RowError{{Row: 4, Error: "nope"}}, result.Errors)
	})

	t.Run("empty items", func(t *testing.T) {
		p := newTestProcessor[int, int](t, DefaultConcurrency, DefaultRetryCount)
		result, err := p.Run(context.Background(), nil, func(_ context.Context, item int) (int, error) {
			return item, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 0, result.Total)
		assert.Equal(t, 0, result.Rounds)
		assert.Empty(t, result.Errors)
	})

	t.Run("nil importer", func(t *testing.T) {
		p := newTestProcessor[int, int](t, DefaultConcurrency, DefaultRetryCount)
		_, err := p.Run(context.Background(), []int{1}, nil)
		assert.ErrorIs(t, err, ErrNilImporter)
	})

	t.Run("cancelled context marks remaining items failed", func(t *testing.T) {
		items := []int{1, 2, 3, 4, 5, 6}
		p := newTestProcessor[int, int](t, 2, 1)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		result, err := p.Run(ctx, items, func(_ context.Context, item int) (int, error) {
			if item == 2 {
				cancel()
			}
			return item, nil
		})
		require.NoError(t, err)

		assert.Equal(t, 1, result.Rounds)
		assert.Equal(t, 2, result.SuccessCount)
		assert.Equal(t, 4, result.FailureCount)
		assert.Equal(t, result.Total, result.SuccessCount+result.FailureCount)
		for _, f := range result.FailureItems {
			assert.Equal(t, context.Canceled.Error(), f.Error)
		}
	})
}

func TestProcessor_CalculateRounds(t *testing.T) {
	tests := []struct {
		items       int
		concurrency int
		wantRounds  int
	}{
		{0, 5, 0},
		{1, 5, 1},
		{5, 5, 1},
		{6, 5, 2},
		{7, 5, 2},
		{25, 10, 3},
		{100, 1, 100},
		{99, 100, 1},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d items by %d", tt.items, tt.concurrency), func(t *testing.T) {
			p, err := NewProcessor[int, int](tt.concurrency)
			require.NoError(t, err)

			rounds := p.CalculateRounds(tt.items)
			require.Len(t, rounds, tt.wantRounds)

			covered := 0
			for i, r := range rounds {
				assert.Equal(t, covered, r[0], "round %d must start where the previous ended", i)
				assert.LessOrEqual(t, r[1]-r[0], tt.concurrency)
				covered = r[1]
			}
			assert.Equal(t, tt.items, covered)
		})
	}
}

func TestNewProcessor_InvalidConcurrency(t *testing.T) {
	_, err := NewProcessor[int, int](0)
	assert.ErrorIs(t, err, ErrInvalidConcurrency)
	_, err = NewProcessor[int, int](MaxConcurrency + 1)
	assert.ErrorIs(t, err, ErrInvalidConcurrency)

	p, err := NewProcessor[int, int](DefaultConcurrency)
	require.NoError(t, err)
	assert.Equal(t, DefaultConcurrency, p.Concurrency())
	assert.Equal(t, DefaultRetryCount, p.RetryPolicy().Attempts)

	_, err = p.WithRetryPolicy(RetryPolicy{Attempts: 0})
	assert.ErrorIs(t, err, ErrInvalidRetryCount)
}

func TestProgress(t *testing.T) {
	start := time.Unix(100, 0)
	p := NewProgress(10, 2, start)

	snap := p.Snapshot(start.Add(time.Second))
	assert.Zero(t, snap.ProcessedItems)
	assert.Zero(t, snap.ItemsPerSecond)
	assert.Zero(t, snap.Remaining)
	assert.Equal(t, time.Second, snap.Elapsed)

	p.AddRound(4, 1)
	snap = p.Snapshot(start.Add(2 * time.Second))
	assert.Equal(t, 5, snap.ProcessedItems)
	assert.InDelta(t, 2.5, snap.ItemsPerSecond, 1e-9)
	assert.Equal(t, 2*time.Second, snap.Remaining)

	p.AddRound(5, 0)
	snap = p.Snapshot(start.Add(4 * time.Second))
	assert.Equal(t, 10, snap.ProcessedItems)
	assert.Equal(t, 9, snap.SuccessCount)
	assert.Equal(t, 1, snap.FailureCount)
	assert.Equal(t, 2, snap.ProcessedRounds)
	assert.Equal(t, 2, snap.TotalRounds)
	assert.Zero(t, snap.Remaining)
}
