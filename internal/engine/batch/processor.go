package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/riveredge/bulkport/internal/logging"
)

// Default concurrency configuration.
const (
	// DefaultConcurrency is the number of calls in flight per round.
	DefaultConcurrency = 5

	// MinConcurrency is the minimum allowed round size.
	MinConcurrency = 1

	// MaxConcurrency is the maximum allowed round size.
	MaxConcurrency = 100
)

// Common processor errors.
var (
	ErrInvalidConcurrency = fmt.Errorf("concurrency must be between %d and %d", MinConcurrency, MaxConcurrency)
	ErrNilImporter        = errors.New("import function cannot be nil")
)

// Processor runs an importer over a list of items in sequential rounds of
// concurrent, retry-wrapped calls.
type Processor[T, R any] struct {
	concurrency int
	policy      RetryPolicy
	onProgress  ProgressCallback
	onSnapshot  SnapshotCallback
	onComplete  func(*Result[T, R])
	rowNumber   func(index int) int
	clock       func() time.Time
}

// NewProcessor creates a processor with the given round size and the default retry policy.
func NewProcessor[T, R any](concurrency int) (*Processor[T, R], error) {
	if concurrency < MinConcurrency || concurrency > MaxConcurrency {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidConcurrency, concurrency)
	}

	return &Processor[T, R]{
		concurrency: concurrency,
		policy:      DefaultRetryPolicy(),
		rowNumber:   defaultRowNumber,
		clock:       time.Now,
	}, nil
}

// WithRetryPolicy replaces the retry policy.
func (p *Processor[T, R]) WithRetryPolicy(policy RetryPolicy) (*Processor[T, R], error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	p.policy = policy
	return p, nil
}

// WithProgressCallback sets the callback invoked after every round.
func (p *Processor[T, R]) WithProgressCallback(callback ProgressCallback) *Processor[T, R] {
	p.onProgress = callback
	return p
}

// WithSnapshotCallback sets a callback invoked after every round with the full
// progress state, including rate and estimated time remaining.
func (p *Processor[T, R]) WithSnapshotCallback(callback SnapshotCallback) *Processor[T, R] {
	p.onSnapshot = callback
	return p
}

// WithCompleteCallback sets the callback invoked once with the final result.
func (p *Processor[T, R]) WithCompleteCallback(callback func(*Result[T, R])) *Processor[T, R] {
	p.onComplete = callback
	return p
}

// WithRowNumbering maps an item index to the row number reported in errors.
// The default is index+1.
func (p *Processor[T, R]) WithRowNumbering(rowNumber func(index int) int) *Processor[T, R] {
	if rowNumber == nil {
		rowNumber = defaultRowNumber
	}
	p.rowNumber = rowNumber
	return p
}

// Concurrency returns the configured round size.
func (p *Processor[T, R]) Concurrency() int {
	return p.concurrency
}

// RetryPolicy returns the configured retry policy.
func (p *Processor[T, R]) RetryPolicy() RetryPolicy {
	return p.policy
}

// Run imports every item and returns the aggregated result. Individual failures are
// recorded in the result; the only error is a nil importer. When ctx is cancelled,
// items that have not run yet are recorded as failures with the context error.
func (p *Processor[T, R]) Run(ctx context.Context, items []T, fn ImportFunc[T, R]) (*Result[T, R], error) {
	if fn == nil {
		return nil, ErrNilImporter
	}

	log := logging.FromContext(ctx)
	start := p.clock()
	rounds := p.CalculateRounds(len(items))
	progress := NewProgress(len(items), len(rounds), start)
	agg := newAggregator[T, R](len(items), p.rowNumber)

	log.Debug().
		Ctx(ctx).
		Str("component", "batch").
		Str("operation", "run").
		Int("item_count", len(items)).
		Int("concurrency", p.concurrency).
		Int("round_count", len(rounds)).
		Int("retry_attempts", p.policy.Attempts).
		Msg("starting batch import")

	executed := 0
	for roundIndex, bounds := range rounds {
		if err := ctx.Err(); err != nil {
			p.abandon(ctx, agg, progress, items, bounds[0], err)
			break
		}

		outcomes := p.runRound(ctx, items[bounds[0]:bounds[1]], fn)
		succeeded, failed := agg.addRound(bounds[0], items[bounds[0]:bounds[1]], outcomes)
		progress.AddRound(succeeded, failed)
		executed++

		log.Debug().
			Ctx(ctx).
			Str("component", "batch").
			Int("round", roundIndex+1).
			Int("round_count", len(rounds)).
			Int("succeeded", succeeded).
			Int("failed", failed).
			Msg("round settled")

		p.notify(progress)
	}

	result := agg.finish(executed, p.clock().Sub(start))

	log.Info().
		Ctx(ctx).
		Str("component", "batch").
		Int("total", result.Total).
		Int("success_count", result.SuccessCount).
		Int("failure_count", result.FailureCount).
		Int("rounds", result.Rounds).
		Dur("duration", result.Duration).
		Msg("batch import finished")

	if p.onComplete != nil {
		p.onComplete(result)
	}
	return result, nil
}

// runRound runs every item of one round concurrently and waits for all of them.
// Each goroutine writes only its own outcome slot.
func (p *Processor[T, R]) runRound(ctx context.Context, items []T, fn ImportFunc[T, R]) []Outcome[R] {
	outcomes := make([]Outcome[R], len(items))

	var g errgroup.Group
	g.SetLimit(len(items))
	for i := range items {
		i := i
		g.Go(func() error {
			outcomes[i] = Retry(ctx, items[i], fn, p.policy)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// abandon records items[from:] as failed with cause and reports progress once.
func (p *Processor[T, R]) abandon(
	ctx context.Context,
	agg *aggregator[T, R],
	progress *Progress,
	items []T,
	from int,
	cause error,
) {
	remaining := items[from:]
	outcomes := make([]Outcome[R], len(remaining))
	for i := range outcomes {
		outcomes[i] = Outcome[R]{Error: cause.Error(), Err: cause}
	}
	_, failed := agg.addRound(from, remaining, outcomes)
	progress.AddRound(0, failed)

	logging.FromContext(ctx).Warn().
		Ctx(ctx).
		Str("component", "batch").
		Err(cause).
		Int("abandoned", failed).
		Msg("import cancelled, remaining items marked as failed")

	p.notify(progress)
}

func (p *Processor[T, R]) notify(progress *Progress) {
	if p.onProgress == nil && p.onSnapshot == nil {
		return
	}
	snap := progress.Snapshot(p.clock())
	if p.onProgress != nil {
		p.onProgress(snap.ProcessedItems, snap.TotalItems, snap.SuccessCount, snap.FailureCount)
	}
	if p.onSnapshot != nil {
		p.onSnapshot(snap)
	}
}

// CalculateRounds returns the [start, end) index pairs of each round.
func (p *Processor[T, R]) CalculateRounds(totalItems int) [][2]int {
	total := p.calculateTotalRounds(totalItems)
	rounds := make([][2]int, total)

	for i := 0; i < total; i++ {
		start := i * p.concurrency
		end := min(start+p.concurrency, totalItems)
		rounds[i] = [2]int{start, end}
	}
	return rounds
}

// calculateTotalRounds returns ceil(totalItems / concurrency).
func (p *Processor[T, R]) calculateTotalRounds(totalItems int) int {
	rounds := totalItems / p.concurrency
	if totalItems%p.concurrency > 0 {
		rounds++
	}
	return rounds
}

func defaultRowNumber(index int) int {
	return index + 1
}
