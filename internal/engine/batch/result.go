package batch

import "time"

// RowError pairs a sheet row number with the reason it failed.
type RowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// SuccessItem is an item that was created remotely.
type SuccessItem[T, R any] struct {
	Index    int `json:"index"`
	Row      int `json:"row"`
	Item     T   `json:"item"`
	Data     R   `json:"data"`
	Attempts int `json:"attempts"`
}

// FailureItem is an item that could not be created after all attempts.
type FailureItem[T any] struct {
	Index    int    `json:"index"`
	Row      int    `json:"row"`
	Item     T      `json:"item"`
	Error    string `json:"error"`
	Attempts int    `json:"attempts"`
}

// Result summarises a finished run. Successes, failures and errors are listed in
// input order. A Result is not modified after Run returns it.
type Result[T, R any] struct {
	Total        int                 `json:"total"`
	SuccessCount int                 `json:"success_count"`
	FailureCount int                 `json:"failure_count"`
	Errors       []RowError          `json:"errors"`
	SuccessItems []SuccessItem[T, R] `json:"success_items"`
	FailureItems []FailureItem[T]    `json:"failure_items"`
	Rounds       int                 `json:"rounds"`
	Duration     time.Duration       `json:"duration"`
}

// HasFailures reports whether any item failed.
func (r *Result[T, R]) HasFailures() bool {
	return r.FailureCount > 0
}

// aggregator folds settled rounds into a Result. Rounds must be added in order.
type aggregator[T, R any] struct {
	result    *Result[T, R]
	rowNumber func(index int) int
}

func newAggregator[T, R any](total int, rowNumber func(int) int) *aggregator[T, R] {
	return &aggregator[T, R]{
		result: &Result[T, R]{
			Total:        total,
			Errors:       []RowError{},
			SuccessItems: []SuccessItem[T, R]{},
			FailureItems: []FailureItem[T]{},
		},
		rowNumber: rowNumber,
	}
}

// addRound appends the outcomes of items[start:] and returns the round's counts.
func (a *aggregator[T, R]) addRound(start int, items []T, outcomes []Outcome[R]) (succeeded, failed int) {
	for i, out := range outcomes {
		index := start + i
		row := a.rowNumber(index)
		if out.Success {
			a.result.SuccessItems = append(a.result.SuccessItems, SuccessItem[T, R]{
				Index:    index,
				Row:      row,
				Item:     items[i],
				Data:     out.Data,
				Attempts: out.Attempts,
			})
			succeeded++
			continue
		}
		a.result.FailureItems = append(a.result.FailureItems, FailureItem[T]{
			Index:    index,
			Row:      row,
			Item:     items[i],
			Error:    out.Error,
			Attempts: out.Attempts,
		})
		a.result.Errors = append(a.result.Errors, RowError{Row: row, Error: out.Error})
		failed++
	}
	a.result.SuccessCount += succeeded
	a.result.FailureCount += failed
	return succeeded, failed
}

func (a *aggregator[T, R]) finish(rounds int, elapsed time.Duration) *Result[T, R] {
	a.result.Rounds = rounds
	a.result.Duration = elapsed
	return a.result
}
