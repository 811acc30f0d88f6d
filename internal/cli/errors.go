package cli

import (
	"errors"
	"fmt"
)

// ExitCodeImportFailed is the exit code used when rows failed and --fail-on-error is set.
const ExitCodeImportFailed = 2

// ErrInvalidRows is returned when the sheet has rows that failed local validation.
var ErrInvalidRows = errors.New("sheet has invalid rows")

// ImportFailedError carries the exit code for an import that finished with failures.
type ImportFailedError struct {
	ExitCode int
	Failed   int
	Total    int
}

func (e *ImportFailedError) Error() string {
	return fmt.Sprintf("%d of %d rows failed to import", e.Failed, e.Total)
}
