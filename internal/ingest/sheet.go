package ingest

import (
	"errors"
	"strings"
)

// Sheet layout.
const (
	// HeaderRows is the number of rows before data: the header row and the example row.
	HeaderRows = 2

	// FirstDataRow is the 1-based sheet row number of the first data row.
	FirstDataRow = HeaderRows + 1

	// RequiredMarker prefixes the header of a required column.
	RequiredMarker = "*"
)

// Sheet parsing errors.
var (
	ErrEmptySheet     = errors.New("sheet is empty")
	ErrNoDataRows     = errors.New("no data rows to import (fill in data from row 3)")
	ErrMissingColumns = errors.New("missing required columns")
)

// Sheet is a parsed import grid with blank rows removed.
type Sheet struct {
	Headers []string
	Rows    []Row
}

// Row is one non-blank data row.
type Row struct {
	// Number is the 1-based sheet row number.
	Number int
	Cells  []string
}

// Cell returns the trimmed cell at index i, or "" when the row is short.
func (r Row) Cell(i int) string {
	if i < 0 || i >= len(r.Cells) {
		return ""
	}
	return strings.TrimSpace(r.Cells[i])
}

// ParseGrid splits a grid into headers and data rows. The example row is skipped
// and rows whose cells are all blank are dropped; row numbers are preserved.
func ParseGrid(grid [][]string) (*Sheet, error) {
	if len(grid) < HeaderRows {
		return nil, ErrEmptySheet
	}

	headers := make([]string, len(grid[0]))
	for i, h := range grid[0] {
		headers[i] = strings.TrimSpace(h)
	}
	if isBlank(headers) {
		return nil, ErrEmptySheet
	}

	sheet := &Sheet{Headers: headers}
	for i := HeaderRows; i < len(grid); i++ {
		if isBlank(grid[i]) {
			continue
		}
		sheet.Rows = append(sheet.Rows, Row{Number: i + 1, Cells: grid[i]})
	}
	if len(sheet.Rows) == 0 {
		return nil, ErrNoDataRows
	}
	return sheet, nil
}

// NormalizeHeader strips whitespace and leading required markers.
func NormalizeHeader(h string) string {
	h = strings.TrimSpace(h)
	h = strings.TrimLeft(h, RequiredMarker)
	return strings.ToLower(strings.TrimSpace(h))
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
