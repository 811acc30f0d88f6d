package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/riveredge/bulkport/internal/logging"
)

// utf8BOM is written by spreadsheet tools at the start of UTF-8 CSV files.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF} //nolint:gochecknoglobals // Constant byte sequence.

// ReadCSV reads a CSV grid. A leading UTF-8 BOM is removed and rows may have
// differing lengths.
func ReadCSV(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	grid, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing csv: %w", err)
	}
	return grid, nil
}

// ReadJSONGrid reads a JSON array of arrays, the shape a spreadsheet widget
// submits. Numbers, booleans and nulls are converted to their text form.
func ReadJSONGrid(data []byte) ([][]string, error) {
	var raw [][]any
	dec := json.NewDecoder(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parsing json grid: %w", err)
	}

	grid := make([][]string, len(raw))
	for i, row := range raw {
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = cellText(cell)
		}
		grid[i] = cells
	}
	return grid, nil
}

func cellText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

// LoadSheet reads and parses the sheet at path. The format is chosen by extension:
// .json is a JSON grid, anything else is read as CSV.
func LoadSheet(ctx context.Context, path string) (*Sheet, error) {
	logger := logging.FromContext(ctx)
	logger.Debug().Ctx(ctx).
		Str("component", "ingest").
		Str("operation", "load_sheet").
		Str("file_path", path).
		Msg("loading import sheet")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", path, err)
	}

	var grid [][]string
	if strings.EqualFold(filepath.Ext(path), ".json") {
		grid, err = ReadJSONGrid(data)
	} else {
		grid, err = ReadCSV(bytes.NewReader(data))
	}
	if err != nil {
		return nil, err
	}

	sheet, err := ParseGrid(grid)
	if err != nil {
		return nil, err
	}

	logger.Debug().Ctx(ctx).
		Str("component", "ingest").
		Int("header_count", len(sheet.Headers)).
		Int("row_count", len(sheet.Rows)).
		Msg("import sheet parsed")
	return sheet, nil
}
