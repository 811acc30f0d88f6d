// Package export writes spreadsheet-friendly CSV: entity exports, blank import
// templates and failed-row reports. Every file starts with a UTF-8 BOM so Excel
// detects the encoding of Chinese headers.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/riveredge/bulkport/internal/ingest"
)

// BOM is the UTF-8 byte order mark written before every CSV.
const BOM = "\ufeff"

// Labels used in generated sheets.
const (
	HeaderCreatedAt = "创建时间"
	HeaderError     = "错误信息"
	HeaderRow       = "行号"

	LabelEnabled  = "启用"
	LabelDisabled = "禁用"

	timestampLayout = "2006-01-02 15:04:05"
)

// Table is a header row plus data rows.
type Table struct {
	Headers []string
	Rows    [][]string
}

// WriteCSV writes the BOM and the table. Cells containing a comma, a quote or a
// line break are quoted with inner quotes doubled.
func WriteCSV(w io.Writer, t Table) error {
	if _, err := io.WriteString(w, BOM); err != nil {
		return fmt.Errorf("writing bom: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Headers); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("writing rows: %w", err)
	}
	return nil
}

// FormatCell renders an API value as sheet text. Nested records render as their
// name (or code), lists as comma-separated entries.
func FormatCell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return LabelEnabled
		}
		return LabelDisabled
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case map[string]any:
		for _, key := range []string{"name", "code", "id"} {
			if inner, ok := t[key]; ok {
				return FormatCell(inner)
			}
		}
		return ""
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := FormatCell(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(t)
	}
}

// FormatTimestamp renders RFC 3339 timestamps as local "2006-01-02 15:04:05";
// anything else is returned unchanged.
func FormatTimestamp(v any) string {
	s := FormatCell(v)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.Local().Format(timestampLayout)
		}
	}
	return s
}

// EntityTable lays out API records with the entity's template headers plus the
// creation time. Write-only columns such as passwords are left out.
func EntityTable(entity *ingest.Entity, items []map[string]any) Table {
	var cols []ingest.Column
	for _, c := range entity.Columns {
		if c.Field == "password" {
			continue
		}
		cols = append(cols, c)
	}

	headers := make([]string, 0, len(cols)+1)
	for _, c := range cols {
		headers = append(headers, c.Header)
	}
	headers = append(headers, HeaderCreatedAt)

	rows := make([][]string, 0, len(items))
	for _, item := range items {
		row := make([]string, 0, len(headers))
		for _, c := range cols {
			row = append(row, FormatCell(lookupField(item, c)))
		}
		row = append(row, FormatTimestamp(firstOf(item, "created_at", "createdAt")))
		rows = append(rows, row)
	}
	return Table{Headers: headers, Rows: rows}
}

// TemplateTable is a blank import template: marked headers and one example row.
func TemplateTable(entity *ingest.Entity) Table {
	headers := make([]string, len(entity.Columns))
	example := make([]string, len(entity.Columns))
	for i, c := range entity.Columns {
		headers[i] = c.TemplateHeader()
		example[i] = c.Example
	}
	return Table{Headers: headers, Rows: [][]string{example}}
}

// FailedRow is a sheet row that did not import.
type FailedRow struct {
	Row   int
	Cells []string
	Error string
}

// FailedRowsTable lays out failed rows so the file can be fixed and imported again:
// the original headers plus an error column, an empty example row, then the
// failed rows in sheet order.
func FailedRowsTable(headers []string, failures []FailedRow) Table {
	out := make([]string, 0, len(headers)+1)
	out = append(out, headers...)
	out = append(out, HeaderError)

	sorted := make([]FailedRow, len(failures))
	copy(sorted, failures)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Row < sorted[j].Row })

	rows := make([][]string, 0, len(sorted)+1)
	rows = append(rows, make([]string, len(out)))
	for _, f := range sorted {
		row := make([]string, len(out))
		copy(row, f.Cells)
		row[len(out)-1] = fmt.Sprintf("第 %d 行: %s", f.Row, f.Error)
		rows = append(rows, row)
	}
	return Table{Headers: out, Rows: rows}
}

// lookupField finds a column's value under its field name, export key or the
// camelCase spelling the API responds with.
func lookupField(item map[string]any, c ingest.Column) any {
	keys := []string{c.Field}
	if c.ExportKey != "" {
		keys = append(keys, c.ExportKey)
	}
	keys = append(keys, camelCase(c.Field))
	return firstOf(item, keys...)
}

func firstOf(item map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := item[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func camelCase(s string) string {
	parts := strings.Split(s, "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] == "" {
			continue
		}
		r := []rune(parts[i])
		r[0] = unicode.ToUpper(r[0])
		parts[i] = string(r)
	}
	return strings.Join(parts, "")
}
