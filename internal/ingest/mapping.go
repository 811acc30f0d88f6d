package ingest

import (
	"fmt"
	"strconv"
	"strings"
)

// Record is one mapped row ready to be sent.
type Record struct {
	// Row is the 1-based sheet row number.
	Row    int
	Fields map[string]any
}

// RowIssue is a row rejected before sending.
type RowIssue struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// Binding maps entity fields to sheet column indexes.
type Binding struct {
	entity  *Entity
	indexes map[string]int
}

// Bind matches headers against the entity's columns. Matching ignores case, surrounding
// whitespace and the required marker. It fails with ErrMissingColumns naming every
// required column that is absent.
func Bind(entity *Entity, headers []string) (*Binding, error) {
	lookup := make(map[string]string)
	for _, c := range entity.Columns {
		for _, name := range append([]string{c.Field, c.Header}, c.Aliases...) {
			key := NormalizeHeader(name)
			if _, taken := lookup[key]; !taken {
				lookup[key] = c.Field
			}
		}
	}

	b := &Binding{entity: entity, indexes: make(map[string]int)}
	for i, h := range headers {
		field, ok := lookup[NormalizeHeader(h)]
		if !ok {
			continue
		}
		if _, bound := b.indexes[field]; !bound {
			b.indexes[field] = i
		}
	}

	var missing []string
	for _, c := range entity.RequiredColumns() {
		if _, ok := b.indexes[c.Field]; !ok {
			missing = append(missing, c.Header)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s (headers: %s)",
			ErrMissingColumns, strings.Join(missing, ", "), strings.Join(headers, ", "))
	}
	return b, nil
}

// Has reports whether field is bound to a column.
func (b *Binding) Has(field string) bool {
	_, ok := b.indexes[field]
	return ok
}

// Map converts one row. The first invalid cell rejects the row.
func (b *Binding) Map(row Row) (Record, *RowIssue) {
	fields := make(map[string]any, len(b.indexes))
	for _, c := range b.entity.Columns {
		raw := ""
		if idx, ok := b.indexes[c.Field]; ok {
			raw = row.Cell(idx)
		}
		value, present, err := convertCell(c, raw)
		if err != nil {
			return Record{}, &RowIssue{Row: row.Number, Error: err.Error()}
		}
		if present {
			fields[c.Field] = value
		}
	}
	return Record{Row: row.Number, Fields: fields}, nil
}

// MapRecords binds the sheet headers and maps every row. Rows with invalid
// cells come back as issues; the remaining rows keep their sheet order.
func MapRecords(entity *Entity, sheet *Sheet) ([]Record, []RowIssue, error) {
	b, err := Bind(entity, sheet.Headers)
	if err != nil {
		return nil, nil, err
	}

	records := make([]Record, 0, len(sheet.Rows))
	var issues []RowIssue
	for _, row := range sheet.Rows {
		rec, issue := b.Map(row)
		if issue != nil {
			issues = append(issues, *issue)
			continue
		}
		records = append(records, rec)
	}
	return records, issues, nil
}

func convertCell(c Column, raw string) (any, bool, error) {
	if raw == "" {
		raw = c.Default
	}
	if raw == "" {
		if c.Required {
			return nil, false, fmt.Errorf("%s cannot be empty", c.Header)
		}
		return nil, false, nil
	}
	if c.Upper {
		raw = strings.ToUpper(raw)
	}

	switch c.Type {
	case TypeBool:
		return ParseBool(raw), true, nil
	case TypeInt:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, false, fmt.Errorf("%s must be an integer, got %q", c.Header, raw)
		}
		return n, true, nil
	case TypeFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, false, fmt.Errorf("%s must be a number, got %q", c.Header, raw)
		}
		return f, true, nil
	default:
		return raw, true, nil
	}
}

// ParseBool reads the enable/disable spellings used in sheets. Anything that is
// not an explicit "off" value counts as true.
func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "false", "0", "no", "n", "off", "否", "禁用", "停用":
		return false
	default:
		return true
	}
}
