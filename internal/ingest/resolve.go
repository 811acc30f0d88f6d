package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/riveredge/bulkport/internal/logging"
)

// LookupFunc returns the parent entity's records, used to resolve references.
type LookupFunc func(ctx context.Context, entity string) ([]map[string]any, error)

// ResolveReferences replaces parent codes or names with parent ids for every
// reference column. Each parent entity is fetched once. Rows naming an unknown
// parent become issues.
func ResolveReferences(
	ctx context.Context,
	entity *Entity,
	records []Record,
	lookup LookupFunc,
) ([]Record, []RowIssue, error) {
	logger := logging.FromContext(ctx)

	indexes := make(map[string]map[string]any)
	for _, c := range entity.Columns {
		if c.Ref == nil || !anyHasField(records, c.Field) {
			continue
		}
		cacheKey := c.Ref.Entity + "|" + c.Ref.IdentifierKey()
		if _, done := indexes[cacheKey]; done {
			continue
		}
		items, err := lookup(ctx, c.Ref.Entity)
		if err != nil {
			return nil, nil, fmt.Errorf("loading %s for column %s: %w", c.Ref.Entity, c.Header, err)
		}
		indexes[cacheKey] = indexByCodeAndName(items, c.Ref.IdentifierKey())
		logger.Debug().Ctx(ctx).
			Str("component", "ingest").
			Str("operation", "resolve_references").
			Str("parent_entity", c.Ref.Entity).
			Int("parent_count", len(items)).
			Msg("loaded reference targets")
	}

	out := make([]Record, 0, len(records))
	var issues []RowIssue
	for _, rec := range records {
		if err := resolveRecord(entity, rec, indexes); err != nil {
			issues = append(issues, RowIssue{Row: rec.Row, Error: err.Error()})
			continue
		}
		out = append(out, rec)
	}
	return out, issues, nil
}

func resolveRecord(entity *Entity, rec Record, indexes map[string]map[string]any) error {
	for _, c := range entity.Columns {
		if c.Ref == nil {
			continue
		}
		raw, ok := rec.Fields[c.Field].(string)
		if !ok {
			continue
		}
		index := indexes[c.Ref.Entity+"|"+c.Ref.IdentifierKey()]

		if c.Ref.Multiple {
			var ids []any
			for _, part := range strings.Split(raw, ",") {
				part = strings.TrimSpace(part)
				if part == "" {
					continue
				}
				id, found := index[strings.ToUpper(part)]
				if !found {
					return fmt.Errorf("%s %s not found", c.Header, part)
				}
				ids = append(ids, id)
			}
			rec.Fields[c.Ref.Field] = ids
		} else {
			id, found := index[strings.ToUpper(raw)]
			if !found {
				return fmt.Errorf("%s %s not found", c.Header, raw)
			}
			rec.Fields[c.Ref.Field] = id
		}
		delete(rec.Fields, c.Field)
	}
	return nil
}

// indexByCodeAndName keys parents by upper-cased code and name. Codes win on collision.
func indexByCodeAndName(items []map[string]any, idKey string) map[string]any {
	index := make(map[string]any, len(items)*2)
	for _, it := range items {
		id, ok := it[idKey]
		if !ok {
			continue
		}
		if name, isStr := it["name"].(string); isStr && name != "" {
			index[strings.ToUpper(name)] = id
		}
	}
	for _, it := range items {
		id, ok := it[idKey]
		if !ok {
			continue
		}
		if code, isStr := it["code"].(string); isStr && code != "" {
			index[strings.ToUpper(code)] = id
		}
	}
	return index
}

func anyHasField(records []Record, field string) bool {
	for _, r := range records {
		if _, ok := r.Fields[field]; ok {
			return true
		}
	}
	return false
}
