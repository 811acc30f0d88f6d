package ingest

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Column value types.
const (
	TypeString = "string"
	TypeInt    = "int"
	TypeFloat  = "float"
	TypeBool   = "bool"
)

// Paging styles of list endpoints.
const (
	// PagingOffset lists with skip/limit and returns a bare array.
	PagingOffset = "offset"

	// PagingPage lists with page/page_size and returns {items, total, page, page_size}.
	PagingPage = "page"
)

// ErrUnknownEntity is returned when an entity name is not registered.
var ErrUnknownEntity = errors.New("unknown entity")

// Reference resolves a column holding a parent's code or name into the parent's id.
type Reference struct {
	// Entity is the registered parent entity, e.g. "production-lines".
	Entity string `yaml:"entity"`

	// Field receives the resolved id, e.g. "production_line_id".
	Field string `yaml:"field"`

	// IDKey is the parent's identifier key in list responses. Empty means "id".
	IDKey string `yaml:"id_key,omitempty"`

	// Multiple splits the cell on commas and resolves every part into a list of ids.
	Multiple bool `yaml:"multiple,omitempty"`
}

// IdentifierKey returns the key holding the parent's identifier.
func (r *Reference) IdentifierKey() string {
	if r.IDKey == "" {
		return "id"
	}
	return r.IDKey
}

// Column describes one template column.
type Column struct {
	// Field is the JSON key sent to the API.
	Field string `yaml:"field"`

	// Header is the label written into templates and exports.
	Header string `yaml:"header"`

	// Aliases are further accepted headers. Field and Header always match.
	Aliases []string `yaml:"aliases,omitempty"`

	Required bool   `yaml:"required,omitempty"`
	Example  string `yaml:"example,omitempty"`

	// Type is one of string, int, float or bool. Empty means string.
	Type string `yaml:"type,omitempty"`

	// Upper upper-cases the value, as codes are stored upper-case.
	Upper bool `yaml:"upper,omitempty"`

	// Default fills blank optional cells.
	Default string `yaml:"default,omitempty"`

	// ExportKey is the key the API uses for this field in list responses when it
	// differs from Field.
	ExportKey string `yaml:"export_key,omitempty"`

	Ref *Reference `yaml:"ref,omitempty"`
}

// TemplateHeader is the header as written into templates, with a required marker.
func (c Column) TemplateHeader() string {
	if c.Required {
		return RequiredMarker + c.Header
	}
	return c.Header
}

// Entity describes an importable resource and its template.
type Entity struct {
	Name     string   `yaml:"name"`
	Title    string   `yaml:"title"`
	Endpoint string   `yaml:"endpoint"`
	Paging   string   `yaml:"paging,omitempty"`
	Columns  []Column `yaml:"columns"`
}

// Validate checks the entity definition.
func (e *Entity) Validate() error {
	if e.Name == "" {
		return errors.New("entity name is required")
	}
	if e.Endpoint == "" {
		return fmt.Errorf("entity %s: endpoint is required", e.Name)
	}
	if len(e.Columns) == 0 {
		return fmt.Errorf("entity %s: at least one column is required", e.Name)
	}
	switch e.Paging {
	case "", PagingOffset, PagingPage:
	default:
		return fmt.Errorf("entity %s: unknown paging style %q", e.Name, e.Paging)
	}

	seen := make(map[string]bool, len(e.Columns))
	for _, c := range e.Columns {
		if c.Field == "" || c.Header == "" {
			return fmt.Errorf("entity %s: every column needs a field and a header", e.Name)
		}
		if seen[c.Field] {
			return fmt.Errorf("entity %s: duplicate column field %q", e.Name, c.Field)
		}
		seen[c.Field] = true
		switch c.Type {
		case "", TypeString, TypeInt, TypeFloat, TypeBool:
		default:
			return fmt.Errorf("entity %s: column %s has unknown type %q", e.Name, c.Field, c.Type)
		}
		if c.Ref != nil && (c.Ref.Entity == "" || c.Ref.Field == "") {
			return fmt.Errorf("entity %s: column %s reference needs entity and field", e.Name, c.Field)
		}
	}
	return nil
}

// PagingStyle returns the entity's paging style, defaulting to offset paging.
func (e *Entity) PagingStyle() string {
	if e.Paging == "" {
		return PagingOffset
	}
	return e.Paging
}

// RequiredColumns returns the required columns in template order.
func (e *Entity) RequiredColumns() []Column {
	var out []Column
	for _, c := range e.Columns {
		if c.Required {
			out = append(out, c)
		}
	}
	return out
}

// Registry holds the known entities by name.
type Registry struct {
	entities map[string]*Entity
}

// NewRegistry builds a registry from entities. Later entities replace earlier ones
// with the same name.
func NewRegistry(entities ...*Entity) (*Registry, error) {
	r := &Registry{entities: make(map[string]*Entity, len(entities))}
	for _, e := range entities {
		if err := r.Add(e); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Add validates and registers an entity, replacing one with the same name.
func (r *Registry) Add(e *Entity) error {
	if e == nil {
		return errors.New("nil entity")
	}
	if err := e.Validate(); err != nil {
		return err
	}
	r.entities[e.Name] = e
	return nil
}

// Get returns the named entity.
func (r *Registry) Get(name string) (*Entity, error) {
	e, ok := r.entities[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, name)
	}
	return e, nil
}

// Names returns all entity names sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entities))
	for n := range r.entities {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// templateFile is the YAML layout accepted by LoadTemplates.
type templateFile struct {
	Entities []*Entity `yaml:"entities"`
}

// LoadTemplates reads entity definitions from a YAML file.
func LoadTemplates(path string) ([]*Entity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading templates %s: %w", path, err)
	}
	var f templateFile
	if err = yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing templates %s: %w", path, err)
	}
	for _, e := range f.Entities {
		if err = e.Validate(); err != nil {
			return nil, fmt.Errorf("templates %s: %w", path, err)
		}
	}
	return f.Entities, nil
}
