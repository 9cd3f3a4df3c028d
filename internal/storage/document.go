// Converts between a catalog and its persisted document form.

package storage

import (
	"fmt"
	"maps"
	"slices"

	"github.com/maruel/tabledb/internal/catalog"
	"github.com/maruel/tabledb/internal/table"
)

// Document is the persisted form of a catalog: table name to table contents.
//
// Indexes are not stored; they are rebuilt from the rows on load.
type Document map[string]*TableDoc

// TableDoc is the persisted form of one table.
type TableDoc struct {
	Fields map[string]string `json:"fields" yaml:"fields" msgpack:"fields" jsonschema:"description=Field name to kind (number or text)"`
	Rows   []map[string]any  `json:"rows" yaml:"rows" msgpack:"rows" jsonschema:"description=Records in row order"`
}

// Snapshot captures the catalog as a Document.
func Snapshot(c *catalog.Catalog) (Document, error) {
	doc := make(Document, c.Len())
	for _, name := range c.Tables() {
		err := c.View(name, func(t *table.Table) error {
			td := &TableDoc{
				Fields: make(map[string]string),
				Rows:   make([]map[string]any, 0, t.Len()),
			}
			for _, f := range t.Fields() {
				td.Fields[f.Name] = f.Kind.String()
			}
			for r := range t.All() {
				td.Rows = append(td.Rows, r.Map())
			}
			doc[t.Name()] = td
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// Restore builds a catalog from a Document.
//
// Field kinds are declared before the rows are inserted, so every row goes
// through the same coercion rules as a live insert.
func Restore(doc Document) (*catalog.Catalog, error) {
	c := catalog.New()
	for _, name := range slices.Sorted(maps.Keys(doc)) {
		td := doc[name]
		t := table.New(name)
		if td != nil {
			for field, kind := range td.Fields {
				k, err := table.ParseKind(kind)
				if err != nil {
					return nil, fmt.Errorf("table %q: field %q: %w", name, field, err)
				}
				if err := t.Define(field, k); err != nil {
					return nil, fmt.Errorf("table %q: %w", name, err)
				}
			}
			for i, row := range td.Rows {
				if _, err := t.Insert(row); err != nil {
					return nil, fmt.Errorf("table %q: row %d: %w", name, i, err)
				}
			}
		}
		if err := c.Attach(t); err != nil {
			return nil, err
		}
	}
	return c, nil
}
