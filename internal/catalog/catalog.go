// Package catalog manages a named collection of tables.
//
// A [Catalog] owns every [table.Table] of a database and is the entry point for
// the public operations: CreateTable, Push, Pull, Set and Delete. Table names
// are stored as given, but lookups fall back to a case-insensitive match, which
// is reported through the catalog's notice handler rather than silently
// substituted. To keep that fallback unambiguous, two tables may not differ
// only by case.
//
// A Catalog is safe for concurrent use: it holds a single lock for the duration
// of each operation.
package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/maruel/tabledb/internal/table"
)

var (
	// ErrTableNotFound is returned when no table matches a name.
	ErrTableNotFound = errors.New("table not found")
	// ErrDuplicateTable is returned when creating a table whose name is taken.
	ErrDuplicateTable = errors.New("table already exists")

	errNameRequired = errors.New("table name is required")
)

// Resolution is the outcome of a successful table name lookup.
type Resolution struct {
	// Requested is the name the caller asked for.
	Requested string
	// Name is the name of the table that was found.
	Name string
}

// Substituted reports whether the table was found by case-insensitive match.
func (r Resolution) Substituted() bool {
	return r.Requested != r.Name
}

// Notice returns the advisory message for a substituted name, or "".
func (r Resolution) Notice() string {
	if !r.Substituted() {
		return ""
	}
	return fmt.Sprintf("table %q not found, using %q", r.Requested, r.Name)
}

// NoticeFunc receives advisory notices about substituted table names.
type NoticeFunc func(Resolution)

// LogNotice is the default NoticeFunc; it logs a warning.
func LogNotice(r Resolution) {
	slog.Warn("Table name resolved case-insensitively", "requested", r.Requested, "table", r.Name)
}

// Catalog maps table names to tables.
type Catalog struct {
	mu     sync.RWMutex
	tables map[string]*table.Table
	// folded maps the lowercase form of each name to the stored name.
	folded map[string]string
	notify NoticeFunc
}

// New creates an empty catalog that logs notices with [LogNotice].
func New() *Catalog {
	return &Catalog{
		tables: make(map[string]*table.Table),
		folded: make(map[string]string),
		notify: LogNotice,
	}
}

// SetNoticeFunc replaces the notice handler. A nil fn discards notices.
func (c *Catalog) SetNoticeFunc(fn NoticeFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notify = fn
}

// CreateTable creates an empty table.
//
// It fails with ErrDuplicateTable when the name is already used, including by a
// table whose name differs only by case.
func (c *Catalog) CreateTable(name string) (*table.Table, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.createLocked(name)
}

func (c *Catalog) createLocked(name string) (*table.Table, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errNameRequired
	}
	if _, ok := c.tables[name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateTable, name)
	}
	if other, ok := c.folded[strings.ToLower(name)]; ok {
		return nil, fmt.Errorf("%w: %q differs from %q only by case", ErrDuplicateTable, name, other)
	}
	t := table.New(name)
	c.tables[name] = t
	c.folded[strings.ToLower(name)] = name
	return t, nil
}

// Attach adds an already populated table, as done when loading from disk.
func (c *Catalog) Attach(t *table.Table) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	name := t.Name()
	if _, err := c.createLocked(name); err != nil {
		return err
	}
	c.tables[name] = t
	return nil
}

// DropTable removes a table and returns the number of rows it held.
func (c *Catalog) DropTable(name string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, err := c.lookupLocked(name)
	if err != nil {
		return 0, err
	}
	delete(c.tables, t.Name())
	delete(c.folded, strings.ToLower(t.Name()))
	return t.Len(), nil
}

// Tables returns the table names in sorted order.
func (c *Catalog) Tables() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.tables))
}

// Len returns the number of tables.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tables)
}

// Resolve finds the table for a name.
//
// An exact match wins. Otherwise a case-insensitive match is accepted and the
// returned Resolution reports the substitution. Resolve itself does not call
// the notice handler; the operations below do.
func (c *Catalog) Resolve(name string) (Resolution, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resolveLocked(name)
}

func (c *Catalog) resolveLocked(name string) (Resolution, error) {
	if _, ok := c.tables[name]; ok {
		return Resolution{Requested: name, Name: name}, nil
	}
	if stored, ok := c.folded[strings.ToLower(name)]; ok {
		return Resolution{Requested: name, Name: stored}, nil
	}
	return Resolution{}, fmt.Errorf("%w: %q", ErrTableNotFound, name)
}

// lookupLocked resolves name, reports any substitution and returns the table.
func (c *Catalog) lookupLocked(name string) (*table.Table, error) {
	r, err := c.resolveLocked(name)
	if err != nil {
		return nil, err
	}
	if r.Substituted() && c.notify != nil {
		c.notify(r)
	}
	return c.tables[r.Name], nil
}

// Do runs fn with exclusive access to the named table.
func (c *Catalog) Do(name string, fn func(*table.Table) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, err := c.lookupLocked(name)
	if err != nil {
		return err
	}
	return fn(t)
}

// View runs fn with shared access to the named table. fn must not modify it.
func (c *Catalog) View(name string, fn func(*table.Table) error) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, err := c.lookupLocked(name)
	if err != nil {
		return err
	}
	return fn(t)
}

// Push inserts a record into a table.
func (c *Catalog) Push(name string, rec map[string]any) (table.RowID, error) {
	var id table.RowID
	err := c.Do(name, func(t *table.Table) error {
		var err error
		id, err = t.Insert(rec)
		return err
	})
	return id, err
}

// Pull returns the records of a table matching the condition, in row order.
//
// The records are collected while the catalog is locked, so the returned slice
// is not affected by later writes.
func (c *Catalog) Pull(name, cond string) ([]table.Record, error) {
	var out []table.Record
	err := c.View(name, func(t *table.Table) error {
		seq, err := t.Query(cond)
		if err != nil {
			return err
		}
		out = slices.Collect(seq)
		return nil
	})
	return out, err
}

// Count returns the number of records of a table matching the condition.
func (c *Catalog) Count(name, cond string) (int, error) {
	var n int
	err := c.View(name, func(t *table.Table) error {
		var err error
		n, err = t.Count(cond)
		return err
	})
	return n, err
}

// Set assigns value to field on every matching record and returns the count.
func (c *Catalog) Set(name, cond, field string, value any) (int, error) {
	var n int
	err := c.Do(name, func(t *table.Table) error {
		var err error
		n, err = t.Update(cond, field, value)
		return err
	})
	return n, err
}

// Delete removes every matching record and returns the count.
func (c *Catalog) Delete(name, cond string) (int, error) {
	var n int
	err := c.Do(name, func(t *table.Table) error {
		var err error
		n, err = t.Delete(cond)
		return err
	})
	return n, err
}
