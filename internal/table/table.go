package table

import (
	"fmt"
	"iter"
	"maps"
	"math"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
)

// RowID is the stable identity of a row within a table.
type RowID uint32

// Row is a record along with its identity.
type Row struct {
	ID     RowID
	Record Record
}

// Field describes a field and its established kind.
type Field struct {
	Name string
	Kind Kind
}

// compactRatio triggers slot compaction once tombstones exceed this share of slots.
const compactRatio = 0.5

// Table holds the rows of one table along with its field kinds and indexes.
type Table struct {
	name string

	// rows are the physical slots, ordered by ID; nil marks a deleted row.
	rows []Record
	ids  []RowID
	// slots maps a live row ID to its index in rows.
	slots map[RowID]int
	live  *roaring.Bitmap
	dead  int

	nextID  RowID
	kinds   map[string]Kind
	indexes map[string]fieldIndex
}

// New creates an empty table.
func New(name string) *Table {
	return &Table{
		name:    name,
		slots:   make(map[RowID]int),
		live:    roaring.New(),
		kinds:   make(map[string]Kind),
		indexes: make(map[string]fieldIndex),
	}
}

// Name returns the table name.
func (t *Table) Name() string {
	return t.name
}

// Len returns the number of live rows.
func (t *Table) Len() int {
	return int(t.live.GetCardinality())
}

// Kind returns the established kind of a field.
func (t *Table) Kind(field string) (Kind, bool) {
	k, ok := t.kinds[field]
	return k, ok
}

// Fields returns every known field sorted by name.
func (t *Table) Fields() []Field {
	out := make([]Field, 0, len(t.kinds))
	for _, name := range slices.Sorted(maps.Keys(t.kinds)) {
		out = append(out, Field{Name: name, Kind: t.kinds[name]})
	}
	return out
}

// Define establishes the kind of a field before any value is stored.
//
// Defining a field again with the same kind is a no-op.
func (t *Table) Define(field string, k Kind) error {
	if field == "" {
		return errEmptyField
	}
	if k != KindNumber && k != KindText {
		return fmt.Errorf("field %q: unknown kind %s", field, k)
	}
	if prev, ok := t.kinds[field]; ok {
		if prev != k {
			return fmt.Errorf("%w: field %q is %s, not %s", ErrTypeMismatch, field, prev, k)
		}
		return nil
	}
	t.kinds[field] = k
	t.indexes[field] = newFieldIndex(k)
	return nil
}

// Insert appends a record and indexes every field.
//
// Values are converted with ValueOf then coerced to the field's kind. New
// fields take the kind of their first value. Nothing is modified when an error
// is returned.
func (t *Table) Insert(rec map[string]any) (RowID, error) {
	if t.nextID == math.MaxUint32 {
		return 0, fmt.Errorf("table %q: row ID space exhausted", t.name)
	}
	row := make(Record, len(rec))
	var fresh map[string]Kind
	for field, raw := range rec {
		if field == "" {
			return 0, errEmptyField
		}
		v, err := t.prepare(field, raw)
		if err != nil {
			return 0, err
		}
		if _, ok := t.kinds[field]; !ok {
			if fresh == nil {
				fresh = make(map[string]Kind)
			}
			fresh[field] = v.kind
		}
		row[field] = v
	}
	for field, k := range fresh {
		t.kinds[field] = k
		t.indexes[field] = newFieldIndex(k)
	}

	id := t.nextID
	t.nextID++
	t.slots[id] = len(t.rows)
	t.rows = append(t.rows, row)
	t.ids = append(t.ids, id)
	t.live.Add(uint32(id))
	for field, v := range row {
		t.indexes[field].add(v, id)
	}
	return id, nil
}

// prepare converts raw and coerces it to the field's kind, if known.
func (t *Table) prepare(field string, raw any) (Value, error) {
	v, err := ValueOf(raw)
	if err != nil {
		return Value{}, fmt.Errorf("field %q: %w", field, err)
	}
	k, ok := t.kinds[field]
	if !ok {
		return v, nil
	}
	c, err := v.CoerceTo(k)
	if err != nil {
		return Value{}, fmt.Errorf("field %q is %s: %w", field, k, err)
	}
	return c, nil
}

// Get returns a copy of the row with the given ID.
func (t *Table) Get(id RowID) (Record, bool) {
	slot, ok := t.slots[id]
	if !ok {
		return nil, false
	}
	return t.rows[slot].Clone(), true
}

// All returns every row in ID order.
func (t *Table) All() iter.Seq[Record] {
	return t.records(nil)
}

// Query returns the rows matching the condition in ID order.
//
// The condition is evaluated immediately against the indexes; the returned
// sequence can be iterated any number of times. Rows deleted after the call
// are skipped. The table must not be mutated during an iteration.
func (t *Table) Query(cond string) (iter.Seq[Record], error) {
	ids, err := t.matchString(cond)
	if err != nil {
		return nil, err
	}
	return t.records(ids), nil
}

// QueryRows is like Query but also yields row IDs.
func (t *Table) QueryRows(cond string) (iter.Seq[Row], error) {
	ids, err := t.matchString(cond)
	if err != nil {
		return nil, err
	}
	return func(yield func(Row) bool) {
		it := ids.Iterator()
		for it.HasNext() {
			id := RowID(it.Next())
			slot, ok := t.slots[id]
			if !ok {
				continue
			}
			if !yield(Row{ID: id, Record: t.rows[slot].Clone()}) {
				return
			}
		}
	}, nil
}

// Count returns the number of rows matching the condition.
func (t *Table) Count(cond string) (int, error) {
	ids, err := t.matchString(cond)
	if err != nil {
		return 0, err
	}
	return int(ids.GetCardinality()), nil
}

// records yields live rows for ids, or every live row when ids is nil.
func (t *Table) records(ids *roaring.Bitmap) iter.Seq[Record] {
	return func(yield func(Record) bool) {
		if ids == nil {
			for _, r := range t.rows {
				if r == nil {
					continue
				}
				if !yield(r.Clone()) {
					return
				}
			}
			return
		}
		it := ids.Iterator()
		for it.HasNext() {
			slot, ok := t.slots[RowID(it.Next())]
			if !ok {
				continue
			}
			if !yield(t.rows[slot].Clone()) {
				return
			}
		}
	}
}

// Update sets field to value on every row matching the condition and returns
// the number of rows updated.
//
// The condition and the value are both checked before any row is modified.
func (t *Table) Update(cond, field string, value any) (int, error) {
	if field == "" {
		return 0, errEmptyField
	}
	ids, err := t.matchString(cond)
	if err != nil {
		return 0, err
	}
	v, err := t.prepare(field, value)
	if err != nil {
		return 0, err
	}
	if ids.IsEmpty() {
		return 0, nil
	}
	idx, ok := t.indexes[field]
	if !ok {
		t.kinds[field] = v.kind
		idx = newFieldIndex(v.kind)
		t.indexes[field] = idx
	}
	n := 0
	it := ids.Iterator()
	for it.HasNext() {
		id := RowID(it.Next())
		row := t.rows[t.slots[id]]
		if old, ok := row[field]; ok {
			idx.remove(old, id)
		}
		row[field] = v
		idx.add(v, id)
		n++
	}
	return n, nil
}

// Delete removes every row matching the condition and returns the number of
// rows removed.
func (t *Table) Delete(cond string) (int, error) {
	ids, err := t.matchString(cond)
	if err != nil {
		return 0, err
	}
	n := 0
	it := ids.Iterator()
	for it.HasNext() {
		id := RowID(it.Next())
		slot := t.slots[id]
		for field, v := range t.rows[slot] {
			t.indexes[field].remove(v, id)
		}
		t.rows[slot] = nil
		delete(t.slots, id)
		t.live.Remove(uint32(id))
		t.dead++
		n++
	}
	if n > 0 && float64(t.dead) > compactRatio*float64(len(t.rows)) {
		t.compact()
	}
	return n, nil
}

// compact drops tombstones from the slot array. Row IDs are untouched so
// indexes stay valid; only the ID to slot mapping is rebuilt.
func (t *Table) compact() {
	rows := make([]Record, 0, len(t.rows)-t.dead)
	ids := make([]RowID, 0, cap(rows))
	for i, r := range t.rows {
		if r == nil {
			continue
		}
		t.slots[t.ids[i]] = len(rows)
		rows = append(rows, r)
		ids = append(ids, t.ids[i])
	}
	t.rows = rows
	t.ids = ids
	t.dead = 0
}

func (t *Table) matchString(cond string) (*roaring.Bitmap, error) {
	c, err := ParseCondition(cond)
	if err != nil {
		return nil, err
	}
	return t.Match(c)
}

// Match returns the IDs of the rows satisfying the condition.
//
// A condition on a field the table has never seen matches nothing.
func (t *Table) Match(c Condition) (*roaring.Bitmap, error) {
	if c.IsZero() {
		return t.live.Clone(), nil
	}
	k, ok := t.kinds[c.Field]
	if !ok {
		return roaring.New(), nil
	}
	if k == KindText && c.Op.IsRange() {
		return nil, fmt.Errorf("%w: %q on text field %q", ErrUnsupportedOperator, c.Op, c.Field)
	}
	lit, err := c.literalValue(k)
	if err != nil {
		return nil, err
	}
	return t.indexes[c.Field].match(c.Op, lit)
}
