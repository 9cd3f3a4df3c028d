package table

import (
	"errors"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
)

// Check verifies that the indexes agree with the rows.
//
// Every ID under an index key must be a live row whose field equals the key,
// and every live row must appear under the key of each of its fields.
func (t *Table) Check() error {
	var errs []error
	if len(t.rows) != len(t.ids) {
		errs = append(errs, fmt.Errorf("%d slots but %d slot IDs", len(t.rows), len(t.ids)))
	}
	if got := t.live.GetCardinality(); got != uint64(len(t.slots)) {
		errs = append(errs, fmt.Errorf("%d live IDs but %d mapped slots", got, len(t.slots)))
	}
	for field, idx := range t.indexes {
		if _, ok := t.kinds[field]; !ok {
			errs = append(errs, fmt.Errorf("index on undeclared field %q", field))
		}
		idx.each(func(key Value, ids *roaring.Bitmap) bool {
			if ids.IsEmpty() {
				errs = append(errs, fmt.Errorf("field %q: empty entry for key %v", field, key))
			}
			ids.Iterate(func(x uint32) bool {
				slot, ok := t.slots[RowID(x)]
				if !ok {
					errs = append(errs, fmt.Errorf("field %q: key %v references dead row %d", field, key, x))
					return true
				}
				if got, ok := t.rows[slot][field]; !ok || !got.Equal(key) {
					errs = append(errs, fmt.Errorf("field %q: key %v references row %d holding %v", field, key, x, got))
				}
				return true
			})
			return true
		})
	}
	for id, slot := range t.slots {
		if slot >= len(t.rows) || slot >= len(t.ids) || t.rows[slot] == nil || t.ids[slot] != id {
			errs = append(errs, fmt.Errorf("row %d: bad slot %d", id, slot))
			continue
		}
		for field, v := range t.rows[slot] {
			k, ok := t.kinds[field]
			if !ok || v.kind != k {
				errs = append(errs, fmt.Errorf("row %d: field %q holds %s value", id, field, v.kind))
				continue
			}
			hits, err := t.indexes[field].match(OpEq, v)
			if err != nil || !hits.Contains(uint32(id)) {
				errs = append(errs, fmt.Errorf("row %d: field %q value %v not indexed", id, field, v))
			}
		}
	}
	return errors.Join(errs...)
}
