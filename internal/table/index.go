// Provides the per-field secondary indexes used to answer conditions.

package table

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/emirpasic/gods/trees/redblacktree"
	"github.com/emirpasic/gods/utils"
)

// fieldIndex maps the values of one field to the IDs of the rows holding them.
//
// Every method takes values already coerced to the index's kind.
type fieldIndex interface {
	add(v Value, id RowID)
	remove(v Value, id RowID)
	// match returns a fresh bitmap the caller may modify.
	match(op Op, lit Value) (*roaring.Bitmap, error)
	// each calls fn for every key in the index until fn returns false.
	each(fn func(key Value, ids *roaring.Bitmap) bool)
}

func newFieldIndex(k Kind) fieldIndex {
	if k == KindNumber {
		return newNumericIndex()
	}
	return textIndex{}
}

// numericIndex keeps keys ordered so range operators only visit matching keys.
type numericIndex struct {
	tree *redblacktree.Tree // float64 -> *roaring.Bitmap
}

func newNumericIndex() *numericIndex {
	return &numericIndex{tree: redblacktree.NewWith(utils.Float64Comparator)}
}

func (n *numericIndex) add(v Value, id RowID) {
	if b, ok := n.tree.Get(v.num); ok {
		b.(*roaring.Bitmap).Add(uint32(id))
		return
	}
	n.tree.Put(v.num, roaring.BitmapOf(uint32(id)))
}

func (n *numericIndex) remove(v Value, id RowID) {
	b, ok := n.tree.Get(v.num)
	if !ok {
		return
	}
	ids := b.(*roaring.Bitmap)
	ids.Remove(uint32(id))
	if ids.IsEmpty() {
		n.tree.Remove(v.num)
	}
}

func (n *numericIndex) match(op Op, lit Value) (*roaring.Bitmap, error) {
	bound := lit.num
	var hits []*roaring.Bitmap
	it := n.tree.Iterator()
	switch op {
	case OpEq:
		if b, ok := n.tree.Get(bound); ok {
			return b.(*roaring.Bitmap).Clone(), nil
		}
		return roaring.New(), nil
	case OpNe:
		for it.Next() {
			if it.Key().(float64) != bound {
				hits = append(hits, it.Value().(*roaring.Bitmap))
			}
		}
	case OpGt, OpGe:
		// Walk down from the largest key and stop at the bound.
		it.End()
		for it.Prev() {
			k := it.Key().(float64)
			if k < bound || (k == bound && op == OpGt) {
				break
			}
			hits = append(hits, it.Value().(*roaring.Bitmap))
		}
	case OpLt, OpLe:
		for it.Next() {
			k := it.Key().(float64)
			if k > bound || (k == bound && op == OpLt) {
				break
			}
			hits = append(hits, it.Value().(*roaring.Bitmap))
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedOperator, op)
	}
	return roaring.FastOr(hits...), nil
}

func (n *numericIndex) each(fn func(key Value, ids *roaring.Bitmap) bool) {
	it := n.tree.Iterator()
	for it.Next() {
		if !fn(Number(it.Key().(float64)), it.Value().(*roaring.Bitmap)) {
			return
		}
	}
}

// textIndex only answers equality and its complement.
type textIndex map[string]*roaring.Bitmap

func (t textIndex) add(v Value, id RowID) {
	if b, ok := t[v.str]; ok {
		b.Add(uint32(id))
		return
	}
	t[v.str] = roaring.BitmapOf(uint32(id))
}

func (t textIndex) remove(v Value, id RowID) {
	b, ok := t[v.str]
	if !ok {
		return
	}
	b.Remove(uint32(id))
	if b.IsEmpty() {
		delete(t, v.str)
	}
}

func (t textIndex) match(op Op, lit Value) (*roaring.Bitmap, error) {
	switch op {
	case OpEq:
		if b, ok := t[lit.str]; ok {
			return b.Clone(), nil
		}
		return roaring.New(), nil
	case OpNe:
		hits := make([]*roaring.Bitmap, 0, len(t))
		for k, b := range t {
			if k != lit.str {
				hits = append(hits, b)
			}
		}
		return roaring.FastOr(hits...), nil
	default:
		return nil, fmt.Errorf("%w: %q on a text field", ErrUnsupportedOperator, op)
	}
}

func (t textIndex) each(fn func(key Value, ids *roaring.Bitmap) bool) {
	for k, b := range t {
		if !fn(Text(k), b) {
			return
		}
	}
}
