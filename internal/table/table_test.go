package table

import (
	"errors"
	"slices"
	"testing"
)

func query(t *testing.T, tbl *Table, cond string) []Record {
	t.Helper()
	seq, err := tbl.Query(cond)
	if err != nil {
		t.Fatal(err)
	}
	return slices.Collect(seq)
}

func nums(field string, recs []Record) []float64 {
	out := make([]float64, 0, len(recs))
	for _, r := range recs {
		out = append(out, r[field].Num())
	}
	return out
}

func mustInsert(t *testing.T, tbl *Table, rec map[string]any) RowID {
	t.Helper()
	id, err := tbl.Insert(rec)
	if err != nil {
		t.Fatal(err)
	}
	mustCheck(t, tbl)
	return id
}

func mustCheck(t *testing.T, tbl *Table) {
	t.Helper()
	if err := tbl.Check(); err != nil {
		t.Fatalf("index check failed:\n%v", err)
	}
}

func ages(t *testing.T) *Table {
	t.Helper()
	tbl := New("people")
	for _, age := range []float64{5, 10, 15, 20} {
		mustInsert(t, tbl, map[string]any{"age": age})
	}
	return tbl
}

func TestInsert(t *testing.T) {
	t.Run("InfersKinds", func(t *testing.T) {
		tbl := New("t")
		mustInsert(t, tbl, map[string]any{"name": "alice", "age": 30, "admin": true, "tags": []any{"a"}})
		want := []Field{
			{Name: "admin", Kind: KindText},
			{Name: "age", Kind: KindNumber},
			{Name: "name", Kind: KindText},
			{Name: "tags", Kind: KindText},
		}
		if got := tbl.Fields(); !slices.Equal(got, want) {
			t.Errorf("Fields() = %v, want %v", got, want)
		}
		rec, ok := tbl.Get(0)
		if !ok {
			t.Fatal("Get(0) not found")
		}
		if got := rec["tags"].Str(); got != `["a"]` {
			t.Errorf("tags = %q, want JSON text", got)
		}
		if got := rec["admin"].Str(); got != "true" {
			t.Errorf("admin = %q, want true", got)
		}
	})

	t.Run("AssignsSequentialIDs", func(t *testing.T) {
		tbl := New("t")
		for want := range RowID(3) {
			if got := mustInsert(t, tbl, map[string]any{"n": 1}); got != want {
				t.Errorf("Insert() = %d, want %d", got, want)
			}
		}
	})

	t.Run("CoercesToEstablishedKind", func(t *testing.T) {
		tbl := New("t")
		mustInsert(t, tbl, map[string]any{"age": 1, "code": "x"})
		mustInsert(t, tbl, map[string]any{"age": " 42 ", "code": 7})
		mustInsert(t, tbl, map[string]any{"code": 2.5})
		rec, _ := tbl.Get(1)
		if got := rec["age"]; !got.Equal(Number(42)) {
			t.Errorf("age = %v (%s), want number 42", got, got.Kind())
		}
		if got := rec["code"]; !got.Equal(Text("7")) {
			t.Errorf("code = %v (%s), want text 7", got, got.Kind())
		}
		rec, _ = tbl.Get(2)
		if got := rec["code"]; !got.Equal(Text("2.5")) {
			t.Errorf("code = %v, want text 2.5", got)
		}
		got := query(t, tbl, `code == "7"`)
		if len(got) != 1 {
			t.Errorf("Query(code == 7) returned %d rows, want 1", len(got))
		}
	})

	t.Run("TypeMismatchLeavesTableUnchanged", func(t *testing.T) {
		tbl := New("t")
		mustInsert(t, tbl, map[string]any{"age": 1})
		_, err := tbl.Insert(map[string]any{"age": "old", "other": "x"})
		if !errors.Is(err, ErrTypeMismatch) {
			t.Fatalf("Insert() error = %v, want ErrTypeMismatch", err)
		}
		if tbl.Len() != 1 {
			t.Errorf("Len() = %d, want 1", tbl.Len())
		}
		if _, ok := tbl.Kind("other"); ok {
			t.Error("field from rejected record was registered")
		}
		if id := mustInsert(t, tbl, map[string]any{"age": 2}); id != 1 {
			t.Errorf("next ID = %d, want 1", id)
		}
	})

	t.Run("RejectsNonFinite", func(t *testing.T) {
		tbl := New("t")
		if _, err := tbl.Insert(map[string]any{"x": 1.0 / zero()}); !errors.Is(err, ErrTypeMismatch) {
			t.Errorf("Insert(+Inf) error = %v, want ErrTypeMismatch", err)
		}
		if _, err := tbl.Insert(map[string]any{"": 1}); err == nil {
			t.Error("Insert with empty field name succeeded")
		}
	})
}

func zero() float64 { return 0 }

func TestQuery(t *testing.T) {
	t.Run("EmptyConditionReturnsAllInOrder", func(t *testing.T) {
		tbl := ages(t)
		for _, cond := range []string{"", "   "} {
			got := nums("age", query(t, tbl, cond))
			if want := []float64{5, 10, 15, 20}; !slices.Equal(got, want) {
				t.Errorf("Query(%q) = %v, want %v", cond, got, want)
			}
		}
	})

	t.Run("NumericOperators", func(t *testing.T) {
		tbl := ages(t)
		mustInsert(t, tbl, map[string]any{"age": 10})
		tests := []struct {
			cond string
			want []float64
		}{
			{"age >= 10", []float64{10, 15, 20, 10}},
			{"age > 10", []float64{15, 20}},
			{"age <= 15", []float64{5, 10, 15, 10}},
			{"age < 15", []float64{5, 10, 10}},
			{"age == 10", []float64{10, 10}},
			{"age == 10.0", []float64{10, 10}},
			{`age == "15"`, []float64{15}},
			{"age != 10", []float64{5, 15, 20}},
			{"age > 100", []float64{}},
			{"age < -1", []float64{}},
			{"age==5", []float64{5}},
		}
		for _, tt := range tests {
			t.Run(tt.cond, func(t *testing.T) {
				got := nums("age", query(t, tbl, tt.cond))
				if !slices.Equal(got, tt.want) {
					t.Errorf("Query(%q) = %v, want %v", tt.cond, got, tt.want)
				}
			})
		}
	})

	t.Run("RangeReturnsRowsInIDOrder", func(t *testing.T) {
		tbl := New("t")
		for _, age := range []float64{20, 5, 15, 10} {
			mustInsert(t, tbl, map[string]any{"age": age})
		}
		seq, err := tbl.QueryRows("age >= 10")
		if err != nil {
			t.Fatal(err)
		}
		var ids []RowID
		for row := range seq {
			ids = append(ids, row.ID)
		}
		if want := []RowID{0, 2, 3}; !slices.Equal(ids, want) {
			t.Errorf("QueryRows ids = %v, want %v", ids, want)
		}
	})

	t.Run("TextOperators", func(t *testing.T) {
		tbl := New("t")
		mustInsert(t, tbl, map[string]any{"name": "alice"})
		mustInsert(t, tbl, map[string]any{"name": "bob"})
		mustInsert(t, tbl, map[string]any{"other": 1})
		mustInsert(t, tbl, map[string]any{"name": "alice"})
		if got := query(t, tbl, `name == "alice"`); len(got) != 2 {
			t.Errorf("== returned %d rows, want 2", len(got))
		}
		if got := query(t, tbl, `name == 'bob'`); len(got) != 1 {
			t.Errorf("== with single quotes returned %d rows, want 1", len(got))
		}
		if got := query(t, tbl, `name == bob`); len(got) != 1 {
			t.Errorf("== with bare token returned %d rows, want 1", len(got))
		}
		got := query(t, tbl, `name != "alice"`)
		if len(got) != 1 || got[0]["name"].Str() != "bob" {
			t.Errorf("!= returned %v, want only bob", got)
		}
		for _, cond := range []string{`name > "a"`, `name <= "z"`} {
			if _, err := tbl.Query(cond); !errors.Is(err, ErrUnsupportedOperator) {
				t.Errorf("Query(%q) error = %v, want ErrUnsupportedOperator", cond, err)
			}
		}
	})

	t.Run("UnknownFieldMatchesNothing", func(t *testing.T) {
		tbl := ages(t)
		for _, cond := range []string{"missing == 3", "missing != 3", "missing > x", `missing == "a"`} {
			if got := query(t, tbl, cond); len(got) != 0 {
				t.Errorf("Query(%q) = %v, want empty", cond, got)
			}
		}
	})

	t.Run("Errors", func(t *testing.T) {
		tbl := ages(t)
		for _, cond := range []string{"age == ten", "age >= 'x'", "age", "== 3", "age ==", `age == "unterminated`} {
			if _, err := tbl.Query(cond); !errors.Is(err, ErrConditionParse) {
				t.Errorf("Query(%q) error = %v, want ErrConditionParse", cond, err)
			}
		}
	})

	t.Run("Restartable", func(t *testing.T) {
		tbl := ages(t)
		seq, err := tbl.Query("age > 5")
		if err != nil {
			t.Fatal(err)
		}
		first := slices.Collect(seq)
		second := slices.Collect(seq)
		if len(first) != 3 || len(second) != 3 {
			t.Errorf("iterations returned %d and %d rows, want 3 each", len(first), len(second))
		}
		if _, err := tbl.Delete("age == 10"); err != nil {
			t.Fatal(err)
		}
		if got := nums("age", slices.Collect(seq)); !slices.Equal(got, []float64{15, 20}) {
			t.Errorf("after delete = %v, want deleted row skipped", got)
		}
	})

	t.Run("YieldsCopies", func(t *testing.T) {
		tbl := ages(t)
		for r := range tbl.All() {
			r["age"] = Number(-1)
		}
		mustCheck(t, tbl)
		if n, _ := tbl.Count("age == -1"); n != 0 {
			t.Errorf("mutating a yielded record changed the table")
		}
	})
}

func TestUpdate(t *testing.T) {
	t.Run("MovesIndexEntries", func(t *testing.T) {
		tbl := New("t")
		mustInsert(t, tbl, map[string]any{"name": "a", "score": 1})
		mustInsert(t, tbl, map[string]any{"name": "b", "score": 2})
		n, err := tbl.Update("score == 1", "score", 99)
		if err != nil {
			t.Fatal(err)
		}
		if n != 1 {
			t.Errorf("Update() = %d, want 1", n)
		}
		mustCheck(t, tbl)
		old, _ := tbl.Match(MustParseCondition("score == 1"))
		if !old.IsEmpty() {
			t.Errorf("key 1 still holds %v", old.ToArray())
		}
		moved, _ := tbl.Match(MustParseCondition("score == 99"))
		if got := moved.ToArray(); !slices.Equal(got, []uint32{0}) {
			t.Errorf("key 99 holds %v, want [0]", got)
		}
	})

	t.Run("AddsMissingField", func(t *testing.T) {
		tbl := New("t")
		mustInsert(t, tbl, map[string]any{"name": "a"})
		mustInsert(t, tbl, map[string]any{"name": "b", "level": 3})
		n, err := tbl.Update(`name == "a"`, "level", "7")
		if err != nil {
			t.Fatal(err)
		}
		if n != 1 {
			t.Errorf("Update() = %d, want 1", n)
		}
		mustCheck(t, tbl)
		rec, _ := tbl.Get(0)
		if got := rec["level"]; !got.Equal(Number(7)) {
			t.Errorf("level = %v (%s), want number 7", got, got.Kind())
		}
	})

	t.Run("NewFieldTakesValueKind", func(t *testing.T) {
		tbl := ages(t)
		if _, err := tbl.Update("age > 10", "label", "old"); err != nil {
			t.Fatal(err)
		}
		mustCheck(t, tbl)
		if k, _ := tbl.Kind("label"); k != KindText {
			t.Errorf("Kind(label) = %s, want text", k)
		}
		if n, _ := tbl.Count(`label == "old"`); n != 2 {
			t.Errorf("Count(label) = %d, want 2", n)
		}
	})

	t.Run("NoMatchDoesNotDeclareField", func(t *testing.T) {
		tbl := ages(t)
		n, err := tbl.Update("age > 100", "label", "x")
		if err != nil || n != 0 {
			t.Fatalf("Update() = %d, %v; want 0, nil", n, err)
		}
		if _, ok := tbl.Kind("label"); ok {
			t.Error("label was declared by an update that matched nothing")
		}
	})

	t.Run("TypeMismatchModifiesNothing", func(t *testing.T) {
		tbl := ages(t)
		if _, err := tbl.Update("", "age", "many"); !errors.Is(err, ErrTypeMismatch) {
			t.Fatalf("Update() error = %v, want ErrTypeMismatch", err)
		}
		if got := nums("age", slices.Collect(tbl.All())); !slices.Equal(got, []float64{5, 10, 15, 20}) {
			t.Errorf("rows = %v, want unchanged", got)
		}
	})

	t.Run("BadConditionModifiesNothing", func(t *testing.T) {
		tbl := ages(t)
		if _, err := tbl.Update("age == x", "age", 1); !errors.Is(err, ErrConditionParse) {
			t.Fatalf("Update() error = %v, want ErrConditionParse", err)
		}
		if n, _ := tbl.Count("age == 1"); n != 0 {
			t.Errorf("rows were modified")
		}
	})

	t.Run("ConditionOnUpdatedField", func(t *testing.T) {
		tbl := ages(t)
		n, err := tbl.Update("age >= 10", "age", 0)
		if err != nil {
			t.Fatal(err)
		}
		if n != 3 {
			t.Errorf("Update() = %d, want 3", n)
		}
		mustCheck(t, tbl)
		if got, _ := tbl.Count("age == 0"); got != 3 {
			t.Errorf("Count(age == 0) = %d, want 3", got)
		}
	})
}

func TestDelete(t *testing.T) {
	t.Run("RemovesRowsAndIndexEntries", func(t *testing.T) {
		tbl := ages(t)
		n, err := tbl.Delete("age < 15")
		if err != nil {
			t.Fatal(err)
		}
		if n != 2 {
			t.Errorf("Delete() = %d, want 2", n)
		}
		mustCheck(t, tbl)
		if got := nums("age", slices.Collect(tbl.All())); !slices.Equal(got, []float64{15, 20}) {
			t.Errorf("remaining = %v, want [15 20]", got)
		}
		if got, _ := tbl.Count("age >= 0"); got != 2 {
			t.Errorf("Count() = %d, want 2", got)
		}
	})

	t.Run("NoMatchIsNoop", func(t *testing.T) {
		tbl := ages(t)
		before := slices.Collect(tbl.All())
		n, err := tbl.Delete("age > 1000")
		if err != nil || n != 0 {
			t.Fatalf("Delete() = %d, %v; want 0, nil", n, err)
		}
		n, err = tbl.Delete("missing == 1")
		if err != nil || n != 0 {
			t.Fatalf("Delete(missing) = %d, %v; want 0, nil", n, err)
		}
		after := slices.Collect(tbl.All())
		if !slices.EqualFunc(before, after, recordsEqual) {
			t.Errorf("rows changed: %v -> %v", before, after)
		}
		mustCheck(t, tbl)
	})

	t.Run("IDsSurviveCompaction", func(t *testing.T) {
		tbl := New("t")
		for i := range 10 {
			mustInsert(t, tbl, map[string]any{"n": i})
		}
		if _, err := tbl.Delete("n < 8"); err != nil {
			t.Fatal(err)
		}
		mustCheck(t, tbl)
		if len(tbl.rows) != 2 {
			t.Errorf("slots = %d, want compaction to 2", len(tbl.rows))
		}
		rec, ok := tbl.Get(9)
		if !ok || rec["n"].Num() != 9 {
			t.Errorf("Get(9) = %v, %v; want n=9", rec, ok)
		}
		if _, ok := tbl.Get(3); ok {
			t.Error("Get(3) found a deleted row")
		}
		if id := mustInsert(t, tbl, map[string]any{"n": 10}); id != 10 {
			t.Errorf("Insert() after delete = %d, want 10", id)
		}
		if n, _ := tbl.Update("n >= 9", "n", 1); n != 2 {
			t.Errorf("Update() after compaction = %d, want 2", n)
		}
		mustCheck(t, tbl)
	})

	t.Run("All", func(t *testing.T) {
		tbl := ages(t)
		n, err := tbl.Delete("")
		if err != nil || n != 4 {
			t.Fatalf("Delete(all) = %d, %v; want 4, nil", n, err)
		}
		mustCheck(t, tbl)
		if tbl.Len() != 0 {
			t.Errorf("Len() = %d, want 0", tbl.Len())
		}
		if k, ok := tbl.Kind("age"); !ok || k != KindNumber {
			t.Error("field kinds must survive deleting every row")
		}
	})
}

func TestDefine(t *testing.T) {
	tbl := New("t")
	if err := tbl.Define("n", KindNumber); err != nil {
		t.Fatal(err)
	}
	if err := tbl.Define("n", KindNumber); err != nil {
		t.Errorf("redefining with same kind: %v", err)
	}
	if err := tbl.Define("n", KindText); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("Define() error = %v, want ErrTypeMismatch", err)
	}
	mustInsert(t, tbl, map[string]any{"n": "12"})
	rec, _ := tbl.Get(0)
	if !rec["n"].Equal(Number(12)) {
		t.Errorf("n = %v, want number 12", rec["n"])
	}
}

func recordsEqual(a, b Record) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if !v.Equal(b[k]) {
			return false
		}
	}
	return true
}
