package table

import (
	"errors"
	"testing"
)

func TestParseCondition(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		tests := []struct {
			in   string
			want Condition
		}{
			{"", Condition{}},
			{"  ", Condition{}},
			{"age >= 10", Condition{Field: "age", Op: OpGe, Literal: "10"}},
			{"age<=10", Condition{Field: "age", Op: OpLe, Literal: "10"}},
			{"age > -3.5", Condition{Field: "age", Op: OpGt, Literal: "-3.5"}},
			{"age < 1e3", Condition{Field: "age", Op: OpLt, Literal: "1e3"}},
			{`name == "bob smith"`, Condition{Field: "name", Op: OpEq, Literal: "bob smith", Quoted: true}},
			{`name != 'x'`, Condition{Field: "name", Op: OpNe, Literal: "x", Quoted: true}},
			{`name == ""`, Condition{Field: "name", Op: OpEq, Literal: "", Quoted: true}},
			{"first name == bob", Condition{Field: "first name", Op: OpEq, Literal: "bob"}},
			// "==" is searched before ">", so it wins even when it comes later.
			{"a>b == c", Condition{Field: "a>b", Op: OpEq, Literal: "c"}},
		}
		for _, tt := range tests {
			t.Run(tt.in, func(t *testing.T) {
				got, err := ParseCondition(tt.in)
				if err != nil {
					t.Fatal(err)
				}
				if got != tt.want {
					t.Errorf("ParseCondition(%q) = %+v, want %+v", tt.in, got, tt.want)
				}
			})
		}
	})

	t.Run("Invalid", func(t *testing.T) {
		for _, in := range []string{"age", "== 1", "age >=", `name == "open`, `name == '`, "age = 1"} {
			t.Run(in, func(t *testing.T) {
				if _, err := ParseCondition(in); !errors.Is(err, ErrConditionParse) {
					t.Errorf("ParseCondition(%q) error = %v, want ErrConditionParse", in, err)
				}
			})
		}
	})

	t.Run("String", func(t *testing.T) {
		for _, in := range []string{"age >= 10", `name == "bob"`, ""} {
			c := MustParseCondition(in)
			if got := c.String(); got != in {
				t.Errorf("String() = %q, want %q", got, in)
			}
		}
	})

	t.Run("StringReparses", func(t *testing.T) {
		for _, in := range []string{`name == 'say "hi"'`, `name == "it's"`, `name != 'x'`, "n < 3"} {
			c := MustParseCondition(in)
			got, err := ParseCondition(c.String())
			if err != nil {
				t.Fatalf("ParseCondition(%q): %v", c.String(), err)
			}
			if got != c {
				t.Errorf("%q -> %q -> %+v, want %+v", in, c.String(), got, c)
			}
		}
	})
}

func TestOpIsRange(t *testing.T) {
	for _, op := range opScanOrder {
		want := op != OpEq && op != OpNe
		if got := op.IsRange(); got != want {
			t.Errorf("%q.IsRange() = %v, want %v", op, got, want)
		}
	}
}
