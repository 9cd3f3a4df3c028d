package table

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestValueOf(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Value
	}{
		{"float", 1.5, Number(1.5)},
		{"int", 3, Number(3)},
		{"uint8", uint8(7), Number(7)},
		{"json number", json.Number("12"), Number(12)},
		{"string", "hi", Text("hi")},
		{"numeric string stays text", "12", Text("12")},
		{"bool", false, Text("false")},
		{"nil", nil, Text("null")},
		{"object", map[string]any{"a": 1}, Text(`{"a":1}`)},
		{"value", Text("x"), Text("x")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValueOf(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ValueOf(%v) = %v (%s), want %v (%s)", tt.in, got, got.Kind(), tt.want, tt.want.Kind())
			}
		})
	}

	t.Run("Invalid", func(t *testing.T) {
		for _, in := range []any{math.NaN(), math.Inf(-1), Value{}, json.Number("x")} {
			if _, err := ValueOf(in); !errors.Is(err, ErrTypeMismatch) {
				t.Errorf("ValueOf(%#v) error = %v, want ErrTypeMismatch", in, err)
			}
		}
	})
}

func TestCoerceTo(t *testing.T) {
	tests := []struct {
		in   Value
		kind Kind
		want Value
	}{
		{Number(3), KindText, Text("3")},
		{Number(-0.25), KindText, Text("-0.25")},
		{Number(1e20), KindText, Text("100000000000000000000")},
		{Text("3"), KindNumber, Number(3)},
		{Text(" 2.5\n"), KindNumber, Number(2.5)},
		{Text("x"), KindText, Text("x")},
	}
	for _, tt := range tests {
		got, err := tt.in.CoerceTo(tt.kind)
		if err != nil {
			t.Fatalf("%v.CoerceTo(%s): %v", tt.in, tt.kind, err)
		}
		if !got.Equal(tt.want) {
			t.Errorf("%v.CoerceTo(%s) = %v, want %v", tt.in, tt.kind, got, tt.want)
		}
	}
	for _, s := range []string{"abc", "", "NaN", "Inf", "1,5"} {
		if _, err := Text(s).CoerceTo(KindNumber); !errors.Is(err, ErrTypeMismatch) {
			t.Errorf("Text(%q).CoerceTo(number) error = %v, want ErrTypeMismatch", s, err)
		}
	}
}

func TestValueJSON(t *testing.T) {
	rec := Record{"n": Number(2), "s": Text("2")}
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(data), `{"n":2,"s":"2"}`; got != want {
		t.Errorf("Marshal = %s, want %s", got, want)
	}
	var back Record
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if !recordsEqual(rec, back) {
		t.Errorf("Unmarshal = %v, want %v", back, rec)
	}
}

func TestKind(t *testing.T) {
	for _, k := range []Kind{KindNumber, KindText} {
		got, err := ParseKind(k.String())
		if err != nil || got != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.String(), got, err)
		}
	}
	if _, err := ParseKind("bool"); err == nil {
		t.Error("ParseKind(bool) succeeded")
	}
}
