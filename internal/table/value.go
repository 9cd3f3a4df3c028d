// Defines field values, their kinds and the coercion rules between them.

package table

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Coercion between the two kinds mirrors SQLite's TEXT and REAL affinities:
//
//	Go input        → Value
//	float64, int... → Number
//	json.Number     → Number
//	string          → Text
//	bool            → Text ("true" / "false")
//	nil, [], {}     → Text (JSON-encoded)
//
// Once a field has a kind, values of the other kind are converted:
//   - Text field: numbers are formatted without a trailing ".0" for whole values
//   - Number field: text is parsed as a float; non-numeric text is a mismatch
//
// Non-finite numbers are rejected; they have no JSON form and break ordering.

// Kind is the type of a field.
type Kind uint8

const (
	// KindNumber holds float64 values.
	KindNumber Kind = iota + 1
	// KindText holds string values.
	KindText
)

// String returns the persisted name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// ParseKind parses the persisted name of a kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "number":
		return KindNumber, nil
	case "text":
		return KindText, nil
	default:
		return 0, fmt.Errorf("unknown field kind %q", s)
	}
}

// Value is a field value: either a Number or a Text.
//
// The zero Value is invalid.
type Value struct {
	kind Kind
	num  float64
	str  string
}

// Number returns a Number value.
func Number(f float64) Value {
	return Value{kind: KindNumber, num: f}
}

// Text returns a Text value.
func Text(s string) Value {
	return Value{kind: KindText, str: s}
}

// Kind returns the kind of the value.
func (v Value) Kind() Kind {
	return v.kind
}

// IsValid reports whether v was built by Number, Text or ValueOf.
func (v Value) IsValid() bool {
	return v.kind == KindNumber || v.kind == KindText
}

// Num returns the number held by a Number value, 0 otherwise.
func (v Value) Num() float64 {
	return v.num
}

// Str returns the string held by a Text value, "" otherwise.
func (v Value) Str() string {
	return v.str
}

// String formats the value for display.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return formatNumber(v.num)
	case KindText:
		return v.str
	default:
		return "<invalid>"
	}
}

// Any returns the value as float64 or string, the shape encoders expect.
func (v Value) Any() any {
	if v.kind == KindNumber {
		return v.num
	}
	return v.str
}

// Equal reports whether both values have the same kind and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	if v.kind == KindNumber {
		return v.num == o.num
	}
	return v.str == o.str
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		return json.Marshal(v.num)
	case KindText:
		return json.Marshal(v.str)
	default:
		return nil, fmt.Errorf("cannot marshal invalid value")
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	d := json.NewDecoder(bytes.NewReader(data))
	d.UseNumber()
	var raw any
	if err := d.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ValueOf(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ValueOf converts a Go value into a Value.
func ValueOf(x any) (Value, error) {
	switch t := x.(type) {
	case Value:
		if !t.IsValid() {
			return Value{}, fmt.Errorf("%w: invalid value", ErrTypeMismatch)
		}
		if t.kind == KindNumber {
			return checkFinite(t.num)
		}
		return t, nil
	case float64:
		return checkFinite(t)
	case float32:
		return checkFinite(float64(t))
	case int:
		return Number(float64(t)), nil
	case int8:
		return Number(float64(t)), nil
	case int16:
		return Number(float64(t)), nil
	case int32:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case uint:
		return Number(float64(t)), nil
	case uint8:
		return Number(float64(t)), nil
	case uint16:
		return Number(float64(t)), nil
	case uint32:
		return Number(float64(t)), nil
	case uint64:
		return Number(float64(t)), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("%w: %q is not a number", ErrTypeMismatch, t.String())
		}
		return checkFinite(f)
	case string:
		return Text(t), nil
	case bool:
		return Text(strconv.FormatBool(t)), nil
	default:
		// Arrays, objects and null keep their JSON encoding as text.
		b, err := json.Marshal(t)
		if err != nil {
			return Value{}, fmt.Errorf("%w: cannot encode %T: %w", ErrTypeMismatch, t, err)
		}
		return Text(string(b)), nil
	}
}

func checkFinite(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, fmt.Errorf("%w: non-finite number %v", ErrTypeMismatch, f)
	}
	return Number(f), nil
}

// CoerceTo converts v to the given kind.
func (v Value) CoerceTo(k Kind) (Value, error) {
	if v.kind == k {
		return v, nil
	}
	switch k {
	case KindText:
		return Text(formatNumber(v.num)), nil
	case KindNumber:
		f, ok := parseNumber(v.str)
		if !ok {
			return Value{}, fmt.Errorf("%w: %q is not a number", ErrTypeMismatch, v.str)
		}
		return Number(f), nil
	default:
		return Value{}, fmt.Errorf("%w: unknown kind %s", ErrTypeMismatch, k)
	}
}

// parseNumber parses a finite float, tolerating surrounding spaces.
func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// formatNumber formats whole numbers without decimal places.
func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Record is a sparse mapping from field name to value.
type Record map[string]Value

// Clone returns a copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	c := make(Record, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// Map returns the record as plain Go values, ready for any encoder.
func (r Record) Map() map[string]any {
	m := make(map[string]any, len(r))
	for k, v := range r {
		m[k] = v.Any()
	}
	return m
}
