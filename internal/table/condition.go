// Parses single-field comparison conditions.

package table

import (
	"fmt"
	"strings"
)

// Op is a comparison operator.
type Op string

// Supported operators.
const (
	OpEq Op = "=="
	OpNe Op = "!="
	OpGe Op = ">="
	OpLe Op = "<="
	OpGt Op = ">"
	OpLt Op = "<"
)

// opScanOrder is the order in which operators are searched for. Two-character
// operators come first so ">=" is never split as ">".
var opScanOrder = [...]Op{OpEq, OpNe, OpGe, OpLe, OpGt, OpLt}

// IsRange reports whether the operator compares by order.
func (op Op) IsRange() bool {
	return op == OpGe || op == OpLe || op == OpGt || op == OpLt
}

// Condition is a parsed `field OP literal` expression.
//
// The zero Condition matches every row.
type Condition struct {
	Field string
	Op    Op
	// Literal is the right-hand side with quotes removed.
	Literal string
	// Quoted is true when the literal was written as a quoted string.
	Quoted bool
}

// IsZero reports whether the condition matches everything.
func (c Condition) IsZero() bool {
	return c.Op == ""
}

// String returns the condition in its textual form.
func (c Condition) String() string {
	if c.IsZero() {
		return ""
	}
	lit := c.Literal
	if c.Quoted {
		q := `"`
		if strings.Contains(lit, q) {
			q = "'"
		}
		lit = q + lit + q
	}
	return c.Field + " " + string(c.Op) + " " + lit
}

// ParseCondition parses a condition string.
//
// An empty (or blank) string matches every row. Otherwise the string must be
// `field OP literal` where the literal is a quoted string ("..." or '...') or a
// bare token. Operators are searched in the order == != >= <= > < and the
// string is split at the first occurrence of the first one found, so field
// names and literals cannot contain operator characters.
func ParseCondition(s string) (Condition, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Condition{}, nil
	}
	for _, op := range opScanOrder {
		i := strings.Index(s, string(op))
		if i < 0 {
			continue
		}
		field := strings.TrimSpace(s[:i])
		raw := strings.TrimSpace(s[i+len(op):])
		if field == "" {
			return Condition{}, fmt.Errorf("%w: %q: %w", ErrConditionParse, s, errEmptyField)
		}
		if raw == "" {
			return Condition{}, fmt.Errorf("%w: %q: missing literal", ErrConditionParse, s)
		}
		lit, quoted, err := unquote(raw)
		if err != nil {
			return Condition{}, fmt.Errorf("%w: %q: %w", ErrConditionParse, s, err)
		}
		return Condition{Field: field, Op: op, Literal: lit, Quoted: quoted}, nil
	}
	return Condition{}, fmt.Errorf("%w: %q: no comparison operator", ErrConditionParse, s)
}

// MustParseCondition is like ParseCondition but panics on error.
func MustParseCondition(s string) Condition {
	c, err := ParseCondition(s)
	if err != nil {
		panic(err)
	}
	return c
}

func unquote(raw string) (string, bool, error) {
	q := raw[0]
	if q != '"' && q != '\'' {
		return raw, false, nil
	}
	if len(raw) < 2 || raw[len(raw)-1] != q {
		return "", false, fmt.Errorf("unterminated string %s", raw)
	}
	return raw[1 : len(raw)-1], true, nil
}

// literalValue returns the literal as a value of the given kind.
func (c Condition) literalValue(k Kind) (Value, error) {
	if k == KindText {
		return Text(c.Literal), nil
	}
	f, ok := parseNumber(c.Literal)
	if !ok {
		return Value{}, fmt.Errorf("%w: %q: %q is not a number", ErrConditionParse, c.String(), c.Literal)
	}
	return Number(f), nil
}
