package table

import "errors"

var (
	// ErrTypeMismatch is returned when a value cannot be coerced to the field's established kind.
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrConditionParse is returned for a malformed condition or a bad literal.
	ErrConditionParse = errors.New("invalid condition")
	// ErrUnsupportedOperator is returned when an operator does not apply to the field's kind.
	ErrUnsupportedOperator = errors.New("unsupported operator")

	errEmptyField = errors.New("field name is required")
)
