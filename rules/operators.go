package rules

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/itemgrid/fieldflow/fields"
	"github.com/itemgrid/fieldflow/types"
)

var (
	// ErrUnknownOperator indicates an operator outside the closed set.
	ErrUnknownOperator = errors.New("unknown operator")
	// ErrUnsupportedType indicates a trigger value whose runtime type the
	// operator cannot compare; the rule degrades to false.
	ErrUnsupportedType = errors.New("unsupported value type for operator")
)

// Apply reduces the rule's coerced expected-value list against the already
// normalized trigger value to a single boolean. The expected literals are
// coerced to the runtime type of the value; the substring family
// (contains/startsWith/endsWith and negations) is defined for string
// values only and degrades to an ErrUnsupportedType otherwise.
func Apply(op types.Operator, value interface{}, expectedCSV string) (bool, error) {
	switch op {
	case types.OpIsEmpty:
		return fields.Stringify(value) == "", nil
	case types.OpIsNotEmpty:
		return fields.Stringify(value) != "", nil
	}

	literals := splitExpected(expectedCSV)
	kind := fields.RuntimeKind(value)

	switch kind {
	case fields.KindString:
		return applyString(op, strings.ToLower(value.(string)), literals)
	case fields.KindNumber:
		num, _ := fields.AsNumber(value)
		return applyNumber(op, num, coerceNumbers(literals))
	case fields.KindBool:
		return applyBool(op, value.(bool), literals)
	case fields.KindDate:
		return applyDate(op, value.(time.Time), coerceDates(literals))
	}
	return false, fmt.Errorf("%w: %s on %s", ErrUnsupportedType, op, kind)
}

func applyString(op types.Operator, value string, literals []string) (bool, error) {
	expected := make([]string, len(literals))
	for i, l := range literals {
		expected[i] = strings.ToLower(l)
	}

	// anyOf reduces the literal list with OR; the negated operators are
	// the complement of their positive form over the whole list.
	anyOf := func(pred func(string) bool) bool {
		for _, e := range expected {
			if pred(e) {
				return true
			}
		}
		return false
	}

	switch op {
	case types.OpEquals:
		return anyOf(func(e string) bool { return value == e }), nil
	case types.OpNotEquals:
		return !anyOf(func(e string) bool { return value == e }), nil
	case types.OpContains:
		return anyOf(func(e string) bool { return strings.Contains(value, e) }), nil
	case types.OpNotContains:
		return !anyOf(func(e string) bool { return strings.Contains(value, e) }), nil
	case types.OpStartsWith:
		return anyOf(func(e string) bool { return strings.HasPrefix(value, e) }), nil
	case types.OpNotStartsWith:
		return !anyOf(func(e string) bool { return strings.HasPrefix(value, e) }), nil
	case types.OpEndsWith:
		return anyOf(func(e string) bool { return strings.HasSuffix(value, e) }), nil
	case types.OpNotEndsWith:
		return !anyOf(func(e string) bool { return strings.HasSuffix(value, e) }), nil
	case types.OpGreaterThan:
		return anyOf(func(e string) bool { return value > e }), nil
	case types.OpGreaterOrEqual:
		return anyOf(func(e string) bool { return value >= e }), nil
	case types.OpLessThan:
		return anyOf(func(e string) bool { return value < e }), nil
	case types.OpLessOrEqual:
		return anyOf(func(e string) bool { return value <= e }), nil
	}
	return false, fmt.Errorf("%w: %s", ErrUnknownOperator, op)
}

func applyNumber(op types.Operator, value float64, expected []float64) (bool, error) {
	anyOf := func(pred func(float64) bool) bool {
		for _, e := range expected {
			if pred(e) {
				return true
			}
		}
		return false
	}

	switch op {
	case types.OpEquals:
		return anyOf(func(e float64) bool { return value == e }), nil
	case types.OpNotEquals:
		return !anyOf(func(e float64) bool { return value == e }), nil
	case types.OpGreaterThan:
		return anyOf(func(e float64) bool { return value > e }), nil
	case types.OpGreaterOrEqual:
		return anyOf(func(e float64) bool { return value >= e }), nil
	case types.OpLessThan:
		return anyOf(func(e float64) bool { return value < e }), nil
	case types.OpLessOrEqual:
		return anyOf(func(e float64) bool { return value <= e }), nil
	case types.OpContains, types.OpNotContains, types.OpStartsWith,
		types.OpNotStartsWith, types.OpEndsWith, types.OpNotEndsWith:
		return false, fmt.Errorf("%w: %s on number", ErrUnsupportedType, op)
	}
	return false, fmt.Errorf("%w: %s", ErrUnknownOperator, op)
}

func applyBool(op types.Operator, value bool, literals []string) (bool, error) {
	anyOf := func(pred func(bool) bool) bool {
		for _, l := range literals {
			if pred(parseBoolLiteral(l)) {
				return true
			}
		}
		return false
	}

	switch op {
	case types.OpEquals:
		return anyOf(func(e bool) bool { return value == e }), nil
	case types.OpNotEquals:
		return !anyOf(func(e bool) bool { return value == e }), nil
	}
	return false, fmt.Errorf("%w: %s on bool", ErrUnsupportedType, op)
}

func applyDate(op types.Operator, value time.Time, expected []time.Time) (bool, error) {
	anyOf := func(pred func(time.Time) bool) bool {
		for _, e := range expected {
			if pred(e) {
				return true
			}
		}
		return false
	}

	switch op {
	case types.OpEquals:
		return anyOf(func(e time.Time) bool { return value.Equal(e) }), nil
	case types.OpNotEquals:
		return !anyOf(func(e time.Time) bool { return value.Equal(e) }), nil
	case types.OpGreaterThan:
		return anyOf(func(e time.Time) bool { return value.After(e) }), nil
	case types.OpGreaterOrEqual:
		return anyOf(func(e time.Time) bool { return value.After(e) || value.Equal(e) }), nil
	case types.OpLessThan:
		return anyOf(func(e time.Time) bool { return value.Before(e) }), nil
	case types.OpLessOrEqual:
		return anyOf(func(e time.Time) bool { return value.Before(e) || value.Equal(e) }), nil
	case types.OpContains, types.OpNotContains, types.OpStartsWith,
		types.OpNotStartsWith, types.OpEndsWith, types.OpNotEndsWith:
		return false, fmt.Errorf("%w: %s on date", ErrUnsupportedType, op)
	}
	return false, fmt.Errorf("%w: %s", ErrUnknownOperator, op)
}
