package db

import (
	"github.com/ValentinKolb/rsnDB/lib/errs"
	"github.com/ValentinKolb/rsnDB/lib/value"
)

// --------------------------------------------------------------------------
// Operators
// --------------------------------------------------------------------------

// Op is a condition operator.
type Op string

const (
	OpEq       Op = "="
	OpEqEq     Op = "=="
	OpNe       Op = "!="
	OpGt       Op = ">"
	OpLt       Op = "<"
	OpGe       Op = ">="
	OpLe       Op = "<="
	OpContains Op = "contains"
)

// ParseOp validates an operator token.
func ParseOp(s string) (Op, error) {
	switch op := Op(s); op {
	case OpEq, OpEqEq, OpNe, OpGt, OpLt, OpGe, OpLe, OpContains:
		return op, nil
	case "CONTAINS":
		return OpContains, nil
	}
	return "", errs.New(errs.InvalidArgument, "unknown operator %q", s)
}

func (op Op) ordering() bool {
	return op == OpGt || op == OpLt || op == OpGe || op == OpLe
}

// --------------------------------------------------------------------------
// Condition
// --------------------------------------------------------------------------

// Condition selects rows by comparing one field against a value.
// A nil *Condition selects every row.
type Condition struct {
	Field string      `json:"field"`
	Op    Op          `json:"op"`
	Value value.Value `json:"value"`
}

// Where is a shorthand constructor.
func Where(field string, op Op, v value.Value) *Condition {
	return &Condition{Field: field, Op: op, Value: v}
}

// prepare checks the parts of the condition that do not depend on a row
// and returns a copy with the operator in canonical form.
func (c *Condition) prepare(tbl string) (*Condition, error) {
	if c == nil {
		return nil, nil
	}
	if c.Field == "" {
		return nil, errs.New(errs.InvalidArgument, "condition without field").With("table", tbl)
	}
	op, err := ParseOp(string(c.Op))
	if err != nil {
		return nil, errs.As(err).With("table", tbl).With("field", c.Field)
	}
	out := *c
	out.Op = op
	if op.ordering() && !out.Value.IsNumeric() {
		return nil, out.mismatch(tbl, "operand %s is not numeric", out.Value.Tag())
	}
	return &out, nil
}

// match evaluates the condition against a row. Absent fields never match;
// a null field only takes part in equality checks.
func (c *Condition) match(tbl string, r Row) (bool, error) {
	if c == nil {
		return true, nil
	}
	field, present := r.Fields.Get(c.Field)
	if !present {
		return false, nil
	}

	switch c.Op {
	case OpEq, OpEqEq:
		return value.Equal(field, c.Value), nil
	case OpNe:
		return !value.Equal(field, c.Value), nil
	}

	if field.IsNull() {
		return false, nil
	}

	if c.Op == OpContains {
		m, ok := value.Contains(field, c.Value)
		if !ok {
			return false, c.mismatch(tbl, "contains is not defined for %s and %s", field.Tag(), c.Value.Tag()).
				With("row", r.ID)
		}
		return m, nil
	}

	// ordering operators
	if !field.IsNumeric() {
		return false, c.mismatch(tbl, "field holds %s, not a number", field.Tag()).With("row", r.ID)
	}
	cmp, ok := value.Compare(field, c.Value)
	if !ok {
		return false, nil
	}
	switch c.Op {
	case OpGt:
		return cmp > 0, nil
	case OpLt:
		return cmp < 0, nil
	case OpGe:
		return cmp >= 0, nil
	default:
		return cmp <= 0, nil
	}
}

func (c *Condition) mismatch(tbl, format string, args ...any) *errs.Error {
	return errs.New(errs.TypeMismatch, "%s %s: "+format, append([]any{c.Field, c.Op}, args...)...).
		With("table", tbl).
		With("field", c.Field).
		With("op", string(c.Op))
}
