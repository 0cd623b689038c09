package value

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ValentinKolb/rsnDB/lib/errs"
)

// --------------------------------------------------------------------------
// Tags
// --------------------------------------------------------------------------

// Tag identifies the kind of datum a Value holds.
type Tag uint8

const (
	TagNull Tag = iota
	TagString
	TagInt
	TagFloat
	TagBool
	TagDocument
	TagArray
)

func (t Tag) String() string {
	switch t {
	case TagNull:
		return "null"
	case TagString:
		return "string"
	case TagInt:
		return "integer"
	case TagFloat:
		return "float"
	case TagBool:
		return "boolean"
	case TagDocument:
		return "document"
	case TagArray:
		return "array"
	default:
		return fmt.Sprintf("tag(%d)", uint8(t))
	}
}

// DefaultRecursionLimit is the maximum nesting depth accepted when no
// explicit limit is configured.
const DefaultRecursionLimit = 64

// --------------------------------------------------------------------------
// Value
// --------------------------------------------------------------------------

// Field is a named member of a document.
type Field struct {
	Name  string
	Value Value
}

// Value is an immutable, recursively nestable datum. The zero Value is Null.
//
// Documents keep the order in which their fields were first set; setting an
// existing field replaces it in place. Slices handed to the constructors are
// copied, and accessors return copies, so a stored Value can never be
// modified through an alias.
type Value struct {
	tag    Tag
	s      string
	i      int64
	f      float64
	b      bool
	fields []Field
	items  []Value
}

// Null returns the null value.
func Null() Value { return Value{} }

// String wraps a string.
func String(s string) Value { return Value{tag: TagString, s: s} }

// Int wraps a 64 bit integer.
func Int(i int64) Value { return Value{tag: TagInt, i: i} }

// Float wraps a 64 bit float.
func Float(f float64) Value { return Value{tag: TagFloat, f: f} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{tag: TagBool, b: b} }

// Document builds a document. A repeated name keeps the position of its
// first occurrence and the value of its last.
func Document(fields ...Field) Value {
	out := make([]Field, 0, len(fields))
	for _, f := range fields {
		if idx := indexOf(out, f.Name); idx >= 0 {
			out[idx].Value = f.Value
			continue
		}
		out = append(out, f)
	}
	return Value{tag: TagDocument, fields: out}
}

// Array builds an ordered list.
func Array(items ...Value) Value {
	out := make([]Value, len(items))
	copy(out, items)
	return Value{tag: TagArray, items: out}
}

// --------------------------------------------------------------------------
// Accessors
// --------------------------------------------------------------------------

func (v Value) Tag() Tag        { return v.tag }
func (v Value) IsNull() bool    { return v.tag == TagNull }
func (v Value) IsNumeric() bool { return v.tag == TagInt || v.tag == TagFloat }

// AsString returns the payload of a String value.
func (v Value) AsString() (string, bool) { return v.s, v.tag == TagString }

// AsInt returns the payload of an Int value.
func (v Value) AsInt() (int64, bool) { return v.i, v.tag == TagInt }

// AsBool returns the payload of a Bool value.
func (v Value) AsBool() (bool, bool) { return v.b, v.tag == TagBool }

// AsFloat returns any numeric value as float64.
func (v Value) AsFloat() (float64, bool) {
	switch v.tag {
	case TagFloat:
		return v.f, true
	case TagInt:
		return float64(v.i), true
	default:
		return 0, false
	}
}

// Len returns the number of fields of a document or items of an array.
func (v Value) Len() int {
	switch v.tag {
	case TagDocument:
		return len(v.fields)
	case TagArray:
		return len(v.items)
	default:
		return 0
	}
}

// Fields returns a copy of a document's fields (nil for other tags).
func (v Value) Fields() []Field {
	if v.tag != TagDocument {
		return nil
	}
	out := make([]Field, len(v.fields))
	copy(out, v.fields)
	return out
}

// Items returns a copy of an array's items (nil for other tags).
func (v Value) Items() []Value {
	if v.tag != TagArray {
		return nil
	}
	out := make([]Value, len(v.items))
	copy(out, v.items)
	return out
}

// EachField calls fn for every document field in order until fn returns false.
func (v Value) EachField(fn func(name string, val Value) bool) {
	for _, f := range v.fields {
		if !fn(f.Name, f.Value) {
			return
		}
	}
}

// Get looks up a document field. Absent fields and non-documents report false.
func (v Value) Get(name string) (Value, bool) {
	if v.tag != TagDocument {
		return Value{}, false
	}
	if idx := indexOf(v.fields, name); idx >= 0 {
		return v.fields[idx].Value, true
	}
	return Value{}, false
}

// Has reports whether a document carries the field.
func (v Value) Has(name string) bool {
	_, ok := v.Get(name)
	return ok
}

// Names returns the field names of a document in sorted order.
func (v Value) Names() []string {
	names := make([]string, 0, len(v.fields))
	for _, f := range v.fields {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names
}

// With returns a copy of the document with the field set. A non-document
// receiver is treated as an empty document.
func (v Value) With(name string, val Value) Value {
	out := make([]Field, len(v.fields), len(v.fields)+1)
	copy(out, v.fields)
	if idx := indexOf(out, name); idx >= 0 {
		out[idx].Value = val
	} else {
		out = append(out, Field{Name: name, Value: val})
	}
	return Value{tag: TagDocument, fields: out}
}

// Merge returns a copy of the document with every field of patch set on it.
func (v Value) Merge(patch Value) Value {
	out := Value{tag: TagDocument, fields: v.fields}
	for _, f := range patch.fields {
		out = out.With(f.Name, f.Value)
	}
	if out.fields == nil {
		out.fields = []Field{}
	}
	return out
}

// Depth returns the nesting depth: 0 for scalars, 1 + the deepest child for
// documents and arrays.
func (v Value) Depth() int {
	return depth(v, 0, int(^uint(0)>>1))
}

// Check fails with RecursionLimitExceeded when v nests deeper than limit.
// Values that cannot be stored are rejected as well: non-finite floats
// (TypeMismatch) and field names containing NUL (InvalidArgument).
func Check(v Value, limit int) error {
	if limit <= 0 {
		limit = DefaultRecursionLimit
	}
	if d := depth(v, 0, limit); d > limit {
		return errDepth(limit)
	}
	return checkContent(v)
}

// CheckName rejects a field name that cannot be persisted.
func CheckName(name string) error {
	if strings.IndexByte(name, 0) >= 0 {
		return errs.New(errs.InvalidArgument, "field name %q contains a NUL byte", name).With("field", name)
	}
	return nil
}

// checkContent runs after the depth check, so the recursion is bounded.
func checkContent(v Value) error {
	switch v.tag {
	case TagFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return errs.New(errs.TypeMismatch, "non-finite float %v", v.f)
		}
	case TagDocument:
		for _, f := range v.fields {
			if err := CheckName(f.Name); err != nil {
				return err
			}
			if err := checkContent(f.Value); err != nil {
				return err
			}
		}
	case TagArray:
		for _, it := range v.items {
			if err := checkContent(it); err != nil {
				return err
			}
		}
	}
	return nil
}

// depth stops descending once the limit is exceeded, which bounds the
// work spent on hostile input.
func depth(v Value, level, limit int) int {
	if v.tag != TagDocument && v.tag != TagArray {
		return level
	}
	if level+1 > limit {
		return level + 1
	}
	max := level + 1
	for _, f := range v.fields {
		if d := depth(f.Value, level+1, limit); d > max {
			max = d
			if max > limit {
				return max
			}
		}
	}
	for _, it := range v.items {
		if d := depth(it, level+1, limit); d > max {
			max = d
			if max > limit {
				return max
			}
		}
	}
	return max
}

func indexOf(fields []Field, name string) int {
	for i := range fields {
		if fields[i].Name == name {
			return i
		}
	}
	return -1
}
