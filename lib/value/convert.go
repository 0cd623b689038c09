package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/ValentinKolb/rsnDB/lib/errs"
)

// --------------------------------------------------------------------------
// Host Conversion
// --------------------------------------------------------------------------

// FromNative converts a host value into a Value. Supported inputs are nil,
// strings, booleans, all Go integer and float kinds, json.Number,
// map[string]any, []any, and Value itself (plus maps and slices of Value).
// Nesting deeper than limit fails with RecursionLimitExceeded before the
// rest of the input is visited.
func FromNative(in any, limit int) (Value, error) {
	if limit <= 0 {
		limit = DefaultRecursionLimit
	}
	return fromNative(in, 0, limit)
}

func fromNative(in any, level, limit int) (Value, error) {
	switch x := in.(type) {
	case nil:
		return Null(), nil
	case Value:
		if level+depth(x, 0, limit-level) > limit {
			return Value{}, errDepth(limit)
		}
		return x, nil
	case string:
		return String(x), nil
	case bool:
		return Bool(x), nil
	case int:
		return Int(int64(x)), nil
	case int8:
		return Int(int64(x)), nil
	case int16:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case uint:
		return fromUint(uint64(x))
	case uint8:
		return Int(int64(x)), nil
	case uint16:
		return Int(int64(x)), nil
	case uint32:
		return Int(int64(x)), nil
	case uint64:
		return fromUint(x)
	case float32:
		return fromFloat(float64(x))
	case float64:
		return fromFloat(x)
	case json.Number:
		return fromNumber(x)
	case map[string]any:
		if level+1 > limit {
			return Value{}, errDepth(limit)
		}
		names := make([]string, 0, len(x))
		for k := range x {
			names = append(names, k)
		}
		sort.Strings(names)
		fields := make([]Field, 0, len(x))
		for _, k := range names {
			v, err := fromNative(x[k], level+1, limit)
			if err != nil {
				return Value{}, err
			}
			fields = append(fields, Field{Name: k, Value: v})
		}
		return Value{tag: TagDocument, fields: fields}, nil
	case map[string]Value:
		m := make(map[string]any, len(x))
		for k, v := range x {
			m[k] = v
		}
		return fromNative(m, level, limit)
	case []any:
		if level+1 > limit {
			return Value{}, errDepth(limit)
		}
		items := make([]Value, 0, len(x))
		for _, it := range x {
			v, err := fromNative(it, level+1, limit)
			if err != nil {
				return Value{}, err
			}
			items = append(items, v)
		}
		return Value{tag: TagArray, items: items}, nil
	case []Value:
		s := make([]any, len(x))
		for i, v := range x {
			s[i] = v
		}
		return fromNative(s, level, limit)
	default:
		return Value{}, errs.New(errs.TypeMismatch, "unsupported host type %T", in)
	}
}

func fromUint(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return Value{}, errs.New(errs.TypeMismatch, "integer %d overflows int64", u)
	}
	return Int(int64(u)), nil
}

func fromFloat(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, errs.New(errs.TypeMismatch, "non-finite float %v", f)
	}
	return Float(f), nil
}

// fromNumber keeps integral literals as Int and everything else as Float.
func fromNumber(n json.Number) (Value, error) {
	if i, err := strconv.ParseInt(string(n), 10, 64); err == nil {
		return Int(i), nil
	}
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil {
		return Value{}, errs.Wrap(errs.TypeMismatch, err, "invalid number %q", string(n))
	}
	return fromFloat(f)
}

// FromJSON decodes a JSON document into a Value.
func FromJSON(data []byte, limit int) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Value{}, errs.Wrap(errs.InvalidArgument, err, "invalid JSON")
	}
	if dec.More() {
		return Value{}, errs.New(errs.InvalidArgument, "invalid JSON: trailing data")
	}
	return FromNative(raw, limit)
}

// ToNative converts back to plain Go values: nil, string, int64, float64,
// bool, map[string]any and []any.
func (v Value) ToNative() any {
	switch v.tag {
	case TagString:
		return v.s
	case TagInt:
		return v.i
	case TagFloat:
		return v.f
	case TagBool:
		return v.b
	case TagDocument:
		m := make(map[string]any, len(v.fields))
		for _, f := range v.fields {
			m[f.Name] = f.Value.ToNative()
		}
		return m
	case TagArray:
		s := make([]any, len(v.items))
		for i, it := range v.items {
			s[i] = it.ToNative()
		}
		return s
	default:
		return nil
	}
}

// --------------------------------------------------------------------------
// JSON
// --------------------------------------------------------------------------

// MarshalJSON writes documents with their fields in stored order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) writeJSON(buf *bytes.Buffer) error {
	switch v.tag {
	case TagNull:
		buf.WriteString("null")
	case TagBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case TagInt:
		buf.WriteString(strconv.FormatInt(v.i, 10))
	case TagFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return fmt.Errorf("cannot encode non-finite float %v", v.f)
		}
		s := strconv.FormatFloat(v.f, 'g', -1, 64)
		buf.WriteString(s)
		// keep the float tag visible on the wire
		if v.f == math.Trunc(v.f) && !bytes.ContainsAny([]byte(s), "e.") {
			buf.WriteString(".0")
		}
	case TagString:
		b, err := json.Marshal(v.s)
		if err != nil {
			return err
		}
		buf.Write(b)
	case TagArray:
		buf.WriteByte('[')
		for i, it := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := it.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case TagDocument:
		buf.WriteByte('{')
		for i, f := range v.fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			k, err := json.Marshal(f.Name)
			if err != nil {
				return err
			}
			buf.Write(k)
			buf.WriteByte(':')
			if err := f.Value.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	return nil
}

// UnmarshalJSON decodes with the default recursion limit.
func (v *Value) UnmarshalJSON(data []byte) error {
	out, err := FromJSON(data, DefaultRecursionLimit)
	if err != nil {
		return err
	}
	*v = out
	return nil
}

// String renders the value as JSON.
func (v Value) String() string {
	b, err := v.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<%s>", v.tag)
	}
	return string(b)
}

func errDepth(limit int) *errs.Error {
	return errs.New(errs.RecursionLimitExceeded, "value nests deeper than %d levels", limit).
		With("limit", limit)
}
