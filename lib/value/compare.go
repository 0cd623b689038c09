package value

import (
	"encoding/binary"
	"math"
	"sort"
	"strings"
)

// --------------------------------------------------------------------------
// Equality and Ordering
// --------------------------------------------------------------------------

// Equal reports structural equality. Numbers compare numerically across
// Int and Float; documents compare by field name regardless of order;
// Null equals only Null.
func Equal(a, b Value) bool {
	if a.IsNumeric() && b.IsNumeric() {
		c, ok := compareNumbers(a, b)
		return ok && c == 0
	}
	if a.tag != b.tag {
		return false
	}
	switch a.tag {
	case TagNull:
		return true
	case TagString:
		return a.s == b.s
	case TagBool:
		return a.b == b.b
	case TagArray:
		if len(a.items) != len(b.items) {
			return false
		}
		for i := range a.items {
			if !Equal(a.items[i], b.items[i]) {
				return false
			}
		}
		return true
	case TagDocument:
		if len(a.fields) != len(b.fields) {
			return false
		}
		for _, f := range a.fields {
			other, ok := b.Get(f.Name)
			if !ok || !Equal(f.Value, other) {
				return false
			}
		}
		return true
	}
	return false
}

// Compare orders two values of compatible tags: numbers numerically,
// strings lexically, booleans with false < true. The second result is
// false when the pair has no defined order.
func Compare(a, b Value) (int, bool) {
	switch {
	case a.IsNumeric() && b.IsNumeric():
		return compareNumbers(a, b)
	case a.tag == TagString && b.tag == TagString:
		return strings.Compare(a.s, b.s), true
	case a.tag == TagBool && b.tag == TagBool:
		switch {
		case a.b == b.b:
			return 0, true
		case !a.b:
			return -1, true
		default:
			return 1, true
		}
	}
	return 0, false
}

func compareNumbers(a, b Value) (int, bool) {
	if a.tag == TagInt && b.tag == TagInt {
		switch {
		case a.i < b.i:
			return -1, true
		case a.i > b.i:
			return 1, true
		default:
			return 0, true
		}
	}
	if a.tag == TagInt {
		return compareIntFloat(a.i, b.f)
	}
	if b.tag == TagInt {
		c, ok := compareIntFloat(b.i, a.f)
		return -c, ok
	}
	af, bf := a.f, b.f
	if math.IsNaN(af) || math.IsNaN(bf) {
		return 0, false
	}
	switch {
	case af < bf:
		return -1, true
	case af > bf:
		return 1, true
	default:
		return 0, true
	}
}

// compareIntFloat orders i against f without rounding i to float64, which
// loses precision above 2^53.
func compareIntFloat(i int64, f float64) (int, bool) {
	switch {
	case math.IsNaN(f):
		return 0, false
	case f >= math.MaxInt64: // 2^63 as float64
		return -1, true
	case f < math.MinInt64:
		return 1, true
	}
	t := math.Trunc(f)
	switch ti := int64(t); {
	case i < ti:
		return -1, true
	case i > ti:
		return 1, true
	case f > t:
		return -1, true
	case f < t:
		return 1, true
	}
	return 0, true
}

// Contains implements the contains operator: substring match for strings,
// element membership for arrays. ok is false for any other combination.
func Contains(haystack, needle Value) (match bool, ok bool) {
	switch haystack.tag {
	case TagString:
		s, isStr := needle.AsString()
		if !isStr {
			return false, false
		}
		return strings.Contains(haystack.s, s), true
	case TagArray:
		for _, it := range haystack.items {
			if Equal(it, needle) {
				return true, true
			}
		}
		return false, true
	}
	return false, false
}

// --------------------------------------------------------------------------
// Canonical Keys
// --------------------------------------------------------------------------

// Key returns a canonical byte encoding such that Equal(a, b) implies
// bytes.Equal(a.Key(), b.Key()). Used by the uniqueness indexes.
func (v Value) Key() []byte {
	return appendKey(nil, v)
}

func appendKey(buf []byte, v Value) []byte {
	switch v.tag {
	case TagNull:
		return append(buf, 'z')
	case TagBool:
		if v.b {
			return append(buf, 'b', 1)
		}
		return append(buf, 'b', 0)
	case TagString:
		buf = append(buf, 's')
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(v.s)))
		return append(buf, v.s...)
	case TagInt:
		return appendIntKey(buf, v.i)
	case TagFloat:
		// integral floats share the Int encoding so 2 and 2.0 collide
		if v.f == math.Trunc(v.f) && v.f >= math.MinInt64 && v.f < math.MaxInt64 {
			return appendIntKey(buf, int64(v.f))
		}
		buf = append(buf, 'f')
		return binary.BigEndian.AppendUint64(buf, math.Float64bits(v.f))
	case TagArray:
		buf = append(buf, 'a')
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(v.items)))
		for _, it := range v.items {
			buf = appendKey(buf, it)
		}
		return buf
	case TagDocument:
		fields := make([]Field, len(v.fields))
		copy(fields, v.fields)
		sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
		buf = append(buf, 'd')
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(fields)))
		for _, f := range fields {
			buf = binary.BigEndian.AppendUint32(buf, uint32(len(f.Name)))
			buf = append(buf, f.Name...)
			buf = appendKey(buf, f.Value)
		}
		return buf
	}
	return buf
}

func appendIntKey(buf []byte, i int64) []byte {
	buf = append(buf, 'n')
	return binary.BigEndian.AppendUint64(buf, uint64(i)^(1<<63))
}
