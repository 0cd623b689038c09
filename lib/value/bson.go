package value

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"

	"github.com/ValentinKolb/rsnDB/lib/errs"
)

// --------------------------------------------------------------------------
// BSON (used by the persistence codec)
// --------------------------------------------------------------------------

// MarshalBSONValue implements bson.ValueMarshaler.
func (v Value) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if v.tag == TagNull {
		return bson.TypeNull, nil, nil
	}
	return bson.MarshalValue(v.toBSON())
}

func (v Value) toBSON() any {
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
		d := make(bson.D, 0, len(v.fields))
		for _, f := range v.fields {
			d = append(d, bson.E{Key: f.Name, Value: f.Value.toBSON()})
		}
		return d
	case TagArray:
		a := make(bson.A, 0, len(v.items))
		for _, it := range v.items {
			a = append(a, it.toBSON())
		}
		return a
	default:
		return nil
	}
}

// UnmarshalBSONValue implements bson.ValueUnmarshaler. The recursion limit
// applies to decoded input just like to any other host input.
func (v *Value) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	out, err := fromRaw(bson.RawValue{Type: t, Value: data}, 0, DefaultRecursionLimit)
	if err != nil {
		return err
	}
	*v = out
	return nil
}

func fromRaw(rv bson.RawValue, level, limit int) (Value, error) {
	switch rv.Type {
	case bson.TypeNull, bson.TypeUndefined:
		return Null(), nil
	case bson.TypeString:
		return String(rv.StringValue()), nil
	case bson.TypeInt64:
		return Int(rv.Int64()), nil
	case bson.TypeInt32:
		return Int(int64(rv.Int32())), nil
	case bson.TypeDouble:
		return Float(rv.Double()), nil
	case bson.TypeBoolean:
		return Bool(rv.Boolean()), nil
	case bson.TypeEmbeddedDocument:
		if level+1 > limit {
			return Value{}, errDepth(limit)
		}
		elems, err := rv.Document().Elements()
		if err != nil {
			return Value{}, errs.Wrap(errs.InvalidArgument, err, "malformed document")
		}
		fields := make([]Field, 0, len(elems))
		for _, e := range elems {
			child, err := fromRaw(e.Value(), level+1, limit)
			if err != nil {
				return Value{}, err
			}
			fields = append(fields, Field{Name: e.Key(), Value: child})
		}
		return Document(fields...), nil
	case bson.TypeArray:
		if level+1 > limit {
			return Value{}, errDepth(limit)
		}
		vals, err := rv.Array().Values()
		if err != nil {
			return Value{}, errs.Wrap(errs.InvalidArgument, err, "malformed array")
		}
		items := make([]Value, 0, len(vals))
		for _, raw := range vals {
			child, err := fromRaw(raw, level+1, limit)
			if err != nil {
				return Value{}, err
			}
			items = append(items, child)
		}
		return Value{tag: TagArray, items: items}, nil
	default:
		return Value{}, errs.New(errs.TypeMismatch, "unsupported BSON type %s", rv.Type)
	}
}

// --------------------------------------------------------------------------
// Gob
// --------------------------------------------------------------------------

type gobHolder struct {
	V Value `bson:"v"`
}

// GobEncode lets Values travel inside gob-encoded messages.
func (v Value) GobEncode() ([]byte, error) {
	return bson.Marshal(gobHolder{V: v})
}

// GobDecode is the inverse of GobEncode.
func (v *Value) GobDecode(data []byte) error {
	var h gobHolder
	if err := bson.Unmarshal(data, &h); err != nil {
		return err
	}
	*v = h.V
	return nil
}
