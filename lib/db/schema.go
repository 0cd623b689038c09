package db

import (
	"strings"

	"github.com/ValentinKolb/rsnDB/lib/errs"
	"github.com/ValentinKolb/rsnDB/lib/guard"
	"github.com/ValentinKolb/rsnDB/lib/value"
)

// --------------------------------------------------------------------------
// Field Types
// --------------------------------------------------------------------------

// FieldType is the declared type of a schema field.
type FieldType string

const (
	TypeString   FieldType = "string"
	TypeInteger  FieldType = "integer"
	TypeFloat    FieldType = "float"
	TypeBoolean  FieldType = "boolean"
	TypeDocument FieldType = "document"
	TypeArray    FieldType = "array"
	TypeAny      FieldType = "any"
)

var fieldTypeAliases = map[string]FieldType{
	"string": TypeString, "str": TypeString, "text": TypeString,
	"integer": TypeInteger, "int": TypeInteger,
	"float": TypeFloat, "double": TypeFloat, "number": TypeFloat,
	"boolean": TypeBoolean, "bool": TypeBoolean,
	"document": TypeDocument, "object": TypeDocument, "json": TypeDocument,
	"array": TypeArray, "list": TypeArray,
	"any": TypeAny,
}

// ParseFieldType resolves a type name or one of its aliases (case-insensitive).
func ParseFieldType(s string) (FieldType, error) {
	if ft, ok := fieldTypeAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return ft, nil
	}
	return "", errs.New(errs.InvalidArgument, "unknown field type %q", s)
}

// accepts reports whether v may be stored in a field of this type.
// Null is handled by the caller.
func (ft FieldType) accepts(v value.Value) bool {
	switch ft {
	case TypeString:
		return v.Tag() == value.TagString
	case TypeInteger:
		return v.Tag() == value.TagInt
	case TypeFloat:
		return v.IsNumeric()
	case TypeBoolean:
		return v.Tag() == value.TagBool
	case TypeDocument:
		return v.Tag() == value.TagDocument
	case TypeArray:
		return v.Tag() == value.TagArray
	case TypeAny:
		return true
	}
	return false
}

// --------------------------------------------------------------------------
// Schema
// --------------------------------------------------------------------------

// FieldDef declares one field of a table.
type FieldDef struct {
	Name     string    `json:"name" yaml:"name" bson:"name"`
	Type     FieldType `json:"type" yaml:"type" bson:"type"`
	Required bool      `json:"required,omitempty" yaml:"required,omitempty" bson:"required,omitempty"`
	Unique   bool      `json:"unique,omitempty" yaml:"unique,omitempty" bson:"unique,omitempty"`
}

// Schema is a table's field contract. It is fixed at table creation.
type Schema struct {
	Fields []FieldDef `json:"fields" yaml:"fields" bson:"fields"`
}

// Field looks up a field definition by name.
func (s Schema) Field(name string) (FieldDef, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDef{}, false
}

// normalize validates the schema and resolves type aliases.
func (s Schema) normalize() (Schema, error) {
	out := Schema{Fields: make([]FieldDef, 0, len(s.Fields))}
	seen := make(map[string]struct{}, len(s.Fields))
	for _, f := range s.Fields {
		if err := guard.Identifier("field", f.Name); err != nil {
			return Schema{}, err
		}
		if _, dup := seen[f.Name]; dup {
			return Schema{}, errs.New(errs.InvalidArgument, "field %q declared twice", f.Name).With("field", f.Name)
		}
		seen[f.Name] = struct{}{}

		ft, err := ParseFieldType(string(f.Type))
		if err != nil {
			return Schema{}, errs.As(err).With("field", f.Name)
		}
		f.Type = ft
		out.Fields = append(out.Fields, f)
	}
	return out, nil
}

// uniqueFields returns the names of fields with a uniqueness constraint.
func (s Schema) uniqueFields() []string {
	var names []string
	for _, f := range s.Fields {
		if f.Unique {
			names = append(names, f.Name)
		}
	}
	return names
}

// validateRow checks fields against the schema and mode and returns the
// normalized document (integers widened for float fields).
func validateRow(tbl string, s Schema, mode Mode, fields value.Value, limit int) (value.Value, error) {
	if fields.IsNull() {
		fields = value.Document()
	}
	if fields.Tag() != value.TagDocument {
		return value.Value{}, errs.New(errs.TypeMismatch, "row fields must be a document, got %s", fields.Tag()).
			With("table", tbl)
	}

	var err error
	fields.EachField(func(name string, v value.Value) bool {
		if name == "" {
			err = errs.New(errs.InvalidArgument, "empty field name").With("table", tbl)
			return false
		}
		if nameErr := value.CheckName(name); nameErr != nil {
			err = errs.As(nameErr).With("table", tbl)
			return false
		}
		if checkErr := value.Check(v, limit); checkErr != nil {
			err = errs.As(checkErr).With("table", tbl).With("field", name)
			return false
		}
		if _, known := s.Field(name); !known && mode == ModeStrict {
			err = errs.New(errs.TypeMismatch, "unknown field %q in strict table %q", name, tbl).
				With("table", tbl).With("field", name)
			return false
		}
		return true
	})
	if err != nil {
		return value.Value{}, err
	}

	out := fields
	for _, def := range s.Fields {
		v, present := fields.Get(def.Name)
		if !present || v.IsNull() {
			if def.Required {
				return value.Value{}, errs.New(errs.TypeMismatch, "required field %q is missing", def.Name).
					With("table", tbl).With("field", def.Name)
			}
			continue
		}
		if !def.Type.accepts(v) {
			return value.Value{}, errs.New(errs.TypeMismatch, "field %q expects %s, got %s", def.Name, def.Type, v.Tag()).
				With("table", tbl).With("field", def.Name)
		}
		if def.Type == TypeFloat && v.Tag() == value.TagInt {
			f, _ := v.AsFloat()
			out = out.With(def.Name, value.Float(f))
		}
	}
	return out, nil
}
