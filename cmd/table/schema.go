package table

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ValentinKolb/rsnDB/lib/db"
	"github.com/ValentinKolb/rsnDB/lib/errs"
)

// schemaFile is the YAML layout accepted by "table create --schema".
//
//	mode: flexible
//	fields:
//	  - name: email
//	    type: str
//	    required: true
//	    unique: true
type schemaFile struct {
	Mode   string        `yaml:"mode"`
	Fields []db.FieldDef `yaml:"fields"`
}

// readSchemaFile parses a schema file. Type aliases are resolved when the
// table is created.
func readSchemaFile(path string) (schemaFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return schemaFile{}, errs.Wrap(errs.InvalidArgument, err, "read schema file").With("path", path)
	}
	var sf schemaFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return schemaFile{}, errs.Wrap(errs.InvalidArgument, err, "parse schema file").With("path", path)
	}
	return sf, nil
}

// parseField reads name:type[:required][:unique]
func parseField(spec string) (db.FieldDef, error) {
	parts := strings.Split(spec, ":")
	if len(parts) < 2 || parts[0] == "" {
		return db.FieldDef{}, errs.New(errs.InvalidArgument, "expected name:type[:required][:unique], got %q", spec)
	}
	f := db.FieldDef{Name: parts[0], Type: db.FieldType(parts[1])}
	for _, flag := range parts[2:] {
		switch strings.ToLower(flag) {
		case "required":
			f.Required = true
		case "unique":
			f.Unique = true
		default:
			return db.FieldDef{}, errs.New(errs.InvalidArgument, "unknown field flag %q", flag).With("field", f.Name)
		}
	}
	return f, nil
}
