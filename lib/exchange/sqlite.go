package exchange

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/ValentinKolb/rsnDB/lib/db"
	"github.com/ValentinKolb/rsnDB/lib/errs"
	"github.com/ValentinKolb/rsnDB/lib/guard"
	"github.com/ValentinKolb/rsnDB/lib/store"
	"github.com/ValentinKolb/rsnDB/lib/value"
)

// --------------------------------------------------------------------------
// SQLite
// --------------------------------------------------------------------------

type column struct {
	name    string
	sqlType string
}

// sqlType maps a declared field type to a SQLite column type.
func sqlType(ft db.FieldType) string {
	switch ft {
	case db.TypeInteger, db.TypeBoolean:
		return "INTEGER"
	case db.TypeFloat:
		return "REAL"
	default:
		return "TEXT"
	}
}

// inferType picks a column type for a field that is not in the schema.
func inferType(v value.Value) string {
	switch v.Tag() {
	case value.TagInt, value.TagBool:
		return "INTEGER"
	case value.TagFloat:
		return "REAL"
	default:
		return "TEXT"
	}
}

// toSQL converts a value to a driver argument. Documents and arrays become
// JSON text.
func toSQL(v value.Value) (any, error) {
	switch v.Tag() {
	case value.TagNull:
		return nil, nil
	case value.TagString:
		s, _ := v.AsString()
		return s, nil
	case value.TagInt:
		i, _ := v.AsInt()
		return i, nil
	case value.TagFloat:
		f, _ := v.AsFloat()
		return f, nil
	case value.TagBool:
		if b, _ := v.AsBool(); b {
			return int64(1), nil
		}
		return int64(0), nil
	default:
		data, err := v.MarshalJSON()
		if err != nil {
			return nil, err
		}
		return string(data), nil
	}
}

func quote(ident string) string {
	return `"` + ident + `"`
}

func openSQLite(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, err, "open sqlite database")
	}
	return conn, nil
}

// ExportSQLite writes table into a SQLite database at path, replacing a
// table of the same name. Columns are "id" plus the schema fields in order,
// then any extra fields of flexible rows in lexical order.
func (a *Adaptor) ExportSQLite(st store.Reader, table, path string) (int, error) {
	if err := guard.Identifier("table", table); err != nil {
		return 0, err
	}
	target, err := a.resolve(path)
	if err != nil {
		return 0, err
	}
	info, err := st.Describe(table)
	if err != nil {
		return 0, err
	}
	rows, err := st.Read(table, db.ReadOptions{})
	if err != nil {
		return 0, err
	}

	cols := make([]column, 0, len(info.Fields))
	known := make(map[string]struct{}, len(info.Fields))
	for _, f := range info.Fields {
		cols = append(cols, column{name: f.Name, sqlType: sqlType(f.Type)})
		known[f.Name] = struct{}{}
	}
	extra := map[string]string{}
	for _, r := range rows {
		r.Fields.EachField(func(name string, v value.Value) bool {
			if _, ok := known[name]; ok {
				return true
			}
			if t, seen := extra[name]; !seen || (t == "TEXT" && !v.IsNull()) {
				extra[name] = inferType(v)
			}
			return true
		})
	}
	names := make([]string, 0, len(extra))
	for name := range extra {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cols = append(cols, column{name: name, sqlType: extra[name]})
	}
	for _, c := range cols {
		if err := guard.Identifier("column", c.name); err != nil {
			return 0, err
		}
		if c.name == "id" {
			return 0, errs.New(errs.InvalidArgument, "field %q clashes with the row id column", c.name).With("table", table)
		}
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, errs.Wrap(errs.Internal, err, "create directory").With("path", path)
	}
	conn, err := openSQLite(target)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	defs := []string{`"id" TEXT PRIMARY KEY`}
	colNames := []string{quote("id")}
	for _, c := range cols {
		defs = append(defs, quote(c.name)+" "+c.sqlType)
		colNames = append(colNames, quote(c.name))
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(colNames)), ",")

	tx, err := conn.Begin()
	if err != nil {
		return 0, errs.Wrap(errs.Internal, err, "begin sqlite transaction")
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DROP TABLE IF EXISTS " + quote(table)); err != nil {
		return 0, errs.Wrap(errs.Internal, err, "drop existing table")
	}
	if _, err := tx.Exec(fmt.Sprintf("CREATE TABLE %s (%s)", quote(table), strings.Join(defs, ", "))); err != nil {
		return 0, errs.Wrap(errs.Internal, err, "create table")
	}
	stmt, err := tx.Prepare(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quote(table), strings.Join(colNames, ", "), placeholders))
	if err != nil {
		return 0, errs.Wrap(errs.Internal, err, "prepare insert")
	}
	defer stmt.Close()

	for _, r := range rows {
		args := make([]any, 0, len(cols)+1)
		args = append(args, r.ID)
		for _, c := range cols {
			v, _ := r.Fields.Get(c.name)
			arg, err := toSQL(v)
			if err != nil {
				return 0, errs.Wrap(errs.Internal, err, "encode field").With("row", r.ID).With("field", c.name)
			}
			args = append(args, arg)
		}
		if _, err := stmt.Exec(args...); err != nil {
			return 0, errs.Wrap(errs.Internal, err, "insert row").With("row", r.ID)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, errs.Wrap(errs.Internal, err, "commit sqlite transaction")
	}

	logger.Infow("exported sqlite", "table", table, "rows", len(rows), "path", target)
	return len(rows), nil
}

// fromSQL converts a scanned column back into a value. The target field
// type, if declared, decides how JSON text and 0/1 integers are read.
func fromSQL(raw any, ft db.FieldType) (value.Value, error) {
	switch x := raw.(type) {
	case nil:
		return value.Null(), nil
	case int64:
		if ft == db.TypeBoolean {
			return value.Bool(x != 0), nil
		}
		if ft == db.TypeFloat {
			return value.Float(float64(x)), nil
		}
		return value.Int(x), nil
	case float64:
		return value.Float(x), nil
	case bool:
		return value.Bool(x), nil
	case []byte:
		return fromSQL(string(x), ft)
	case string:
		if ft == db.TypeDocument || ft == db.TypeArray {
			return value.FromJSON([]byte(x), guard.MaxDepth)
		}
		return value.String(x), nil
	default:
		return value.FromNative(fmt.Sprint(x), guard.MaxDepth)
	}
}

// ImportSQLite inserts every row of sourceTable in the SQLite database at
// path into table. The "id" column is ignored. At most MaxImportLines rows
// are accepted and the whole import is rejected if any row fails.
func (a *Adaptor) ImportSQLite(st store.IStore, sourceTable, table, path string) (int, error) {
	if err := guard.Identifier("source table", sourceTable); err != nil {
		return 0, err
	}
	if err := guard.Identifier("table", table); err != nil {
		return 0, err
	}
	target, err := a.resolve(path)
	if err != nil {
		return 0, err
	}
	fi, err := os.Stat(target)
	if err != nil {
		return 0, errs.Wrap(errs.Internal, err, "stat sqlite database").With("path", path)
	}
	if err := guard.CheckImportSize(fi.Size()); err != nil {
		return 0, err
	}
	info, err := st.Describe(table)
	if err != nil {
		return 0, err
	}
	types := make(map[string]db.FieldType, len(info.Fields))
	for _, f := range info.Fields {
		types[f.Name] = f.Type
	}

	conn, err := openSQLite(target)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	rows, err := conn.Query("SELECT * FROM " + quote(sourceTable))
	if err != nil {
		return 0, errs.Wrap(errs.UnknownTable, err, "query source table %q", sourceTable).With("table", sourceTable)
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return 0, errs.Wrap(errs.Internal, err, "read columns")
	}

	var docs []numbered
	n := 0
	for rows.Next() {
		n++
		if err := guard.CheckImportLines(n); err != nil {
			return 0, err
		}
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return 0, errs.Wrap(errs.Internal, err, "scan row %d", n)
		}

		fields := make([]value.Field, 0, len(cols))
		for i, name := range cols {
			if name == "id" {
				continue
			}
			v, err := fromSQL(raw[i], types[name])
			if err != nil {
				return 0, errs.As(err).With("row", n).With("column", name)
			}
			if v.IsNull() {
				continue
			}
			fields = append(fields, value.Field{Name: name, Value: v})
		}
		docs = append(docs, numbered{unit: "row", n: n, fields: value.Document(fields...)})
	}
	if err := rows.Err(); err != nil {
		return 0, errs.Wrap(errs.Internal, err, "iterate rows")
	}

	imported, err := insertAll(st, table, path, docs)
	if err != nil {
		return 0, err
	}
	logger.Infow("imported sqlite", "source", sourceTable, "table", table, "rows", imported, "path", target)
	return imported, nil
}
