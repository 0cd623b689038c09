package exchange

import (
	"bufio"
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"

	"github.com/ValentinKolb/rsnDB/lib/db"
	"github.com/ValentinKolb/rsnDB/lib/errs"
	"github.com/ValentinKolb/rsnDB/lib/guard"
	"github.com/ValentinKolb/rsnDB/lib/logging"
	"github.com/ValentinKolb/rsnDB/lib/store"
	"github.com/ValentinKolb/rsnDB/lib/value"
)

var logger = logging.GetLogger("exchange")

// --------------------------------------------------------------------------
// Adaptor
// --------------------------------------------------------------------------

// Adaptor moves table rows between a store and files below Root.
//
// JSONL files go through Fs. SQLite databases are opened by the driver
// and therefore always live on the OS filesystem below Root.
type Adaptor struct {
	Fs   afero.Fs
	Root string
}

// New returns an adaptor rooted at root on the OS filesystem.
func New(root string) *Adaptor {
	return &Adaptor{Fs: afero.NewOsFs(), Root: root}
}

// resolve checks a user supplied path and maps it below Root.
func (a *Adaptor) resolve(p string) (string, error) {
	clean, err := guard.SafePath(p)
	if err != nil {
		return "", err
	}
	return filepath.Join(a.Root, filepath.FromSlash(clean)), nil
}

// withoutID returns fields minus the "id" field.
func withoutID(fields value.Value) value.Value {
	if !fields.Has("id") {
		return fields
	}
	kept := make([]value.Field, 0, fields.Len())
	fields.EachField(func(name string, v value.Value) bool {
		if name != "id" {
			kept = append(kept, value.Field{Name: name, Value: v})
		}
		return true
	})
	return value.Document(kept...)
}

// insertAll inserts every document in one batch. Each failing row is
// collected; if any fails the batch is rolled back and all failures are
// reported together.
func insertAll(st store.IStore, table, source string, docs []numbered) (int, error) {
	inserted := 0
	err := st.Batch(fmt.Sprintf("import %s into %s", source, table), func(tx store.Tx) error {
		var result *multierror.Error
		var first error
		for _, d := range docs {
			if _, err := tx.Insert(table, d.fields); err != nil {
				result = multierror.Append(result, fmt.Errorf("%s %d: %w", d.unit, d.n, err))
				if first == nil {
					first = err
				}
				continue
			}
			inserted++
		}
		if result != nil {
			return rejected(first, result, len(docs))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

type numbered struct {
	unit   string // "line" or "row"
	n      int
	fields value.Value
}

// rejected wraps all failures of an import. The code is the one of the
// first failure so callers can branch on it.
func rejected(first error, all *multierror.Error, total int) error {
	return errs.Wrap(errs.CodeOf(first), all.ErrorOrNil(), "import rejected: %d of %d entries failed", all.Len(), total).
		With("failed", all.Len())
}

// --------------------------------------------------------------------------
// JSONL
// --------------------------------------------------------------------------

// ExportJSONL writes every row of table as one JSON object per line. The
// row id is written as the "id" member, first.
func (a *Adaptor) ExportJSONL(st store.Reader, table, path string) (int, error) {
	if err := guard.Identifier("table", table); err != nil {
		return 0, err
	}
	target, err := a.resolve(path)
	if err != nil {
		return 0, err
	}
	rows, err := st.Read(table, db.ReadOptions{})
	if err != nil {
		return 0, err
	}

	var buf bytes.Buffer
	for _, r := range rows {
		fields := make([]value.Field, 0, r.Fields.Len()+1)
		fields = append(fields, value.Field{Name: "id", Value: value.String(r.ID)})
		fields = append(fields, withoutID(r.Fields).Fields()...)
		line, err := value.Document(fields...).MarshalJSON()
		if err != nil {
			return 0, errs.Wrap(errs.Internal, err, "encode row").With("row", r.ID)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	if err := a.Fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, errs.Wrap(errs.Internal, err, "create directory").With("path", path)
	}
	if err := afero.WriteFile(a.Fs, target, buf.Bytes(), 0o644); err != nil {
		return 0, errs.Wrap(errs.Internal, err, "write export").With("path", path)
	}
	logger.Infow("exported jsonl", "table", table, "rows", len(rows), "path", target)
	return len(rows), nil
}

// ImportJSONL inserts one row per non-blank line of path into table. An
// "id" member is ignored. The file must be at most MaxImportBytes with at
// most MaxImportLines lines; the whole import is rejected if any line fails.
func (a *Adaptor) ImportJSONL(st store.IStore, table, path string) (int, error) {
	if err := guard.Identifier("table", table); err != nil {
		return 0, err
	}
	target, err := a.resolve(path)
	if err != nil {
		return 0, err
	}

	fi, err := a.Fs.Stat(target)
	if err != nil {
		return 0, errs.Wrap(errs.Internal, err, "stat import file").With("path", path)
	}
	if err := guard.CheckImportSize(fi.Size()); err != nil {
		return 0, err
	}

	f, err := a.Fs.Open(target)
	if err != nil {
		return 0, errs.Wrap(errs.Internal, err, "open import file").With("path", path)
	}
	defer f.Close()

	var (
		docs   []numbered
		parse  *multierror.Error
		first  error
		lineNo int
	)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), guard.MaxIngestBytes+1)
	for sc.Scan() {
		lineNo++
		if err := guard.CheckImportLines(lineNo); err != nil {
			return 0, err
		}
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := guard.CheckIngest(len(line)); err != nil {
			return 0, errs.As(err).With("line", lineNo)
		}

		v, err := value.FromJSON(line, guard.MaxDepth)
		if err == nil && v.Tag() != value.TagDocument {
			err = errs.New(errs.TypeMismatch, "expected a JSON object, got %s", v.Tag())
		}
		if err != nil {
			parse = multierror.Append(parse, fmt.Errorf("line %d: %w", lineNo, err))
			if first == nil {
				first = err
			}
			continue
		}
		docs = append(docs, numbered{unit: "line", n: lineNo, fields: withoutID(v)})
	}
	if err := sc.Err(); err != nil {
		if err == bufio.ErrTooLong {
			return 0, guard.CheckIngest(guard.MaxIngestBytes + 1)
		}
		return 0, errs.Wrap(errs.Internal, err, "read import file").With("path", path)
	}
	if parse != nil {
		return 0, rejected(first, parse, lineNo)
	}

	n, err := insertAll(st, table, path, docs)
	if err != nil {
		return 0, err
	}
	logger.Infow("imported jsonl", "table", table, "rows", n, "path", target)
	return n, nil
}
