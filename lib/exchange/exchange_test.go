package exchange

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ValentinKolb/rsnDB/lib/db"
	"github.com/ValentinKolb/rsnDB/lib/errs"
	"github.com/ValentinKolb/rsnDB/lib/guard"
	"github.com/ValentinKolb/rsnDB/lib/store/lstore"
	storetesting "github.com/ValentinKolb/rsnDB/lib/store/testing"
	"github.com/ValentinKolb/rsnDB/lib/value"
)

func newStore(t *testing.T) *lstore.Store {
	t.Helper()
	cfg := lstore.DefaultConfig()
	cfg.DataDir = "/data"
	st, err := lstore.New(cfg, lstore.WithFs(afero.NewMemMapFs()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func peopleSchema() db.Schema {
	return db.Schema{Fields: []db.FieldDef{
		{Name: "name", Type: db.TypeString, Required: true},
		{Name: "age", Type: db.TypeInteger},
		{Name: "score", Type: db.TypeFloat},
		{Name: "active", Type: db.TypeBoolean},
		{Name: "address", Type: db.TypeDocument},
		{Name: "tags", Type: db.TypeArray},
	}}
}

func seedPeople(t *testing.T, st *lstore.Store) {
	t.Helper()
	require.NoError(t, st.CreateTable("people", peopleSchema(), db.ModeStrict))
	_, err := st.Insert("people", value.Document(
		value.Field{Name: "name", Value: value.String("ada")},
		value.Field{Name: "age", Value: value.Int(36)},
		value.Field{Name: "score", Value: value.Float(9.5)},
		value.Field{Name: "active", Value: value.Bool(true)},
		value.Field{Name: "address", Value: storetesting.Doc("city", "London")},
		value.Field{Name: "tags", Value: value.Array(value.String("math"), value.String("code"))},
	))
	require.NoError(t, err)
	_, err = st.Insert("people", storetesting.Doc("name", "bob", "active", false))
	require.NoError(t, err)
}

func memAdaptor() (*Adaptor, afero.Fs) {
	fs := afero.NewMemMapFs()
	return &Adaptor{Fs: fs, Root: "/x"}, fs
}

func writeFile(t *testing.T, fs afero.Fs, name, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, "/x/"+name, []byte(content), 0o644))
}

// --------------------------------------------------------------------------
// JSONL
// --------------------------------------------------------------------------

func TestJSONLRoundTrip(t *testing.T) {
	a, fs := memAdaptor()
	src := newStore(t)
	seedPeople(t, src)

	n, err := a.ExportJSONL(src, "people", "out/people.jsonl")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	data, err := afero.ReadFile(fs, "/x/out/people.jsonl")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], `{"id":"people_00001"`), lines[0])

	dst := newStore(t)
	require.NoError(t, dst.CreateTable("people", peopleSchema(), db.ModeStrict))
	n, err = a.ImportJSONL(dst, "people", "out/people.jsonl")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assertSameRows(t, src, dst, "people")
}

// assertSameRows compares rows by id and content, ignoring field order.
func assertSameRows(t *testing.T, want, got *lstore.Store, table string) {
	t.Helper()
	a, err := want.Read(table, db.ReadOptions{})
	require.NoError(t, err)
	b, err := got.Read(table, db.ReadOptions{})
	require.NoError(t, err)
	require.Len(t, b, len(a))
	for i := range a {
		assert.Equal(t, a[i].ID, b[i].ID)
		assert.True(t, value.Equal(a[i].Fields, b[i].Fields), "row %s: want %s, got %s", a[i].ID, a[i].Fields, b[i].Fields)
	}
}

func TestJSONLImportIgnoresIDAndBlankLines(t *testing.T) {
	a, fs := memAdaptor()
	st := newStore(t)
	require.NoError(t, st.CreateTable("notes", db.Schema{}, db.ModeFlexible))
	writeFile(t, fs, "notes.jsonl", "{\"id\":\"zzz\",\"text\":\"a\"}\n\n   \n{\"text\":\"b\"}\n")

	n, err := a.ImportJSONL(st, "notes", "notes.jsonl")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = st.Row("notes", "zzz")
	assert.True(t, errs.Is(err, errs.RowNotFound))
	row, err := st.Row("notes", "notes_00001")
	require.NoError(t, err)
	assert.False(t, row.Fields.Has("id"))
}

func TestJSONLImportIsAllOrNothing(t *testing.T) {
	a, fs := memAdaptor()
	st := newStore(t)
	require.NoError(t, st.CreateTable("people", peopleSchema(), db.ModeStrict))

	writeFile(t, fs, "bad-type.jsonl", "{\"name\":\"a\"}\n{\"name\":\"b\",\"age\":\"old\"}\n{\"name\":\"c\",\"age\":\"older\"}\n")
	_, err := a.ImportJSONL(st, "people", "bad-type.jsonl")
	require.Error(t, err)
	assert.Equal(t, errs.TypeMismatch, errs.CodeOf(err))
	assert.Contains(t, err.Error(), "2 of 3")

	count, err := st.Count("people", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	writeFile(t, fs, "bad-json.jsonl", "{\"name\":\"a\"}\nnot json\n")
	_, err = a.ImportJSONL(st, "people", "bad-json.jsonl")
	assert.True(t, errs.Is(err, errs.InvalidArgument))

	writeFile(t, fs, "array.jsonl", "[1,2]\n")
	_, err = a.ImportJSONL(st, "people", "array.jsonl")
	assert.True(t, errs.Is(err, errs.TypeMismatch))

	count, err = st.Count("people", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestJSONLLimits(t *testing.T) {
	a, fs := memAdaptor()
	st := newStore(t)
	require.NoError(t, st.CreateTable("blobs", db.Schema{}, db.ModeFlexible))

	long := `{"b":"` + strings.Repeat("x", guard.MaxIngestBytes) + `"}` + "\n"
	writeFile(t, fs, "long.jsonl", long)
	_, err := a.ImportJSONL(st, "blobs", "long.jsonl")
	assert.True(t, errs.Is(err, errs.LimitExceeded))

	deep := strings.Repeat(`{"a":`, guard.MaxDepth+1) + "1" + strings.Repeat("}", guard.MaxDepth+1) + "\n"
	writeFile(t, fs, "deep.jsonl", deep)
	_, err = a.ImportJSONL(st, "blobs", "deep.jsonl")
	require.Error(t, err)

	_, err = a.ImportJSONL(st, "blobs", "../escape.jsonl")
	assert.True(t, errs.Is(err, errs.PathRejected))

	_, err = a.ExportJSONL(st, "blobs", "/etc/passwd")
	assert.True(t, errs.Is(err, errs.PathRejected))

	_, err = a.ImportJSONL(st, "missing", "long.jsonl")
	require.Error(t, err)
}

func TestJSONLUnknownTable(t *testing.T) {
	a, _ := memAdaptor()
	st := newStore(t)
	_, err := a.ExportJSONL(st, "nope", "nope.jsonl")
	assert.True(t, errs.Is(err, errs.UnknownTable))
}

// --------------------------------------------------------------------------
// SQLite
// --------------------------------------------------------------------------

func TestSQLiteRoundTrip(t *testing.T) {
	a := New(t.TempDir())
	src := newStore(t)
	seedPeople(t, src)

	n, err := a.ExportSQLite(src, "people", "out/people.sqlite")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// exporting twice replaces the table
	n, err = a.ExportSQLite(src, "people", "out/people.sqlite")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	dst := newStore(t)
	require.NoError(t, dst.CreateTable("people", peopleSchema(), db.ModeStrict))
	n, err = a.ImportSQLite(dst, "people", "people", "out/people.sqlite")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	want, err := src.Row("people", "people_00001")
	require.NoError(t, err)
	got, err := dst.Row("people", "people_00001")
	require.NoError(t, err)
	for _, name := range []string{"name", "age", "score", "active", "address", "tags"} {
		w, _ := want.Fields.Get(name)
		g, ok := got.Fields.Get(name)
		require.True(t, ok, name)
		assert.True(t, value.Equal(w, g), "%s: want %s, got %s", name, w, g)
	}

	bob, err := dst.Row("people", "people_00002")
	require.NoError(t, err)
	active, _ := bob.Fields.Get("active")
	assert.Equal(t, value.Bool(false), active)
	assert.False(t, bob.Fields.Has("age"))
}

func TestSQLiteFlexibleColumns(t *testing.T) {
	a := New(t.TempDir())
	src := newStore(t)
	require.NoError(t, src.CreateTable("events", db.Schema{}, db.ModeFlexible))
	_, err := src.Insert("events", storetesting.Doc("kind", "click", "x", 10))
	require.NoError(t, err)
	_, err = src.Insert("events", storetesting.Doc("kind", "scroll", "dy", 2.5))
	require.NoError(t, err)

	_, err = a.ExportSQLite(src, "events", "events.db")
	require.NoError(t, err)

	dst := newStore(t)
	require.NoError(t, dst.CreateTable("imported", db.Schema{}, db.ModeFlexible))
	n, err := a.ImportSQLite(dst, "events", "imported", "events.db")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rows, err := dst.Read("imported", db.ReadOptions{Where: db.Where("kind", db.OpEq, value.String("scroll"))})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	dy, _ := rows[0].Fields.Get("dy")
	assert.Equal(t, value.Float(2.5), dy)
	assert.False(t, rows[0].Fields.Has("x"), "null columns are dropped")
}

func TestSQLiteErrors(t *testing.T) {
	a := New(t.TempDir())
	st := newStore(t)
	require.NoError(t, st.CreateTable("t", db.Schema{}, db.ModeFlexible))
	_, err := st.Insert("t", storetesting.Doc("v", 1))
	require.NoError(t, err)
	_, err = a.ExportSQLite(st, "t", "t.db")
	require.NoError(t, err)

	_, err = a.ImportSQLite(st, "missing", "t", "t.db")
	assert.True(t, errs.Is(err, errs.UnknownTable))

	_, err = a.ImportSQLite(st, "t", "t", "../t.db")
	assert.True(t, errs.Is(err, errs.PathRejected))

	_, err = a.ImportSQLite(st, "t", "t", "absent.db")
	require.Error(t, err)

	strict := newStore(t)
	require.NoError(t, strict.CreateTable("t", db.Schema{Fields: []db.FieldDef{{Name: "w", Type: db.TypeString}}}, db.ModeStrict))
	_, err = a.ImportSQLite(strict, "t", "t", "t.db")
	assert.True(t, errs.Is(err, errs.TypeMismatch))
	count, err := strict.Count("t", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
