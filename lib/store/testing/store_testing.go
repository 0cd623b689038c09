package testing

import (
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ValentinKolb/rsnDB/lib/db"
	"github.com/ValentinKolb/rsnDB/lib/errs"
	"github.com/ValentinKolb/rsnDB/lib/store"
	"github.com/ValentinKolb/rsnDB/lib/value"
)

// StoreFactory creates a fresh, empty engine. Engines created by the same
// factory must share their storage, so a file saved by one can be loaded by
// another.
type StoreFactory func() store.IStore

// RunStoreTests runs the conformance suite for an IStore implementation.
func RunStoreTests(t *testing.T, name string, factory StoreFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Tables", func(t *testing.T) {
			testTables(t, factory())
		})

		t.Run("StrictAndFlexible", func(t *testing.T) {
			testStrictAndFlexible(t, factory())
		})

		t.Run("ReadUpdateRemove", func(t *testing.T) {
			testReadUpdateRemove(t, factory())
		})

		t.Run("UniqueLargeTable", func(t *testing.T) {
			testUniqueLargeTable(t, factory())
		})

		t.Run("DeleteTableCascade", func(t *testing.T) {
			testDeleteTableCascade(t, factory())
		})

		t.Run("WalkBounds", func(t *testing.T) {
			testWalkBounds(t, factory())
		})

		t.Run("KV", func(t *testing.T) {
			testKV(t, factory())
		})

		t.Run("UndoRedo", func(t *testing.T) {
			testUndoRedo(t, factory())
		})

		t.Run("CheckpointRollback", func(t *testing.T) {
			testCheckpointRollback(t, factory())
		})

		t.Run("BatchAtomicity", func(t *testing.T) {
			testBatchAtomicity(t, factory())
		})

		t.Run("SaveLoad", func(t *testing.T) {
			testSaveLoad(t, factory)
		})

		t.Run("PathSafety", func(t *testing.T) {
			testPathSafety(t, factory())
		})

		t.Run("Close", func(t *testing.T) {
			testClose(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// Doc builds a document from alternating names and native values.
func Doc(kv ...any) value.Value {
	fields := make([]value.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		v, err := value.FromNative(kv[i+1], 0)
		if err != nil {
			panic(err)
		}
		fields = append(fields, value.Field{Name: kv[i].(string), Value: v})
	}
	return value.Document(fields...)
}

func usersSchema() db.Schema {
	return db.Schema{Fields: []db.FieldDef{
		{Name: "name", Type: db.TypeString, Required: true},
		{Name: "email", Type: db.TypeString, Unique: true},
		{Name: "age", Type: db.TypeInteger},
	}}
}

func requireCode(t testing.TB, err error, code errs.Code) {
	t.Helper()
	require.Error(t, err)
	require.Equalf(t, code, errs.CodeOf(err), "unexpected error: %v", err)
}

// Fingerprint renders the full data of a store (tables, rows, edges and
// KV entries) as comparable strings.
func Fingerprint(t testing.TB, st store.Reader) []string {
	t.Helper()
	var out []string

	tables, err := st.Tables()
	require.NoError(t, err)
	for _, name := range tables {
		info, err := st.Describe(name)
		require.NoError(t, err)
		out = append(out, fmt.Sprintf("table %s %s %v", name, info.Mode, info.Fields))

		rows, err := st.Read(name, db.ReadOptions{})
		require.NoError(t, err)
		for _, r := range rows {
			out = append(out, fmt.Sprintf("row %s %s", r.ID, r.Fields))
			edges, err := st.Edges(name, r.ID)
			require.NoError(t, err)
			for _, e := range edges {
				out = append(out, "edge "+e.String())
			}
		}
	}

	keys, err := st.Keys("")
	require.NoError(t, err)
	for _, k := range keys {
		v, err := st.Get(k)
		require.NoError(t, err)
		out = append(out, fmt.Sprintf("kv %s %s", k, v))
	}
	sort.Strings(out)
	return out
}

func snapshots(t testing.TB, st store.IStore) int {
	t.Helper()
	info, err := st.Info()
	require.NoError(t, err)
	return info.Snapshots
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testTables(t *testing.T, st store.IStore) {
	defer st.Close()

	require.NoError(t, st.CreateTable("users", usersSchema(), db.ModeStrict))
	requireCode(t, st.CreateTable("users", db.Schema{}, db.ModeFlexible), errs.DuplicateTable)
	requireCode(t, st.CreateTable("bad name", db.Schema{}, db.ModeFlexible), errs.IdentifierInvalid)
	require.NoError(t, st.CreateTable("notes", db.Schema{}, db.ModeFlexible))

	tables, err := st.Tables()
	require.NoError(t, err)
	assert.Equal(t, []string{"notes", "users"}, tables)

	info, err := st.Describe("users")
	require.NoError(t, err)
	assert.Equal(t, db.ModeStrict, info.Mode)
	assert.Len(t, info.Fields, 3)
	assert.Equal(t, 0, info.Rows)

	_, err = st.Describe("ghosts")
	requireCode(t, err, errs.UnknownTable)
	_, err = st.Insert("ghosts", Doc("a", 1))
	requireCode(t, err, errs.UnknownTable)
}

func testStrictAndFlexible(t *testing.T, st store.IStore) {
	defer st.Close()

	require.NoError(t, st.CreateTable("users", usersSchema(), db.ModeStrict))
	require.NoError(t, st.CreateTable("loose", usersSchema(), db.ModeFlexible))

	_, err := st.Insert("users", Doc("name", "ada", "nickname", "countess"))
	requireCode(t, err, errs.TypeMismatch)

	_, err = st.Insert("users", Doc("name", "ada", "age", "old"))
	requireCode(t, err, errs.TypeMismatch)

	_, err = st.Insert("users", Doc("age", 36))
	requireCode(t, err, errs.TypeMismatch)

	id, err := st.Insert("loose", Doc("name", "ada", "nickname", "countess"))
	require.NoError(t, err)
	row, err := st.Row("loose", id)
	require.NoError(t, err)
	nick, ok := row.Fields.Get("nickname")
	require.True(t, ok)
	assert.Equal(t, value.String("countess"), nick)
}

func testReadUpdateRemove(t *testing.T, st store.IStore) {
	defer st.Close()

	require.NoError(t, st.CreateTable("users", usersSchema(), db.ModeStrict))
	for i, name := range []string{"carol", "alice", "bob", "dave"} {
		_, err := st.Insert("users", Doc("name", name, "age", 20+i*10))
		require.NoError(t, err)
	}
	_, err := st.Insert("users", Doc("name", "eve"))
	require.NoError(t, err)

	rows, err := st.Read("users", db.ReadOptions{
		Where:   db.Where("age", db.OpGe, value.Int(30)),
		OrderBy: "age",
		Desc:    true,
	})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	first, _ := rows[0].Fields.Get("name")
	assert.Equal(t, value.String("dave"), first)

	rows, err = st.Read("users", db.ReadOptions{OrderBy: "age", Limit: 2})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	first, _ = rows[0].Fields.Get("name")
	assert.Equal(t, value.String("carol"), first)

	n, err := st.Count("users", db.Where("name", db.OpContains, value.String("o")))
	require.NoError(t, err)
	assert.Equal(t, 2, n) // carol, bob

	_, err = st.Read("users", db.ReadOptions{Where: db.Where("name", db.OpGt, value.String("b"))})
	requireCode(t, err, errs.TypeMismatch)

	n, err = st.Update("users", db.Where("name", db.OpEq, value.String("bob")), Doc("age", 41))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = st.Count("users", db.Where("age", db.OpEq, value.Int(41)))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = st.Update("users", nil, Doc("age", "old"))
	requireCode(t, err, errs.TypeMismatch)

	n, err = st.Empty("users", db.Where("name", db.OpEq, value.String("eve")))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	removed, _, err := st.Remove("users", db.Where("age", db.OpLt, value.Int(35)))
	require.NoError(t, err)
	assert.Equal(t, 2, removed) // carol (20), alice (30)

	n, err = st.Count("users", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func testUniqueLargeTable(t *testing.T, st store.IStore) {
	defer st.Close()

	const rows = 10_000
	require.NoError(t, st.CreateTable("users", usersSchema(), db.ModeStrict))
	require.NoError(t, st.Batch("bulk load", func(tx store.Tx) error {
		for i := 0; i < rows; i++ {
			if _, err := tx.Insert("users", Doc("name", "u", "email", fmt.Sprintf("u%d@example.com", i))); err != nil {
				return err
			}
		}
		return nil
	}))

	_, err := st.Insert("users", Doc("name", "dup", "email", "u4242@example.com"))
	requireCode(t, err, errs.UniqueConstraintViolation)

	n, err := st.Count("users", nil)
	require.NoError(t, err)
	assert.Equal(t, rows, n)

	// null values are not indexed
	_, err = st.Insert("users", Doc("name", "a"))
	require.NoError(t, err)
	_, err = st.Insert("users", Doc("name", "b"))
	require.NoError(t, err)
}

func testDeleteTableCascade(t *testing.T, st store.IStore) {
	defer st.Close()

	require.NoError(t, st.CreateTable("users", db.Schema{}, db.ModeFlexible))
	require.NoError(t, st.CreateTable("posts", db.Schema{}, db.ModeFlexible))
	u, err := st.Insert("users", Doc("name", "ada"))
	require.NoError(t, err)
	for _, title := range []string{"one", "two"} {
		p, err := st.Insert("posts", Doc("title", title))
		require.NoError(t, err)
		require.NoError(t, st.Link(db.Edge{FromTable: "users", FromID: u, Label: "wrote", ToTable: "posts", ToID: p}))
	}
	edges, err := st.Edges("users", u)
	require.NoError(t, err)
	require.Len(t, edges, 2)

	rows, removed, err := st.DeleteTable("posts")
	require.NoError(t, err)
	assert.Equal(t, 2, rows)
	assert.Equal(t, 2, removed)

	edges, err = st.Edges("users", u)
	require.NoError(t, err)
	assert.Empty(t, edges)

	tables, err := st.Tables()
	require.NoError(t, err)
	assert.Equal(t, []string{"users"}, tables)
}

func testWalkBounds(t *testing.T, st store.IStore) {
	defer st.Close()

	require.NoError(t, st.CreateTable("n", db.Schema{}, db.ModeFlexible))
	ids := make([]string, 5)
	for i := range ids {
		id, err := st.Insert("n", Doc("i", i))
		require.NoError(t, err)
		ids[i] = id
	}
	link := func(a, b int) {
		require.NoError(t, st.Link(db.Edge{FromTable: "n", FromID: ids[a], Label: "next", ToTable: "n", ToID: ids[b]}))
	}
	link(0, 1)
	link(1, 2)
	link(2, 3)
	link(3, 4)
	requireCode(t, st.Link(db.Edge{FromTable: "n", FromID: ids[0], Label: "next", ToTable: "n", ToID: ids[1]}), errs.DuplicateEdge)
	requireCode(t, st.Link(db.Edge{FromTable: "n", FromID: ids[0], Label: "next", ToTable: "n", ToID: "n_99999"}), errs.RowNotFound)

	reached, err := st.Walk("n", ids[0], "next", db.HopRange{Min: 1, Max: 3}, db.DirOut)
	require.NoError(t, err)
	require.Len(t, reached, 3)
	for i, r := range reached {
		assert.Equal(t, ids[i+1], r.ID)
		assert.Equal(t, i+1, r.Depth)
	}

	// close the cycle: 4 -> 0
	link(4, 0)
	reached, err = st.Walk("n", ids[0], "", db.HopRange{Min: 1, Max: 10}, db.DirOut)
	require.NoError(t, err)
	require.Len(t, reached, 4)
	seen := map[string]int{}
	for _, r := range reached {
		seen[r.ID]++
	}
	for _, id := range ids[1:] {
		assert.Equal(t, 1, seen[id])
	}

	reached, err = st.Walk("n", ids[2], "next", db.HopRange{}, db.DirIn)
	require.NoError(t, err)
	require.Len(t, reached, 1)
	assert.Equal(t, ids[1], reached[0].ID)

	_, err = st.Walk("n", ids[0], "", db.HopRange{Min: 3, Max: 2}, db.DirOut)
	requireCode(t, err, errs.InvalidArgument)

	require.NoError(t, st.Unlink(db.Edge{FromTable: "n", FromID: ids[4], Label: "next", ToTable: "n", ToID: ids[0]}))
	requireCode(t, st.Unlink(db.Edge{FromTable: "n", FromID: ids[4], Label: "next", ToTable: "n", ToID: ids[0]}), errs.EdgeNotFound)
}

func testKV(t *testing.T, st store.IStore) {
	defer st.Close()

	require.NoError(t, st.Put("user:1", Doc("name", "ada")))
	require.NoError(t, st.Put("user:2", value.Int(7)))
	require.NoError(t, st.Put("cfg", value.Bool(true)))

	v, err := st.Get("user:2")
	require.NoError(t, err)
	assert.Equal(t, value.Int(7), v)

	keys, err := st.Keys("user:")
	require.NoError(t, err)
	assert.Equal(t, []string{"user:1", "user:2"}, keys)

	require.NoError(t, st.Drop("user:1"))
	requireCode(t, st.Drop("user:1"), errs.KeyNotFound)
	_, err = st.Get("user:1")
	requireCode(t, err, errs.KeyNotFound)
}

func testUndoRedo(t *testing.T, st store.IStore) {
	defer st.Close()

	moved, err := st.Undo()
	require.NoError(t, err)
	assert.False(t, moved)

	require.NoError(t, st.CreateTable("users", usersSchema(), db.ModeStrict))
	id, err := st.Insert("users", Doc("name", "ada", "age", 25))
	require.NoError(t, err)

	age := func() value.Value {
		row, err := st.Row("users", id)
		require.NoError(t, err)
		v, _ := row.Fields.Get("age")
		return v
	}

	_, err = st.Update("users", db.Where("name", db.OpEq, value.String("ada")), Doc("age", 26))
	require.NoError(t, err)
	assert.Equal(t, value.Int(26), age())

	moved, err = st.Undo()
	require.NoError(t, err)
	require.True(t, moved)
	assert.Equal(t, value.Int(25), age())

	moved, err = st.Redo()
	require.NoError(t, err)
	require.True(t, moved)
	assert.Equal(t, value.Int(26), age())

	moved, err = st.Redo()
	require.NoError(t, err)
	assert.False(t, moved)

	// failed and no-op writes leave the history alone
	before := snapshots(t, st)
	_, err = st.Insert("users", Doc("nope", 1))
	require.Error(t, err)
	_, err = st.Update("users", db.Where("name", db.OpEq, value.String("nobody")), Doc("age", 1))
	require.NoError(t, err)
	assert.Equal(t, before, snapshots(t, st))

	history, err := st.History()
	require.NoError(t, err)
	assert.NotEmpty(t, history)
}

func testCheckpointRollback(t *testing.T, st store.IStore) {
	defer st.Close()

	require.NoError(t, st.CreateTable("users", usersSchema(), db.ModeStrict))
	require.NoError(t, st.CreateTable("posts", db.Schema{}, db.ModeFlexible))
	u, err := st.Insert("users", Doc("name", "ada", "email", "ada@example.com"))
	require.NoError(t, err)
	p, err := st.Insert("posts", Doc("title", "notes"))
	require.NoError(t, err)
	require.NoError(t, st.Link(db.Edge{FromTable: "users", FromID: u, Label: "wrote", ToTable: "posts", ToID: p}))
	require.NoError(t, st.Put("k", value.String("v")))

	want := Fingerprint(t, st)
	_, err = st.Checkpoint("C")
	require.NoError(t, err)
	_, err = st.Checkpoint("C")
	requireCode(t, err, errs.DuplicateCheckpoint)

	_, err = st.Insert("users", Doc("name", "bob"))
	require.NoError(t, err)
	_, err = st.Update("users", nil, Doc("age", 99))
	require.NoError(t, err)
	_, _, err = st.DeleteTable("posts")
	require.NoError(t, err)
	require.NoError(t, st.Drop("k"))
	require.NoError(t, st.Put("other", value.Int(1)))
	require.NotEqual(t, want, Fingerprint(t, st))

	require.NoError(t, st.RollbackTo("C"))
	assert.Equal(t, want, Fingerprint(t, st))

	// rolling back twice is idempotent
	require.NoError(t, st.RollbackTo("C"))
	assert.Equal(t, want, Fingerprint(t, st))

	requireCode(t, st.RollbackTo("missing"), errs.UnknownCheckpoint)

	cps, err := st.Checkpoints()
	require.NoError(t, err)
	require.Len(t, cps, 1)
	assert.Equal(t, "C", cps[0].Name)

	require.NoError(t, st.ReleaseCheckpoint("C"))
	requireCode(t, st.ReleaseCheckpoint("C"), errs.UnknownCheckpoint)
}

func testBatchAtomicity(t *testing.T, st store.IStore) {
	defer st.Close()

	require.NoError(t, st.CreateTable("users", usersSchema(), db.ModeStrict))
	_, err := st.Insert("users", Doc("name", "ada", "email", "ada@example.com"))
	require.NoError(t, err)

	before := Fingerprint(t, st)
	snaps := snapshots(t, st)

	err = st.Batch("failing", func(tx store.Tx) error {
		if _, err := tx.Insert("users", Doc("name", "bob", "email", "bob@example.com")); err != nil {
			return err
		}
		if err := tx.Put("seen", value.Bool(true)); err != nil {
			return err
		}
		// the batch sees its own writes
		n, err := tx.Count("users", nil)
		if err != nil {
			return err
		}
		if n != 2 {
			return fmt.Errorf("batch sees %d rows", n)
		}
		_, err = tx.Insert("users", Doc("name", "clash", "email", "ada@example.com"))
		return err
	})
	requireCode(t, err, errs.UniqueConstraintViolation)
	assert.Equal(t, before, Fingerprint(t, st))
	assert.Equal(t, snaps, snapshots(t, st))

	require.NoError(t, st.Batch("ok", func(tx store.Tx) error {
		for _, name := range []string{"x", "y", "z"} {
			if _, err := tx.Insert("users", Doc("name", name)); err != nil {
				return err
			}
		}
		return nil
	}))
	assert.Equal(t, snaps+1, snapshots(t, st))

	moved, err := st.Undo()
	require.NoError(t, err)
	require.True(t, moved)
	assert.Equal(t, before, Fingerprint(t, st))
}

func testSaveLoad(t *testing.T, factory StoreFactory) {
	src := factory()
	defer src.Close()

	require.NoError(t, src.CreateTable("users", usersSchema(), db.ModeStrict))
	require.NoError(t, src.CreateTable("notes", db.Schema{}, db.ModeFlexible))
	u, err := src.Insert("users", Doc("name", "ada", "email", "ada@example.com", "age", 36))
	require.NoError(t, err)
	n, err := src.Insert("notes", Doc("text", "hi", "tags", []any{"a", 1.5, nil}, "meta", map[string]any{"pinned": true}))
	require.NoError(t, err)
	require.NoError(t, src.Link(db.Edge{FromTable: "users", FromID: u, Label: "wrote", ToTable: "notes", ToID: n}))
	require.NoError(t, src.Put("session", Doc("user", u)))
	_, err = src.Checkpoint("before-bob")
	require.NoError(t, err)
	atCheckpoint := Fingerprint(t, src)

	_, err = src.Insert("users", Doc("name", "bob", "email", "bob@example.com"))
	require.NoError(t, err)
	want := Fingerprint(t, src)

	written, err := src.Save("suite/roundtrip.db")
	require.NoError(t, err)
	assert.Positive(t, written)

	dst := factory()
	defer dst.Close()
	require.NoError(t, dst.Load("suite/roundtrip.db"))
	assert.Equal(t, want, Fingerprint(t, dst))

	// undo history does not survive a load
	moved, err := dst.Undo()
	require.NoError(t, err)
	assert.False(t, moved)

	// checkpoints do, detached from the fresh history
	cps, err := dst.Checkpoints()
	require.NoError(t, err)
	require.Len(t, cps, 1)
	assert.Equal(t, "before-bob", cps[0].Name)
	assert.False(t, cps[0].Attached)

	require.NoError(t, dst.RollbackTo("before-bob"))
	assert.Equal(t, atCheckpoint, Fingerprint(t, dst))
	moved, err = dst.Undo()
	require.NoError(t, err)
	require.True(t, moved)
	assert.Equal(t, want, Fingerprint(t, dst))

	// the counter continues after a load: new ids never collide
	id, err := dst.Insert("users", Doc("name", "carol"))
	require.NoError(t, err)
	assert.NotEqual(t, u, id)

	err = dst.Load("suite/missing.db")
	require.Error(t, err)
	n2, err := dst.Count("users", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, n2, "a failed load keeps the current state")
}

func testPathSafety(t *testing.T, st store.IStore) {
	defer st.Close()

	for _, p := range []string{"../escape.db", "/etc/passwd", "a/../../b.db", "dir/", "", "~/x.db", `C:\x.db`} {
		_, err := st.Save(p)
		requireCode(t, err, errs.PathRejected)
		requireCode(t, st.Load(p), errs.PathRejected)
	}
}

func testClose(t *testing.T, st store.IStore) {
	require.NoError(t, st.Close())
	requireCode(t, st.Close(), errs.InvalidArgument)

	_, err := st.Tables()
	requireCode(t, err, errs.InvalidArgument)
	requireCode(t, st.Put("k", value.Int(1)), errs.InvalidArgument)
	_, err = st.Undo()
	requireCode(t, err, errs.InvalidArgument)
	_, err = st.Info()
	requireCode(t, err, errs.InvalidArgument)
}
