package db

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ValentinKolb/rsnDB/lib/errs"
	"github.com/ValentinKolb/rsnDB/lib/value"
)

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

func doc(kv ...any) value.Value {
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

func usersSchema() Schema {
	return Schema{Fields: []FieldDef{
		{Name: "name", Type: TypeString, Required: true},
		{Name: "email", Type: "str", Unique: true},
		{Name: "age", Type: "int"},
		{Name: "score", Type: "number"},
	}}
}

func mustCreate(t *testing.T, s *State, name string, schema Schema, mode Mode) *State {
	t.Helper()
	out, err := s.CreateTable(name, schema, mode)
	require.NoError(t, err)
	return out
}

func mustInsert(t *testing.T, s *State, tbl string, fields value.Value) (*State, string) {
	t.Helper()
	out, id, err := s.Insert(tbl, fields)
	require.NoError(t, err)
	return out, id
}

func mustLink(t *testing.T, s *State, e Edge) *State {
	t.Helper()
	out, err := s.Link(e)
	require.NoError(t, err)
	return out
}

func requireCode(t *testing.T, err error, code errs.Code) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code.String(), errs.CodeOf(err).String(), err.Error())
}

// --------------------------------------------------------------------------
// Table Store
// --------------------------------------------------------------------------

func TestCreateTable(t *testing.T) {
	s := mustCreate(t, New(0), "users", usersSchema(), ModeStrict)

	_, err := s.CreateTable("users", Schema{}, ModeStrict)
	requireCode(t, err, errs.DuplicateTable)

	_, err = s.CreateTable("bad name", Schema{}, ModeStrict)
	requireCode(t, err, errs.IdentifierInvalid)

	_, err = s.CreateTable("t", Schema{Fields: []FieldDef{{Name: "a", Type: "string"}, {Name: "a", Type: "int"}}}, ModeStrict)
	requireCode(t, err, errs.InvalidArgument)

	_, err = s.CreateTable("t", Schema{Fields: []FieldDef{{Name: "a", Type: "uuid"}}}, ModeStrict)
	requireCode(t, err, errs.InvalidArgument)

	info, err := s.Describe("users")
	require.NoError(t, err)
	assert.Equal(t, TypeString, info.Fields[1].Type, "aliases are resolved")
	assert.Equal(t, TypeFloat, info.Fields[3].Type)
	assert.Equal(t, []string{"users"}, s.Tables())
}

func TestInsertModes(t *testing.T) {
	s := New(0)
	s = mustCreate(t, s, "strict", usersSchema(), ModeStrict)
	s = mustCreate(t, s, "flex", usersSchema(), ModeFlexible)

	_, _, err := s.Insert("strict", doc("name", "a", "nickname", "x"))
	requireCode(t, err, errs.TypeMismatch)

	s, id := mustInsert(t, s, "flex", doc("name", "a", "nickname", "x"))
	assert.Equal(t, "flex_00001", id)
	row, err := s.Get("flex", id)
	require.NoError(t, err)
	nick, ok := row.Fields.Get("nickname")
	require.True(t, ok)
	assert.Equal(t, `"x"`, nick.String())

	// typed fields are still checked in flexible mode
	_, _, err = s.Insert("flex", doc("name", "b", "age", "26"))
	requireCode(t, err, errs.TypeMismatch)

	_, _, err = s.Insert("strict", doc("age", 3))
	requireCode(t, err, errs.TypeMismatch)

	_, _, err = s.Insert("strict", doc("name", nil))
	requireCode(t, err, errs.TypeMismatch)

	_, _, err = s.Insert("missing", doc("name", "a"))
	requireCode(t, err, errs.UnknownTable)
}

func TestRejectsValuesThatCannotBePersisted(t *testing.T) {
	s := New(0)
	s = mustCreate(t, s, "users", usersSchema(), ModeFlexible)
	s, id := mustInsert(t, s, "users", doc("name", "a", "score", 1.5))

	nulKey, err := value.FromJSON([]byte(`{"name": "b", "a\u0000b": 1}`), 0)
	require.NoError(t, err)
	_, _, err = s.Insert("users", nulKey)
	requireCode(t, err, errs.InvalidArgument)

	nested := doc("name", "b", "meta", map[string]any{"x\x00": 1})
	_, _, err = s.Insert("users", nested)
	requireCode(t, err, errs.InvalidArgument)

	_, err = s.Put("k", doc("inner", map[string]any{"a\x00b": true}))
	requireCode(t, err, errs.InvalidArgument)

	nan := value.Document(value.Field{Name: "name", Value: value.String("c")}, value.Field{Name: "score", Value: value.Float(math.NaN())})
	_, _, err = s.Insert("users", nan)
	requireCode(t, err, errs.TypeMismatch)

	_, err = s.Put("k", value.Float(math.Inf(1)))
	requireCode(t, err, errs.TypeMismatch)

	_, _, err = s.Update("users", nil, value.Document(value.Field{Name: "score", Value: value.Float(math.Inf(-1))}))
	requireCode(t, err, errs.TypeMismatch)

	// the rejected writes left nothing behind
	n, err := s.Count("users", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	row, err := s.Get("users", id)
	require.NoError(t, err)
	score, _ := row.Fields.Get("score")
	assert.Equal(t, `1.5`, score.String())
}

func TestInsertWidensIntegersForFloatFields(t *testing.T) {
	s := mustCreate(t, New(0), "users", usersSchema(), ModeStrict)
	s, id := mustInsert(t, s, "users", doc("name", "a", "score", 7))
	row, _ := s.Get("users", id)
	score, _ := row.Fields.Get("score")
	assert.Equal(t, value.TagFloat, score.Tag())
}

func TestRowIDsAreNeverReused(t *testing.T) {
	s := mustCreate(t, New(0), "items", Schema{}, ModeFlexible)
	s, _ = mustInsert(t, s, "items", doc("n", 1))
	s, second := mustInsert(t, s, "items", doc("n", 2))

	s, rows, _, err := s.Remove("items", Where("n", OpEq, value.Int(2)))
	require.NoError(t, err)
	assert.Equal(t, 1, rows)

	s, third := mustInsert(t, s, "items", doc("n", 3))
	assert.Equal(t, "items_00002", second)
	assert.Equal(t, "items_00003", third)
}

func TestStatesAreImmutable(t *testing.T) {
	before := mustCreate(t, New(0), "users", usersSchema(), ModeStrict)
	after, _ := mustInsert(t, before, "users", doc("name", "a"))

	n, _ := before.Count("users", nil)
	assert.Equal(t, 0, n)
	n, _ = after.Count("users", nil)
	assert.Equal(t, 1, n)
}

func TestUniqueConstraint(t *testing.T) {
	s := mustCreate(t, New(0), "users", usersSchema(), ModeStrict)
	s, _ = mustInsert(t, s, "users", doc("name", "a", "email", "a@x"))

	_, _, err := s.Insert("users", doc("name", "b", "email", "a@x"))
	requireCode(t, err, errs.UniqueConstraintViolation)
	assert.Equal(t, "email", errs.As(err).Details["field"])

	// null values are not indexed
	s, _ = mustInsert(t, s, "users", doc("name", "c", "email", nil))
	s, _ = mustInsert(t, s, "users", doc("name", "d"))

	// freed after removal
	s, _, _, err = s.Remove("users", Where("email", OpEq, value.String("a@x")))
	require.NoError(t, err)
	_, _ = mustInsert(t, s, "users", doc("name", "e", "email", "a@x"))
}

func TestUniqueConstraintScales(t *testing.T) {
	s := mustCreate(t, New(0), "users", usersSchema(), ModeStrict)
	start := time.Now()
	for i := 0; i < 10_000; i++ {
		s, _ = mustInsert(t, s, "users", doc("name", "n", "email", fmt.Sprintf("user%d@x", i)))
	}
	_, _, err := s.Insert("users", doc("name", "n", "email", "user5000@x"))
	requireCode(t, err, errs.UniqueConstraintViolation)
	assert.Less(t, time.Since(start), 20*time.Second)
}

func TestUpdate(t *testing.T) {
	s := mustCreate(t, New(0), "users", usersSchema(), ModeStrict)
	s, a := mustInsert(t, s, "users", doc("name", "a", "email", "a@x", "age", 25))
	s, _ = mustInsert(t, s, "users", doc("name", "b", "email", "b@x", "age", 40))

	next, n, err := s.Update("users", Where("name", OpEq, value.String("a")), doc("age", 26))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	row, _ := next.Get("users", a)
	age, _ := row.Fields.Get("age")
	assert.Equal(t, "26", age.String())

	_, _, err = s.Update("users", Where("name", OpEq, value.String("a")), doc("email", "b@x"))
	requireCode(t, err, errs.UniqueConstraintViolation)

	// two updated rows cannot end up with the same unique value
	_, _, err = s.Update("users", nil, doc("email", "same@x"))
	requireCode(t, err, errs.UniqueConstraintViolation)

	// keeping its own value is not a collision
	_, n, err = s.Update("users", Where("name", OpEq, value.String("a")), doc("email", "a@x"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, _, err = s.Update("users", nil, doc("age", "old"))
	requireCode(t, err, errs.TypeMismatch)
}

func TestConditions(t *testing.T) {
	s := mustCreate(t, New(0), "posts", Schema{}, ModeFlexible)
	s, _ = mustInsert(t, s, "posts", doc("title", "hello world", "likes", 10, "tags", []any{"go", "db"}))
	s, _ = mustInsert(t, s, "posts", doc("title", "bye", "likes", 3.5, "tags", []any{"rust"}))
	s, _ = mustInsert(t, s, "posts", doc("title", "untitled", "likes", nil))
	s, _ = mustInsert(t, s, "posts", doc("other", true))

	tests := []struct {
		cond *Condition
		want int
	}{
		{Where("likes", OpGt, value.Int(5)), 1},
		{Where("likes", OpLe, value.Float(10)), 2},
		{Where("likes", OpNe, value.Int(10)), 2},
		{Where("likes", OpEqEq, value.Float(10.0)), 1},
		{Where("title", OpContains, value.String("o")), 1},
		{Where("tags", OpContains, value.String("go")), 1},
		{Where("likes", OpEq, value.Null()), 1},
		{Where("missing", OpNe, value.Int(1)), 0},
		{Where("title", "CONTAINS", value.String("bye")), 1},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s %s %s", tt.cond.Field, tt.cond.Op, tt.cond.Value), func(t *testing.T) {
			n, err := s.Count("posts", tt.cond)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}

	_, err := s.Count("posts", Where("title", OpGt, value.Int(1)))
	requireCode(t, err, errs.TypeMismatch)
	assert.Equal(t, "title", errs.As(err).Details["field"])

	_, err = s.Count("posts", Where("likes", OpGt, value.String("1")))
	requireCode(t, err, errs.TypeMismatch)

	_, err = s.Count("posts", Where("likes", OpContains, value.Int(1)))
	requireCode(t, err, errs.TypeMismatch)

	_, err = s.Count("posts", Where("likes", "~", value.Int(1)))
	requireCode(t, err, errs.InvalidArgument)
}

func TestReadOrderingAndLimit(t *testing.T) {
	s := mustCreate(t, New(0), "t", Schema{}, ModeFlexible)
	for _, n := range []any{3, 1, nil, 2} {
		s, _ = mustInsert(t, s, "t", doc("n", n))
	}

	ids := func(rows []Row) []string {
		out := make([]string, len(rows))
		for i, r := range rows {
			out[i] = r.ID
		}
		return out
	}

	rows, err := s.Read("t", ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"t_00001", "t_00002", "t_00003", "t_00004"}, ids(rows))

	rows, err = s.Read("t", ReadOptions{OrderBy: "n"})
	require.NoError(t, err)
	assert.Equal(t, []string{"t_00002", "t_00004", "t_00001", "t_00003"}, ids(rows))

	rows, err = s.Read("t", ReadOptions{OrderBy: "n", Desc: true, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"t_00001", "t_00004"}, ids(rows))
}

func TestEmptyKeepsIDAndEdges(t *testing.T) {
	s := mustCreate(t, New(0), "users", usersSchema(), ModeStrict)
	s, a := mustInsert(t, s, "users", doc("name", "a", "email", "a@x"))
	s, b := mustInsert(t, s, "users", doc("name", "b"))
	s = mustLink(t, s, Edge{"users", a, "follows", "users", b})

	s, n, err := s.Empty("users", Where("name", OpEq, value.String("a")))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	row, err := s.Get("users", a)
	require.NoError(t, err)
	assert.Equal(t, 0, row.Fields.Len())

	edges, err := s.Edges("users", a)
	require.NoError(t, err)
	assert.Len(t, edges, 1)

	// the unique value is free again
	_, _ = mustInsert(t, s, "users", doc("name", "c", "email", "a@x"))
}

// --------------------------------------------------------------------------
// Graph Store
// --------------------------------------------------------------------------

func TestLinkAndUnlink(t *testing.T) {
	s := mustCreate(t, New(0), "users", Schema{}, ModeFlexible)
	s, a := mustInsert(t, s, "users", doc("n", 1))
	s, b := mustInsert(t, s, "users", doc("n", 2))

	_, err := s.Link(Edge{"users", a, "knows", "users", "users_00099"})
	requireCode(t, err, errs.RowNotFound)

	_, err = s.Link(Edge{"users", a, "knows", "ghosts", b})
	requireCode(t, err, errs.UnknownTable)

	_, err = s.Link(Edge{"users", a, "bad label", "users", b})
	requireCode(t, err, errs.IdentifierInvalid)

	e := Edge{"users", a, "knows", "users", b}
	s = mustLink(t, s, e)
	_, err = s.Link(e)
	requireCode(t, err, errs.DuplicateEdge)
	assert.Equal(t, 1, s.EdgeCount())

	s, err = s.Unlink(e)
	require.NoError(t, err)
	assert.Equal(t, 0, s.EdgeCount())

	_, err = s.Unlink(e)
	requireCode(t, err, errs.EdgeNotFound)
}

func TestRemoveCascadesEdges(t *testing.T) {
	s := mustCreate(t, New(0), "users", Schema{}, ModeFlexible)
	s, a := mustInsert(t, s, "users", doc("n", 1))
	s, b := mustInsert(t, s, "users", doc("n", 2))
	s, c := mustInsert(t, s, "users", doc("n", 3))
	s = mustLink(t, s, Edge{"users", a, "knows", "users", b})
	s = mustLink(t, s, Edge{"users", b, "knows", "users", c})
	s = mustLink(t, s, Edge{"users", b, "knows", "users", b})
	s = mustLink(t, s, Edge{"users", a, "likes", "users", c})

	s, rows, edges, err := s.Remove("users", Where("n", OpEq, value.Int(2)))
	require.NoError(t, err)
	assert.Equal(t, 1, rows)
	assert.Equal(t, 3, edges)
	assert.Equal(t, 1, s.EdgeCount())

	remaining, err := s.Edges("users", a)
	require.NoError(t, err)
	assert.Equal(t, []Edge{{"users", a, "likes", "users", c}}, remaining)
}

func TestDeleteTableCascades(t *testing.T) {
	s := New(0)
	s = mustCreate(t, s, "users", Schema{}, ModeFlexible)
	s = mustCreate(t, s, "posts", Schema{}, ModeFlexible)
	s, u := mustInsert(t, s, "users", doc("n", 1))
	s, p1 := mustInsert(t, s, "posts", doc("n", 1))
	s, p2 := mustInsert(t, s, "posts", doc("n", 2))
	s = mustLink(t, s, Edge{"users", u, "wrote", "posts", p1})
	s = mustLink(t, s, Edge{"users", u, "wrote", "posts", p2})

	s, rows, edges, err := s.DeleteTable("posts")
	require.NoError(t, err)
	assert.Equal(t, 2, rows)
	assert.Equal(t, 2, edges)
	assert.Equal(t, []string{"users"}, s.Tables())

	remaining, err := s.Edges("users", u)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	_, _, _, err = s.DeleteTable("posts")
	requireCode(t, err, errs.UnknownTable)
}

func TestWalkBounds(t *testing.T) {
	s := mustCreate(t, New(0), "n", Schema{}, ModeFlexible)
	ids := make([]string, 5)
	for i := range ids {
		s, ids[i] = mustInsert(t, s, "n", doc("i", i))
	}
	for i := 0; i < 4; i++ {
		s = mustLink(t, s, Edge{"n", ids[i], "next", "n", ids[i+1]})
	}

	reached, err := s.Walk("n", ids[0], "next", HopRange{Max: 3}, DirOut)
	require.NoError(t, err)
	require.Len(t, reached, 3)
	for i, r := range reached {
		assert.Equal(t, ids[i+1], r.ID)
		assert.Equal(t, i+1, r.Depth)
	}

	reached, err = s.Walk("n", ids[0], "next", HopRange{}, DirOut)
	require.NoError(t, err)
	assert.Len(t, reached, 1, "default is a single hop")

	reached, err = s.Walk("n", ids[0], "next", HopRange{Min: 2, Max: 3}, DirOut)
	require.NoError(t, err)
	assert.Equal(t, []Reached{{Node{"n", ids[2]}, 2}, {Node{"n", ids[3]}, 3}}, reached)

	reached, err = s.Walk("n", ids[4], "next", HopRange{Max: 10}, DirIn)
	require.NoError(t, err)
	assert.Len(t, reached, 4)

	reached, err = s.Walk("n", ids[0], "other", HopRange{Max: 10}, DirOut)
	require.NoError(t, err)
	assert.Empty(t, reached)

	_, err = s.Walk("n", ids[0], "next", HopRange{Min: 3, Max: 2}, DirOut)
	requireCode(t, err, errs.InvalidArgument)

	_, err = s.Walk("n", "n_00042", "next", HopRange{}, DirOut)
	requireCode(t, err, errs.RowNotFound)
}

func TestWalkTerminatesOnCycles(t *testing.T) {
	s := mustCreate(t, New(0), "n", Schema{}, ModeFlexible)
	ids := make([]string, 4)
	for i := range ids {
		s, ids[i] = mustInsert(t, s, "n", doc("i", i))
	}
	// 0 -> 1 -> 2 -> 3 -> 0 and a shortcut 0 -> 2
	for i := 0; i < 4; i++ {
		s = mustLink(t, s, Edge{"n", ids[i], "e", "n", ids[(i+1)%4]})
	}
	s = mustLink(t, s, Edge{"n", ids[0], "e", "n", ids[2]})

	reached, err := s.Walk("n", ids[0], "e", HopRange{Max: 10}, DirOut)
	require.NoError(t, err)
	depths := map[string]int{}
	for _, r := range reached {
		_, dup := depths[r.ID]
		assert.False(t, dup, "node %s reported twice", r.ID)
		depths[r.ID] = r.Depth
	}
	assert.Equal(t, map[string]int{ids[1]: 1, ids[2]: 1, ids[3]: 2}, depths)

	both, err := s.Walk("n", ids[1], "", HopRange{Max: 1}, DirBoth)
	require.NoError(t, err)
	assert.Len(t, both, 2)
}

// --------------------------------------------------------------------------
// KV Store
// --------------------------------------------------------------------------

func TestKV(t *testing.T) {
	s := New(2)
	s, err := s.Put("session:1", value.String("a"))
	require.NoError(t, err)
	s, err = s.Put("session:1", value.Int(2))
	require.NoError(t, err)
	s, err = s.Put("config", doc("x", 1))
	require.NoError(t, err)

	v, err := s.GetKey("session:1")
	require.NoError(t, err)
	assert.Equal(t, "2", v.String())
	assert.Equal(t, []string{"session:1"}, s.Keys("session:"))

	_, err = s.Put("deep", value.Array(value.Array(value.Array())))
	requireCode(t, err, errs.RecursionLimitExceeded)

	_, err = s.Put("", value.Int(1))
	requireCode(t, err, errs.InvalidArgument)

	s, err = s.Drop("config")
	require.NoError(t, err)
	_, err = s.GetKey("config")
	requireCode(t, err, errs.KeyNotFound)
	_, err = s.Drop("config")
	requireCode(t, err, errs.KeyNotFound)
}

// --------------------------------------------------------------------------
// Dump
// --------------------------------------------------------------------------

func TestDumpRoundTrip(t *testing.T) {
	s := New(0)
	s = mustCreate(t, s, "users", usersSchema(), ModeStrict)
	s = mustCreate(t, s, "notes", Schema{}, ModeFlexible)
	s, a := mustInsert(t, s, "users", doc("name", "a", "email", "a@x"))
	s, b := mustInsert(t, s, "users", doc("name", "b"))
	s, n := mustInsert(t, s, "notes", doc("text", "hi", "meta", map[string]any{"k": []any{1, 2}}))
	s = mustLink(t, s, Edge{"users", a, "wrote", "notes", n})
	s = mustLink(t, s, Edge{"users", b, "knows", "users", a})
	s, _, _, err := s.Remove("users", Where("name", OpEq, value.String("b")))
	require.NoError(t, err)
	s, _, err = s.Empty("users", nil)
	require.NoError(t, err)
	s, err = s.Put("k", value.Bool(true))
	require.NoError(t, err)

	restored, err := FromDump(s.Dump(), 0)
	require.NoError(t, err)
	assert.True(t, s.Equal(restored))
	assert.Equal(t, s.Info(), restored.Info())

	// the id counter survives, so ids are not reused after a reload
	_, id := mustInsert(t, restored, "users", doc("name", "c"))
	assert.Equal(t, "users_00003", id)
}

func TestFromDumpValidates(t *testing.T) {
	s := mustCreate(t, New(0), "users", usersSchema(), ModeStrict)
	s, _ = mustInsert(t, s, "users", doc("name", "a", "email", "a@x"))
	d := s.Dump()
	d.Tables[0].Rows = append(d.Tables[0].Rows, Row{ID: "users_00002", Fields: doc("name", "b", "email", "a@x")})

	_, err := FromDump(d, 0)
	requireCode(t, err, errs.UniqueConstraintViolation)

	d = s.Dump()
	d.Edges = append(d.Edges, Edge{"users", "users_00001", "x", "users", "users_00009"})
	_, err = FromDump(d, 0)
	requireCode(t, err, errs.RowNotFound)
}
