package serializer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ValentinKolb/rsnDB/lib/db"
	"github.com/ValentinKolb/rsnDB/lib/errs"
	"github.com/ValentinKolb/rsnDB/lib/value"
	"github.com/ValentinKolb/rsnDB/rpc/common"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"JSON": NewJSONSerializer,
	"GOB":  NewGOBSerializer,
}

// doc builds a document with members in lexical order so that JSON round
// trips compare equal.
func doc(kv ...any) value.Value {
	fields := make([]value.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		v, err := value.FromNative(kv[i+1], value.DefaultRecursionLimit)
		if err != nil {
			panic(err)
		}
		fields = append(fields, value.Field{Name: kv[i].(string), Value: v})
	}
	return value.Document(fields...)
}

// testRequests creates a set of requests with different fields filled
func testRequests() []common.Request {
	return []common.Request{
		// Basic request with just a verb
		{Verb: common.VerbTables},

		*common.NewInsertRequest("users", doc("age", 36, "name", "ada", "tags", value.Array(value.String("a")))),

		{
			Verb:    common.VerbRead,
			Table:   "users",
			Where:   db.Where("age", db.OpGe, value.Int(30)),
			OrderBy: "name",
			Desc:    true,
			Limit:   10,
		},

		{
			Verb:  common.VerbCreateTable,
			Table: "users",
			Mode:  "strict",
			Schema: &db.Schema{Fields: []db.FieldDef{
				{Name: "name", Type: db.TypeString, Required: true},
				{Name: "email", Type: db.TypeString, Unique: true},
			}},
		},

		*common.NewLinkRequest(db.Edge{FromTable: "users", FromID: "users_00001", Label: "knows", ToTable: "users", ToID: "users_00002"}),

		{
			Verb:      common.VerbWalk,
			Table:     "users",
			ID:        "users_00001",
			Label:     "knows",
			Hops:      db.HopRange{Min: 1, Max: 3},
			Direction: "both",
		},

		*common.NewAliasRequest("later", *common.NewPutRequest("k", value.Float(2.5))),

		{Verb: common.VerbCommit, Text: "import users"},
	}
}

// testResponses creates a set of responses with different fields filled
func testResponses() []common.Response {
	return []common.Response{
		{Ok: true},
		*common.NewSuccessResponse(value.Array(doc("fields", doc("name", "ada"), "id", "users_00001"))),
		*common.NewSuccessResponse(value.Int(3)),
		*common.NewErrorResponse(errs.New(errs.UnknownTable, "unknown table %q", "nope").With("table", "nope")),
	}
}

// TestSerializerRoundTrip tests that messages can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			s := factory()

			for i, req := range testRequests() {
				data, err := s.SerializeRequest(req)
				require.NoError(t, err, "request %d", i)

				var result common.Request
				require.NoError(t, s.DeserializeRequest(data, &result), "request %d", i)
				assert.Equal(t, req, result, "request %d", i)
			}

			for i, resp := range testResponses() {
				data, err := s.SerializeResponse(resp)
				require.NoError(t, err, "response %d", i)

				var result common.Response
				require.NoError(t, s.DeserializeResponse(data, &result), "response %d", i)
				assert.Equal(t, resp, result, "response %d", i)
			}
		})
	}
}

// TestGOBKeepsFieldOrder checks that gob does not reorder document members.
func TestGOBKeepsFieldOrder(t *testing.T) {
	s := NewGOBSerializer()
	req := *common.NewInsertRequest("t", value.Document(
		value.Field{Name: "z", Value: value.Int(1)},
		value.Field{Name: "a", Value: value.Float(1)},
	))

	data, err := s.SerializeRequest(req)
	require.NoError(t, err)
	var result common.Request
	require.NoError(t, s.DeserializeRequest(data, &result))
	require.NotNil(t, result.Fields)
	assert.Equal(t, []string{"z", "a"}, result.Fields.Names())
	a, _ := result.Fields.Get("a")
	assert.Equal(t, value.TagFloat, a.Tag())
}

func TestJSONWireFormat(t *testing.T) {
	s := NewJSONSerializer()
	data, err := s.SerializeResponse(*common.NewErrorResponse(errs.New(errs.RowNotFound, "row missing").With("id", "x")))
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":false,"error":{"kind":"RowNotFound","message":"row missing","details":{"id":"x"}}}`, string(data))

	var req common.Request
	require.NoError(t, s.DeserializeRequest([]byte(`{"verb":"PUT","key":"k","value":{"a":[1,2.5,null]}}`), &req))
	assert.Equal(t, common.VerbPut, req.Verb)
	require.NotNil(t, req.Value)
	assert.Equal(t, `{"a":[1,2.5,null]}`, req.Value.String())

	assert.Error(t, s.DeserializeRequest([]byte(`{"verb":`), &req))
}

func TestByName(t *testing.T) {
	for _, name := range []string{"json", "gob", ""} {
		s, err := ByName(name)
		require.NoError(t, err)
		assert.NotNil(t, s)
	}
	_, err := ByName("binary")
	assert.True(t, errs.Is(err, errs.InvalidArgument))
}
