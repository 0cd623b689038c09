package common

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ValentinKolb/rsnDB/lib/db"
	"github.com/ValentinKolb/rsnDB/lib/errs"
	"github.com/ValentinKolb/rsnDB/lib/value"
)

func TestParseVerb(t *testing.T) {
	v, err := ParseVerb(" insert ")
	require.NoError(t, err)
	assert.Equal(t, VerbInsert, v)

	_, err = ParseVerb("SELECT")
	assert.True(t, errs.Is(err, errs.InvalidArgument))

	assert.Len(t, Verbs(), 37)
}

func TestIsData(t *testing.T) {
	for _, v := range []Verb{VerbInsert, VerbRead, VerbLink, VerbWalk, VerbPut, VerbKeys, VerbCreateTable} {
		assert.True(t, v.IsData(), v)
	}
	for _, v := range []Verb{VerbUndo, VerbSave, VerbInfo, VerbBatch, VerbCall, VerbImportJSONL} {
		assert.False(t, v.IsData(), v)
	}
}

func TestErrorResponse(t *testing.T) {
	resp := NewErrorResponse(errs.New(errs.UniqueConstraintViolation, "duplicate email").With("field", "email").With("limit", 3))
	assert.False(t, resp.Ok)
	assert.Equal(t, "UniqueConstraintViolation", resp.Error.Kind)
	assert.Equal(t, "duplicate email", resp.Error.Message)
	assert.Equal(t, map[string]string{"field": "email", "limit": "3"}, resp.Error.Details)
	assert.EqualError(t, resp.Err(), "UniqueConstraintViolation: duplicate email")

	plain := NewErrorResponse(errors.New("disk on fire"))
	assert.Equal(t, "Internal", plain.Error.Kind)
}

func TestSuccessResponse(t *testing.T) {
	assert.Nil(t, NewSuccessResponse(value.Null()).Result)
	resp := NewSuccessResponse(value.Int(4))
	require.NotNil(t, resp.Result)
	assert.Equal(t, value.Int(4), *resp.Result)
	assert.NoError(t, resp.Err())
}

func TestRequestEdge(t *testing.T) {
	e := db.Edge{FromTable: "a", FromID: "a_00001", Label: "l", ToTable: "b", ToID: "b_00001"}
	got, err := NewLinkRequest(e).Edge()
	require.NoError(t, err)
	assert.Equal(t, e, got)

	_, err = (&Request{Verb: VerbLink}).Edge()
	assert.True(t, errs.Is(err, errs.InvalidArgument))
}

func TestServerConfig(t *testing.T) {
	cfg := DefaultServerConfig()
	require.NoError(t, cfg.Validate())
	assert.Contains(t, cfg.String(), "DISPATCHER")

	cfg.MaxAliasDepth = 0
	assert.True(t, errs.Is(cfg.Validate(), errs.InvalidArgument))
}
