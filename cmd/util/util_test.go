package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ValentinKolb/rsnDB/lib/db"
	"github.com/ValentinKolb/rsnDB/lib/errs"
	"github.com/ValentinKolb/rsnDB/lib/value"
)

func TestWrapString(t *testing.T) {
	wrapped := WrapString("Store file, relative to the data directory. It is loaded if it exists and saved after every change")
	for _, line := range splitLines(wrapped) {
		assert.LessOrEqual(t, len(line), Wrap)
	}
	assert.Equal(t, "short text", WrapString("  short   text "))
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := range s {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	return append(lines, s[start:])
}

func TestParseValue(t *testing.T) {
	assert.True(t, value.Equal(value.Int(42), ParseValue("42")))
	assert.True(t, value.Equal(value.Bool(true), ParseValue("true")))
	assert.True(t, value.Equal(value.String("Ann"), ParseValue(`"Ann"`)))
	assert.True(t, value.Equal(value.String("Ann"), ParseValue("Ann")))
	assert.Equal(t, value.TagDocument, ParseValue(`{"a":[1,2]}`).Tag())
}

func TestParseDocument(t *testing.T) {
	v, err := ParseDocument(`{"name":"Ann","age":31}`)
	require.NoError(t, err)
	assert.Equal(t, 2, v.Len())

	_, err = ParseDocument(`[1,2]`)
	assert.True(t, errs.Is(err, errs.InvalidArgument))

	_, err = ParseDocument(`{"name":`)
	assert.Error(t, err)
}

func TestParseCondition(t *testing.T) {
	cond, err := ParseCondition("")
	require.NoError(t, err)
	assert.Nil(t, cond)

	cond, err = ParseCondition("age >= 30")
	require.NoError(t, err)
	assert.Equal(t, "age", cond.Field)
	assert.Equal(t, db.OpGe, cond.Op)
	assert.True(t, value.Equal(value.Int(30), cond.Value))

	cond, err = ParseCondition(`  name   =   "Ann Lee" `)
	require.NoError(t, err)
	assert.True(t, value.Equal(value.String("Ann Lee"), cond.Value))

	cond, err = ParseCondition("tags contains red")
	require.NoError(t, err)
	assert.Equal(t, db.OpContains, cond.Op)
	assert.True(t, value.Equal(value.String("red"), cond.Value))

	for _, bad := range []string{"age", "age >=", "age ~ 3"} {
		_, err := ParseCondition(bad)
		assert.True(t, errs.Is(err, errs.InvalidArgument), bad)
	}
}
