package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessageIncludesSortedDetails(t *testing.T) {
	err := New(TypeMismatch, "field %q expects integer", "age").
		With("table", "users").
		With("field", "age")

	assert.Equal(t, `TypeMismatch: field "age" expects integer (field=age, table=users)`, err.Error())
}

func TestCodeHelpersSeeThroughWrapping(t *testing.T) {
	base := New(RowNotFound, "row users_00001 does not exist")
	wrapped := fmt.Errorf("link: %w", base)

	assert.True(t, Is(wrapped, RowNotFound))
	assert.False(t, Is(wrapped, UnknownTable))
	assert.Equal(t, RowNotFound, CodeOf(wrapped))
	assert.Equal(t, Internal, CodeOf(errors.New("plain")))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(Internal, cause, "save failed")

	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "disk full")
}

func TestAsWrapsForeignErrors(t *testing.T) {
	assert.Nil(t, As(nil))
	assert.Equal(t, Internal, As(errors.New("boom")).Code)

	typed := New(KeyNotFound, "missing")
	assert.Same(t, typed, As(typed))
}

func TestParseCodeRoundTrip(t *testing.T) {
	for code, name := range codeNames {
		parsed, ok := ParseCode(name)
		require.True(t, ok, name)
		assert.Equal(t, code, parsed)
	}
	_, ok := ParseCode("NoSuchKind")
	assert.False(t, ok)
	assert.Equal(t, "Code(999)", Code(999).String())
}
