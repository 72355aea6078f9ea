package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	err := NewError(KindEngineError, "SET", "MDB_MAP_FULL")
	assert.Equal(t, "SET function error: MDB_MAP_FULL", err.Error())

	err = NewError(KindNotFound, "", "")
	assert.Equal(t, "NotFound", err.Error())
}

func TestErrorIsKind(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewError(KindNotFound, "GET", "key not found"))

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrEngine)
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
}

func TestWrapError(t *testing.T) {
	assert.NoError(t, WrapError(KindEngineError, "SET", nil))

	native := errors.New("disk on fire")
	err := WrapError(KindEngineError, "SET", native)
	assert.ErrorIs(t, err, native)
	assert.ErrorIs(t, err, ErrEngine)
	assert.Equal(t, "SET function error: disk on fire", err.Error())

	// a classified error keeps its kind and gains the command
	err = WrapError(KindEngineError, "RENAME", NewError(KindNotFound, "", "key not found"))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "RENAME function error: key not found", err.Error())
}

func TestOpenError(t *testing.T) {
	err := OpenError(errors.New("no such file"))
	assert.ErrorIs(t, err, ErrEngine)
	assert.Equal(t, "Fail open database: no such file", err.Error())

	err = OpenError(NewError(KindPathError, "", "not a directory"))
	assert.ErrorIs(t, err, ErrPath)
}
