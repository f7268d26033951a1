package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewFormatsMessage(t *testing.T) {
	err := New(InvalidAmount, "amount %d must be positive", -5)
	assert.Equal(t, "amount -5 must be positive", err.Error())
	assert.Equal(t, InvalidAmount, err.Code)
}

func TestNewCapturesWrappedError(t *testing.T) {
	cause := errors.New("disk full")
	err := New(Corrupt, "save failed", cause)
	assert.Equal(t, "save failed: disk full", err.Error())
	assert.Same(t, cause, err.Unwrap())
}

func TestIsMatchesByCode(t *testing.T) {
	a := New(PrevHashMismatch, "expected %s got %s", "aa", "bb")
	b := New(PrevHashMismatch, "different message entirely")
	c := New(HashMismatch, "unrelated")

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, c))
}

func TestCodeOf(t *testing.T) {
	err := New(StaleCandidate, "stale")
	code, ok := CodeOf(err)
	assert.True(t, ok)
	assert.Equal(t, StaleCandidate, code)

	_, ok = CodeOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestNilErrorString(t *testing.T) {
	var err *Error
	assert.Equal(t, "<nil>", err.Error())
}
