package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneMatchesKind(t *testing.T) {
	err := Clone(ErrCapacityExceeded, "course CS101 is full")

	assert.True(t, errors.Is(err, ErrCapacityExceeded))
	assert.False(t, errors.Is(err, ErrAlreadyEnrolled))
	assert.Equal(t, "course CS101 is full", err.Error())

	wrapped := fmt.Errorf("select: %w", err)
	assert.True(t, errors.Is(wrapped, ErrCapacityExceeded))
}

func TestFromErrorNormalisesUntyped(t *testing.T) {
	cause := errors.New("connection reset")
	appErr := FromError(cause)

	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.ErrorIs(t, appErr, cause)
	assert.Equal(t, "INTERNAL_ERROR", Code(cause))
	assert.Equal(t, "OUT_OF_RANGE", Code(ErrOutOfRange))
	assert.Empty(t, Code(nil))
}
