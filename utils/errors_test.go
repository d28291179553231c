package utils

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetServiceError(t *testing.T) {
	wrapped := fmt.Errorf("select category: %w", NewCategoryNotFoundError("sunburn"))

	se, ok := GetServiceError(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrCodeUnknownCategory, se.Code)
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.Equal(t, "UNKNOWN_CATEGORY: Emergency category not found (sunburn)", se.Error())

	_, ok = GetServiceError(errors.New("plain"))
	assert.False(t, ok)
}

func TestServiceErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewDatabaseError("insert report", cause)

	assert.ErrorIs(t, err, cause)
	se, ok := GetServiceError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
}

func TestIllegalTransitionError(t *testing.T) {
	err := &IllegalTransitionError{From: "initiated", To: "resolved"}

	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.Equal(t, "illegal incident transition initiated -> resolved", err.Error())

	lifted := err.AsServiceError()
	se, ok := GetServiceError(lifted)
	require.True(t, ok)
	assert.Equal(t, ErrCodeIllegalTransition, se.Code)
	assert.Equal(t, http.StatusConflict, se.StatusCode)
	assert.ErrorIs(t, lifted, ErrIllegalTransition)
}

func TestMasking(t *testing.T) {
	assert.Equal(t, "*********0001", MaskPhoneNumber("+919800000001"))
	assert.Equal(t, "****", MaskPhoneNumber("123"))
	assert.Equal(t, "a***@example.com", MaskEmail("asha@example.com"))
	assert.Equal(t, "***@x.io", MaskEmail("a@x.io"))
}
