package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryableByCode(t *testing.T) {
	tests := []struct {
		err       *Error
		retryable bool
	}{
		{ErrBlocked, false},
		{ErrNotSupported, false},
		{ErrValidation, false},
		{ErrUnexpectedResponse, true},
		{ErrTimeout, true},
		{ErrUnexpectedResponse.AsFatal(), false},
		{ErrBlocked.AsRetryable(), true},
	}

	for _, tt := range tests {
		t.Run(tt.err.Code, func(t *testing.T) {
			assert.Equal(t, tt.retryable, tt.err.IsRetryable())
			assert.Equal(t, !tt.retryable, tt.err.IsFatal())
		})
	}
}

func TestDerivedErrorsMatchByCode(t *testing.T) {
	err := fmt.Errorf("search: %w", ErrBlocked.WithMessage("site answered 403").WithDetail("status", 403))

	assert.True(t, errors.Is(err, ErrBlocked))
	assert.True(t, IsBlocked(err))
	assert.False(t, IsNotSupported(err))
	assert.True(t, IsFatal(err))
	assert.Empty(t, ErrBlocked.Details, "WithDetail must not mutate the sentinel")
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, "", CodeOf(nil))
	assert.Equal(t, "UNEXPECTED_RESPONSE", CodeOf(ErrUnexpectedResponse.WithCause(errors.New("html"))))
	assert.Equal(t, "TIMEOUT", CodeOf(fmt.Errorf("card: %w", context.DeadlineExceeded)))
	assert.Equal(t, "*errors.errorString", CodeOf(errors.New("plain")))
}

func TestErrorResponse(t *testing.T) {
	err := ErrValidation.WithDetail("field", "participant")

	assert.Equal(t, http.StatusBadRequest, ToHTTPStatus(err))
	assert.Equal(t, http.StatusInternalServerError, ToHTTPStatus(errors.New("x")))

	resp := ToErrorResponse(err)
	assert.Equal(t, "VALIDATION_ERROR", resp["error_code"])
	assert.Equal(t, map[string]interface{}{"field": "participant"}, resp["details"])
}

func TestSafeRecoversPanic(t *testing.T) {
	err := Safe(func() error { panic("boom") })
	require.Error(t, err)

	var appErr *Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.True(t, IsFatal(err))
	assert.Equal(t, true, appErr.Details["panic"])
	assert.Contains(t, err.Error(), "boom")

	assert.NoError(t, Safe(func() error { return nil }))
	assert.Nil(t, RecoverPanic(nil))
}
