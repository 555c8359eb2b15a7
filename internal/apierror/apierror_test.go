package apierror

import (
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestMapErrorToHTTPStatus(t *testing.T) {
	cases := []struct {
		code ErrorCode
		want int
	}{
		{ErrNotFound, http.StatusNotFound},
		{ErrConflict, http.StatusConflict},
		{ErrBadRequest, http.StatusBadRequest},
		{ErrInvalidInput, http.StatusBadRequest},
		{ErrInsufficientFunds, http.StatusUnprocessableEntity},
		{ErrRetryLater, http.StatusServiceUnavailable},
		{ErrInternalServer, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		err := NewAPIError(tc.code, "boom", nil)
		assert.Equalf(t, tc.want, MapErrorToHTTPStatus(err), "code %s", tc.code)
	}

	assert.Equal(t, http.StatusInternalServerError, MapErrorToHTTPStatus(errors.New("plain")))
}

func TestIsRetryable(t *testing.T) {
	retryable := NewAPIError(ErrRetryLater, "locks contended", nil)
	assert.True(t, IsRetryable(retryable))
	assert.True(t, IsRetryable(errors.Wrap(retryable, "submitting transfer")))

	assert.False(t, IsRetryable(NewAPIError(ErrNotFound, "missing", nil)))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestErrorString(t *testing.T) {
	err := NewAPIError(ErrInvalidInput, "unsupported currency pair AED/GBP", nil)
	assert.Equal(t, "INVALID_INPUT: unsupported currency pair AED/GBP", err.Error())
}
