package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  *Error
		want int
	}{
		{ValidationError("bad"), http.StatusBadRequest},
		{NotFoundError("missing"), http.StatusNotFound},
		{TooLargeError("big"), http.StatusRequestEntityTooLarge},
		{RateLimitedError("slow down"), http.StatusTooManyRequests},
		{UnavailableError("down", nil), http.StatusServiceUnavailable},
		{InternalError("boom", nil), http.StatusInternalServerError},
		{&Error{Type: "mystery"}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.err.Type), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.HTTPStatus())
		})
	}
}

func TestError_MessageAndUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := InternalError("failed to save upload", cause)

	assert.Equal(t, "internal: failed to save upload: disk full", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "not_found: screen not found", NotFoundError("screen not found").Error())
}

func TestWithField_ShowsInResponse(t *testing.T) {
	err := NotFoundError("screen not found").WithField("screen_id", "abc")

	resp := err.ToResponse()
	assert.Equal(t, "screen not found", resp.Error)
	assert.Equal(t, TypeNotFound, resp.Type)
	assert.Equal(t, "abc", resp.Context["screen_id"])

	var bare Error
	bare.WithField("k", "v")
	assert.Equal(t, "v", bare.Context["k"])
}

func TestAsStructuredError(t *testing.T) {
	assert.Nil(t, AsStructuredError(nil))

	original := ValidationError("name is required")
	wrapped := fmt.Errorf("handler: %w", original)
	assert.Same(t, original, AsStructuredError(wrapped))

	plain := AsStructuredError(errors.New("oops"))
	require.NotNil(t, plain)
	assert.Equal(t, TypeInternal, plain.Type)
	assert.Equal(t, "internal server error", plain.Message)
}
