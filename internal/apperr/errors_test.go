package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(CodeInternal, cause, "insert ingredient")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CodeInternal, err.Code())
	assert.Contains(t, err.Error(), "disk full")
}

func TestAsFindsTypedErrorThroughFmtWrap(t *testing.T) {
	base := Conflict("ingredient %d is in use", 7)
	wrapped := fmt.Errorf("delete ingredient: %w", base)

	typed := As(wrapped)
	require.NotNil(t, typed)
	assert.Equal(t, CodeReferentialConflict, typed.Code())
	assert.Equal(t, "ingredient 7 is in use", typed.Message())
	assert.True(t, IsConflict(wrapped))
	assert.False(t, IsValidation(wrapped))
}

func TestCodeOfUntypedIsInternal(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	assert.False(t, IsNotFound(nil))
}

func TestMetadataFor(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:          http.StatusBadRequest,
		CodeNotFound:            http.StatusNotFound,
		CodeReferentialConflict: http.StatusConflict,
		CodeInternal:            http.StatusInternalServerError,
		Code("UNKNOWN"):         http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, MetadataFor(code).HTTPStatus, string(code))
	}
}

func TestWithDetails(t *testing.T) {
	err := Validation("invalid input").WithDetails(map[string]string{"name": "is required"})
	assert.Equal(t, map[string]string{"name": "is required"}, err.Details())
}
