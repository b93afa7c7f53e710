package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_StatusCode(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, NotFound("No order found").StatusCode())
	assert.Equal(t, http.StatusBadRequest, InvalidArgument("Invalid status").StatusCode())
	assert.Equal(t, http.StatusRequestEntityTooLarge, TooLarge("Request body too large").StatusCode())
	assert.Equal(t, http.StatusInternalServerError, (&Error{}).StatusCode())
}

func TestAs_ThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("failed to delete order: %w", InvalidArgument("Delivered orders cannot be deleted"))

	appErr, ok := As(wrapped)
	assert.True(t, ok)
	assert.Equal(t, "Delivered orders cannot be deleted", appErr.Message)
	assert.True(t, IsInvalidArgument(wrapped))
	assert.False(t, IsNotFound(wrapped))

	_, ok = As(errors.New("connection reset"))
	assert.False(t, ok)
}
