package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("create order: %w", InsufficientStock(7, 5, 2))

	assert.Equal(t, KindConflict, KindOf(wrapped))
	assert.Equal(t, CodeInsufficientStock, CodeOf(wrapped))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
}

func TestErrorsIs_MatchesKindAndCode(t *testing.T) {
	err := fmt.Errorf("ship: %w", InvalidTransition("PENDING", "SHIPPED"))

	assert.True(t, errors.Is(err, Conflict(CodeInvalidTransition, "")))
	assert.False(t, errors.Is(err, Conflict(CodeInsufficientStock, "")))
	assert.False(t, errors.Is(err, NotFound("")))
}

func TestInternal_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal("failed to load cart", cause)

	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "connection reset")
}
