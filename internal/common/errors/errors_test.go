package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorWrapping(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := NewDatabaseError("get giveaway", cause)

	require.ErrorIs(t, err, cause)
	assert.Equal(t, ErrCodeDatabaseError, err.Code)
	assert.Contains(t, err.Error(), "DATABASE_ERROR")
	assert.Contains(t, err.Error(), "connection refused")
	assert.True(t, err.IsInternal())
}

func TestAppErrorClassification(t *testing.T) {
	assert.True(t, NewValidationError("prize", "must not be empty").IsValidation())
	assert.True(t, NewNotFoundError("giveaway", "msg-1").IsNotFound())
	assert.True(t, New(ErrCodeGiveawayNotFound, "gone").IsNotFound())
	assert.True(t, NewStoreCorruptionError("giveaway:msg-1", fmt.Errorf("bad json")).IsInternal())
	assert.False(t, NewExternalAPIError("post announcement", fmt.Errorf("timeout")).IsInternal())
}

func TestWithDetail(t *testing.T) {
	err := New(ErrCodeInternal, "boom").WithDetail("key", "value")

	require.NotNil(t, err.Details)
	assert.Equal(t, "value", err.Details["key"])
}

func TestAsAppError(t *testing.T) {
	appErr, ok := AsAppError(NewForbiddenError("staff token required"))
	require.True(t, ok)
	assert.Equal(t, ErrCodeForbidden, appErr.Code)

	_, ok = AsAppError(errors.New("plain"))
	assert.False(t, ok)

	_, ok = AsAppError(nil)
	assert.False(t, ok)
}
