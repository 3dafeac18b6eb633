package errors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	wrapped := fmt.Errorf("loading: %w", ErrInvalidStatus)
	got := FromError(wrapped)
	assert.Equal(t, "INVALID_STATUS", got.Code)
	assert.Equal(t, http.StatusBadRequest, got.Status)
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	got := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, got.Code)
	assert.Equal(t, http.StatusInternalServerError, got.Status)
	assert.EqualError(t, got, "internal server error: boom")
}

func TestCloneOverridesMessageOnly(t *testing.T) {
	clone := Clone(ErrNotFound, "collection not found")
	assert.Equal(t, ErrNotFound.Code, clone.Code)
	assert.Equal(t, "collection not found", clone.Message)
	assert.Equal(t, "resource not found", ErrNotFound.Message)
	assert.Nil(t, FromError(nil))
}

func TestIsMatchesClonesByCode(t *testing.T) {
	clone := Clone(ErrNotFound, "session not found")
	assert.True(t, errors.Is(fmt.Errorf("update: %w", clone), ErrNotFound))
	assert.False(t, errors.Is(clone, ErrNotShared))
	assert.False(t, errors.Is(errors.New("plain"), ErrNotFound))
}

func TestDateRangeIsDistinctFromValidation(t *testing.T) {
	validation := Clone(ErrValidation, "invalid start_date, expected YYYY-MM-DD")
	assert.False(t, errors.Is(validation, ErrInvalidDateRange))
	assert.False(t, errors.Is(ErrInvalidDateRange, ErrValidation))
	assert.True(t, errors.Is(fmt.Errorf("create: %w", ErrInvalidDateRange), ErrInvalidDateRange))
	assert.Equal(t, http.StatusBadRequest, FromError(ErrInvalidDateRange).Status)
}

func TestStorageClassifiesRepositoryErrors(t *testing.T) {
	assert.Nil(t, Storage(nil, "course", "load"))

	notFound := Storage(fmt.Errorf("find course: %w", sql.ErrNoRows), "course", "load")
	assert.Equal(t, ErrNotFound.Code, notFound.Code)
	assert.Equal(t, "course not found", notFound.Message)

	typed := Storage(ErrInvalidStatus, "session", "update")
	assert.Equal(t, "INVALID_STATUS", typed.Code)

	internal := Storage(errors.New("connection reset"), "collection", "delete")
	assert.Equal(t, http.StatusInternalServerError, internal.Status)
	assert.Equal(t, "failed to delete collection", internal.Message)
}

func TestFromErrorMapsDeadline(t *testing.T) {
	got := FromError(fmt.Errorf("list sessions: %w", context.DeadlineExceeded))
	assert.Equal(t, http.StatusGatewayTimeout, got.Status)
	assert.Equal(t, "TIMEOUT", got.Code)
}
