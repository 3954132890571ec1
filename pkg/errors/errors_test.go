package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapExpandsValidationDetails(t *testing.T) {
	type payload struct {
		Email    string `validate:"required,email"`
		Password string `validate:"min=6"`
	}
	err := validator.New().Struct(payload{Email: "nope", Password: "123"})
	require.Error(t, err)

	wrapped := Wrap(err, ErrValidation.Code, http.StatusBadRequest, "invalid payload")
	assert.Equal(t, map[string]string{"Email": "email", "Password": "min=6"}, wrapped.Details)
	assert.ErrorIs(t, wrapped, err)
}

func TestWrapWithoutValidationHasNoDetails(t *testing.T) {
	wrapped := Wrap(errors.New("boom"), ErrInternal.Code, ErrInternal.Status, "failed")
	assert.Nil(t, wrapped.Details)
	assert.Equal(t, "failed: boom", wrapped.Error())
}

func TestFromErrorHidesUnknownErrors(t *testing.T) {
	appErr := FromError(fmt.Errorf("query: %w", errors.New("pq: relation missing")))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, ErrInternal.Message, appErr.Message)

	typed := Clone(ErrNotFound, "application not found")
	assert.Same(t, typed, FromError(fmt.Errorf("wrapped: %w", typed)))
}

func TestIsComparesCodes(t *testing.T) {
	assert.True(t, Is(Clone(ErrConflict, "dup"), ErrConflict))
	assert.False(t, Is(errors.New("x"), ErrConflict))
	assert.False(t, Is(nil, ErrConflict))
}

func TestCloneKeepsOriginal(t *testing.T) {
	clone := Clone(ErrForbidden, "")
	assert.Equal(t, ErrForbidden.Message, clone.Message)
	clone.Message = "changed"
	assert.Equal(t, "forbidden", ErrForbidden.Message)
	assert.Nil(t, Clone(nil, "x"))
}
