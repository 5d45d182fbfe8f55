package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorsIs(t *testing.T) {
	cause := errors.New("connection reset")

	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{"not found", NotFound("post", "abc"), ErrNotFound, true},
		{"validation", ValidationFailed("email", "email is required"), ErrValidation, true},
		{"conflict", Conflict("email already exists"), ErrConflict, true},
		{"configuration is not unauthorized", Configuration("CRON_SECRET"), ErrUnauthorized, false},
		{"generation keeps sentinel", Generation("invalid json", cause), ErrGeneration, true},
		{"generation keeps cause", Generation("invalid json", cause), cause, true},
		{"persistence wrapped", fmt.Errorf("insert post: %w", Persistence("insert", cause)), ErrPersistence, true},
		{"not found is not validation", NotFound("post", "abc"), ErrValidation, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMatch, errors.Is(tt.err, tt.target))
		})
	}
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "post not found with id my-slug", NotFound("post", "my-slug").Error())
	assert.Equal(t, "CRON_SECRET is not configured", Configuration("CRON_SECRET").Error())
	assert.Equal(t, "insert failed: boom", Persistence("insert", errors.New("boom")).Error())
}

func TestInvalidFields(t *testing.T) {
	err := InvalidFields([]FieldError{
		{Field: "email", Message: "email must be a valid email address"},
		{Field: "name", Message: "name is a required field"},
	})

	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "email", err.Field)
	assert.Len(t, err.Fields, 2)

	var appErr *AppError
	assert.True(t, errors.As(fmt.Errorf("register: %w", err), &appErr))
	assert.Equal(t, "request validation failed", appErr.Message)
}
