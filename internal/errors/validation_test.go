package errors

import (
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError(t *testing.T) {
	err := NewValidationError("difficulty", "is required", nil)

	assert.Equal(t, "difficulty", err.Field)
	assert.Equal(t, "validation error on field 'difficulty': is required", err.Error())

	withRule := NewValidationErrorWithRule("type", "is required", "required", "")
	assert.Equal(t, "required", withRule.Rule)
}

func TestValidationErrors_Error(t *testing.T) {
	var errs ValidationErrors
	assert.Equal(t, "validation failed", errs.Error())

	errs = errs.Add("subject_id", "is required", nil)
	assert.Equal(t, "validation failed: subject_id is required", errs.Error())

	errs = errs.Add("test_type", "must be a valid test type", "final")
	assert.Equal(t, "validation failed: 2 field errors", errs.Error())
	assert.Equal(t, []string{"subject_id", "test_type"}, errs.Fields())
}

func TestToValidationErrors(t *testing.T) {
	type request struct {
		SubjectID      string  `validate:"required"`
		Discrimination float64 `validate:"gt=0"`
	}

	err := validator.New().Struct(request{Discrimination: -1})
	require.Error(t, err)

	errs := ToValidationErrors(fmt.Errorf("wrapped: %w", err))
	require.Len(t, errs, 2)
	assert.Equal(t, "SubjectID", errs[0].Field)
	assert.Equal(t, "is required", errs[0].Message)
	assert.Equal(t, "gt", errs[1].Rule)
	assert.Equal(t, "must be greater than 0", errs[1].Message)

	assert.Nil(t, ToValidationErrors(fmt.Errorf("not a validation error")))
}
