package validator

import (
	"fmt"

	"github.com/SAP-F-2025/adaptive-assessment/internal/errors"
	"github.com/SAP-F-2025/adaptive-assessment/internal/models"
)

type ValidationError = errors.ValidationError
type ValidationErrors = errors.ValidationErrors

// structErrors reports tag failures by JSON field name. Anything that is not
// a field failure, such as a nil or non-struct target, is returned unchanged.
func structErrors(err error) error {
	if errs := errors.ToValidationErrors(err); len(errs) > 0 {
		return errs
	}
	return err
}

// ImportErrors pins item rule failures to the spreadsheet row they came from.
func ImportErrors(row int, errs ValidationErrors) []models.ImportValidationError {
	if len(errs) == 0 {
		return nil
	}
	out := make([]models.ImportValidationError, len(errs))
	for i, ve := range errs {
		value := ""
		if ve.Value != nil {
			value = fmt.Sprint(ve.Value)
		}
		out[i] = models.ImportValidationError{Row: row, Column: ve.Field, Message: ve.Message, Value: value}
	}
	return out
}
