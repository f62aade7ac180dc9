package services

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/adaptive-assessment/internal/engine"
	apperrors "github.com/SAP-F-2025/adaptive-assessment/internal/errors"
	"github.com/SAP-F-2025/adaptive-assessment/internal/itembank"
)

// ===== COMMON SERVICE ERRORS =====

var (
	ErrNotFound         = errors.New("resource not found")
	ErrUnauthorized     = errors.New("unauthorized access")
	ErrForbidden        = errors.New("forbidden - insufficient permissions")
	ErrValidationFailed = errors.New("validation failed")
	ErrConflict         = errors.New("resource conflict")

	// Session specific errors
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionConflict = errors.New("session was modified by another request")
	ErrReportNotFound  = errors.New("session report not found")

	// Item specific errors
	ErrItemNotFound    = errors.New("item not found")
	ErrItemBankEmpty   = errors.New("item bank has no active items")
	ErrUnsupportedFile = errors.New("unsupported import file format")
)

// ===== CUSTOM ERROR TYPES =====

type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

type BusinessRuleError struct {
	Rule    string                 `json:"rule"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}

func (bre *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule violation (%s): %s", bre.Rule, bre.Message)
}

func NewBusinessRuleError(rule, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{
		Rule:    rule,
		Message: message,
		Context: context,
	}
}

// ===== ERROR HELPERS =====

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrReportNotFound) ||
		errors.Is(err, ErrItemNotFound)
}

func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsForbidden checks if the caller may not act on the resource
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) ||
		errors.Is(err, ErrUnsupportedFile) ||
		errors.Is(err, engine.ErrInvalidTestType) ||
		errors.Is(err, engine.ErrInvalidResponseTime) {
		return true
	}
	var ve apperrors.ValidationErrors
	return errors.As(err, &ve)
}

// IsBusinessRule checks if error represents a business rule violation
func IsBusinessRule(err error) bool {
	var bre *BusinessRuleError
	return errors.As(err, &bre) ||
		errors.Is(err, ErrItemBankEmpty) ||
		errors.Is(err, itembank.ErrPoolExhausted) ||
		errors.Is(err, engine.ErrSessionAbandoned) ||
		errors.Is(err, engine.ErrSessionInProgress) ||
		errors.Is(err, engine.ErrUnknownItem)
}

// IsConflict checks if error represents a state conflict with the session
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrSessionConflict) ||
		errors.Is(err, engine.ErrOutOfOrderSubmission) ||
		errors.Is(err, engine.ErrSessionTerminal) ||
		errors.Is(err, engine.ErrSessionAlreadyStarted) ||
		errors.Is(err, engine.ErrSessionNotStarted)
}
