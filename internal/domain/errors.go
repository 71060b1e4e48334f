package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies engine failures.
type ErrorKind string

// Error kinds for different failure scenarios
const (
	KindInvalidInput   ErrorKind = "INVALID_INPUT"
	KindUnsupportedAge ErrorKind = "UNSUPPORTED_AGE"
	KindOutOfDomain    ErrorKind = "OUT_OF_DOMAIN"
	KindInvalidConfig  ErrorKind = "INVALID_CONFIG"
)

// Sentinels matched by EngineError.Is.
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnsupportedAge = errors.New("unsupported age")
	ErrInvalidConfig  = errors.New("invalid engine configuration")
	ErrOutOfDomain    = errors.New("result outside the model domain")
	ErrNotFound       = errors.New("not found")
)

// EngineError is returned by the estimation engine for a single evaluation.
type EngineError struct {
	Kind    ErrorKind   `json:"kind"`
	Field   string      `json:"field,omitempty"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Error implements the error interface
func (e *EngineError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: field '%s': %s", e.Kind, e.Field, e.Message)
}

// Is lets errors.Is match the kind sentinels.
func (e *EngineError) Is(target error) bool {
	switch target {
	case ErrInvalidInput:
		return e.Kind == KindInvalidInput
	case ErrUnsupportedAge:
		return e.Kind == KindUnsupportedAge
	case ErrInvalidConfig:
		return e.Kind == KindInvalidConfig
	case ErrOutOfDomain:
		return e.Kind == KindOutOfDomain
	}
	return false
}

// NewInvalidInput creates an INVALID_INPUT error for a field.
func NewInvalidInput(field, message string, value interface{}) *EngineError {
	return &EngineError{Kind: KindInvalidInput, Field: field, Message: message, Value: value}
}

// NewUnsupportedAge creates an UNSUPPORTED_AGE error.
func NewUnsupportedAge(age, maxAge float64) *EngineError {
	return &EngineError{
		Kind:    KindUnsupportedAge,
		Field:   "age",
		Message: fmt.Sprintf("age %.1f exceeds the supported pediatric range (max %.0f)", age, maxAge),
		Value:   age,
	}
}

// NewOutOfDomain creates an OUT_OF_DOMAIN error for a derived value the
// formulas cannot represent. It carries no value since the offending number
// is typically not JSON encodable.
func NewOutOfDomain(field, message string) *EngineError {
	return &EngineError{Kind: KindOutOfDomain, Field: field, Message: message}
}

// NewInvalidConfig creates an INVALID_CONFIG error.
func NewInvalidConfig(field, message string, value interface{}) *EngineError {
	return &EngineError{Kind: KindInvalidConfig, Field: field, Message: message, Value: value}
}

// ValidationError represents a single form field that failed to parse
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// Is treats parse failures as invalid input.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// ValidationErrors aggregates every field error found while parsing a form.
type ValidationErrors []*ValidationError

// Error implements the error interface
func (v ValidationErrors) Error() string {
	if len(v) == 1 {
		return v[0].Error()
	}
	return fmt.Sprintf("%d validation errors, first: %s", len(v), v[0].Error())
}

// Is treats parse failures as invalid input.
func (v ValidationErrors) Is(target error) bool {
	return target == ErrInvalidInput
}

// APIError represents a standardized error response for HTTP and MCP callers
type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// API error codes that are not engine kinds
const (
	CodeNotFound       = "NOT_FOUND"
	CodeRateLimit      = "RATE_LIMIT_EXCEEDED"
	CodeInternalServer = "INTERNAL_SERVER_ERROR"
	CodeBadRequest     = "BAD_REQUEST"
)

// NewAPIError creates a new APIError with timestamp
func NewAPIError(code, message string, details interface{}, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// APIErrorFrom converts any evaluation error into its API form.
func APIErrorFrom(err error, requestID string) *APIError {
	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		return NewAPIError(string(engineErr.Kind), engineErr.Message, engineErr, requestID)
	}
	var fieldErrs ValidationErrors
	if errors.As(err, &fieldErrs) {
		return NewAPIError(string(KindInvalidInput), "input validation failed", fieldErrs, requestID)
	}
	var fieldErr *ValidationError
	if errors.As(err, &fieldErr) {
		return NewAPIError(string(KindInvalidInput), fieldErr.Message, fieldErr, requestID)
	}
	if errors.Is(err, ErrNotFound) {
		return NewAPIError(CodeNotFound, err.Error(), nil, requestID)
	}
	return NewAPIError(CodeInternalServer, err.Error(), nil, requestID)
}
