package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Common application errors
var (
	// Validation errors
	ErrEmptyQuasiIdentifiers = errors.New("quasi-identifier set is empty")
	ErrUnknownColumn         = errors.New("column not declared in dataset")
	ErrInvalidK              = errors.New("invalid k: must be at least 1")
	ErrInvalidL              = errors.New("invalid l: must be at least 1")
	ErrInvalidT              = errors.New("invalid t: must be between 0 and 1")
	ErrInvalidEpsilon        = errors.New("invalid epsilon: must be positive and finite")
	ErrInvalidSuppression    = errors.New("invalid suppression limit: must be between 0 and 1")
	ErrInvalidSampleSize     = errors.New("invalid sample size percentage")
	ErrInvalidMultiplier     = errors.New("invalid population multiplier: must be positive")
	ErrInvalidTargetSize     = errors.New("invalid target size percentage: must be positive")
	ErrInvalidMechanism      = errors.New("unknown noise mechanism")
	ErrInvalidDiversityModel = errors.New("unknown l-diversity model")
	ErrMissingSensitive      = errors.New("sensitive attribute is required")
	ErrInvalidScore          = errors.New("invalid score: must be between 0 and 1")
	ErrInvalidInputData      = errors.New("invalid input data")
	ErrInvalidFormat         = errors.New("invalid data format")
	ErrTooManyRecords        = errors.New("dataset exceeds the record limit")
	ErrNotAnonymization      = errors.New("operation holds no anonymized dataset")

	// Storage errors
	ErrOperationNotFound       = errors.New("operation not found")
	ErrStorageConnectionFailed = errors.New("storage connection failed")

	// Configuration errors
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// Internal errors
	ErrInternal = errors.New("internal error")
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypePrivacy       ErrorType = "privacy"
	ErrorTypeStorage       ErrorType = "storage"
	ErrorTypeConfiguration ErrorType = "configuration"
	ErrorTypeCancelled     ErrorType = "cancelled"
	ErrorTypeInternal      ErrorType = "internal"
)

// AppError represents an application-specific error with additional context
type AppError struct {
	Type       ErrorType              `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	Context    map[string]interface{} `json:"context,omitempty"`
	HTTPStatus int                    `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s - %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:       errType,
		Code:       code,
		Message:    message,
		HTTPStatus: getDefaultHTTPStatus(errType),
	}
}

// WrapError wraps an existing error with application context
func WrapError(err error, errType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:       errType,
		Code:       code,
		Message:    message,
		Cause:      err,
		HTTPStatus: getDefaultHTTPStatus(errType),
	}
}

// NewValidationError creates a validation error
func NewValidationError(code, message string) *AppError {
	return NewAppError(ErrorTypeValidation, code, message)
}

// InvalidArgument wraps a sentinel validation error so callers can match it
// with errors.Is while the HTTP layer still sees a 400.
func InvalidArgument(sentinel error, code, message string) *AppError {
	return WrapError(sentinel, ErrorTypeValidation, code, message)
}

// NewConfigurationError creates a configuration error
func NewConfigurationError(code, message string) *AppError {
	return WrapError(ErrInvalidConfiguration, ErrorTypeConfiguration, code, message)
}

// NewInternalError creates an internal error
func NewInternalError(message string) *AppError {
	return WrapError(ErrInternal, ErrorTypeInternal, CodeInternalError, message)
}

// AsAppError returns the AppError in err's chain, if any.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// StatusCode returns the HTTP status that best describes err.
func StatusCode(err error) int {
	if appErr, ok := AsAppError(err); ok && appErr.HTTPStatus != 0 {
		return appErr.HTTPStatus
	}
	return 500
}

// getDefaultHTTPStatus returns the default HTTP status for an error type
func getDefaultHTTPStatus(errType ErrorType) int {
	switch errType {
	case ErrorTypeValidation:
		return 400
	case ErrorTypeStorage:
		return 404
	case ErrorTypePrivacy:
		return 422
	case ErrorTypeCancelled:
		return 499
	case ErrorTypeConfiguration:
		return 503
	default:
		return 500
	}
}

// ErrorResponse represents an error response for APIs
type ErrorResponse struct {
	Error     *AppError `json:"error"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp string    `json:"timestamp"`
	Path      string    `json:"path,omitempty"`
}

// ValidationErrorDetail represents detailed validation error information
type ValidationErrorDetail struct {
	Field   string      `json:"field"`
	Value   interface{} `json:"value,omitempty"`
	Message string      `json:"message"`
	Code    string      `json:"code"`
}

// ValidationErrors represents multiple validation errors
type ValidationErrors struct {
	Message string                  `json:"message"`
	Errors  []ValidationErrorDetail `json:"errors"`
}

// Error implements the error interface for ValidationErrors
func (ve *ValidationErrors) Error() string {
	if len(ve.Errors) == 0 {
		return ve.Message
	}
	parts := make([]string, len(ve.Errors))
	for i, d := range ve.Errors {
		parts[i] = d.Field + ": " + d.Message
	}
	return fmt.Sprintf("%s: %s", ve.Message, strings.Join(parts, "; "))
}

// Add adds a validation error
func (ve *ValidationErrors) Add(field, code, message string, value interface{}) {
	ve.Errors = append(ve.Errors, ValidationErrorDetail{
		Field:   field,
		Value:   value,
		Message: message,
		Code:    code,
	})
}

// HasErrors checks if there are any validation errors
func (ve *ValidationErrors) HasErrors() bool {
	return len(ve.Errors) > 0
}

// NewValidationErrors creates a new ValidationErrors instance
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Message: "Validation failed",
		Errors:  make([]ValidationErrorDetail, 0),
	}
}

// Error codes for different error scenarios
const (
	// Validation error codes
	CodeInvalidInput          = "INVALID_INPUT"
	CodeMissingField          = "MISSING_FIELD"
	CodeInvalidFormat         = "INVALID_FORMAT"
	CodeOutOfRange            = "OUT_OF_RANGE"
	CodeEmptyQuasiIdentifiers = "EMPTY_QUASI_IDENTIFIERS"
	CodeUnknownColumn         = "UNKNOWN_COLUMN"
	CodeInvalidK              = "INVALID_K"
	CodeInvalidL              = "INVALID_L"
	CodeInvalidT              = "INVALID_T"
	CodeInvalidEpsilon        = "INVALID_EPSILON"
	CodeInvalidSuppression    = "INVALID_SUPPRESSION_LIMIT"
	CodeInvalidSampleSize     = "INVALID_SAMPLE_SIZE"
	CodeInvalidMultiplier     = "INVALID_POPULATION_MULTIPLIER"
	CodeInvalidTargetSize     = "INVALID_TARGET_SIZE"
	CodeInvalidMechanism      = "INVALID_MECHANISM"
	CodeInvalidDiversityModel = "INVALID_DIVERSITY_MODEL"
	CodeMissingSensitive      = "MISSING_SENSITIVE_ATTRIBUTE"
	CodeInvalidScore          = "INVALID_SCORE"
	CodeTooManyRecords        = "TOO_MANY_RECORDS"
	CodeNotAnonymization      = "NOT_ANONYMIZATION"
	CodeRequestTooLarge       = "REQUEST_TOO_LARGE"
	CodeRouteNotFound         = "ROUTE_NOT_FOUND"
	CodeMethodNotAllowed      = "METHOD_NOT_ALLOWED"

	// Privacy error codes
	CodeNoiseFailed = "NOISE_FAILED"

	// Storage error codes
	CodeStorageError     = "STORAGE_ERROR"
	CodeConnectionFailed = "CONNECTION_FAILED"
	CodeDataNotFound     = "DATA_NOT_FOUND"
	CodeWriteFailed      = "WRITE_FAILED"
	CodeReadFailed       = "READ_FAILED"

	// Configuration error codes
	CodeInvalidConfig = "INVALID_CONFIG"

	// Internal error codes
	CodeCancelled     = "CANCELLED"
	CodeInternalError = "INTERNAL_ERROR"
)
