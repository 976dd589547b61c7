package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors shared by the services and stores. Wrap them with %w.
var (
	ErrNotFound              = errors.New("not found")
	ErrTenantRequired        = errors.New("tenant id is required")
	ErrInvalidInterpretation = errors.New("invalid risk interpretation")
	ErrInvalidConfidence     = errors.New("invalid confidence level")
	ErrInvalidFusionMethod   = errors.New("invalid fusion method")
	ErrInvalidVerdict        = errors.New("invalid review verdict")
)

// Codes carried in APIError.Code.
const (
	ErrInvalidInput   = "INVALID_INPUT"
	ErrValidation     = "VALIDATION_ERROR"
	ErrNotFoundCode   = "NOT_FOUND"
	ErrRateLimit      = "RATE_LIMIT_EXCEEDED"
	ErrTenantMissing  = "TENANT_REQUIRED"
	ErrInternalServer = "INTERNAL_SERVER_ERROR"
)

// APIError is the JSON body of every failed HTTP request.
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAPIError stamps the error with the current UTC time.
func NewAPIError(code, message, details, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// ValidationError rejects a request field before it reaches the engine.
// Field may carry an index path such as "sessions[1].focus_drift".
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func NewValidationError(field, message string, value any) *ValidationError {
	return &ValidationError{Field: field, Message: message, Value: value}
}
