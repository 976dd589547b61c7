package domain

import (
	"errors"
	"testing"
	"time"
)

func TestAPIError(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		message   string
		details   string
		requestID string
	}{
		{
			name:      "Basic error",
			code:      ErrInvalidInput,
			message:   "Invalid screening request",
			details:   "questionnaire_score is required",
			requestID: "req-123",
		},
		{
			name:      "Rate limited",
			code:      ErrRateLimit,
			message:   "Too many requests",
			details:   "tenant clinic-a exceeded its request budget",
			requestID: "req-456",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewAPIError(tt.code, tt.message, tt.details, tt.requestID)

			if err.Code != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, err.Code)
			}

			if err.Message != tt.message {
				t.Errorf("Expected message %s, got %s", tt.message, err.Message)
			}

			if err.Details != tt.details {
				t.Errorf("Expected details %s, got %s", tt.details, err.Details)
			}

			if err.RequestID != tt.requestID {
				t.Errorf("Expected requestID %s, got %s", tt.requestID, err.RequestID)
			}

			if time.Since(err.Timestamp) > time.Minute {
				t.Errorf("Timestamp should be recent, got %v", err.Timestamp)
			}

			expectedError := tt.code + ": " + tt.message
			if err.Error() != expectedError {
				t.Errorf("Expected error string %s, got %s", expectedError, err.Error())
			}
		})
	}
}

func TestValidationError(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		message string
		value   interface{}
	}{
		{
			name:    "Missing patient",
			field:   "patient_id",
			message: "is required",
			value:   "",
		},
		{
			name:    "Integer validation error",
			field:   "questionnaire_score",
			message: "is required",
			value:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewValidationError(tt.field, tt.message, tt.value)

			if err.Field != tt.field {
				t.Errorf("Expected field %s, got %s", tt.field, err.Field)
			}

			if err.Message != tt.message {
				t.Errorf("Expected message %s, got %s", tt.message, err.Message)
			}

			if err.Value != tt.value {
				t.Errorf("Expected value %v, got %v", tt.value, err.Value)
			}

			expectedError := "validation error for field '" + tt.field + "': " + tt.message
			if err.Error() != expectedError {
				t.Errorf("Expected error string %s, got %s", expectedError, err.Error())
			}

			var target *ValidationError
			if !errors.As(error(err), &target) {
				t.Errorf("Expected errors.As to match *ValidationError")
			}
		})
	}
}

func TestErrorConstants(t *testing.T) {
	constants := map[string]string{
		"ErrInvalidInput":   ErrInvalidInput,
		"ErrValidation":     ErrValidation,
		"ErrNotFoundCode":   ErrNotFoundCode,
		"ErrRateLimit":      ErrRateLimit,
		"ErrTenantMissing":  ErrTenantMissing,
		"ErrInternalServer": ErrInternalServer,
	}

	expectedValues := map[string]string{
		"ErrInvalidInput":   "INVALID_INPUT",
		"ErrValidation":     "VALIDATION_ERROR",
		"ErrNotFoundCode":   "NOT_FOUND",
		"ErrRateLimit":      "RATE_LIMIT_EXCEEDED",
		"ErrTenantMissing":  "TENANT_REQUIRED",
		"ErrInternalServer": "INTERNAL_SERVER_ERROR",
	}

	for name, actual := range constants {
		expected := expectedValues[name]
		if actual != expected {
			t.Errorf("Expected %s to be %s, got %s", name, expected, actual)
		}
	}
}

func TestOutcome(t *testing.T) {
	ok := Ok(0.42)
	if !ok.IsOK() || ok.Value != 0.42 {
		t.Errorf("Expected ok outcome with 0.42, got %+v", ok)
	}
	if ok.Degradation("classifier") != nil {
		t.Errorf("Expected no degradation for ok outcome")
	}

	deg := Degraded(0.0, "circuit open")
	if deg.IsOK() {
		t.Errorf("Expected degraded outcome not to be ok")
	}
	d := deg.Degradation("classifier")
	if d == nil || d.Component != "classifier" || d.Reason != "circuit open" {
		t.Errorf("Unexpected degradation record %+v", d)
	}

	un := Unavailable(0.0)
	if un.IsOK() || un.Degradation("classifier") != nil {
		t.Errorf("Expected unavailable outcome to be neither ok nor degraded, got %+v", un)
	}
}
