package utils

import (
	"net/http"
	"regexp"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
)

// APIError is the standardized error body returned by every handler.
type APIError struct {
	StatusCode int               `json:"-"`
	Code       string            `json:"code,omitempty"`
	Message    string            `json:"message"`
	MessageSV  string            `json:"message_sv,omitempty"` // shown verbatim by the mobile client
	Details    string            `json:"details,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
}

// NewAPIError creates a new APIError instance
func NewAPIError(statusCode int, code string, message string, details string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
		Details:    details,
	}
}

// WithSwedish attaches the user-facing Swedish message.
func (e *APIError) WithSwedish(msg string) *APIError {
	e.MessageSV = msg
	return e
}

// RespondWithError sends a standardized JSON error response
func RespondWithError(c *gin.Context, err *APIError) {
	c.JSON(err.StatusCode, gin.H{"error": err})
	c.Abort()
}

const (
	ErrCodeBadRequest          = "BAD_REQUEST"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeConflict            = "CONFLICT"
	ErrCodePaymentRequired     = "PAYMENT_REQUIRED"
	ErrCodeInternalServerError = "INTERNAL_SERVER_ERROR"
	ErrCodeServiceUnavailable  = "SERVICE_UNAVAILABLE"
	ErrCodeValidationFailed    = "VALIDATION_FAILED"
	ErrCodeRateLimited         = "RATE_LIMITED"
)

// Validation functions

// IsEmpty checks if a string is empty after trimming whitespace.
func IsEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}

var emailRegex = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`)

// IsValidEmail checks if a string is a valid email format.
func IsValidEmail(email string) bool {
	return emailRegex.MatchString(strings.ToLower(strings.TrimSpace(email)))
}

// IsValidPasswordLength checks if password meets minimum length requirement.
func IsValidPasswordLength(password string, minLength int) bool {
	return len(password) >= minLength
}

// IsStrongPassword requires the minimum length plus at least one letter and one digit.
func IsStrongPassword(password string, minLength int) bool {
	if !IsValidPasswordLength(password, minLength) {
		return false
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}

// IsValidPhone accepts 7-15 digits with an optional leading "+", spaces and dashes.
func IsValidPhone(phone string) bool {
	phone = strings.TrimSpace(phone)
	phone = strings.TrimPrefix(phone, "+")
	digits := 0
	for _, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == ' ' || r == '-':
		default:
			return false
		}
	}
	return digits >= 7 && digits <= 15
}

var postalCodeRegex = regexp.MustCompile(`^\d{3} ?\d{2}$`)

// IsValidPostalCode checks the Swedish "NNN NN" / "NNNNN" format.
func IsValidPostalCode(code string) bool {
	return postalCodeRegex.MatchString(strings.TrimSpace(code))
}

// NormalizePostalCode formats a valid postal code as "NNN NN".
func NormalizePostalCode(code string) string {
	digits := strings.ReplaceAll(strings.TrimSpace(code), " ", "")
	if len(digits) != 5 {
		return strings.TrimSpace(code)
	}
	return digits[:3] + " " + digits[3:]
}

// RespondValidationFailed returns a standard validation error.
func RespondValidationFailed(c *gin.Context, details string) {
	RespondWithError(c, NewAPIError(http.StatusBadRequest, ErrCodeValidationFailed, "Input validation failed", details))
}

// RespondFieldErrors returns a validation error listing every failing field.
func RespondFieldErrors(c *gin.Context, fields map[string]string) {
	apiErr := NewAPIError(http.StatusBadRequest, ErrCodeValidationFailed, "Input validation failed", "")
	apiErr.Fields = fields
	apiErr.MessageSV = "Kontrollera de markerade fälten."
	RespondWithError(c, apiErr)
}
