package dto

import "net/http"

// Error code constants
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeValidation is used when request validation fails
	ErrCodeValidation = "ERR_VALIDATION"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeConflict is used for resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes. Domain codes
// are mapped directly so handlers can pass them through unchanged.
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:    http.StatusInternalServerError,
	ErrCodeInternal:   http.StatusInternalServerError,
	ErrCodeBadRequest: http.StatusBadRequest,
	ErrCodeValidation: http.StatusBadRequest,
	ErrCodeNotFound:   http.StatusNotFound,
	ErrCodeConflict:   http.StatusConflict,

	// Malformed documents and configuration
	"ETIMS_INVALID_INVOICE":      http.StatusBadRequest,
	"ETIMS_INVALID_CONFIG":       http.StatusBadRequest,
	"ETIMS_NO_LINE_ITEMS":        http.StatusBadRequest,
	"ETIMS_UNKNOWN_VAT_CATEGORY": http.StatusBadRequest,
	"ETIMS_MISSING_CREDENTIALS":  http.StatusBadRequest,

	// Missing resources
	"ETIMS_INVOICE_NOT_FOUND": http.StatusNotFound,
	"ETIMS_NO_ACTIVE_CONFIG":  http.StatusNotFound,

	// Conflicts with existing state
	"ETIMS_DUPLICATE_SALE":         http.StatusConflict,
	"ETIMS_ALREADY_INITIALIZED":    http.StatusConflict,
	"ETIMS_SUBMISSION_IN_PROGRESS": http.StatusConflict,

	// Operations the current lifecycle state forbids
	"ETIMS_NOT_INITIALIZED":   http.StatusUnprocessableEntity,
	"ETIMS_INVOICE_FINALIZED": http.StatusUnprocessableEntity,
	"ETIMS_RETRY_CEILING":     http.StatusUnprocessableEntity,
	"ETIMS_TOTALS_MISMATCH":   http.StatusUnprocessableEntity,
	"INVALID_STATE":           http.StatusUnprocessableEntity,

	// Upstream and numbering trouble
	"ETIMS_NUMBERING_UNAVAILABLE": http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
