// Package errors provides standardized error handling for the storefront
// conversation pipeline and its BPMN workflow integration.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Conversation / LLM errors
	ErrCodeLLMUnconfigured  ErrorCode = "LLM_UNCONFIGURED"
	ErrCodeLLMRateLimited   ErrorCode = "LLM_RATE_LIMITED"
	ErrCodeLLMRequestFailed ErrorCode = "LLM_REQUEST_FAILED"
	ErrCodeLLMTimeout       ErrorCode = "LLM_TIMEOUT"

	ErrCodeExtractionParseFailure ErrorCode = "EXTRACTION_PARSE_FAILURE"

	// Catalog / search errors
	ErrCodeCatalogConnectionFailed ErrorCode = "CATALOG_CONNECTION_FAILED"
	ErrCodeCatalogQueryFailed      ErrorCode = "CATALOG_QUERY_FAILED"
	ErrCodeCatalogTimeout          ErrorCode = "CATALOG_TIMEOUT"
	ErrCodeIndexNotFound           ErrorCode = "INDEX_NOT_FOUND"

	// External marketplace errors
	ErrCodeMarketplaceLookupFailed ErrorCode = "MARKETPLACE_LOOKUP_FAILED"
	ErrCodeMarketplaceTimeout      ErrorCode = "MARKETPLACE_TIMEOUT"

	// Persistence errors
	ErrCodeDatabaseConnectionFailed    ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed        ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodePersonalizationWriteFailure ErrorCode = "PERSONALIZATION_WRITE_FAILURE"
	ErrCodeSessionStoreFailed          ErrorCode = "SESSION_STORE_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	for k, v := range e.ErrorVariables {
		vars[k] = v
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewLLMUnconfiguredError signals a missing API credential. Not retryable;
// the orchestrator handles it by taking the no-LLM path.
func NewLLMUnconfiguredError() *StandardError {
	return &StandardError{
		Code:      ErrCodeLLMUnconfigured,
		Message:   "LLM API credential is not configured",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewLLMRateLimitedError signals an HTTP 429 from the completion service.
func NewLLMRateLimitedError() *StandardError {
	return &StandardError{
		Code:      ErrCodeLLMRateLimited,
		Message:   "LLM service rate limited",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewLLMRequestFailedError creates a retryable LLM transport error carrying
// the HTTP status code.
func NewLLMRequestFailedError(statusCode int, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeLLMRequestFailed,
		Message:   fmt.Sprintf("LLM request failed with status %d", statusCode),
		Details:   details,
		Retryable: true,
		Metadata:  map[string]interface{}{"statusCode": statusCode},
		Timestamp: time.Now().UTC(),
	}
}

// NewLLMTimeoutError creates a retryable LLM timeout error.
func NewLLMTimeoutError() *StandardError {
	return &StandardError{
		Code:      ErrCodeLLMTimeout,
		Message:   "LLM request timed out",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewExtractionParseFailureError creates a non-retryable extraction error.
// Callers swallow this and fall back to empty hints.
func NewExtractionParseFailureError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeExtractionParseFailure,
		Message:   "Structured extraction returned unparseable output",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCatalogConnectionFailedError creates a retryable search-index connection error.
func NewCatalogConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCatalogConnectionFailed,
		Message:   "Catalog search index connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCatalogQueryFailedError creates a retryable catalog query error.
func NewCatalogQueryFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCatalogQueryFailed,
		Message:   "Catalog search query error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCatalogTimeoutError creates a retryable catalog timeout error.
func NewCatalogTimeoutError() *StandardError {
	return &StandardError{
		Code:      ErrCodeCatalogTimeout,
		Message:   "Catalog search timed out",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewMarketplaceLookupFailedError creates a non-retryable marketplace error.
// Lookups fail soft; this is recorded, not propagated.
func NewMarketplaceLookupFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeMarketplaceLookupFailed,
		Message:   "External marketplace lookup failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPersonalizationWriteFailureError creates a non-retryable personalization
// error. The updater logs it and returns the prior preference document.
func NewPersonalizationWriteFailureError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePersonalizationWriteFailure,
		Message:   "Failed to persist personalization update",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewExternalServiceError creates a retryable error for a named external service.
func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrorCode("EXTERNAL_SERVICE_ERROR"),
		Message:   fmt.Sprintf("External service %s error", service),
		Details:   err.Error(),
		Retryable: true,
		Metadata:  map[string]interface{}{"service": service},
		Timestamp: time.Now().UTC(),
	}
}

// NewTimeoutError creates a retryable timeout error for a named service.
func NewTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrorCode("TIMEOUT_ERROR"),
		Message:   fmt.Sprintf("Operation against %s timed out", service),
		Details:   err.Error(),
		Retryable: true,
		Metadata:  map[string]interface{}{"service": service},
		Timestamp: time.Now().UTC(),
	}
}

// NewSessionStoreFailedError creates a retryable session store error.
func NewSessionStoreFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionStoreFailed,
		Message:   "Chat session store error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended retry count per error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeCatalogConnectionFailed,
		ErrCodeCatalogQueryFailed,
		ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeSessionStoreFailed:
		return 3

	case ErrCodeCatalogTimeout,
		ErrCodeLLMRateLimited:
		return 2

	case ErrCodeLLMTimeout, ErrCodeLLMRequestFailed:
		return 1

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for the engine.
// BPMN error codes are identical to the internal codes.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "LLM") || strings.Contains(codeStr, "EXTRACTION"):
		return "AI"
	case strings.Contains(codeStr, "CATALOG") || strings.Contains(codeStr, "INDEX"):
		return "SEARCH"
	case strings.Contains(codeStr, "MARKETPLACE"):
		return "EXTERNAL"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY") ||
		strings.Contains(codeStr, "PERSONALIZATION") || strings.Contains(codeStr, "SESSION"):
		return "PERSISTENCE"
	default:
		return "OTHER"
	}
}
