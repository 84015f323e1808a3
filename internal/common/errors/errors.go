// Package errors provides standardized error handling for the dialogue engine.
package errors

import (
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeConfigNotLoaded         ErrorCode = "CONFIG_NOT_LOADED"
	ErrCodeCatalogValidationFailed ErrorCode = "CATALOG_VALIDATION_FAILED"

	ErrCodeActionDispatchFailed ErrorCode = "ACTION_DISPATCH_FAILED"
	ErrCodeUnknownActionKind    ErrorCode = "UNKNOWN_ACTION_KIND"

	ErrCodeCacheUnavailable ErrorCode = "CACHE_UNAVAILABLE"

	ErrCodeHandoffNotifyFailed ErrorCode = "HANDOFF_NOTIFY_FAILED"
	ErrCodeAuditIndexFailed    ErrorCode = "AUDIT_INDEX_FAILED"

	ErrCodeTechnicalIssue ErrorCode = "TECHNICAL_ISSUE"
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

// NewConfigNotLoadedError signals that no intent catalog is active.
// Classification degrades to "unknown" in this state; this error only
// surfaces from explicit load/reload attempts.
func NewConfigNotLoadedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfigNotLoaded,
		Message:   "No chatbot catalog loaded",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCatalogValidationFailedError creates a non-retryable catalog schema error.
func NewCatalogValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCatalogValidationFailed,
		Message:   "Chatbot catalog failed schema validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewActionDispatchFailedError creates a retryable action dispatch error.
func NewActionDispatchFailedError(kind, endpoint string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeActionDispatchFailed,
		Message:   "Action dispatch failed",
		Details:   fmt.Sprintf("kind: %s, endpoint: %s, error: %s", kind, endpoint, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnknownActionKindError creates a non-retryable error for unregistered kinds.
func NewUnknownActionKindError(kind string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnknownActionKind,
		Message:   "Unrecognized action kind",
		Details:   fmt.Sprintf("kind: %s", kind),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCacheUnavailableError creates a retryable cache backend error.
func NewCacheUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCacheUnavailable,
		Message:   "Response cache backend error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewHandoffNotifyFailedError creates a retryable handoff notification error.
func NewHandoffNotifyFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeHandoffNotifyFailed,
		Message:   "Escalation handoff notification failed",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAuditIndexFailedError creates a retryable audit indexing error.
func NewAuditIndexFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuditIndexFailed,
		Message:   "Escalation audit indexing failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewTechnicalIssueError wraps an unexpected internal fault. The pipeline
// converts these into an escalation result, never a raw error to the caller.
func NewTechnicalIssueError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTechnicalIssue,
		Message:   "Unexpected internal fault during message processing",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// IsRetryable reports whether the error carries a retryable code.
func IsRetryable(err error) bool {
	if se, ok := err.(*StandardError); ok {
		return se.Retryable
	}
	return false
}
