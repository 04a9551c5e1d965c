// Package apperrors implements the error taxonomy of the extraction
// pipeline: AuthError, NavigationError, PluginError, StorageError,
// PersistenceError and ConfigError, each carrying the context a worker
// needs to log and accumulate without ever leaking credential material.
package apperrors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ErrorCode identifies the taxonomy member an AppError belongs to.
type ErrorCode string

const (
	ErrCodeAuth        ErrorCode = "auth_error"
	ErrCodeNavigation  ErrorCode = "navigation_error"
	ErrCodePlugin      ErrorCode = "plugin_error"
	ErrCodeStorage     ErrorCode = "storage_error"
	ErrCodePersistence ErrorCode = "persistence_error"
	ErrCodeConfig      ErrorCode = "config_error"
	ErrCodeNotFound    ErrorCode = "not_found"
	ErrCodeConflict    ErrorCode = "conflict"
	ErrCodeInternal    ErrorCode = "internal_error"
)

// AppError represents a structured pipeline error.
type AppError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp string    `json:"timestamp"`

	// Stage describes where in the pipeline the error occurred
	// (e.g. "login", "list_processes", "classify_access").
	Stage string `json:"stage,omitempty"`
	// Fatal marks an error as run-level (aborts the whole task) as
	// opposed to per-process (accumulated in the task summary).
	Fatal bool `json:"-"`
}

func (e *AppError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("%s: %s", e.Stage, e.Message)
	}
	return e.Message
}

func newError(code ErrorCode, message, details string, fatal bool) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().Format(time.RFC3339),
		Fatal:     fatal,
	}
}

// NewAuthError wraps a bad-credentials or expired-session failure.
// Fatal only after a re-login attempt has already failed once.
func NewAuthError(message string, fatal bool) *AppError {
	return newError(ErrCodeAuth, message, "", fatal)
}

// NewNavigationError wraps a timeout, network, or unexpected-page failure.
func NewNavigationError(err error, stage string) *AppError {
	appErr := newError(ErrCodeNavigation, "navigation failed", err.Error(), false)
	appErr.Stage = stage
	return appErr
}

// NewPluginError wraps a selector-miss or classifier confusion. Fatal
// to the one process it occurred in, never to the run.
func NewPluginError(err error, stage string) *AppError {
	appErr := newError(ErrCodePlugin, "plugin error", err.Error(), false)
	appErr.Stage = stage
	return appErr
}

// NewStorageError wraps an object-store upload failure. Never fatal —
// callers record status=partial and move on.
func NewStorageError(err error) *AppError {
	return newError(ErrCodeStorage, "object store operation failed", err.Error(), false)
}

// NewPersistenceError wraps a database commit failure. Fatal to the
// one process whose transaction rolled back.
func NewPersistenceError(err error, operation string) *AppError {
	appErr := newError(ErrCodePersistence, fmt.Sprintf("persistence failed: %s", operation), err.Error(), false)
	return appErr
}

// NewConfigError wraps a missing tenant, scraper version, or
// encryption key. Always fatal to the run.
func NewConfigError(message string) *AppError {
	return newError(ErrCodeConfig, message, "", true)
}

// NewNotFoundError creates a not-found error for a named resource.
func NewNotFoundError(resource string) *AppError {
	return newError(ErrCodeNotFound, fmt.Sprintf("%s not found", resource), "", false)
}

// NewConflictError creates a conflict error (e.g. duplicate process number).
func NewConflictError(message string) *AppError {
	return newError(ErrCodeConflict, message, "", false)
}

// NewInternalError wraps an unexpected failure.
func NewInternalError(err error) *AppError {
	return newError(ErrCodeInternal, "internal error", err.Error(), true)
}

// IsAppError reports whether err is an *AppError.
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// IsFatal reports whether err is a run-level fault (as opposed to a
// per-process failure that should only be counted).
func IsFatal(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Fatal
	}
	return true
}

// CodeOf returns the error code for err, or ErrCodeInternal if err is
// not an *AppError.
func CodeOf(err error) ErrorCode {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}

// HTTPStatus maps an ErrorCode to the status the thin task-status API
// should respond with.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeAuth:
		return http.StatusUnauthorized
	case ErrCodeConfig:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON writes err as a JSON AppError response with the
// appropriate status code. Credential values never flow through here —
// callers must never construct an AppError with secret material in
// Message/Details.
func WriteJSON(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	appErr, ok := err.(*AppError)
	if !ok {
		appErr = NewInternalError(err)
	}
	w.WriteHeader(HTTPStatus(appErr.Code))
	if encErr := json.NewEncoder(w).Encode(appErr); encErr != nil {
		http.Error(w, "failed to encode error response", http.StatusInternalServerError)
	}
}
