// Package errors provides a structured error system for mountfs with error codes, categories, and context.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrorCode represents a structured error code for mountfs operations.
type ErrorCode string

// Error code constants organized by category.
const (
	// Configuration Errors
	ErrCodeInvalidConfig    ErrorCode = "INVALID_CONFIG"
	ErrCodeMissingConfig    ErrorCode = "MISSING_CONFIG"
	ErrCodeConfigValidation ErrorCode = "CONFIG_VALIDATION"
	ErrCodeConfigLoad       ErrorCode = "CONFIG_LOAD"
	ErrCodeConfigSave       ErrorCode = "CONFIG_SAVE"

	// Connection Errors
	ErrCodeConnectionFailed  ErrorCode = "CONNECTION_FAILED"
	ErrCodeConnectionTimeout ErrorCode = "CONNECTION_TIMEOUT"
	ErrCodeNetworkError      ErrorCode = "NETWORK_ERROR"

	// Storage Backend Errors
	ErrCodeObjectNotFound     ErrorCode = "OBJECT_NOT_FOUND"
	ErrCodeBucketNotFound     ErrorCode = "BUCKET_NOT_FOUND"
	ErrCodeStorageWrite       ErrorCode = "STORAGE_WRITE"
	ErrCodeStorageRead        ErrorCode = "STORAGE_READ"
	ErrCodeStorageUnsupported ErrorCode = "STORAGE_UNSUPPORTED"
	ErrCodeAccessDenied       ErrorCode = "ACCESS_DENIED"

	// Path Errors
	ErrCodePathInvalid    ErrorCode = "PATH_INVALID"
	ErrCodePathOutOfScope ErrorCode = "PATH_OUT_OF_SCOPE"
	ErrCodeFileNotFound   ErrorCode = "FILE_NOT_FOUND"

	// Mount Table Errors
	ErrCodeMountTableParse   ErrorCode = "MOUNT_TABLE_PARSE"
	ErrCodeMountTablePersist ErrorCode = "MOUNT_TABLE_PERSIST"
	ErrCodeMountTableLost    ErrorCode = "MOUNT_TABLE_LOST"
	ErrCodeMountFailed       ErrorCode = "MOUNT_FAILED"
	ErrCodeCrossMountRename  ErrorCode = "CROSS_MOUNT_RENAME"
	ErrCodeFactoryUnknown    ErrorCode = "FACTORY_UNKNOWN"

	// State Management Errors
	ErrCodeNotInitialized   ErrorCode = "NOT_INITIALIZED"
	ErrCodeComponentStopped ErrorCode = "COMPONENT_STOPPED"

	// Operation Errors
	ErrCodeOperationTimeout  ErrorCode = "OPERATION_TIMEOUT"
	ErrCodeOperationCanceled ErrorCode = "OPERATION_CANCELED"
	ErrCodeOperationFailed   ErrorCode = "OPERATION_FAILED"
	ErrCodeRetryExhausted    ErrorCode = "RETRY_EXHAUSTED"

	// Internal System Errors
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
	ErrCodeUnknownError  ErrorCode = "UNKNOWN_ERROR"
)

// ErrorCategory represents the general category of an error.
type ErrorCategory string

const (
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryConnection    ErrorCategory = "connection"
	CategoryStorage       ErrorCategory = "storage"
	CategoryPath          ErrorCategory = "path"
	CategoryMount         ErrorCategory = "mount"
	CategoryState         ErrorCategory = "state"
	CategoryOperation     ErrorCategory = "operation"
	CategoryInternal      ErrorCategory = "internal"
)

// MountFSError represents a structured error with context and metadata.
type MountFSError struct {
	// Core error information
	Code     ErrorCode              `json:"code"`
	Category ErrorCategory          `json:"category"`
	Message  string                 `json:"message"`
	Details  map[string]interface{} `json:"details,omitempty"`

	// Contextual information
	Context   map[string]string `json:"context,omitempty"`
	Cause     error             `json:"-"`
	Timestamp time.Time         `json:"timestamp"`

	// Operational metadata
	Component string `json:"component"`
	Operation string `json:"operation,omitempty"`

	// Error handling hints
	Retryable  bool `json:"retryable"`
	UserFacing bool `json:"user_facing"`

	// Debug information
	Stack string `json:"stack,omitempty"`
}

// Error implements the error interface.
func (e *MountFSError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Component != "" {
		if e.Operation != "" {
			msg = fmt.Sprintf("[%s:%s] %s", e.Component, e.Operation, msg)
		} else {
			msg = fmt.Sprintf("[%s] %s", e.Component, msg)
		}
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause error for error wrapping compatibility.
func (e *MountFSError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target error (for errors.Is compatibility).
func (e *MountFSError) Is(target error) bool {
	if other, ok := target.(*MountFSError); ok {
		return e.Code == other.Code
	}
	return false
}

// String returns a detailed string representation for logging.
func (e *MountFSError) String() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("Code=%s", e.Code))
	parts = append(parts, fmt.Sprintf("Category=%s", e.Category))
	parts = append(parts, fmt.Sprintf("Message=%q", e.Message))

	if e.Component != "" {
		parts = append(parts, fmt.Sprintf("Component=%s", e.Component))
	}
	if e.Operation != "" {
		parts = append(parts, fmt.Sprintf("Operation=%s", e.Operation))
	}
	if e.Retryable {
		parts = append(parts, "Retryable=true")
	}
	if len(e.Details) > 0 {
		details, _ := json.Marshal(e.Details)
		parts = append(parts, fmt.Sprintf("Details=%s", details))
	}
	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("Cause=%q", e.Cause.Error()))
	}

	return fmt.Sprintf("MountFSError{%s}", strings.Join(parts, ", "))
}

// JSON returns the error as a JSON string.
func (e *MountFSError) JSON() string {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal error: %s"}`, err.Error())
	}
	return string(data)
}

// NewError creates a new mountfs error with default values.
func NewError(code ErrorCode, message string) *MountFSError {
	return &MountFSError{
		Code:       code,
		Category:   GetCategory(code),
		Message:    message,
		Timestamp:  time.Now(),
		Details:    make(map[string]interface{}),
		Context:    make(map[string]string),
		Retryable:  IsRetryableByDefault(code),
		UserFacing: IsUserFacingByDefault(code),
	}
}

// Newf creates a new error with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *MountFSError {
	return NewError(code, fmt.Sprintf(format, args...))
}

// Wrap creates a new error with the given cause.
func Wrap(cause error, code ErrorCode, message string) *MountFSError {
	return NewError(code, message).WithCause(cause)
}

// GetCategory determines the category based on the error code.
func GetCategory(code ErrorCode) ErrorCategory {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "INVALID_CONFIG") || strings.HasPrefix(codeStr, "MISSING_CONFIG") ||
		strings.HasPrefix(codeStr, "CONFIG_"):
		return CategoryConfiguration
	case strings.HasPrefix(codeStr, "CONNECTION_") || strings.HasPrefix(codeStr, "NETWORK_"):
		return CategoryConnection
	case strings.HasPrefix(codeStr, "OBJECT_") || strings.HasPrefix(codeStr, "BUCKET_") ||
		strings.HasPrefix(codeStr, "STORAGE_") || strings.HasPrefix(codeStr, "ACCESS_"):
		return CategoryStorage
	case strings.HasPrefix(codeStr, "PATH_") || strings.HasPrefix(codeStr, "FILE_"):
		return CategoryPath
	case strings.HasPrefix(codeStr, "MOUNT_") || strings.HasPrefix(codeStr, "CROSS_MOUNT_") ||
		strings.HasPrefix(codeStr, "FACTORY_"):
		return CategoryMount
	case strings.HasPrefix(codeStr, "NOT_INITIALIZED") || strings.HasPrefix(codeStr, "COMPONENT_"):
		return CategoryState
	case strings.HasPrefix(codeStr, "OPERATION_") || strings.HasPrefix(codeStr, "RETRY_"):
		return CategoryOperation
	default:
		return CategoryInternal
	}
}

// IsRetryableByDefault determines if an error is retryable by default.
func IsRetryableByDefault(code ErrorCode) bool {
	retryableCodes := map[ErrorCode]bool{
		ErrCodeConnectionTimeout: true,
		ErrCodeConnectionFailed:  true,
		ErrCodeNetworkError:      true,
		ErrCodeOperationTimeout:  true,
		ErrCodeInternalError:     true,
	}
	return retryableCodes[code]
}

// IsUserFacingByDefault determines if an error should be shown to users.
func IsUserFacingByDefault(code ErrorCode) bool {
	userFacingCodes := map[ErrorCode]bool{
		ErrCodeInvalidConfig:     true,
		ErrCodeMissingConfig:     true,
		ErrCodeConfigValidation:  true,
		ErrCodePathInvalid:       true,
		ErrCodePathOutOfScope:    true,
		ErrCodeFileNotFound:      true,
		ErrCodeAccessDenied:      true,
		ErrCodeMountFailed:       true,
		ErrCodeMountTableParse:   true,
		ErrCodeCrossMountRename:  true,
		ErrCodeFactoryUnknown:    true,
		ErrCodeOperationTimeout:  true,
		ErrCodeMountTablePersist: true,
	}
	return userFacingCodes[code]
}

// HasCode reports whether any error in err's chain is a MountFSError with code.
func HasCode(err error, code ErrorCode) bool {
	var mfsErr *MountFSError
	for err != nil {
		if stderrors.As(err, &mfsErr) {
			if mfsErr.Code == code {
				return true
			}
			err = mfsErr.Cause
			continue
		}
		return false
	}
	return false
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// IsRetryable reports whether err carries a retryable MountFSError.
func IsRetryable(err error) bool {
	var mfsErr *MountFSError
	if stderrors.As(err, &mfsErr) {
		return mfsErr.Retryable
	}
	return false
}

// CaptureStack captures the current stack trace for debugging.
func CaptureStack(skip int) string {
	const depth = 10
	var pcs [depth]uintptr
	n := runtime.Callers(skip+2, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var stack []string
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "errors.go") {
			stack = append(stack, fmt.Sprintf("%s:%d %s", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}
	return strings.Join(stack, "\n")
}

// WithContext adds contextual information to an error
func (e *MountFSError) WithContext(key, value string) *MountFSError {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// WithDetail adds detailed information to an error
func (e *MountFSError) WithDetail(key string, value interface{}) *MountFSError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithComponent sets the component for an error
func (e *MountFSError) WithComponent(component string) *MountFSError {
	e.Component = component
	return e
}

// WithOperation sets the operation for an error
func (e *MountFSError) WithOperation(operation string) *MountFSError {
	e.Operation = operation
	return e
}

// WithCause sets the underlying cause
func (e *MountFSError) WithCause(cause error) *MountFSError {
	e.Cause = cause
	return e
}

// WithStack captures the current stack trace
func (e *MountFSError) WithStack() *MountFSError {
	e.Stack = CaptureStack(2)
	return e
}

// GetRecommendation returns a user-friendly recommendation for fixing the error
func (e *MountFSError) GetRecommendation() string {
	recommendations := map[ErrorCode]string{
		ErrCodeMissingConfig: "A required namespace property is not set. " +
			"Check the .path and .default.mount properties for this namespace.",
		ErrCodePathOutOfScope: "The path is not below the mount root it was translated with. " +
			"Resolve the mount for this exact path before translating it.",
		ErrCodeMountTableParse: "The mount table contains a malformed line. " +
			"The previous table stays active until the file is fixed.",
		ErrCodeMountTableLost: "The mount table file was renamed away and could not be restored. " +
			"Rename the newest .old.<timestamp> backup back to the table name.",
		ErrCodeCrossMountRename: "Source and destination resolve to different storage backends. " +
			"Copy the data and delete the source instead.",
		ErrCodeFactoryUnknown: "The configured mount factory is not registered. " +
			"Use one of the registered factory names.",
	}

	if rec, exists := recommendations[e.Code]; exists {
		return rec
	}

	return "Please check the error message for details."
}
