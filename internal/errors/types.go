package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeCompile    ErrorType = "compile"
	ErrorTypeCoercion   ErrorType = "coercion"
	ErrorTypeDispose    ErrorType = "dispose"
	ErrorTypeDirective  ErrorType = "directive"
	ErrorTypeContainer  ErrorType = "container"
	ErrorTypeScene      ErrorType = "scene"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeValidation ErrorType = "validation"
)

// Common error codes.
const (
	ErrCodeParseFailed      = "ERR_PARSE_FAILED"
	ErrCodeNilContainer     = "ERR_NIL_CONTAINER"
	ErrCodeNilTemplate      = "ERR_NIL_TEMPLATE"
	ErrCodeUnserializable   = "ERR_UNSERIALIZABLE"
	ErrCodeCleanupFailed    = "ERR_CLEANUP_FAILED"
	ErrCodeBindFailed       = "ERR_BIND_FAILED"
	ErrCodeDuplicateKey     = "ERR_DUPLICATE_KEY"
	ErrCodeUnknownTemplate  = "ERR_UNKNOWN_TEMPLATE"
	ErrCodeInvalidValue     = "ERR_INVALID_VALUE"
	ErrCodeFrameOutOfRange  = "ERR_FRAME_OUT_OF_RANGE"
	ErrCodeConfigInvalid    = "ERR_CONFIG_INVALID"
	ErrCodeFileNotFound     = "ERR_FILE_NOT_FOUND"
	ErrCodeValidationFailed = "ERR_VALIDATION_FAILED"
)

// Error is a structured error carrying a category, a stable code and
// free-form context for logging.
type Error struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	Recoverable bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	parts = append(parts, e.Message)

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		kv := make([]string, 0, len(keys))
		for _, k := range keys {
			kv = append(kv, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		parts = append(parts, "("+strings.Join(kv, " ")+")")
	}

	result := strings.Join(parts, " ")
	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error with the same type and code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// Fields flattens the error into alternating key/value pairs for a logger.
func (e *Error) Fields() []interface{} {
	fields := []interface{}{"error_type", string(e.Type), "code", e.Code}
	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, k, e.Context[k])
	}
	return fields
}

// NewCompileError creates a template compilation error.
func NewCompileError(code, message string, cause error) *Error {
	return &Error{Type: ErrorTypeCompile, Code: code, Message: message, Cause: cause}
}

// NewCoercionError creates a value-to-text coercion error. These never abort
// rendering.
func NewCoercionError(code, message string, cause error) *Error {
	return &Error{Type: ErrorTypeCoercion, Code: code, Message: message, Cause: cause, Recoverable: true}
}

// NewDisposeError creates an error raised while tearing down a binding.
func NewDisposeError(code, message string, cause error) *Error {
	return &Error{Type: ErrorTypeDispose, Code: code, Message: message, Cause: cause, Recoverable: true}
}

// NewDirectiveError creates an error raised by a directive bind or cleanup.
func NewDirectiveError(code, message string, cause error) *Error {
	return &Error{Type: ErrorTypeDirective, Code: code, Message: message, Cause: cause, Recoverable: true}
}

// NewContainerError creates an error for an unusable render target.
func NewContainerError(code, message string) *Error {
	return &Error{Type: ErrorTypeContainer, Code: code, Message: message}
}

// NewSceneError creates a scene file error.
func NewSceneError(code, message string, cause error) *Error {
	return &Error{Type: ErrorTypeScene, Code: code, Message: message, Cause: cause}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *Error {
	return &Error{Type: ErrorTypeConfig, Code: code, Message: message}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *Error {
	return &Error{Type: ErrorTypeIO, Code: code, Message: message, Cause: cause}
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *Error {
	return &Error{Type: ErrorTypeValidation, Code: code, Message: message, Recoverable: true}
}

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Recoverable
	}

	return false
}

// IsType reports whether err wraps an *Error of the given type.
func IsType(err error, t ErrorType) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == t
	}

	return false
}

// FromPanic converts a recovered panic value into an error.
func FromPanic(r interface{}) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", r)
}
