package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// ERROR CODES
// =============================================================================

// Error code constants for structured errors
const (
	CodeInvalidKey           = "INVALID_KEY"
	CodeKeyAlreadyInUse      = "KEY_ALREADY_IN_USE"
	CodeServiceNotFound      = "SERVICE_NOT_FOUND"
	CodeUnresolvedDependency = "UNRESOLVED_DEPENDENCY"
	CodeUnresolvedExport     = "UNRESOLVED_EXPORT"
	CodeDuplicateExport      = "DUPLICATE_EXPORT"
	CodeCircularDependency   = "CIRCULAR_DEPENDENCY"
	CodeContractViolation    = "CONTRACT_VIOLATION"
	CodeTypeMismatch         = "TYPE_MISMATCH"
	CodeInvalidConfig        = "INVALID_CONFIG"
	CodeScopeFrozen          = "SCOPE_FROZEN"
)

// =============================================================================
// STRUCTURED ERROR
// =============================================================================

// Error represents a structured error with context
type Error struct {
	Code      string
	Message   string
	Cause     error
	Timestamp time.Time
	Context   map[string]any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is interface for Error.
// Compares by error code, allowing matching against sentinel errors
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code != "" && e.Code == t.Code
}

// WithContext adds context to the error
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

func newError(code, message string, cause error, ctx map[string]any) *Error {
	if ctx == nil {
		ctx = make(map[string]any)
	}
	return &Error{
		Code:      code,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
		Context:   ctx,
	}
}

// =============================================================================
// CONSTRUCTORS
// =============================================================================

// ErrInvalidKey reports a malformed key together with the site it was decoded from.
func ErrInvalidKey(source, reason string) *Error {
	return newError(CodeInvalidKey,
		"invalid key for "+source+": "+reason,
		nil,
		map[string]any{"source": source, "reason": reason})
}

func ErrKeyAlreadyInUse(key string) *Error {
	return newError(CodeKeyAlreadyInUse,
		"key '"+key+"' is already in use",
		nil,
		map[string]any{"key": key})
}

func ErrServiceNotFound(key string) *Error {
	return newError(CodeServiceNotFound,
		"no service registered for key '"+key+"'",
		nil,
		map[string]any{"key": key})
}

func ErrCircularDependency(path []string) *Error {
	return newError(CodeCircularDependency,
		"circular dependency detected: "+strings.Join(path, " -> "),
		nil,
		map[string]any{"path": path})
}

// ErrContractViolation signals a defect in the caller, not a recoverable condition.
func ErrContractViolation(message string) *Error {
	return newError(CodeContractViolation, message, nil, nil)
}

func ErrTypeMismatch(key, want, got string) *Error {
	return newError(CodeTypeMismatch,
		fmt.Sprintf("service '%s' produced %s, which is not assignable to %s", key, got, want),
		nil,
		map[string]any{"key": key, "want": want, "got": got})
}

func ErrInvalidConfig(configKey string, cause error) *Error {
	return newError(CodeInvalidConfig,
		"invalid configuration for key '"+configKey+"'",
		cause,
		map[string]any{"config_key": configKey})
}

func ErrScopeFrozen(scope, operation string) *Error {
	return newError(CodeScopeFrozen,
		"scope '"+scope+"' is frozen, cannot "+operation,
		nil,
		map[string]any{"scope": scope, "operation": operation})
}

// =============================================================================
// AGGREGATED BUILD ERRORS
// =============================================================================

// Entry is one line of an aggregated build failure: the key involved and
// every site that contributed to the failure.
type Entry struct {
	Key   string
	Sites []string
}

// ErrAggregate builds a single error out of every entry collected during a build
// phase. The message lists each key followed by its sites, one per line.
func ErrAggregate(code, headline string, entries []Entry) *Error {
	var b strings.Builder
	b.WriteString(headline)
	for _, e := range entries {
		b.WriteString("\n  ")
		b.WriteString(e.Key)
		for _, s := range e.Sites {
			b.WriteString("\n    - ")
			b.WriteString(s)
		}
	}
	return newError(code, b.String(), nil, map[string]any{"entries": entries})
}

// Entries returns the aggregated entries carried by err, if any.
func Entries(err error) []Entry {
	var e *Error
	if !As(err, &e) {
		return nil
	}
	entries, _ := e.Context["entries"].([]Entry)
	return entries
}

// =============================================================================
// STANDARD ERRORS PACKAGE INTEGRATION
// =============================================================================

// Is is a convenience wrapper around errors.Is from the standard library.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is a convenience wrapper around errors.As from the standard library.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// New returns an error that formats as the given text.
func New(text string) error {
	return errors.New(text)
}

// Join returns an error that wraps the given errors.
// Any nil error values are discarded.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// =============================================================================
// SENTINEL ERRORS (for use with Is)
// =============================================================================

var (
	ErrInvalidKeySentinel           = &Error{Code: CodeInvalidKey}
	ErrKeyAlreadyInUseSentinel      = &Error{Code: CodeKeyAlreadyInUse}
	ErrServiceNotFoundSentinel      = &Error{Code: CodeServiceNotFound}
	ErrUnresolvedDependencySentinel = &Error{Code: CodeUnresolvedDependency}
	ErrUnresolvedExportSentinel     = &Error{Code: CodeUnresolvedExport}
	ErrDuplicateExportSentinel      = &Error{Code: CodeDuplicateExport}
	ErrCircularDependencySentinel   = &Error{Code: CodeCircularDependency}
	ErrContractViolationSentinel    = &Error{Code: CodeContractViolation}
	ErrTypeMismatchSentinel         = &Error{Code: CodeTypeMismatch}
	ErrInvalidConfigSentinel        = &Error{Code: CodeInvalidConfig}
	ErrScopeFrozenSentinel          = &Error{Code: CodeScopeFrozen}
)

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsInvalidKey checks if the error is an invalid key error
func IsInvalidKey(err error) bool {
	return Is(err, ErrInvalidKeySentinel)
}

// IsKeyAlreadyInUse checks if the error is a registration conflict
func IsKeyAlreadyInUse(err error) bool {
	return Is(err, ErrKeyAlreadyInUseSentinel)
}

// IsServiceNotFound checks if the error is a service not found error
func IsServiceNotFound(err error) bool {
	return Is(err, ErrServiceNotFoundSentinel)
}

// IsUnresolvedDependency checks if the error reports missing dependencies
func IsUnresolvedDependency(err error) bool {
	return Is(err, ErrUnresolvedDependencySentinel)
}

// IsUnresolvedExport checks if the error reports exports that never resolved
func IsUnresolvedExport(err error) bool {
	return Is(err, ErrUnresolvedExportSentinel)
}

// IsDuplicateExport checks if the error reports keys exported more than once
func IsDuplicateExport(err error) bool {
	return Is(err, ErrDuplicateExportSentinel)
}

// IsCircularDependency checks if the error is a circular dependency error
func IsCircularDependency(err error) bool {
	return Is(err, ErrCircularDependencySentinel)
}

// IsContractViolation checks if the error is a contract violation
func IsContractViolation(err error) bool {
	return Is(err, ErrContractViolationSentinel)
}

// IsTypeMismatch checks if the error reports an incompatible value type
func IsTypeMismatch(err error) bool {
	return Is(err, ErrTypeMismatchSentinel)
}

// IsInvalidConfig checks if the error is a configuration error
func IsInvalidConfig(err error) bool {
	return Is(err, ErrInvalidConfigSentinel)
}

// IsScopeFrozen checks if the error reports a mutation of a finished scope
func IsScopeFrozen(err error) bool {
	return Is(err, ErrScopeFrozenSentinel)
}

// Code extracts the structured error code, or "" for foreign errors.
func Code(err error) string {
	var e *Error
	if As(err, &e) {
		return e.Code
	}
	return ""
}
