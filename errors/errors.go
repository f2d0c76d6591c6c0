// Package errors exposes the structured errors returned by graft.
package errors

import (
	"github.com/xraph/graft/internal/errors"
)

// Error is a structured error carrying a code and context.
type Error = errors.Error

// Entry is one key of an aggregated build failure with its sites.
type Entry = errors.Entry

// Error codes.
const (
	CodeInvalidKey           = errors.CodeInvalidKey
	CodeKeyAlreadyInUse      = errors.CodeKeyAlreadyInUse
	CodeServiceNotFound      = errors.CodeServiceNotFound
	CodeUnresolvedDependency = errors.CodeUnresolvedDependency
	CodeUnresolvedExport     = errors.CodeUnresolvedExport
	CodeDuplicateExport      = errors.CodeDuplicateExport
	CodeCircularDependency   = errors.CodeCircularDependency
	CodeContractViolation    = errors.CodeContractViolation
	CodeTypeMismatch         = errors.CodeTypeMismatch
	CodeInvalidConfig        = errors.CodeInvalidConfig
	CodeScopeFrozen          = errors.CodeScopeFrozen
)

// Sentinels for errors.Is.
var (
	ErrInvalidKeySentinel           = errors.ErrInvalidKeySentinel
	ErrKeyAlreadyInUseSentinel      = errors.ErrKeyAlreadyInUseSentinel
	ErrServiceNotFoundSentinel      = errors.ErrServiceNotFoundSentinel
	ErrUnresolvedDependencySentinel = errors.ErrUnresolvedDependencySentinel
	ErrUnresolvedExportSentinel     = errors.ErrUnresolvedExportSentinel
	ErrDuplicateExportSentinel      = errors.ErrDuplicateExportSentinel
	ErrCircularDependencySentinel   = errors.ErrCircularDependencySentinel
	ErrContractViolationSentinel    = errors.ErrContractViolationSentinel
	ErrTypeMismatchSentinel         = errors.ErrTypeMismatchSentinel
	ErrInvalidConfigSentinel        = errors.ErrInvalidConfigSentinel
	ErrScopeFrozenSentinel          = errors.ErrScopeFrozenSentinel
)

// Predicates and helpers.
var (
	IsInvalidKey           = errors.IsInvalidKey
	IsKeyAlreadyInUse      = errors.IsKeyAlreadyInUse
	IsServiceNotFound      = errors.IsServiceNotFound
	IsUnresolvedDependency = errors.IsUnresolvedDependency
	IsUnresolvedExport     = errors.IsUnresolvedExport
	IsDuplicateExport      = errors.IsDuplicateExport
	IsCircularDependency   = errors.IsCircularDependency
	IsContractViolation    = errors.IsContractViolation
	IsTypeMismatch         = errors.IsTypeMismatch
	IsInvalidConfig        = errors.IsInvalidConfig
	IsScopeFrozen          = errors.IsScopeFrozen

	Code    = errors.Code
	Entries = errors.Entries
	Is      = errors.Is
	As      = errors.As
)
