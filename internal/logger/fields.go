package logger

import (
	"fmt"

	"github.com/xraph/go-utils/log"
	"go.uber.org/zap"
)

// Field represents a structured log field.
type Field = log.Field

// ZapField wraps a zap.Field and implements the Field interface.
type ZapField = log.ZapField

// Field constructors that return wrapped fields.
var (
	// String creates a string field.
	String = log.String
	// Int creates an int field.
	Int = log.Int
	// Bool creates a bool field.
	Bool = log.Bool
	// Duration creates a duration field.
	Duration = log.Duration
	// Error creates an error field.
	Error = log.Error
	// Stringer creates a field from a Stringer.
	Stringer = log.Stringer
	// Strings creates a string slice field.
	Strings = log.Strings
	// Any creates a field with any value.
	Any = log.Any
)

// Domain field helpers

// KeyField records a service key.
func KeyField(k fmt.Stringer) Field {
	return Stringer("key", k)
}

// Scope records the scope a message refers to.
func Scope(name string) Field {
	return String("scope", name)
}

// Launch records the identifier of an application launch.
func Launch(id string) Field {
	return String("launch_id", id)
}

// fieldsToZap converts Field slice to zap.Field slice
func fieldsToZap(fields []Field) []zap.Field {
	return log.FieldsToZap(fields)
}
