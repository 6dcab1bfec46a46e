package ports

import (
	"time"

	"github.com/tbonfort/be-big-data/internal/domain"
)

// Logger is the structured logger every component receives. The zerolog
// adapter in internal/adapters/log is the production implementation.
type Logger interface {
	// Debug logs per-step detail: stack sizes, closed handles.
	Debug(msg string, fields ...Field)

	// Info logs one line per finished request or lifecycle change.
	Info(msg string, fields ...Field)

	// Warn logs failures that do not fail the request, such as a
	// preview upload or a staging file that could not be removed.
	Warn(msg string, fields ...Field)

	// Error logs a failed request.
	Error(msg string, fields ...Field)
}

// Field is a key-value pair attached to a log line.
type Field struct {
	Key   string
	Value interface{}
}

// String creates a string field.
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Int creates an int field.
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Int64 creates an int64 field.
func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

// Uint64 creates a uint64 field.
func Uint64(key string, value uint64) Field {
	return Field{Key: key, Value: value}
}

// Float64 creates a float64 field.
func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

// Bool creates a bool field.
func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// Duration creates a duration field.
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value}
}

// Err creates an error field with key "error".
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}

// Window logs w under "window" as [x y width height].
func Window(w domain.Window) Field {
	return Field{Key: "window", Value: w.String()}
}

// Destination logs an upload URI under "destination".
func Destination(uri string) Field {
	return Field{Key: "destination", Value: uri}
}

// Any creates a field with any value.
func Any(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}
