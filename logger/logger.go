// Package logger defines the small structured-logging contract the engine
// emits through, plus adapters for phuslu-style logging and slog.
package logger

// Logger accepts a message plus alternating key/value pairs. A trailing key
// without a value is dropped.
type Logger interface {
	Error(msg string, keyvals ...any)
	Info(msg string, keyvals ...any)
	Debug(msg string, keyvals ...any)
}
