package core

// Logger is any service that can log messages with optional structured arguments.
// Implementations may inspect args for known types (errors, session owners) and
// report them to an external tracker.
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
