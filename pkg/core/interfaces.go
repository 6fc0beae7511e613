package core

// Logger interface for lens system logging
type Logger interface {
	Printf(format string, args ...interface{})
}
