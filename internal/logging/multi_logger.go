package logging

import "context"

// MultiLogger fans out every message to a set of loggers.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a logger that forwards to all given loggers.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

func (l *MultiLogger) Debug(msg string, fields ...Field) {
	for _, lg := range l.loggers {
		lg.Debug(msg, fields...)
	}
}

func (l *MultiLogger) Info(msg string, fields ...Field) {
	for _, lg := range l.loggers {
		lg.Info(msg, fields...)
	}
}

func (l *MultiLogger) Warn(msg string, fields ...Field) {
	for _, lg := range l.loggers {
		lg.Warn(msg, fields...)
	}
}

func (l *MultiLogger) Error(msg string, fields ...Field) {
	for _, lg := range l.loggers {
		lg.Error(msg, fields...)
	}
}

func (l *MultiLogger) WithTraceID(traceID string) Logger {
	traced := make([]Logger, len(l.loggers))
	for i, lg := range l.loggers {
		traced[i] = lg.WithTraceID(traceID)
	}
	return NewMultiLogger(traced...)
}

func (l *MultiLogger) WithContext(ctx context.Context) Logger {
	traceID := TraceIDFromContext(ctx)
	if traceID == "" {
		return l
	}
	return l.WithTraceID(traceID)
}

func (l *MultiLogger) SetLevel(level LogLevel) {
	for _, lg := range l.loggers {
		lg.SetLevel(level)
	}
}

// Close closes all underlying loggers, returning the first error.
func (l *MultiLogger) Close() error {
	var first error
	for _, lg := range l.loggers {
		if err := lg.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NoOpLogger discards everything.
type NoOpLogger struct{}

// NewNoOpLogger creates a logger that discards all output.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (l *NoOpLogger) Debug(msg string, fields ...Field) {}
func (l *NoOpLogger) Info(msg string, fields ...Field)  {}
func (l *NoOpLogger) Warn(msg string, fields ...Field)  {}
func (l *NoOpLogger) Error(msg string, fields ...Field) {}

func (l *NoOpLogger) WithTraceID(traceID string) Logger { return l }

func (l *NoOpLogger) WithContext(ctx context.Context) Logger { return l }

func (l *NoOpLogger) SetLevel(level LogLevel) {}

func (l *NoOpLogger) Close() error { return nil }
