package device

// Logger is the minimal logging interface this package depends on.
// It is satisfied by *logging.Logger and keeps the device core free of a
// hard dependency on any particular logging stack.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger discards everything. Used until SetLogger is called so the
// package never has to nil-check its logger.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
