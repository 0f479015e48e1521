package libemit

// Logger is the minimal leveled logger the transport layer needs. The
// core emitter never logs; only the forwarder and its connections do.
type Logger interface {
	WithField(key string, value any) Logger
	Debugf(format string, args ...any)
	Debugln(args ...any)
	Infof(format string, args ...any)
	Infoln(args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type noopLogger struct{}

// NewNoopLogger returns a Logger that discards everything.
func NewNoopLogger() Logger { return noopLogger{} }

func (noopLogger) WithField(string, any) Logger { return noopLogger{} }
func (noopLogger) Debugf(string, ...any)        {}
func (noopLogger) Debugln(...any)               {}
func (noopLogger) Infof(string, ...any)         {}
func (noopLogger) Infoln(...any)                {}
func (noopLogger) Warnf(string, ...any)         {}
func (noopLogger) Errorf(string, ...any)        {}
