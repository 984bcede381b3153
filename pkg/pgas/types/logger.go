package types

// Logger is the logging contract every component takes a handle to.
// Generalizes the teacher's types.Logger (originally defined alongside
// the state machine) unchanged in shape: a leveled logger with printf
// variants plus a debug toggle, so swapping the backing implementation
// (logrus by default, see definition.DefaultLogger) never touches
// call sites.
type Logger interface {
	Info(v ...interface{})
	Infof(format string, v ...interface{})
	Warn(v ...interface{})
	Warnf(format string, v ...interface{})
	Error(v ...interface{})
	Errorf(format string, v ...interface{})
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})
	Fatal(v ...interface{})
	Fatalf(format string, v ...interface{})
	Panic(v ...interface{})
	Panicf(format string, v ...interface{})
	ToggleDebug(value bool) bool
}
