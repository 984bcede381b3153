package definition

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/jabolina/go-pgas/pkg/pgas/types"
)

// DefaultLogger is the types.Logger used when the caller does not
// provide its own implementation. Generalizes the teacher's
// definition.DefaultLogger (which wrapped the stdlib log package) to
// wrap logrus instead, since a real PGAS deployment wants structured,
// per-PE fields on every line rather than a flat prefix string.
type DefaultLogger struct {
	entry *logrus.Entry
	level *logrus.Logger
}

// NewDefaultLogger builds a DefaultLogger tagged with the given PE
// rank, matching the "[rank_R]" prefix the fatal sink is required to
// print (spec.md §7).
func NewDefaultLogger(rank int) *DefaultLogger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &DefaultLogger{
		level: l,
		entry: l.WithField("pe", rank),
	}
}

func (l *DefaultLogger) Info(v ...interface{})                 { l.entry.Info(v...) }
func (l *DefaultLogger) Infof(format string, v ...interface{})  { l.entry.Infof(format, v...) }
func (l *DefaultLogger) Warn(v ...interface{})                  { l.entry.Warn(v...) }
func (l *DefaultLogger) Warnf(format string, v ...interface{})  { l.entry.Warnf(format, v...) }
func (l *DefaultLogger) Error(v ...interface{})                 { l.entry.Error(v...) }
func (l *DefaultLogger) Errorf(format string, v ...interface{}) { l.entry.Errorf(format, v...) }

func (l *DefaultLogger) Debug(v ...interface{}) {
	l.entry.Debug(v...)
}

func (l *DefaultLogger) Debugf(format string, v ...interface{}) {
	l.entry.Debugf(format, v...)
}

func (l *DefaultLogger) Fatal(v ...interface{}) {
	l.entry.Fatal(v...)
}

func (l *DefaultLogger) Fatalf(format string, v ...interface{}) {
	l.entry.Fatalf(format, v...)
}

func (l *DefaultLogger) Panic(v ...interface{}) {
	l.entry.Panic(v...)
}

func (l *DefaultLogger) Panicf(format string, v ...interface{}) {
	l.entry.Panicf(format, v...)
}

// ToggleDebug flips the minimum logged level between Info and Debug,
// matching the teacher's "debug" boolean knob but routed through
// logrus' level filter instead of a local conditional.
func (l *DefaultLogger) ToggleDebug(value bool) bool {
	if value {
		l.level.SetLevel(logrus.DebugLevel)
	} else {
		l.level.SetLevel(logrus.InfoLevel)
	}
	return value
}

var _ types.Logger = (*DefaultLogger)(nil)
