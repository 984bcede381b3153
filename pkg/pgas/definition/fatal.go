package definition

import (
	"runtime"

	"github.com/jabolina/go-pgas/pkg/pgas/types"
)

// AbortFunc asks the bootstrap capability to abort every PE with the
// given exit status (spec.md §6, "global_exit").
type AbortFunc func(status int)

// Sink is the single fatal-error sink required by spec.md §7: every
// unrecoverable error kind is routed through it exactly once on the
// failing PE, then the process group is aborted.
type Sink struct {
	rank   int
	logger types.Logger
	abort  AbortFunc
}

// NewSink builds a Sink for the given PE rank.
func NewSink(rank int, logger types.Logger, abort AbortFunc) *Sink {
	return &Sink{rank: rank, logger: logger, abort: abort}
}

// Fatal prints "[rank_R][file:line][fn][ERROR] <message>" to stderr
// (via logger) and asks the bootstrap to abort all PEs with a
// non-zero status. skip is the number of stack frames to skip past
// Fatal itself to find the failing call site.
func (s *Sink) Fatal(fault *types.Fault, skip int) {
	file, line, fn := callSite(skip + 1)
	s.logger.Errorf("[rank_%d][%s:%d][%s][ERROR] %s", s.rank, file, line, fn, fault.Error())
	s.abort(1)
}

func callSite(skip int) (file string, line int, fn string) {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown", 0, "unknown"
	}
	f := runtime.FuncForPC(pc)
	if f == nil {
		return file, line, "unknown"
	}
	return file, line, f.Name()
}

// Guard is a convenience matching the registry/team/lock call sites:
// if fault is non-nil and its kind is fatal, it is routed to the sink,
// which logs it and calls the abort function. Guard returns once that
// call returns; it does not exit the process itself.
func (s *Sink) Guard(fault *types.Fault) {
	if fault == nil {
		return
	}
	if fault.Kind.Fatal() {
		s.Fatal(fault, 2)
	}
}
