package cuttle

import (
	"fmt"
	"strings"
)

// Logger receives log events from collections and repositories. The logging
// sub-package constructs the implementations.
type Logger interface {
	Trace(msg string)
	Tracef(format string, a ...any)
	Debug(msg string)
	Debugf(format string, a ...any)
	Info(msg string)
	Infof(format string, a ...any)
	Warn(msg string)
	Warnf(format string, a ...any)
	Error(msg string)
	Errorf(format string, a ...any)

	// TraceBreak and the other Break methods separate groups of events at
	// their level. Text logs write an empty line.
	TraceBreak()
	DebugBreak()
	InfoBreak()
	WarnBreak()
	ErrorBreak()
}

// LogProvider is the library used to back a Logger.
type LogProvider int

const (
	NoLog LogProvider = iota
	Jellog
	StdLog
)

func (p LogProvider) String() string {
	switch p {
	case NoLog:
		return "none"
	case Jellog:
		return "jellog"
	case StdLog:
		return "std"
	default:
		return fmt.Sprintf("LogProvider(%d)", int(p))
	}
}

// ParseLogProvider parses the name of a LogProvider. The empty string is
// parsed as NoLog.
func ParseLogProvider(s string) (LogProvider, error) {
	switch strings.ToLower(s) {
	case NoLog.String(), "":
		return NoLog, nil
	case Jellog.String():
		return Jellog, nil
	case StdLog.String():
		return StdLog, nil
	default:
		return NoLog, fmt.Errorf("unknown LogProvider %q", s)
	}
}
