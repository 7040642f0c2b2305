// Package logging creates the Logger implementations used by cuttle
// collections and repositories.
package logging

import (
	"errors"
	"fmt"
	"io"
	stdlog "log"
	"os"

	"github.com/dekarrin/cuttle"
	"github.com/dekarrin/cuttle/errorset"
	"github.com/dekarrin/jellog"
)

// New opens a Logger backed by provider p. Output always goes to stderr; when
// filename is set it is also appended to that file, which stays open until
// the logger is passed to Close. A jellog logger with no
// file writes trace-level events to stderr, and one with a file keeps stderr
// at info level and sends everything to the file.
func New(p cuttle.LogProvider, filename string) (cuttle.Logger, error) {
	switch p {
	case cuttle.Jellog:
		return newJellog(filename)
	case cuttle.StdLog:
		return newStdFile(filename)
	case cuttle.NoLog:
		return nil, errors.New("log provider cannot be NoLog")
	default:
		return nil, fmt.Errorf("unknown provider: %q", p.String())
	}
}

func newJellog(filename string) (cuttle.Logger, error) {
	j := jellog.New(jellog.Defaults[string]().WithComponent("cuttle"))

	if filename == "" {
		j.AddHandler(jellog.LvTrace, jellog.NewStderrHandler(nil))
		return jellogLogger{j: j}, nil
	}

	fh, err := newFileHandler(filename)
	if err != nil {
		return nil, fmt.Errorf("open logfile: %q: %w", filename, err)
	}
	j.AddHandler(jellog.LvTrace, fh)
	j.AddHandler(jellog.LvInfo, jellog.NewStderrHandler(nil))

	return jellogLogger{j: j, file: fh}, nil
}

func newStdFile(filename string) (cuttle.Logger, error) {
	if filename == "" {
		return NewStd(os.Stderr), nil
	}

	f, err := openLogFile(filename)
	if err != nil {
		return nil, fmt.Errorf("open logfile: %q: %w", filename, err)
	}
	return stdLogger{
		std:  newStdLog(io.MultiWriter(os.Stderr, f)),
		file: &closeOnce{f: f},
	}, nil
}

// NewStd returns a Logger that prints level-tagged lines to w with the
// standard library log package.
func NewStd(w io.Writer) cuttle.Logger {
	return stdLogger{std: newStdLog(w)}
}

func newStdLog(w io.Writer) *stdlog.Logger {
	return stdlog.New(w, "", stdlog.Ldate|stdlog.Ltime|stdlog.LUTC)
}

// OrNoOp returns log, or a NoOpLogger if log is nil.
func OrNoOp(log cuttle.Logger) cuttle.Logger {
	if log == nil {
		return NoOpLogger{}
	}
	return log
}

// LogRejection logs each error of a rejected operation at debug level. target
// names what the operation was performed on, such as a collection name.
func LogRejection(log cuttle.Logger, op string, target string, errs *errorset.ErrorSet) {
	if errs.Empty() {
		return
	}
	log.Debugf("%s %s: rejected with %d error(s)", target, op, errs.Count())
	for _, msg := range errs.Messages() {
		log.Debugf("%s %s: %s", target, op, msg)
	}
}

// NoOpLogger discards everything written to it.
type NoOpLogger struct{}

func (NoOpLogger) Trace(string)          {}
func (NoOpLogger) Tracef(string, ...any) {}
func (NoOpLogger) TraceBreak()           {}
func (NoOpLogger) Debug(string)          {}
func (NoOpLogger) Debugf(string, ...any) {}
func (NoOpLogger) DebugBreak()           {}
func (NoOpLogger) Info(string)           {}
func (NoOpLogger) Infof(string, ...any)  {}
func (NoOpLogger) InfoBreak()            {}
func (NoOpLogger) Warn(string)           {}
func (NoOpLogger) Warnf(string, ...any)  {}
func (NoOpLogger) WarnBreak()            {}
func (NoOpLogger) Error(string)          {}
func (NoOpLogger) Errorf(string, ...any) {}
func (NoOpLogger) ErrorBreak()           {}

// tags are padded to the same width so messages line up.
const (
	tagTrace = "TRACE "
	tagDebug = "DEBUG "
	tagInfo  = "INFO  "
	tagWarn  = "WARN  "
	tagError = "ERROR "
)

type stdLogger struct {
	std  *stdlog.Logger
	file io.Closer
}

func (s stdLogger) Close() error {
	if s.file == nil {
		return nil
	}
	return s.file.Close()
}

func (s stdLogger) line(tag, msg string) {
	s.std.Print(tag + msg)
}

func (s stdLogger) linef(tag, format string, a []any) {
	s.std.Printf(tag+format, a...)
}

func (s stdLogger) blank() {
	s.std.Print("")
}

func (s stdLogger) Trace(msg string)               { s.line(tagTrace, msg) }
func (s stdLogger) Tracef(format string, a ...any) { s.linef(tagTrace, format, a) }
func (s stdLogger) TraceBreak()                    { s.blank() }
func (s stdLogger) Debug(msg string)               { s.line(tagDebug, msg) }
func (s stdLogger) Debugf(format string, a ...any) { s.linef(tagDebug, format, a) }
func (s stdLogger) DebugBreak()                    { s.blank() }
func (s stdLogger) Info(msg string)                { s.line(tagInfo, msg) }
func (s stdLogger) Infof(format string, a ...any)  { s.linef(tagInfo, format, a) }
func (s stdLogger) InfoBreak()                     { s.blank() }
func (s stdLogger) Warn(msg string)                { s.line(tagWarn, msg) }
func (s stdLogger) Warnf(format string, a ...any)  { s.linef(tagWarn, format, a) }
func (s stdLogger) WarnBreak()                     { s.blank() }
func (s stdLogger) Error(msg string)               { s.line(tagError, msg) }
func (s stdLogger) Errorf(format string, a ...any) { s.linef(tagError, format, a) }
func (s stdLogger) ErrorBreak()                    { s.blank() }

// jellogLogger adapts a jellog.Logger to cuttle.Logger.
type jellogLogger struct {
	j    jellog.Logger[string]
	file *fileHandler
}

func (l jellogLogger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

func (l jellogLogger) Trace(msg string)               { l.j.Trace(msg) }
func (l jellogLogger) Tracef(format string, a ...any) { l.j.Tracef(format, a...) }
func (l jellogLogger) TraceBreak()                    { l.j.InsertBreak(jellog.LvTrace) }
func (l jellogLogger) Debug(msg string)               { l.j.Debug(msg) }
func (l jellogLogger) Debugf(format string, a ...any) { l.j.Debugf(format, a...) }
func (l jellogLogger) DebugBreak()                    { l.j.InsertBreak(jellog.LvDebug) }
func (l jellogLogger) Info(msg string)                { l.j.Info(msg) }
func (l jellogLogger) Infof(format string, a ...any)  { l.j.Infof(format, a...) }
func (l jellogLogger) InfoBreak()                     { l.j.InsertBreak(jellog.LvInfo) }
func (l jellogLogger) Warn(msg string)                { l.j.Warn(msg) }
func (l jellogLogger) Warnf(format string, a ...any)  { l.j.Warnf(format, a...) }
func (l jellogLogger) WarnBreak()                     { l.j.InsertBreak(jellog.LvWarn) }
func (l jellogLogger) Error(msg string)               { l.j.Error(msg) }
func (l jellogLogger) Errorf(format string, a ...any) { l.j.Errorf(format, a...) }
func (l jellogLogger) ErrorBreak()                    { l.j.InsertBreak(jellog.LvError) }
