package logging

import (
	"io"
	"os"
	"sync"

	"github.com/dekarrin/cuttle"
	"github.com/dekarrin/jellog"
)

// Close releases the log file held by a Logger created with New. It does
// nothing for loggers that hold no file, including ones not made by this
// package. A closed logger must not be written to again.
func Close(log cuttle.Logger) error {
	if c, ok := log.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func openLogFile(filename string) (*os.File, error) {
	return os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0664)
}

// fileHandler is a jellog handler that appends formatted events to a log file
// and, unlike jellog.FileHandler, can be closed.
type fileHandler struct {
	opts jellog.HandlerOptions[string]
	f    *os.File
	mtx  sync.Mutex
}

func newFileHandler(filename string) (*fileHandler, error) {
	f, err := openLogFile(filename)
	if err != nil {
		return nil, err
	}
	return &fileHandler{
		opts: jellog.HandlerOptions[string]{Formatter: jellog.LineFormat{}},
		f:    f,
	}, nil
}

func (fh *fileHandler) HandlerOptions() jellog.HandlerOptions[string] {
	return fh.opts
}

func (fh *fileHandler) Output(calldepth int, evt jellog.Event[string]) error {
	return fh.write(fh.opts.Formatter.Format(evt))
}

func (fh *fileHandler) InsertBreak() error {
	return fh.write(fh.opts.Formatter.Break())
}

func (fh *fileHandler) write(buf []byte) error {
	fh.mtx.Lock()
	defer fh.mtx.Unlock()

	if fh.f == nil {
		return os.ErrClosed
	}
	_, err := fh.f.Write(buf)
	return err
}

func (fh *fileHandler) Close() error {
	fh.mtx.Lock()
	defer fh.mtx.Unlock()

	if fh.f == nil {
		return nil
	}
	err := fh.f.Close()
	fh.f = nil
	return err
}

// closeOnce wraps the log file of a std logger so repeated Close calls are
// harmless.
type closeOnce struct {
	f    *os.File
	once sync.Once
	err  error
}

func (c *closeOnce) Close() error {
	c.once.Do(func() {
		c.err = c.f.Close()
	})
	return c.err
}
