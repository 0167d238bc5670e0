package logger

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync"
)

var errWriterClosed = errors.New("logger: writer closed")

// sink is one buffered output. A sink that fails once is disabled so a full
// disk on the log file does not silence stdout.
type sink struct {
	buf    *bufio.Writer
	failed error
}

// asyncWriter fans log lines out to its sinks from a single goroutine.
// Only that goroutine touches the sinks.
type asyncWriter struct {
	queue    chan []byte
	flushReq chan chan error
	done     chan struct{}

	closeMu sync.RWMutex
	closed  bool

	sinks []*sink

	errMu    sync.Mutex
	firstErr error
	failed   int
}

func newAsyncWriter(writers []io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	aw := &asyncWriter{
		queue:    make(chan []byte, 256),
		flushReq: make(chan chan error),
		done:     make(chan struct{}),
	}
	for _, w := range writers {
		if w != nil {
			aw.sinks = append(aw.sinks, &sink{buf: bufio.NewWriterSize(w, bufSize)})
		}
	}
	go aw.run()
	return aw
}

func (w *asyncWriter) run() {
	defer close(w.done)
	for {
		select {
		case line, ok := <-w.queue:
			if !ok {
				w.flush()
				return
			}
			w.write(line)
		case ack := <-w.flushReq:
			ack <- w.flush()
		}
	}
}

// Write copies p and queues it. When the queue is full the caller blocks
// rather than losing the line.
func (w *asyncWriter) Write(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	if !w.healthy() {
		return fmt.Errorf("logger: all sinks failed: %w", w.err())
	}
	line := append([]byte(nil), p...)

	w.closeMu.RLock()
	defer w.closeMu.RUnlock()
	if w.closed {
		return errWriterClosed
	}
	w.queue <- line
	return nil
}

// Flush blocks until every queued line has reached the sinks.
func (w *asyncWriter) Flush() error {
	ack := make(chan error, 1)
	select {
	case w.flushReq <- ack:
		return <-ack
	case <-w.done:
		return w.err()
	}
}

// Close drains the queue and returns the first sink error, if any.
func (w *asyncWriter) Close() error {
	w.closeMu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.closeMu.Unlock()
	<-w.done
	return w.err()
}

func (w *asyncWriter) write(line []byte) {
	for _, s := range w.sinks {
		if s.failed != nil {
			continue
		}
		if _, err := s.buf.Write(line); err != nil {
			w.fail(s, err)
			continue
		}
		if err := s.buf.Flush(); err != nil {
			w.fail(s, err)
		}
	}
}

func (w *asyncWriter) flush() error {
	var errs []error
	for _, s := range w.sinks {
		if s.failed != nil {
			continue
		}
		if err := s.buf.Flush(); err != nil {
			w.fail(s, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (w *asyncWriter) fail(s *sink, err error) {
	s.failed = err
	w.errMu.Lock()
	defer w.errMu.Unlock()
	w.failed++
	if w.firstErr == nil {
		w.firstErr = err
	}
}

func (w *asyncWriter) err() error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	return w.firstErr
}

// healthy reports whether at least one sink still accepts writes.
func (w *asyncWriter) healthy() bool {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	return len(w.sinks) == 0 || w.failed < len(w.sinks)
}
