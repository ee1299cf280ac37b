package logger

import (
	"errors"
	"io"
	"sync"
)

var errWriterClosed = errors.New("logger: writer closed")

// lineItem is either a formatted line or, with ack set, a flush barrier.
type lineItem struct {
	line []byte
	ack  chan struct{}
}

// lineWriter hands formatted lines to one goroutine that writes each line to
// every sink in order. Handlers never block on slow sinks unless the queue is
// full. The first sink error sticks and is returned by later calls.
type lineWriter struct {
	items   chan lineItem
	stopped chan struct{}
	sinks   []io.Writer

	sendMu sync.RWMutex
	closed bool

	errMu sync.Mutex
	err   error
}

func newLineWriter(sinks []io.Writer, queue int) *lineWriter {
	if queue <= 0 {
		queue = 256
	}
	w := &lineWriter{
		items:   make(chan lineItem, queue),
		stopped: make(chan struct{}),
	}
	for _, s := range sinks {
		if s != nil {
			w.sinks = append(w.sinks, s)
		}
	}
	go w.loop()
	return w
}

func (w *lineWriter) loop() {
	defer close(w.stopped)
	for it := range w.items {
		if it.ack != nil {
			close(it.ack)
			continue
		}
		for _, s := range w.sinks {
			if _, err := s.Write(it.line); err != nil {
				w.fail(err)
			}
		}
	}
}

// Write queues a copy of line.
func (w *lineWriter) Write(line []byte) error {
	if err := w.Err(); err != nil {
		return err
	}
	if len(line) == 0 {
		return nil
	}
	return w.send(lineItem{line: append([]byte(nil), line...)})
}

// Flush returns once every line queued before it has been written.
func (w *lineWriter) Flush() error {
	ack := make(chan struct{})
	if err := w.send(lineItem{ack: ack}); err != nil {
		return err
	}
	<-ack
	return w.Err()
}

// Close writes out the queue and stops the goroutine. Later writes fail.
func (w *lineWriter) Close() error {
	w.sendMu.Lock()
	if !w.closed {
		w.closed = true
		close(w.items)
	}
	w.sendMu.Unlock()
	<-w.stopped
	return w.Err()
}

// Err reports the first sink error.
func (w *lineWriter) Err() error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	return w.err
}

func (w *lineWriter) send(it lineItem) error {
	w.sendMu.RLock()
	defer w.sendMu.RUnlock()
	if w.closed {
		return errWriterClosed
	}
	w.items <- it
	return nil
}

func (w *lineWriter) fail(err error) {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	if w.err == nil {
		w.err = err
	}
}
