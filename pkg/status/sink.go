// Package status carries controller messages to an operator-facing sink.
package status

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrSinkFull is returned when a sink cannot accept another line.
var ErrSinkFull = errors.New("status sink full")

// Sink accepts append-only status lines.
type Sink interface {
	WriteLine(line string) error
}

// ChannelSink delivers lines on a buffered channel. Lines are dropped (with
// ErrSinkFull) while the reader is behind.
type ChannelSink struct {
	ch chan string
}

// NewChannelSink creates a sink buffering up to size lines.
func NewChannelSink(size int) *ChannelSink {
	return &ChannelSink{ch: make(chan string, size)}
}

// WriteLine queues line without blocking.
func (s *ChannelSink) WriteLine(line string) error {
	select {
	case s.ch <- line:
		return nil
	default:
		return ErrSinkFull
	}
}

// Lines returns the channel that receives status lines.
func (s *ChannelSink) Lines() <-chan string {
	return s.ch
}

// WriterSink writes each line to an io.Writer.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink creates a sink writing to w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// WriteLine writes line followed by a newline.
func (s *WriterSink) WriteLine(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintln(s.w, line)
	return err
}
