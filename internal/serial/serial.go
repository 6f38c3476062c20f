// Package serial carries protocol lines over a serial link with abstraction for testing.
package serial

import (
	"fmt"
	"io"

	"github.com/sweeney/knock-sensor/internal/protocol"
)

// LineWriter writes protocol lines to a serial link.
type LineWriter interface {
	// WriteLine writes one line. The line ending is added by the writer.
	WriteLine(line string) error

	// Close releases the underlying link.
	Close() error
}

// StreamWriter writes lines to any io.Writer, e.g. stdout when no port is configured.
type StreamWriter struct {
	w io.Writer
}

// NewStreamWriter creates a StreamWriter over w.
func NewStreamWriter(w io.Writer) *StreamWriter {
	return &StreamWriter{w: w}
}

// WriteLine writes line followed by protocol.LineEnding.
func (s *StreamWriter) WriteLine(line string) error {
	if _, err := io.WriteString(s.w, line+protocol.LineEnding); err != nil {
		return fmt.Errorf("write line: %w", err)
	}
	return nil
}

// Close closes the underlying writer if it is an io.Closer.
func (s *StreamWriter) Close() error {
	if c, ok := s.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Tee fans every line out to several writers.
type Tee []LineWriter

// WriteLine writes to every writer, even if an earlier one fails.
func (t Tee) WriteLine(line string) error {
	var errs []error
	for _, w := range t {
		if err := w.WriteLine(line); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("write errors: %v", errs)
	}
	return nil
}

// Close closes every writer.
func (t Tee) Close() error {
	var errs []error
	for _, w := range t {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
