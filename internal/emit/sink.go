package emit

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"syscall"
)

// ErrSinkClosed reports that the downstream consumer went away. The pipeline
// treats it as an orderly stop, not a failure, because the usual consumer is
// a tile builder on the far side of a pipe that may exit once it has enough.
var ErrSinkClosed = errors.New("output sink closed")

// Sink receives encoded records. kind is one of the Kind constants and key
// identifies the subject (entity id for raw records, cell id for
// aggregates); sinks that have no use for them ignore both.
type Sink interface {
	Emit(ctx context.Context, kind, key string, line []byte) error
	Close() error
}

// MultiSink fans every record out to each sink in order, stopping at the
// first failure. Closing closes every sink and keeps the first error.
type MultiSink []Sink

func (m MultiSink) Emit(ctx context.Context, kind, key string, line []byte) error {
	for _, s := range m {
		if err := s.Emit(ctx, kind, key, line); err != nil {
			return err
		}
	}
	return nil
}

func (m MultiSink) Close() error {
	var first error
	for _, s := range m {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Encoder serializes records compactly, one JSON object per call, without
// HTML escaping so coordinate arrays stay byte-for-byte plain.
type Encoder struct {
	buf bytes.Buffer
	enc *json.Encoder
}

func NewEncoder() *Encoder {
	e := &Encoder{}
	e.enc = json.NewEncoder(&e.buf)
	e.enc.SetEscapeHTML(false)
	return e
}

// Encode returns the record as a single line without a trailing newline.
// The returned slice is the caller's to keep.
func (e *Encoder) Encode(rec Record) ([]byte, error) {
	e.buf.Reset()
	if err := e.enc.Encode(rec); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	line := bytes.TrimRight(e.buf.Bytes(), "\n")
	out := make([]byte, len(line))
	copy(out, line)
	return out, nil
}

// NDJSONSink writes newline-delimited records to a single writer, normally
// stdout. Writes are buffered; Close flushes.
type NDJSONSink struct {
	w *bufio.Writer
}

func NewNDJSONSink(w io.Writer) *NDJSONSink {
	return &NDJSONSink{w: bufio.NewWriter(w)}
}

func (s *NDJSONSink) Emit(_ context.Context, _, _ string, line []byte) error {
	if _, err := s.w.Write(line); err != nil {
		return sinkError(err)
	}
	if err := s.w.WriteByte('\n'); err != nil {
		return sinkError(err)
	}
	return nil
}

func (s *NDJSONSink) Close() error {
	if err := s.w.Flush(); err != nil {
		return sinkError(err)
	}
	return nil
}

// sinkError maps a broken pipe onto ErrSinkClosed and wraps anything else.
func sinkError(err error) error {
	if errors.Is(err, syscall.EPIPE) {
		return ErrSinkClosed
	}
	return fmt.Errorf("write record: %w", err)
}
