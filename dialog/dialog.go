// Package dialog implements the line-framed transport shared by the SMTP,
// POP3 and IMAP engines: a buffered, timeout-aware, cancellation-aware
// full-duplex channel over a transport.Stream that reads CRLF-terminated
// lines and exact-octet runs, and an async mutex for engines that need to
// serialize access to a connection shared across goroutines.
package dialog

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/sguinebert/mailio/iox"
	"github.com/sguinebert/mailio/mlog"
	"github.com/sguinebert/mailio/transport"
)

// ErrLineTooLong is returned by ReadLine when no line terminator is found
// within DefaultMaxLineLength+2 octets.
var ErrLineTooLong = iox.ErrLineTooLong

// DefaultMaxLineLength is the default cap on a single line, matching
// spec.md §6's max_line_length default.
const DefaultMaxLineLength = 8192

var bufs = iox.NewBufpool(8, DefaultMaxLineLength+2)

// Dialog frames a transport.Stream into lines and exact-octet reads. A
// Dialog exclusively owns its Stream; callers sharing a Dialog across
// goroutines must serialize through a Mutex.
type Dialog struct {
	stream *transport.Stream
	log    mlog.Log

	r  *bufio.Reader
	tr *iox.TraceReader
	w  *bufio.Writer
	tw *iox.TraceWriter

	timeout time.Duration // Per-operation timeout; zero disables.
}

// New wraps stream in a Dialog. readPrefix/writePrefix are used as prefixes
// for wire-level trace logging (e.g. "S: " / "C: ").
func New(stream *transport.Stream, log mlog.Log, readPrefix, writePrefix string, timeout time.Duration) *Dialog {
	d := &Dialog{stream: stream, log: log, timeout: timeout}
	d.tr = iox.NewTraceReader(log, readPrefix, stream)
	d.r = bufio.NewReader(d.tr)
	d.tw = iox.NewTraceWriter(log, writePrefix, stream)
	d.w = bufio.NewWriter(d.tw)
	return d
}

// SetTrace adjusts the trace level used for subsequent reads/writes, e.g. to
// mlog.LevelTraceauth around an AUTH exchange or mlog.LevelTracedata around
// a DATA/APPEND/RETR body, restoring mlog.LevelTrace afterwards.
func (d *Dialog) SetTrace(level slog.Level) {
	d.Flush()
	d.tr.SetTrace(level)
	d.tw.SetTrace(level)
}

// Buffered returns the number of bytes already read into the dialog's
// buffer but not yet consumed by the caller. StartTLS must only be called
// when this is zero: any buffered plaintext past the upgrade point could be
// attacker-injected bytes smuggled across the STARTTLS boundary.
func (d *Dialog) Buffered() int {
	return d.r.Buffered()
}

// StartTLS upgrades the underlying stream in place and resets the dialog's
// buffered reader/writer to read/write through the new TLS layer. It fails
// if Buffered() is non-zero.
func (d *Dialog) StartTLS(ctx context.Context, opts transport.TLSOptions) error {
	if err := d.stream.StartTLS(ctx, d.r.Buffered(), opts); err != nil {
		return err
	}
	d.tr = iox.NewTraceReader(d.log, d.tr.Prefix(), d.stream)
	d.r = bufio.NewReader(d.tr)
	d.tw = iox.NewTraceWriter(d.log, d.tw.Prefix(), d.stream)
	d.w = bufio.NewWriter(d.tw)
	return nil
}

// IsTLS reports whether the underlying stream is currently TLS-protected.
func (d *Dialog) IsTLS() bool {
	return d.stream.IsTLS()
}

// Stream returns the underlying transport.Stream, e.g. for
// ConnectionState() to drive SCRAM channel binding.
func (d *Dialog) Stream() *transport.Stream {
	return d.stream
}

func (d *Dialog) deadline() time.Time {
	if d.timeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(d.timeout)
}

// WriteLine writes line with a CRLF terminator appended if not already
// present, and flushes immediately: Dialog does no internal buffering of
// multiple lines across calls.
func (d *Dialog) WriteLine(ctx context.Context, line string) error {
	return d.WriteLinef(ctx, "%s", line)
}

// WriteLinef is WriteLine with fmt.Sprintf formatting.
func (d *Dialog) WriteLinef(ctx context.Context, format string, args ...any) error {
	if err := d.stream.SetWriteDeadline(d.deadline()); err != nil {
		d.log.Errorx("setting write deadline", err)
	}
	stop := d.cancelOnDone(ctx)
	defer stop()
	line := fmt.Sprintf(format, args...)
	if !strings.HasSuffix(line, "\r\n") {
		line += "\r\n"
	}
	if _, err := d.w.WriteString(line); err != nil {
		return fmt.Errorf("write line: %w", err)
	}
	return d.Flush()
}

// WriteRaw writes p verbatim, without adding a line terminator. Used for
// message bodies, e.g. after SMTP DATA's dot-stuffing has already run.
func (d *Dialog) WriteRaw(ctx context.Context, p []byte) error {
	if err := d.stream.SetWriteDeadline(d.deadline()); err != nil {
		d.log.Errorx("setting write deadline", err)
	}
	stop := d.cancelOnDone(ctx)
	defer stop()
	if _, err := d.w.Write(p); err != nil {
		return fmt.Errorf("write raw: %w", err)
	}
	return nil
}

// Flush flushes any buffered writes to the stream.
func (d *Dialog) Flush() error {
	if err := d.w.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

// Writer returns the underlying buffered writer, for callers (codec.StuffWrite)
// that need to stream a large body directly rather than through WriteRaw.
func (d *Dialog) Writer() *bufio.Writer {
	return d.w
}

// Reader returns the underlying buffered reader, for callers (codec.NewUnstuffReader)
// that need to stream a large body directly rather than through ReadLine.
func (d *Dialog) Reader() *bufio.Reader {
	return d.r
}

// ReadLine returns the next CRLF- or LF-terminated line, without its
// terminator. If no terminator is found within DefaultMaxLineLength+2 octets,
// ErrLineTooLong is returned. An EOF before any terminator is
// io.ErrUnexpectedEOF.
func (d *Dialog) ReadLine(ctx context.Context) (string, error) {
	if err := d.stream.SetReadDeadline(d.deadline()); err != nil {
		d.log.Errorx("setting read deadline", err)
	}
	stop := d.cancelOnDone(ctx)
	defer stop()
	line, err := bufs.Readline(d.log, d.r)
	if err != nil {
		return "", fmt.Errorf("read line: %w", err)
	}
	return line, nil
}

// ReadExactly returns exactly n octets, consuming from the dialog's buffer
// first and then from the stream. Required for IMAP literals.
func (d *Dialog) ReadExactly(ctx context.Context, n int) ([]byte, error) {
	if err := d.stream.SetReadDeadline(d.deadline()); err != nil {
		d.log.Errorx("setting read deadline", err)
	}
	stop := d.cancelOnDone(ctx)
	defer stop()
	buf := make([]byte, n)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return nil, fmt.Errorf("read exactly %d: %w", n, err)
	}
	return buf, nil
}

// cancelOnDone arranges for ctx cancellation to abort the in-flight
// operation by forcing the stream's deadline into the past, mirroring
// spec.md §5's "cancellation propagates to the underlying I/O" contract
// without needing a custom single-threaded scheduler — Go's goroutines
// already are the scheduler, so a small watcher goroutine plays the role of
// the spec's per-operation timeout timer.
func (d *Dialog) cancelOnDone(ctx context.Context) func() {
	if ctx == nil || ctx.Done() == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			d.stream.SetReadDeadline(time.Unix(0, 1))
			d.stream.SetWriteDeadline(time.Unix(0, 1))
		case <-done:
		}
	}()
	return func() { close(done) }
}

// ErrCancelled wraps a context error observed during a dialog operation.
var ErrCancelled = errors.New("dialog: operation cancelled")
