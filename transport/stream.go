// Package transport implements the upgradable stream: a byte-oriented
// connection that starts out plain and can be upgraded in place to TLS,
// without the caller ever rebinding to a new value.
//
// pop3client goes through a dialog.Dialog, which in turn owns one Stream;
// smtpclient and imapclient hold their net.Conn directly and do not use
// Stream.
// A Stream is identified by its address, not by its current type: before
// StartTLS, reads and writes traverse the plain socket; after, they traverse
// the TLS record layer wrapping the same socket.
package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"time"
)

// ErrStreamPoisoned is returned by any operation on a Stream whose TLS
// handshake failed. A poisoned stream must be closed; it cannot be used.
var ErrStreamPoisoned = errors.New("transport: stream poisoned by failed tls handshake")

// ErrBufferedPlaintext is returned by StartTLS when the caller has not fully
// drained plaintext read ahead of the upgrade point. Upgrading with
// unconsumed plaintext buffered would let a man-in-the-middle inject
// commands that get interpreted as if they arrived over the encrypted
// channel (the "plaintext command injection across STARTTLS" class).
var ErrBufferedPlaintext = errors.New("transport: cannot start tls with buffered plaintext pending")

// TLSOptions configures the TLS handshake performed by StartTLS or
// DialImplicitTLS.
type TLSOptions struct {
	// Config, if non-nil, is used as the base tls.Config. ServerName and
	// MinVersion are still applied by Stream unless already set.
	Config *tls.Config

	// ServerName sets the SNI server name, unless Config.ServerName is
	// already non-empty.
	ServerName string
}

func (o TLSOptions) config() *tls.Config {
	cfg := o.Config.Clone()
	if cfg == nil {
		cfg = &tls.Config{}
	}
	if cfg.ServerName == "" {
		cfg.ServerName = o.ServerName
	}
	if cfg.MinVersion == 0 {
		cfg.MinVersion = tls.VersionTLS12
	}
	return cfg
}

// Stream wraps a net.Conn, which may be replaced in place by a *tls.Conn
// after a successful StartTLS. Identity (the *Stream pointer) never changes.
type Stream struct {
	conn     net.Conn
	tls      bool
	poisoned bool
}

// New wraps an already-connected plain or implicit-TLS net.Conn.
func New(conn net.Conn) *Stream {
	_, isTLS := conn.(*tls.Conn)
	return &Stream{conn: conn, tls: isTLS}
}

// DialImplicitTLS dials addr and immediately performs a TLS handshake
// (ports like 465 or 993/995), returning a Stream already in TLS mode.
func DialImplicitTLS(ctx context.Context, network, addr string, opts TLSOptions) (*Stream, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	tlsConn := tls.Client(conn, opts.config())
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tls handshake: %w", err)
	}
	return &Stream{conn: tlsConn, tls: true}, nil
}

// Conn returns the current underlying net.Conn: the plain socket before
// StartTLS, the *tls.Conn after.
func (s *Stream) Conn() net.Conn {
	return s.conn
}

// IsTLS reports whether the stream is currently TLS-protected.
func (s *Stream) IsTLS() bool {
	return s.tls
}

// Read implements io.Reader over the current underlying connection.
func (s *Stream) Read(p []byte) (int, error) {
	if s.poisoned {
		return 0, ErrStreamPoisoned
	}
	return s.conn.Read(p)
}

// Write implements io.Writer over the current underlying connection.
func (s *Stream) Write(p []byte) (int, error) {
	if s.poisoned {
		return 0, ErrStreamPoisoned
	}
	return s.conn.Write(p)
}

// StartTLS upgrades the stream in place. buffered must be the number of
// plaintext bytes the dialog has already read into its own buffer past the
// point the caller decided to upgrade (e.g. bytes read past a STARTTLS "220"
// line) — it MUST be zero, or StartTLS refuses the upgrade. opts controls
// the handshake; a non-empty ServerName sets SNI.
//
// If the handshake fails, the stream is poisoned and every subsequent
// operation returns ErrStreamPoisoned; the caller must close the connection.
// The earlier refusals (already TLS, buffered plaintext) leave the stream
// usable.
func (s *Stream) StartTLS(ctx context.Context, buffered int, opts TLSOptions) error {
	if s.poisoned {
		return ErrStreamPoisoned
	}
	if s.tls {
		return errors.New("transport: stream is already tls")
	}
	if buffered > 0 {
		return ErrBufferedPlaintext
	}
	tlsConn := tls.Client(s.conn, opts.config())
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		s.poisoned = true
		return fmt.Errorf("tls handshake: %w", err)
	}
	s.conn = tlsConn
	s.tls = true
	return nil
}

// ConnectionState returns the TLS connection state, or the zero value and
// false if the stream is not currently TLS-protected.
func (s *Stream) ConnectionState() (tls.ConnectionState, bool) {
	tlsConn, ok := s.conn.(*tls.Conn)
	if !ok {
		return tls.ConnectionState{}, false
	}
	return tlsConn.ConnectionState(), true
}

// SetReadDeadline and SetWriteDeadline forward to the underlying connection.
// A dialog uses these to cancel an in-flight operation: setting a deadline
// in the past aborts any blocked syscall, which is how a context
// cancellation or per-operation timeout reaches the lowest I/O layer.
func (s *Stream) SetReadDeadline(t time.Time) error  { return s.conn.SetReadDeadline(t) }
func (s *Stream) SetWriteDeadline(t time.Time) error { return s.conn.SetWriteDeadline(t) }

// Close closes the underlying connection. Closing a poisoned stream is
// still valid and expected.
func (s *Stream) Close() error {
	return s.conn.Close()
}

var _ io.ReadWriteCloser = (*Stream)(nil)
