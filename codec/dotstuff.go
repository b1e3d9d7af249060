// Dot-stuffing for SMTP DATA and POP3 RETR/TOP/LIST/UIDL/CAPA body framing
// (spec.md §4.4, §8 invariant 3): a body line starting with "." is sent
// with an extra "." prefix, and the payload ends with a lone "." line.
package codec

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
)

// ErrCRLF is returned when a bare CR or LF (not part of a CRLF pair) is
// found in data being dot-stuffed, or when a stuffed stream is malformed
// around its terminating line.
var ErrCRLF = errors.New("codec: invalid bare carriage return or newline")

// ErrMissingCRLF is returned by StuffWrite when the source data does not end
// on a CRLF boundary, so the terminating ".\r\n" cannot be appended safely.
var ErrMissingCRLF = errors.New("codec: missing crlf at end of message")

var dotcrlf = []byte(".\r\n")

// StuffWrite reads a message from r and writes it to w with dot-stuffing
// applied and the terminating ".\r\n" appended, as required by SMTP DATA.
// Messages containing bare CR or LF return ErrCRLF.
func StuffWrite(w io.Writer, r io.Reader) error {
	var prevlast, last byte = '\r', '\n' // Start on a new line, so a leading dot gets stuffed too.
	buf := make([]byte, 8*1024)
	for {
		nr, err := r.Read(buf)
		if nr > 0 {
			p := buf[:nr]
			for len(p) > 0 {
				if p[0] == '.' && prevlast == '\r' && last == '\n' {
					if _, err := w.Write([]byte{'.'}); err != nil {
						return err
					}
				}
				n := 0
				firstcr := -1
				for n < len(p) {
					c := p[n]
					if c == '\n' {
						if firstcr < 0 {
							if n > 0 || last != '\r' {
								return ErrCRLF
							}
						} else if firstcr != n-1 {
							return ErrCRLF
						}
						n++
						break
					} else if c == '\r' && firstcr < 0 {
						firstcr = n
					}
					n++
				}
				if _, err := w.Write(p[:n]); err != nil {
					return err
				}
				if n == 1 {
					prevlast, last = last, p[0]
				} else {
					prevlast, last = p[n-2], p[n-1]
				}
				p = p[n:]
			}
		}
		if err == io.EOF {
			break
		} else if err != nil {
			return err
		}
	}
	if prevlast != '\r' || last != '\n' {
		return ErrMissingCRLF
	}
	_, err := w.Write(dotcrlf)
	return err
}

// UnstuffReader is an io.Reader that dot-unstuffs an SMTP DATA-style body
// read from r, returning io.EOF at the terminating lone "." line.
type UnstuffReader struct {
	r           *bufio.Reader
	plast, last byte
	buf         []byte
	err         error

	// badcrlf defers reporting a malformed CR/LF sequence until the
	// terminator is seen, so the protocol stays in sync: we cannot stop
	// reading mid-stream without leaving the connection unparseable.
	badcrlf bool
}

// NewUnstuffReader returns an UnstuffReader reading from r.
func NewUnstuffReader(r *bufio.Reader) *UnstuffReader {
	return &UnstuffReader{r: r, plast: '\r', last: '\n'}
}

// Read implements io.Reader.
func (r *UnstuffReader) Read(p []byte) (int, error) {
	wrote := 0
	for len(p) > 0 {
		if len(r.buf) == 0 {
			if r.err != nil {
				break
			}
			r.buf, r.err = r.r.ReadSlice('\n')
			if r.err == bufio.ErrBufferFull {
				r.err = nil
			} else if r.err == io.EOF {
				r.err = io.ErrUnexpectedEOF
			}
		}
		if len(r.buf) > 0 {
			for i, c := range r.buf {
				if c == '\r' && (i == len(r.buf)-1 || r.buf[i+1] != '\n') {
					r.badcrlf = true
				}
			}
			if r.plast == '\r' && r.last == '\n' {
				if bytes.Equal(r.buf, dotcrlf) {
					r.buf = nil
					r.err = io.EOF
					if r.badcrlf {
						r.err = ErrCRLF
					}
					break
				} else if r.buf[0] == '.' {
					if len(r.buf) >= 2 && r.buf[1] == '\n' {
						r.badcrlf = true
					}
					r.buf = r.buf[1:]
				}
			} else if r.last == '\n' && (bytes.HasPrefix(r.buf, []byte(".\n")) || bytes.HasPrefix(r.buf, []byte(".\r\n"))) {
				r.badcrlf = true
			}
			n := len(r.buf)
			if n > len(p) {
				n = len(p)
			}
			copy(p, r.buf[:n])
			if n == 1 {
				r.plast, r.last = r.last, r.buf[0]
			} else if n > 1 {
				r.plast, r.last = r.buf[n-2], r.buf[n-1]
			}
			p = p[n:]
			r.buf = r.buf[n:]
			wrote += n
		}
	}
	return wrote, r.err
}

// UnstuffLine dot-unstuffs a single already-delimited line (no CRLF) as read
// by a line-oriented reader such as dialog.Dialog.ReadLine, for POP3's
// multi-line responses (CAPA, LIST, UIDL, RETR, TOP). It reports whether
// line is the terminating lone "." line.
func UnstuffLine(line string) (data string, end bool) {
	if line == "." {
		return "", true
	}
	if strings.HasPrefix(line, ".") {
		return line[1:], false
	}
	return line, false
}

// StuffLine dot-stuffs a single line before it is written with a line-based
// writer such as dialog.Dialog.WriteLine. Used when an engine emits a
// multi-line body line by line instead of through StuffWrite.
func StuffLine(line string) string {
	if strings.HasPrefix(line, ".") {
		return "." + line
	}
	return line
}
