package scram

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

// reader tokenizes one SCRAM message (client-first, server-first, or a
// "final" message), which is a comma-separated sequence of attr=value
// pairs with a few fixed-position exceptions (the gs2 header).
//
// Attribute names and the fixed literals ("n=", "r=", ...) are matched
// case-insensitively against foldedText, but all returned substrings are
// sliced out of rawText so callers see the original casing.
type reader struct {
	rawText    string
	foldedText string
	pos        int
}

// wireError wraps a reader failure so recover can turn it into
// ErrInvalidEncoding without swallowing a caller-recognizable Error value.
type wireError struct{ err error }

func (e wireError) Error() string { return e.err.Error() }
func (e wireError) Unwrap() error { return e.err }

func newReader(buf []byte) *reader {
	s := string(buf)
	return &reader{rawText: s, foldedText: foldASCII(s)}
}

// foldASCII lower-cases only ASCII A-Z, unlike strings.ToLower, so that
// byte offsets into the folded and original strings never diverge (which
// full Unicode case folding could do for non-ASCII input).
func foldASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// recover turns a panicking wireError into *rerr as ErrInvalidEncoding,
// unless the underlying error is itself a recognizable protocol Error, in
// which case that is returned unwrapped so callers can compare against it.
func (r *reader) recover(rerr *error) {
	x := recover()
	if x == nil {
		return
	}
	err, ok := x.(error)
	if !ok {
		panic(x)
	}
	var known Error
	if as(err, &known) {
		*rerr = err
		return
	}
	*rerr = fmt.Errorf("%w: %s", ErrInvalidEncoding, err)
}

// as is a tiny errors.As for the single-level unwrap this package needs,
// avoiding an import of errors just for that.
func as(err error, target *Error) bool {
	for err != nil {
		if e, ok := err.(Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func (r *reader) fail(format string, args ...any) {
	panic(wireError{fmt.Errorf(format, args...)})
}

func (r *reader) check(err error, format string, args ...any) {
	if err != nil {
		panic(wireError{fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)})
	}
}

func (r *reader) done() {
	if r.pos != len(r.rawText) {
		r.fail("trailing data after message")
	}
}

func (r *reader) requireMore() {
	if r.pos >= len(r.rawText) {
		r.fail("unexpected end of message")
	}
}

func (r *reader) byte() byte {
	r.requireMore()
	c := r.foldedText[r.pos]
	r.pos++
	return c
}

func (r *reader) peek(lit string) bool {
	return strings.HasPrefix(r.foldedText[r.pos:], lit)
}

func (r *reader) accept(lit string) bool {
	if r.peek(lit) {
		r.pos += len(lit)
		return true
	}
	return false
}

func (r *reader) expect(lit string) {
	if !r.accept(lit) {
		r.fail("expected %q", lit)
	}
}

// span consumes the longest run for which keep returns true, starting at
// the current position, and returns the raw-cased substring. i is the
// offset from the start of the run, so callers can allow different bytes
// in the first position (e.g. no leading zero).
func (r *reader) span(keep func(c byte, i int) bool) string {
	s := r.rawText[r.pos:]
	for i := 0; i < len(s); i++ {
		if !keep(s[i], i) {
			if i == 0 {
				r.fail("empty token")
			}
			r.pos += i
			return s[:i]
		}
	}
	r.requireMore()
	r.pos = len(r.rawText)
	return s
}

// authzid reads an "a=" gs2 authzid attribute.
func (r *reader) authzid() string {
	r.expect("a=")
	return r.saslName()
}

// username reads an "n=" attribute.
func (r *reader) username() string {
	r.expect("n=")
	return r.saslName()
}

// nonce reads an "r=" attribute: printable ASCII without comma.
func (r *reader) nonce() string {
	r.expect("r=")
	return r.span(func(c byte, _ int) bool { return c > ' ' && c < 0x7f && c != ',' })
}

// skipAttr consumes one unrecognized attr-val extension.
func (r *reader) skipAttr() {
	c := r.byte()
	if !(c >= 'a' && c <= 'z') {
		r.fail("expected letter starting extension attribute")
	}
	r.expect("=")
	r.value()
}

// value reads a value production: any bytes up to the next comma or NUL.
func (r *reader) value() string {
	s := r.rawText[r.pos:]
	for i := 0; i < len(s); i++ {
		if s[i] == ',' || s[i] == 0 {
			if i == 0 {
				r.fail("empty value")
			}
			r.pos += i
			return s[:i]
		}
	}
	r.requireMore()
	r.pos = len(r.rawText)
	return s
}

// base64Value reads a run of base64 alphabet bytes and decodes it.
func (r *reader) base64Value() []byte {
	s := r.span(func(c byte, _ int) bool {
		return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '/' || c == '+' || c == '='
	})
	buf, err := base64.StdEncoding.DecodeString(s)
	r.check(err, "decoding base64 value")
	return buf
}

// saslName reads a saslname production, unescaping "=2C"/"=3D".
func (r *reader) saslName() string {
	var sb strings.Builder
	s := r.rawText[r.pos:]
	i := 0
	for ; i < len(s); i++ {
		c := s[i]
		if c == ',' || c == 0 {
			break
		}
		if c != '=' {
			sb.WriteByte(c)
			continue
		}
		if i+3 > len(s) {
			r.fail("truncated saslname escape")
		}
		switch s[i+1 : i+3] {
		case "2C", "2c":
			sb.WriteByte(',')
		case "3D", "3d":
			sb.WriteByte('=')
		default:
			r.fail("invalid saslname escape %q", s[i:i+3])
		}
		i += 2
	}
	if sb.Len() == 0 {
		r.fail("saslname cannot be empty")
	}
	r.pos += i
	return sb.String()
}

// cbName reads a channel binding name, e.g. "tls-unique". ../rfc/5802:889
func (r *reader) cbName() string {
	return r.span(func(c byte, _ int) bool {
		return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '.' || c == '-'
	})
}

func (r *reader) channelBinding() []byte {
	r.expect("c=")
	return r.base64Value()
}

func (r *reader) proof() []byte {
	r.expect("p=")
	return r.base64Value()
}

func (r *reader) salt() []byte {
	r.expect("s=")
	return r.base64Value()
}

func (r *reader) iterations() int {
	r.expect("i=")
	digits := r.span(func(c byte, i int) bool {
		return c >= '1' && c <= '9' || i > 0 && c == '0'
	})
	v, err := strconv.ParseInt(digits, 10, 32)
	r.check(err, "parsing iteration count")
	return int(v)
}
