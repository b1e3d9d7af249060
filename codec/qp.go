package codec

import (
	"io"
	"mime/quotedprintable"
)

// EncodeQP writes the quoted-printable encoding of r to w (RFC 2045 §6.7).
// The standard library's writer already wraps lines at 76 columns and
// escapes trailing whitespace, matching what every mail server we've traced
// against expects; there is no ecosystem alternative worth reaching for
// here.
func EncodeQP(w io.Writer, r io.Reader) error {
	qw := quotedprintable.NewWriter(w)
	if _, err := io.Copy(qw, r); err != nil {
		return err
	}
	return qw.Close()
}

// DecodeQP returns a reader for quoted-printable data read from r.
func DecodeQP(r io.Reader) io.Reader {
	return quotedprintable.NewReader(r)
}
