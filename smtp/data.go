package smtp

import (
	"bufio"
	"io"

	"github.com/sguinebert/mailio/codec"
)

// ErrCRLF is returned when data passed to DataWrite, or a stream read
// through DataReader, contains a bare carriage return or newline.
var ErrCRLF = codec.ErrCRLF

// errMissingCRLF is returned by DataWrite when the source data does not end
// on a CRLF boundary.
var errMissingCRLF = codec.ErrMissingCRLF

// DataWrite reads a mail message from r and writes it to SMTP connection w
// with dot stuffing and the terminating ".\r\n", as required by the SMTP
// DATA command. ../rfc/5321:2003
//
// The dot-stuffing algorithm itself lives in codec.StuffWrite: it is the
// same framing POP3's multi-line responses use, so the transfer-encoding
// package owns it and both protocol packages call in.
func DataWrite(w io.Writer, r io.Reader) error {
	return codec.StuffWrite(w, r)
}

// DataReader reads and dot-unstuffs an SMTP DATA body, returning io.EOF at
// the terminating lone "." line. Use NewDataReader.
type DataReader struct {
	*codec.UnstuffReader
}

// NewDataReader returns a DataReader reading from r.
func NewDataReader(r *bufio.Reader) *DataReader {
	return &DataReader{codec.NewUnstuffReader(r)}
}
