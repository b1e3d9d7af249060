package codec

import (
	"bufio"
	"errors"
	"io"
)

// ErrNon7Bit is returned by Check7Bit when data contains an octet with the
// high bit set, which is not valid in a message part declared as 7bit.
var ErrNon7Bit = errors.New("codec: octet with high bit set in 7bit content")

// ErrBareCRorLF is returned when a line contains a CR or LF not part of a
// CRLF pair, which none of the three identity transfer encodings allow.
var ErrBareCRorLF = errors.New("codec: bare cr or lf")

// Check7Bit validates that r contains only 7bit content: no octet with the
// high bit set, and no bare CR or LF, as required for a body part declared
// "Content-Transfer-Encoding: 7bit" (RFC 2045 §2.7). NUL octets are not
// rejected.
func Check7Bit(r io.Reader) error {
	return checkBits(r, true)
}

// Check8Bit validates that r contains only CRLF-delimited lines, allowing
// octets with the high bit set, for a body part declared "8bit" (RFC 2045
// §2.8). Binary content (arbitrary bare CR/LF) is not validated here; use
// CheckBinary for that.
func Check8Bit(r io.Reader) error {
	return checkBits(r, false)
}

func checkBits(r io.Reader, sevenBitOnly bool) error {
	br := bufio.NewReader(r)
	var last byte = '\n'
	buf := make([]byte, 8*1024)
	for {
		n, err := br.Read(buf)
		for i := 0; i < n; i++ {
			c := buf[i]
			if sevenBitOnly && c >= 0x80 {
				return ErrNon7Bit
			}
			if c == '\n' && last != '\r' {
				return ErrBareCRorLF
			}
			if last == '\r' && c != '\n' {
				return ErrBareCRorLF
			}
			last = c
		}
		if err == io.EOF {
			if last == '\r' {
				return ErrBareCRorLF
			}
			return nil
		} else if err != nil {
			return err
		}
	}
}

// CheckBinary exists for symmetry with Check7Bit/Check8Bit: binary content
// has no format constraints beyond a maximum line length, which is enforced
// at the transport layer (codec.LinePolicy) rather than here.
func CheckBinary(r io.Reader) error {
	_, err := io.Copy(io.Discard, r)
	return err
}
