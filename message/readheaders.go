package message

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

var blankLine = []byte("\r\n\r\n")

// ErrHeaderSeparator is returned by ReadHeaders when msg ends before a
// blank line separating headers from body is found.
var ErrHeaderSeparator = errors.New("no header separator found")

// ReadHeaders reads and returns the raw header block of a message, up to
// but not including the blank line that separates it from the body.
func ReadHeaders(msg *bufio.Reader) ([]byte, error) {
	var buf []byte
	for !bytes.HasSuffix(buf, blankLine) {
		line, err := msg.ReadBytes('\n')
		buf = append(buf, line...)
		if err == io.EOF {
			if bytes.HasSuffix(buf, blankLine) {
				break
			}
			return nil, ErrHeaderSeparator
		} else if err != nil {
			return nil, err
		}
	}
	return buf[:len(buf)-2], nil
}
