package message

import (
	"bytes"
	"fmt"
	"net/mail"
	"net/textproto"
)

// takeLine splits the first line (including its trailing "\n", if any) off
// the front of b.
func takeLine(b []byte) (line, rest []byte) {
	i := bytes.IndexByte(b, '\n')
	if i < 0 {
		return b, nil
	}
	return b[:i+1], b[i+1:]
}

// fieldNameWanted reports whether the field name on a header line (the part
// before its ":") is one of fields, case-insensitively.
func fieldNameWanted(name []byte, fields [][]byte) bool {
	for _, f := range fields {
		if bytes.EqualFold(name, f) {
			return true
		}
	}
	return false
}

// ParseHeaderFields parses only the header fields in "fields" from the complete
// header buffer "header", while using "scratch" as temporary space, prevent lots
// of unneeded allocations when only a few headers are needed.
func ParseHeaderFields(header []byte, scratch []byte, fields [][]byte) (textproto.MIMEHeader, error) {
	// todo: should not use mail.ReadMessage, it allocates a bufio.Reader. should implement header parsing ourselves.

	// Gather the raw lines for the fields, with continuations, without the
	// other headers, into scratch, then parse only that reduced buffer with
	// mail.ReadMessage instead of the full header.
	scratch = scratch[:0]
	var wanted bool
	for len(header) > 0 {
		if header[0] == ' ' || header[0] == '\t' {
			// Continuation of whatever field started the current run.
			var line []byte
			line, header = takeLine(header)
			if wanted {
				scratch = append(scratch, line...)
			}
			continue
		}

		colon := bytes.IndexByte(header, ':')
		malformed := colon < 0 || colon > 0 && (header[colon-1] == ' ' || header[colon-1] == '\t')
		if malformed {
			// Not a valid "name:" start; skip to the next line and stop any
			// continuation run in progress.
			var i int
			if i = bytes.IndexByte(header, '\n'); i < 0 {
				break
			}
			header = header[i+1:]
			wanted = false
			continue
		}

		wanted = fieldNameWanted(header[:colon], fields)
		var line []byte
		line, header = takeLine(header)
		if wanted {
			scratch = append(scratch, line...)
		}
	}

	if len(scratch) == 0 {
		return nil, nil
	}

	scratch = append(scratch, "\r\n"...)

	msg, err := mail.ReadMessage(bytes.NewReader(scratch))
	if err != nil {
		return nil, fmt.Errorf("reading message header")
	}
	return textproto.MIMEHeader(msg.Header), nil
}
