package message

import (
	"strings"
)

// NeedsQuotedPrintable reports whether text has a line too long, or a bare
// CR/LF not part of a CRLF pair, for 7bit/8bit transfer and must instead be
// quoted-printable encoded. ../rfc/2045:1025
func NeedsQuotedPrintable(text string) bool {
	lineTooLong := func(line string) bool {
		return len(line) > 78 || strings.ContainsAny(line, "\r\n")
	}
	for _, line := range strings.Split(text, "\r\n") {
		if lineTooLong(line) {
			return true
		}
	}
	return false
}
