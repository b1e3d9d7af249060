package message

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sguinebert/mailio/smtp"
)

var errBadMessageID = errors.New("not a message-id")

// stripAngles removes the enclosing "<" and ">" from a Message-ID/reference
// field value, tolerating trailing comment text after the ">" the way real
// mail seen in the wild sometimes has it (e.g. an appended "(added by ...)").
// ../rfc/5322:1383
func stripAngles(s string) (string, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "<") {
		return "", fmt.Errorf("%w: missing <", errBadMessageID)
	}
	body, trailing, ok := strings.Cut(s[1:], ">")
	if !ok || (trailing != "" && (Pedantic || !strings.HasPrefix(trailing, " "))) {
		return "", fmt.Errorf("%w: missing >", errBadMessageID)
	}
	return body, nil
}

// foldLocalpart lower-cases s and, if its right-hand side parses as a
// localpart@domain address, rewrites the localpart through smtp.Localpart to
// drop unneeded quoting while keeping the domain as it appears in the
// lower-cased s (no IDNA conversion).
func foldLocalpart(s string) (folded string, isAddress bool) {
	s = strings.ToLower(s)
	addr, err := smtp.ParseAddress(s)
	if err != nil {
		// Not uncommon for message-ids to fail the localpart@domain grammar:
		// an underscore in the hostname, an IP literal, a second "@" used as
		// a time separator, or no "@" at all.
		return s, false
	}
	_, domain, _ := strings.Cut(s, "@")
	return addr.Localpart.String() + "@" + domain, true
}

// MessageIDCanonical parses the Message-ID, returning a canonical value that is
// lower-cased, without <>, and no unneeded quoting. For matching in threading,
// with References/In-Reply-To. If the message-id is invalid (e.g. no <>), an error
// is returned. If the message-id could not be parsed as address (localpart "@"
// domain), the raw value and the bool return parameter true is returned. It is
// quite common that message-id's don't adhere to the localpart @ domain
// syntax.
func MessageIDCanonical(s string) (string, bool, error) {
	body, err := stripAngles(s)
	if err != nil {
		return "", false, err
	}
	if body == "" {
		return "", false, fmt.Errorf("%w: empty message-id", errBadMessageID)
	}
	folded, isAddress := foldLocalpart(body)
	return folded, !isAddress, nil
}
