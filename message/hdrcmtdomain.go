package message

import (
	"github.com/sguinebert/mailio/dns"
)

// HeaderCommentDomain renders domain for a header value that allows a
// trailing RFC 5322 comment, such as Received: it is the unicode name with
// an "(ascii-name)" comment appended when smtputf8 requested unicode and the
// domain actually has one, so downgrading agents still see an ASCII form.
//
// Callers are responsible for knowing the comment is syntactically allowed
// at that point in the header (Received generally allows one before the
// next field; most other headers don't).
func HeaderCommentDomain(domain dns.Domain, smtputf8 bool) string {
	name := domain.XName(smtputf8)
	if !smtputf8 || domain.Unicode == "" {
		return name
	}
	return name + " (" + domain.ASCII + ")"
}
