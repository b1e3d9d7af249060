package address

import (
	"strconv"
	"strings"

	"github.com/sguinebert/mailio/codec"
)

// String renders mb as it would appear in an address-list header: a
// quoted/RFC 2047-encoded display name followed by an angle-addr, or a bare
// addr-spec if there is no name.
func (mb Mailbox) String() string {
	addr := mb.Address.String()
	if mb.Name == "" {
		return addr
	}
	return encodeName(mb.Name) + " <" + addr + ">"
}

// String renders g as "name: member, member;".
func (g Group) String() string {
	var parts []string
	for _, mb := range g.Mailboxes {
		parts = append(parts, mb.String())
	}
	return encodeName(g.Name) + ": " + strings.Join(parts, ", ") + ";"
}

// String renders the full address-list, suitable as the value of a From, To,
// Cc, Bcc, Reply-To or Sender header (before folding). Callers that need the
// line wrapped to a LinePolicy should pass this through codec.FoldHeader.
func (m Mailboxes) String() string {
	var parts []string
	for _, mb := range m.Mailboxes {
		parts = append(parts, mb.String())
	}
	for _, g := range m.Groups {
		parts = append(parts, g.String())
	}
	return strings.Join(parts, ", ")
}

// encodeName quotes name as an RFC 5322 quoted-string if it contains
// characters a bare atom cannot, or RFC 2047-encodes it (Q or B, whichever
// is shorter) if it has non-ASCII content; plain atoms are returned
// unchanged.
func encodeName(name string) string {
	if name == "" {
		return ""
	}
	needsEncoding := false
	needsQuote := false
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= 0x80 {
			needsEncoding = true
			break
		}
		if !isAtomChar(c) && c != ' ' {
			needsQuote = true
		}
	}
	if needsEncoding {
		return codec.EncodeHeaderWordQ(name, codec.DefaultLinePolicy, 0)
	}
	if needsQuote {
		return strconv.Quote(name)
	}
	return name
}
