package smtp

import (
	"strconv"
	"strings"

	"github.com/sguinebert/mailio/dns"
)

// Path is an SMTP reverse/forward path, the value carried in MAIL FROM and
// RCPT TO commands: a localpart plus either a domain name or an IP
// address literal.
type Path struct {
	Localpart Localpart
	IPDomain  dns.IPDomain
}

func (p Path) IsZero() bool {
	return p.Localpart == "" && p.IPDomain.IsZero()
}

// domainPart formats the right-hand side of the address for the wire: an
// address literal in brackets for an IP, or dns.IPDomain's own formatting
// for a domain name. ../rfc/5321:2309
func (p Path) domainPart(utf8 bool) string {
	if p.IPDomain.IsIP() {
		return AddressLiteral(p.IPDomain.IP)
	}
	return p.IPDomain.XString(utf8)
}

// String returns the path with an ASCII-only domain name.
func (p Path) String() string {
	return p.XString(false)
}

// LogString returns the UTF-8 representation and, if it differs, "/"
// followed by an ASCII-only representation (with a non-ASCII localpart
// quoted and escaped).
func (p Path) LogString() string {
	if p.IsZero() {
		return ""
	}
	s := p.XString(true)
	lp := p.Localpart.String()
	qlp := strconv.QuoteToASCII(lp)
	if escaped := qlp != `"`+lp+`"`; p.IPDomain.Domain.Unicode != "" || escaped {
		if escaped {
			lp = qlp
		}
		s += "/" + lp + "@" + p.domainPart(false)
	}
	return s
}

// XString is like String, but returns a UTF-8 domain name if utf8 is true.
func (p Path) XString(utf8 bool) string {
	if p.IsZero() {
		return ""
	}
	return p.Localpart.String() + "@" + p.domainPart(utf8)
}

// ASCIIExtra returns an ASCII-only rendering of p when utf8 is true and
// the domain is a unicode domain, for use in a comment added to a message
// header during SMTP delivery. Otherwise it returns "".
func (p Path) ASCIIExtra(utf8 bool) string {
	if utf8 && p.IPDomain.Domain.Unicode != "" {
		return p.XString(false)
	}
	return ""
}

// DSNString renders p for a delivery status notification. If utf8 is
// false, the domain is IDNA-encoded and the localpart uses the RFC 6533
// 7bit encoding instead of the packed wire form.
func (p Path) DSNString(utf8 bool) string {
	if utf8 {
		return p.XString(utf8)
	}
	return p.Localpart.DSNString(utf8) + "@" + p.domainPart(utf8)
}

// Equal reports whether p and o denote the same address: same localpart,
// and either the same IP or case-insensitively the same ASCII domain.
func (p Path) Equal(o Path) bool {
	if p.Localpart != o.Localpart {
		return false
	}
	a, b := p.IPDomain, o.IPDomain
	if a.IsIP() || b.IsIP() {
		return a.IP.Equal(b.IP)
	}
	return strings.EqualFold(a.Domain.ASCII, b.Domain.ASCII)
}
