package dns

import (
	"net"
)

// IPDomain holds either an IP address or a domain name, never both, and is
// the right-hand side of an smtp.Path (MAIL FROM/RCPT TO can name either a
// resolvable domain or an address literal).
type IPDomain struct {
	IP     net.IP
	Domain Domain
}

func (d IPDomain) IsIP() bool {
	return len(d.IP) > 0
}

func (d IPDomain) IsDomain() bool {
	return !d.Domain.IsZero()
}

// IsZero reports whether neither IP nor Domain is set.
func (d IPDomain) IsZero() bool {
	return !d.IsIP() && d.Domain.IsZero()
}

// String returns the IP, or the domain in its unicode form.
func (d IPDomain) String() string {
	return d.XString(true)
}

// LogString is like String, but keeps the domain's ASCII/unicode split for
// logging (see Domain.LogString).
func (d IPDomain) LogString() string {
	if d.IsIP() {
		return d.IP.String()
	}
	return d.Domain.LogString()
}

// XString returns the IP, or the domain, in ASCII form unless utf8 is true.
//
// Unlike smtp.Path, IPDomain does not bracket an IP in SMTP address-literal
// syntax ("[1.2.3.4]", "[IPv6:...]"): most IPDomain callers use it outside
// an address context (SNI, TLSA lookups), where a bare IP is what's wanted.
// smtp.Path.domainPart bracket-wraps its own IPDomain for that reason,
// rather than pushing SMTP-specific formatting down into this type.
func (d IPDomain) XString(utf8 bool) string {
	if d.IsIP() {
		return d.IP.String()
	}
	return d.Domain.XName(utf8)
}
