package smtp

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sguinebert/mailio/dns"
)

var ErrBadAddress = errors.New("invalid email address")

// Pedantic enables stricter parsing of addresses and related syntax than
// some mail servers in the wild actually emit.
var Pedantic bool

// Localpart is the decoded local part of an email address, the part
// before the "@". Quoting/escaping is stripped; an empty string is a
// valid localpart.
type Localpart string

// dotAtomSafe reports whether c may appear unescaped in a dot-atom
// localpart. ../rfc/5321:2322 ../rfc/6531:414
func dotAtomSafe(c rune) bool {
	if isalphadigit(c) || c > 0x7f {
		return true
	}
	switch c {
	case '!', '#', '$', '%', '&', '\'', '*', '+', '-', '/', '=', '?', '^', '_', '`', '{', '|', '}', '~':
		return true
	}
	return false
}

// String returns lp packed for the wire: as a dot-atom where possible,
// quoted otherwise.
func (lp Localpart) String() string {
	dotstr := len(lp) > 0
	for _, segment := range strings.Split(string(lp), ".") {
		if segment == "" {
			dotstr = false
			break
		}
		for _, c := range segment {
			if !dotAtomSafe(c) {
				dotstr = false
				break
			}
		}
		if !dotstr {
			break
		}
	}
	if dotstr {
		return string(lp)
	}

	var sb strings.Builder
	sb.WriteByte('"')
	for _, b := range lp {
		if b == '"' || b == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteRune(b)
	}
	sb.WriteByte('"')
	return sb.String()
}

// LogString returns the localpart for logging: the packed form, plus a
// separate ASCII-escaped form when that differs (i.e. it has non-ASCII
// bytes).
func (lp Localpart) LogString() string {
	s := lp.String()
	if qs := strconv.QuoteToASCII(s); qs != `"`+s+`"` {
		return s + "/" + qs
	}
	return s
}

// DSNString returns the localpart for use in a DSN. If utf8 is false, the
// RFC 6533 7bit "utf-8-addr-xtext" encoding is used instead of the packed
// form.
func (lp Localpart) DSNString(utf8 bool) string {
	if utf8 {
		return lp.String()
	}
	var sb strings.Builder
	for _, c := range lp {
		if c > 0x20 && c < 0x7f && c != '\\' && c != '+' && c != '=' {
			sb.WriteRune(c)
		} else {
			fmt.Fprintf(&sb, `\x{%x}`, c)
		}
	}
	return sb.String()
}

// IsInternational reports whether lp has non-ASCII characters.
func (lp Localpart) IsInternational() bool {
	for _, c := range lp {
		if c > 0x7f {
			return true
		}
	}
	return false
}

// Address is a parsed email address with a domain-name-only right-hand
// side. Use Path for the more general MAIL FROM/RCPT TO form that also
// allows an IP address literal.
type Address struct {
	Localpart Localpart
	Domain    dns.Domain
}

// NewAddress returns an address for localpart @ domain.
func NewAddress(localpart Localpart, domain dns.Domain) Address {
	return Address{localpart, domain}
}

// Path widens a to the more general Path representation.
func (a Address) Path() Path {
	return Path{Localpart: a.Localpart, IPDomain: dns.IPDomain{Domain: a.Domain}}
}

func (a Address) IsZero() bool {
	return a == Address{}
}

// Pack returns the address as wire form. If smtputf8 is true, the domain
// is formatted with non-ASCII characters; the localpart follows suit
// regardless of smtputf8, since a non-ASCII localpart has no ASCII form.
func (a Address) Pack(smtputf8 bool) string {
	if a.IsZero() {
		return ""
	}
	return a.Localpart.String() + "@" + a.Domain.XName(smtputf8)
}

// String returns the address with non-ASCII characters, for display.
func (a Address) String() string {
	if a.IsZero() {
		return ""
	}
	return a.Localpart.String() + "@" + a.Domain.Name()
}

// LogString is like Pack(true), plus a separate ASCII-only "/escaped@ascii"
// form appended when the domain is IDNA or the localpart needed escaping.
func (a Address) LogString() string {
	if a.IsZero() {
		return ""
	}
	s := a.Pack(true)
	lp := a.Localpart.String()
	qlp := strconv.QuoteToASCII(lp)
	if escaped := qlp != `"`+lp+`"`; a.Domain.Unicode != "" || escaped {
		if escaped {
			lp = qlp
		}
		s += "/" + lp + "@" + a.Domain.ASCII
	}
	return s
}

// ParseAddress parses a UTF-8 email address with a domain-name right-hand
// side, returning ErrBadAddress on failure.
func ParseAddress(s string) (address Address, err error) {
	lp, rem, err := scanLocalpart(s)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %s", ErrBadAddress, err)
	}
	rem, ok := strings.CutPrefix(rem, "@")
	if !ok {
		return Address{}, fmt.Errorf("%w: expected @ after localpart", ErrBadAddress)
	}
	d, err := dns.ParseDomain(rem)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %s", ErrBadAddress, err)
	}
	return Address{lp, d}, nil
}

var ErrBadLocalpart = errors.New("invalid localpart")

// ParseLocalpart parses a UTF-8 localpart on its own, with nothing left
// over, returning ErrBadLocalpart on failure.
func ParseLocalpart(s string) (localpart Localpart, err error) {
	lp, rem, err := scanLocalpart(s)
	if err != nil {
		return "", err
	}
	if rem != "" {
		return "", fmt.Errorf("%w: unexpected data after localpart: %q", ErrBadLocalpart, rem)
	}
	return lp, nil
}
