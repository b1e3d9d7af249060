package address

import (
	"fmt"
	"strings"

	"github.com/sguinebert/mailio/codec"
	"github.com/sguinebert/mailio/dns"
	"github.com/sguinebert/mailio/mailio"
	"github.com/sguinebert/mailio/smtp"
)

// Parse parses a single address (one mailbox, no trailing data), as used
// for headers like Sender that permit only one address.
func Parse(s string) (Mailbox, error) {
	p := &parser{s: s}
	p.skipCFWS()
	mb, isGroup, err := p.parseMailboxOrGroupStart()
	if err != nil {
		return Mailbox{}, err
	}
	if isGroup {
		return Mailbox{}, mailio.New(mailio.ErrMIMEBadHeader, "group not allowed here", nil)
	}
	p.skipCFWS()
	if !p.empty() {
		return Mailbox{}, mailio.New(mailio.ErrMIMEBadHeader, "trailing data after address", nil)
	}
	return mb, nil
}

// ParseList parses an address-list header value such as From, To, Cc, Bcc
// or Reply-To, which may contain both bare mailboxes and named groups.
func ParseList(s string) (Mailboxes, error) {
	p := &parser{s: s}
	var mb Mailboxes
	for {
		p.skipCFWS()
		if p.empty() {
			break
		}
		m, isGroup, g, err := p.parseAddress()
		if err != nil {
			return Mailboxes{}, err
		}
		if isGroup {
			mb.Groups = append(mb.Groups, g)
		} else {
			mb.Mailboxes = append(mb.Mailboxes, m)
		}
		p.skipCFWS()
		if p.empty() {
			break
		}
		if !p.consume(',') {
			return Mailboxes{}, mailio.New(mailio.ErrMIMEBadHeader, fmt.Sprintf("expected comma at %q", p.s), nil)
		}
	}
	return mb, nil
}

type parser struct {
	s string
}

func (p *parser) empty() bool { return len(p.s) == 0 }

func (p *parser) peek() byte {
	if p.empty() {
		return 0
	}
	return p.s[0]
}

func (p *parser) consume(c byte) bool {
	if p.peek() != c {
		return false
	}
	p.s = p.s[1:]
	return true
}

// skipCFWS skips comments and folding whitespace.
func (p *parser) skipCFWS() {
	for {
		p.s = strings.TrimLeft(p.s, " \t\r\n")
		if p.peek() != '(' {
			return
		}
		depth := 0
		i := 0
		for i < len(p.s) {
			switch p.s[i] {
			case '(':
				depth++
			case '\\':
				i++
			case ')':
				depth--
				if depth == 0 {
					i++
					p.s = p.s[i:]
					i = -1
				}
			}
			if i < 0 {
				break
			}
			i++
		}
		if i >= 0 {
			// Unterminated comment; stop rather than loop forever.
			p.s = ""
			return
		}
	}
}

// parseAddress parses one "address" production: either a group
// ("display-name: mailbox-list? ;") or a mailbox.
func (p *parser) parseAddress() (mb Mailbox, isGroup bool, g Group, err error) {
	mb, isGroup, err = p.parseMailboxOrGroupStart()
	if err != nil || !isGroup {
		return mb, isGroup, Group{}, err
	}
	g.Name = mb.Name
	p.skipCFWS()
	if p.consume(';') {
		return Mailbox{}, true, g, nil
	}
	for {
		p.skipCFWS()
		m, err := p.parseMailbox()
		if err != nil {
			return Mailbox{}, true, Group{}, err
		}
		g.Mailboxes = append(g.Mailboxes, m)
		p.skipCFWS()
		if p.consume(';') {
			return Mailbox{}, true, g, nil
		}
		if !p.consume(',') {
			return Mailbox{}, true, Group{}, mailio.New(mailio.ErrMIMEBadHeader, "expected , or ; in group", nil)
		}
	}
}

// parseMailboxOrGroupStart parses either a mailbox, or the display-name and
// colon that begin a group, reporting which it found. Disambiguation
// requires looking past the phrase for a ':' versus a '<' or '@'.
func (p *parser) parseMailboxOrGroupStart() (Mailbox, bool, error) {
	save := p.s
	name, hasName, err := p.parsePhraseIfPresent()
	if err != nil {
		return Mailbox{}, false, err
	}
	p.skipCFWS()
	if hasName && p.consume(':') {
		return Mailbox{Name: name}, true, nil
	}
	// Not a group; rewind and parse as a plain mailbox.
	p.s = save
	mb, err := p.parseMailbox()
	return mb, false, err
}

func (p *parser) parseMailbox() (Mailbox, error) {
	save := p.s
	name, _, err := p.parsePhraseIfPresent()
	if err != nil {
		return Mailbox{}, err
	}
	p.skipCFWS()
	if p.consume('<') {
		addr, err := p.parseAddrSpec('>')
		if err != nil {
			return Mailbox{}, err
		}
		p.skipCFWS()
		if !p.consume('>') {
			return Mailbox{}, mailio.New(mailio.ErrMIMEBadHeader, "missing closing > in angle-addr", nil)
		}
		return Mailbox{Name: name, Address: addr}, nil
	}
	// No angle-addr: what was read as a phrase is the local-part of a bare
	// addr-spec, so rewind and parse it as one.
	p.s = save
	addr, err := p.parseAddrSpec(0)
	if err != nil {
		return Mailbox{}, err
	}
	return Mailbox{Address: addr}, nil
}

// parsePhraseIfPresent parses a run of words (atoms or quoted-strings),
// decoding RFC 2047 words within it, returning ok=false if nothing phrase-like
// is present before the next structural character.
func (p *parser) parsePhraseIfPresent() (string, bool, error) {
	var words []string
	for {
		p.skipCFWS()
		c := p.peek()
		if c == '"' {
			w, err := p.parseQuotedString()
			if err != nil {
				return "", false, err
			}
			words = append(words, w)
			continue
		}
		if isAtomChar(c) {
			w := p.parseAtom()
			dec, err := codec.DecodeHeaderWord(w)
			if err == nil {
				w = dec
			}
			words = append(words, w)
			continue
		}
		break
	}
	if len(words) == 0 {
		return "", false, nil
	}
	return strings.Join(words, " "), true, nil
}

func isAtomChar(c byte) bool {
	switch c {
	case 0, '(', ')', '<', '>', '[', ']', ':', ';', '@', '\\', ',', '.', '"':
		return false
	}
	return c > ' ' && c < 0x7f || c >= 0x80
}

func (p *parser) parseAtom() string {
	i := 0
	for i < len(p.s) && isAtomChar(p.s[i]) {
		i++
	}
	w := p.s[:i]
	p.s = p.s[i:]
	return w
}

func (p *parser) parseQuotedString() (string, error) {
	if !p.consume('"') {
		return "", mailio.New(mailio.ErrMIMEBadHeader, "expected quoted-string", nil)
	}
	var b strings.Builder
	for {
		if p.empty() {
			return "", mailio.New(mailio.ErrMIMEBadHeader, "unterminated quoted-string", nil)
		}
		c := p.s[0]
		if c == '"' {
			p.s = p.s[1:]
			return b.String(), nil
		}
		if c == '\\' && len(p.s) > 1 {
			b.WriteByte(p.s[1])
			p.s = p.s[2:]
			continue
		}
		b.WriteByte(c)
		p.s = p.s[1:]
	}
}

// parseAddrSpec parses "local-part@domain", where local-part is a dot-atom
// or quoted-string and domain is a dot-atom. A domain-literal
// ("[192.0.2.1]") is scanned by parseDomain but then fails
// dns.ParseDomain, so it is rejected as an invalid domain. stopAt, if
// non-zero, is an extra terminator character (used for angle-addr's closing
// '>') that ends the domain early.
func (p *parser) parseAddrSpec(stopAt byte) (smtp.Address, error) {
	var local string
	if p.peek() == '"' {
		s, err := p.parseQuotedString()
		if err != nil {
			return smtp.Address{}, err
		}
		local = s
	} else {
		i := 0
		for i < len(p.s) {
			c := p.s[i]
			if c == '@' || c == stopAt || !isLocalPartChar(c) {
				break
			}
			i++
		}
		if i == 0 {
			return smtp.Address{}, mailio.New(mailio.ErrMIMEBadHeader, "empty local-part", nil)
		}
		local = p.s[:i]
		p.s = p.s[i:]
	}
	p.skipCFWS()
	if !p.consume('@') {
		return smtp.Address{}, mailio.New(mailio.ErrMIMEBadHeader, "missing @ in addr-spec", nil)
	}
	p.skipCFWS()
	domStr, err := p.parseDomain(stopAt)
	if err != nil {
		return smtp.Address{}, err
	}
	dom, err := dns.ParseDomain(domStr)
	if err != nil {
		return smtp.Address{}, mailio.New(mailio.ErrMIMEBadHeader, fmt.Sprintf("invalid domain %q", domStr), err)
	}
	return smtp.NewAddress(smtp.Localpart(local), dom), nil
}

func isLocalPartChar(c byte) bool {
	switch c {
	case 0, '(', ')', '<', '>', '[', ']', ':', ';', '\\', ',', '"':
		return false
	}
	return c > ' ' && c < 0x7f || c >= 0x80
}

func isDomainChar(c byte) bool {
	switch c {
	case '(', ')', '<', '>', ',', ';', ':', '"', '\\', '[', ']':
		return false
	}
	return c > ' ' && c < 0x7f || c >= 0x80
}

func (p *parser) parseDomain(stopAt byte) (string, error) {
	if p.peek() == '[' {
		i := 1
		for i < len(p.s) && p.s[i] != ']' {
			i++
		}
		if i >= len(p.s) {
			return "", mailio.New(mailio.ErrMIMEBadHeader, "unterminated domain literal", nil)
		}
		lit := p.s[:i+1]
		p.s = p.s[i+1:]
		return lit, nil
	}
	i := 0
	for i < len(p.s) {
		c := p.s[i]
		if c == stopAt || !isDomainChar(c) {
			break
		}
		i++
	}
	if i == 0 {
		return "", mailio.New(mailio.ErrMIMEBadHeader, "empty domain", nil)
	}
	dom := p.s[:i]
	p.s = p.s[i:]
	return dom, nil
}
