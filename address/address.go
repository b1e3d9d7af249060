// Package address implements the full RFC 5322 address-list grammar:
// quoted-string local parts, comments, and group syntax ("name: a@b,
// c@d;"), producing the Mailboxes model of spec.md §3. Domain literals
// ("local@[192.0.2.1]") are not accepted: every domain is parsed as a DNS
// name, and a bracketed literal fails that parse. The
// standard library's net/mail parses addresses but silently flattens
// groups, discarding the group name; nothing in the example pack parses
// RFC 5322 groups either, so this package is a from-scratch, RFC-grounded
// tokenizer modeled on net/mail's recursive-descent structure.
package address

import "github.com/sguinebert/mailio/smtp"

// Mailbox is a single address: an optional display name plus an addr-spec.
// Invariant: Address may be its zero value only when this Mailbox stands in
// for an unresolved/empty group member, which RFC 5322 permits for groups
// like "undisclosed-recipients:;".
type Mailbox struct {
	Name    string
	Address smtp.Address
}

// IsZero reports whether mb has neither a name nor an address.
func (mb Mailbox) IsZero() bool {
	return mb.Name == "" && mb.Address.IsZero()
}

// Group is a named group of mailboxes, e.g. "undisclosed-recipients:;" or
// "Sales: alice@x.example, bob@x.example;".
type Group struct {
	Name      string
	Mailboxes []Mailbox
}

// Mailboxes is the parsed value of an address-list header (From, To, Cc,
// Bcc, Reply-To, Sender). It holds top-level mailboxes and groups in two
// separate lists, each in the order its entries appeared; the relative
// order of a mailbox and a group within the header is not kept.
type Mailboxes struct {
	Mailboxes []Mailbox
	Groups    []Group
}

// Flatten returns every mailbox in m: the top-level mailboxes first, then
// the members of each group in turn. Group membership is lost; use this only where the caller
// genuinely does not care about grouping (e.g. building an SMTP recipient
// list).
func (m Mailboxes) Flatten() []Mailbox {
	r := make([]Mailbox, 0, len(m.Mailboxes))
	r = append(r, m.Mailboxes...)
	for _, g := range m.Groups {
		r = append(r, g.Mailboxes...)
	}
	return r
}
