package imapclient

import "strings"

// NamespaceDescr describes one namespace entry of a NAMESPACE response.
// ../rfc/9051:6769
type NamespaceDescr struct {
	Prefix    string
	Separator byte // If 0, separator was absent.
	Exts      []NamespaceExtension
}

// NamespaceExtension is a vendor-specific extension of a namespace entry.
// ../rfc/9051:6773
type NamespaceExtension struct {
	Key    string
	Values []string
}

// xmailboxList parses a LIST/LSUB response's mailbox-list. ../rfc/9051:6690
func (p *Proto) xmailboxList() UntaggedList {
	flags := p.xflagListOrEmpty()
	p.xspace()

	var separator byte
	if p.peek('"') {
		q := p.xquoted()
		if len(q) != 1 {
			p.xerrorf("mailbox-list has multichar quoted separator: %q", q)
		}
		separator = q[0]
	} else if !p.peek(' ') {
		p.xtake("NIL")
	}
	p.xspace()
	mailbox := p.xastring()

	ul := UntaggedList{Flags: flags, Separator: separator, Mailbox: mailbox}
	if p.take(' ') {
		p.xtake("(")
		if !p.peek(')') {
			p.xmboxListExtendedItem(&ul)
			for p.take(' ') {
				p.xmboxListExtendedItem(&ul)
			}
		}
		p.xtake(")")
	}
	return ul
}

// xflagListOrEmpty parses the parenthesized, possibly empty flag list at the
// start of a mailbox-list or LSUB response.
func (p *Proto) xflagListOrEmpty() []string {
	p.xtake("(")
	var flags []string
	if !p.peek(')') {
		flags = append(flags, p.xflag())
		for p.take(' ') {
			flags = append(flags, p.xflag())
		}
	}
	p.xtake(")")
	return flags
}

// xmboxListExtendedItem parses one mbox-list-extended-item into ul.
// ../rfc/9051:6699
func (p *Proto) xmboxListExtendedItem(ul *UntaggedList) {
	tag := p.xastring()
	p.xspace()
	if strings.EqualFold(tag, "OLDNAME") {
		// ../rfc/9051:6811
		p.xtake("(")
		name := p.xastring()
		p.xtake(")")
		ul.OldName = name
		return
	}
	ul.Extended = append(ul.Extended, MboxListExtendedItem{Tag: tag, Val: p.xtaggedExtVal()})
}

// xnamespace parses a namespace list (NIL or a parenthesized list of
// namespace-descr). ../rfc/9051:6765
func (p *Proto) xnamespace() []NamespaceDescr {
	if !p.take('(') {
		p.xtake("NIL")
		return nil
	}
	l := []NamespaceDescr{p.xnamespaceDescr()}
	for !p.take(')') {
		l = append(l, p.xnamespaceDescr())
	}
	return l
}

// xnamespaceDescr parses a single namespace-descr. ../rfc/9051:6769
func (p *Proto) xnamespaceDescr() NamespaceDescr {
	p.xtake("(")
	prefix := p.xstring()
	p.xspace()
	var sep byte
	if p.peek('"') {
		q := p.xquoted()
		if len(q) != 1 {
			p.xerrorf("namespace-descr: expected single char separator, got %q", q)
		}
		sep = q[0]
	} else {
		p.xtake("NIL")
	}
	var exts []NamespaceExtension
	for !p.take(')') {
		p.xspace()
		key := p.xstring()
		p.xspace()
		p.xtake("(")
		values := []string{p.xstring()}
		for p.take(' ') {
			values = append(values, p.xstring())
		}
		p.xtake(")")
		exts = append(exts, NamespaceExtension{key, values})
	}
	return NamespaceDescr{prefix, sep, exts}
}

// xlsub parses the legacy LSUB response body. ../rfc/3501:4833
func (p *Proto) xlsub() UntaggedLsub {
	p.xspace()
	r := UntaggedLsub{Flags: p.xflagListOrEmpty()}
	p.xspace()
	if p.peek('"') {
		q := p.xquoted()
		if !p.peek(' ') {
			r.Mailbox = q
			return r
		}
		if len(q) != 1 {
			p.xerrorf("lsub: invalid separator %q", q)
		}
		r.Separator = q[0]
	}
	p.xspace()
	r.Mailbox = p.xastring()
	return r
}
