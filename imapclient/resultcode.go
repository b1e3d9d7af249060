package imapclient

import "strings"

// noArgCodes lists the response codes that never carry arguments and are
// represented as a bare CodeWord. Anything not in this set, and not one of
// the parameterized codes handled explicitly below, becomes a CodeParams
// with whatever space-separated arguments followed it.
var noArgCodes = map[string]bool{
	"ALERT": true, "PARSE": true, "READ-ONLY": true, "READ-WRITE": true,
	"TRYCREATE": true, "UIDNOTSTICKY": true, "UNAVAILABLE": true,
	"AUTHENTICATIONFAILED": true, "AUTHORIZATIONFAILED": true, "EXPIRED": true,
	"PRIVACYREQUIRED": true, "CONTACTADMIN": true, "NOPERM": true, "INUSE": true,
	"EXPUNGEISSUED": true, "CORRUPTION": true, "SERVERBUG": true, "CLIENTBUG": true,
	"CANNOT": true, "LIMIT": true, "OVERQUOTA": true, "ALREADYEXISTS": true,
	"NONEXISTENT": true, "NOTSAVED": true, "HASCHILDREN": true, "CLOSED": true,
	"UNKNOWN-CTE": true,
}

func (p *Proto) xstatus() Status {
	w := strings.ToUpper(p.xword())
	switch w {
	case "OK":
		return OK
	case "NO":
		return NO
	case "BAD":
		return BAD
	}
	p.xerrorf("expected status, got %q", w)
	panic("not reached")
}

// xresult parses the remainder of a tagged (or synthetic untagged OK/NO/BAD)
// response line: an optional bracketed response code followed by free text,
// up to but not including the terminating CRLF. Already consumed: tag SP
// status SP.
func (p *Proto) xresult(status Status) Result {
	var code Code
	if p.take('[') {
		code = p.xrespCode()
		p.xtake("]")
		p.xspace()
	}
	var sb strings.Builder
	for !p.peek('\r') {
		sb.WriteByte(p.xbyte())
	}
	return Result{Status: status, Code: code, Text: sb.String()}
}

// xrespCode parses a response code, i.e. the content between the [] in a
// resp-text, without the enclosing brackets. ../rfc/9051:6895
func (p *Proto) xrespCode() Code {
	var sb strings.Builder
	for !p.peek(' ') && !p.peek(']') {
		sb.WriteByte(p.xbyte())
	}
	word := strings.ToUpper(sb.String())

	if noArgCodes[word] {
		return CodeWord(word)
	}

	switch word {
	case "BADCHARSET":
		var sets []string
		if p.take(' ') {
			p.xtake("(")
			sets = append(sets, p.xcharset())
			for p.take(' ') {
				sets = append(sets, p.xcharset())
			}
			p.xtake(")")
		}
		return CodeBadCharset(sets)

	case "CAPABILITY":
		p.xspace()
		var caps []Capability
		caps = append(caps, Capability(strings.ToUpper(p.xatom())))
		for p.take(' ') {
			caps = append(caps, Capability(strings.ToUpper(p.xatom())))
		}
		return CodeCapability(caps)

	case "PERMANENTFLAGS":
		var flags []string
		if p.take(' ') {
			p.xtake("(")
			if !p.peek(')') {
				flags = append(flags, p.xflagPerm())
				for p.take(' ') {
					flags = append(flags, p.xflagPerm())
				}
			}
			p.xtake(")")
		}
		return CodePermanentFlags(flags)

	case "UIDNEXT":
		p.xspace()
		return CodeUIDNext(p.xnzuint32())

	case "UIDVALIDITY":
		p.xspace()
		return CodeUIDValidity(p.xnzuint32())

	case "UNSEEN":
		p.xspace()
		return CodeUnseen(p.xnzuint32())

	case "APPENDUID":
		p.xspace()
		destUIDValidity := p.xnzuint32()
		p.xspace()
		return CodeAppendUID{UIDValidity: destUIDValidity, UIDs: p.xuidrange()}

	case "COPYUID":
		p.xspace()
		destUIDValidity := p.xnzuint32()
		p.xspace()
		from := p.xuidset()
		p.xspace()
		to := p.xuidset()
		return CodeCopyUID{DestUIDValidity: destUIDValidity, From: from, To: to}

	case "HIGHESTMODSEQ":
		p.xspace()
		return CodeHighestModSeq(p.xint64())

	case "MODIFIED":
		p.xspace()
		return CodeModified(NumSet{Ranges: p.xuidset()})

	case "INPROGRESS":
		return p.xrespCodeInProgress()

	case "BADEVENT":
		var events []string
		if p.take(' ') {
			p.xtake("(")
			events = append(events, p.xatom())
			for p.take(' ') {
				events = append(events, p.xatom())
			}
			p.xtake(")")
		}
		return CodeBadEvent(events)

	case "METADATA":
		return p.xrespCodeMetadata()
	}

	var args []string
	for p.take(' ') {
		var arg strings.Builder
		for !p.peek(' ') && !p.peek(']') {
			arg.WriteByte(p.xbyte())
		}
		args = append(args, arg.String())
	}
	return CodeParams{Code: word, Args: args}
}

// xrespCodeInProgress parses the "INPROGRESS" response code, which is either
// bare or a parenthesized (tag current goal) triple with NIL for unknown
// fields.
func (p *Proto) xrespCodeInProgress() Code {
	if !p.take(' ') {
		return CodeInProgress{}
	}
	p.xtake("(")
	var c CodeInProgress
	if p.peek('"') {
		c.Tag = p.xquoted()
	} else {
		p.xtake("nil")
	}
	p.xspace()
	if !p.peek('n') && !p.peek('N') {
		v := p.xuint32()
		c.Current = &v
	} else {
		p.xtake("nil")
	}
	p.xspace()
	if !p.peek('n') && !p.peek('N') {
		v := p.xuint32()
		c.Goal = &v
	} else {
		p.xtake("nil")
	}
	p.xtake(")")
	return c
}

// xrespCodeMetadata parses the METADATA response code carried by GETMETADATA
// and SETMETADATA responses: METADATA LONGENTRIES <n>, METADATA
// (MAXSIZE <n>), METADATA (TOOMANY) or METADATA (NOPRIVATE).
func (p *Proto) xrespCodeMetadata() Code {
	p.xspace()
	if p.peek('(') {
		p.xtake("(")
		w := strings.ToUpper(p.xatom())
		switch w {
		case "MAXSIZE":
			p.xspace()
			n := p.xuint32()
			p.xtake(")")
			return CodeMetadataMaxSize(n)
		case "TOOMANY":
			p.xtake(")")
			return CodeMetadataTooMany{}
		case "NOPRIVATE":
			p.xtake(")")
			return CodeMetadataNoPrivate{}
		}
		p.xerrorf("unknown metadata response code %q", w)
	}
	p.xtake("LONGENTRIES")
	p.xspace()
	return CodeMetadataLongEntries(p.xuint32())
}
