package imapclient

import (
	"strconv"
	"strings"
)

// Untagged is a parsed untagged response. See the types below starting with
// Untagged.
type Untagged any

type UntaggedBye struct {
	Code Code   // Set if response code is present.
	Text string // Any remaining text.
}

type UntaggedPreauth struct {
	Code Code   // Set if response code is present.
	Text string // Any remaining text.
}

type UntaggedExpunge uint32
type UntaggedExists uint32
type UntaggedRecent uint32

// UntaggedCapability lists all capabilities the server implements.
type UntaggedCapability []Capability

// UntaggedEnabled indicates the capabilities that were enabled on the
// connection by the server, typically in response to an ENABLE command.
type UntaggedEnabled []Capability

type UntaggedResult Result

type UntaggedFlags []string

// UntaggedList is a response to LIST (or the flags/mailbox portion shared
// with LSUB). ../rfc/9051:6690
type UntaggedList struct {
	Flags     []string
	Separator byte // 0 for NIL
	Mailbox   string
	Extended  []MboxListExtendedItem
	OldName   string // If present, taken out of Extended.
}

type UntaggedFetch struct {
	Seq   uint32
	Attrs []FetchAttr
}

// UntaggedUIDFetch is like UntaggedFetch, but with UIDs instead of message
// sequence numbers, sent instead of regular fetch responses when UIDONLY is
// enabled.
type UntaggedUIDFetch struct {
	UID   uint32
	Attrs []FetchAttr
}

type UntaggedSearch []uint32

// UntaggedSearchModSeq is a SEARCH response carrying the modseq of the
// highest-modseq matching message. ../rfc/7162:1101
type UntaggedSearchModSeq struct {
	Nums   []uint32
	ModSeq int64
}

type UntaggedStatus struct {
	Mailbox string
	Attrs   map[StatusAttr]int64 // Upper case status attributes.
}

type StatusAttr string

// ../rfc/9051:7059 ../rfc/9208:712
const (
	StatusMessages       StatusAttr = "MESSAGES"
	StatusUIDNext        StatusAttr = "UIDNEXT"
	StatusUIDValidity    StatusAttr = "UIDVALIDITY"
	StatusUnseen         StatusAttr = "UNSEEN"
	StatusDeleted        StatusAttr = "DELETED"
	StatusSize           StatusAttr = "SIZE"
	StatusRecent         StatusAttr = "RECENT"
	StatusAppendLimit    StatusAttr = "APPENDLIMIT"
	StatusHighestModSeq  StatusAttr = "HIGHESTMODSEQ"
	StatusDeletedStorage StatusAttr = "DELETED-STORAGE"
)

type UntaggedNamespace struct {
	Personal, Other, Shared []NamespaceDescr
}

// UntaggedLsub is a legacy (pre-IMAP4rev2) LSUB response. ../rfc/3501:4833
type UntaggedLsub struct {
	Flags     []string
	Separator byte
	Mailbox   string
}

// UntaggedVanished is used in QRESYNC to send UIDs that have been removed.
type UntaggedVanished struct {
	Earlier bool
	UIDs    NumSet
}

// UntaggedQuotaroot lists the roots for which quota can be present.
type UntaggedQuotaroot []string

// UntaggedQuota holds the quota for a quota root.
type UntaggedQuota struct {
	Root string

	// Always has at least one. Any QUOTA=RES-* capability not mentioned has no
	// limit for this quota root.
	Resources []QuotaResource
}

// QuotaResourceName is the name of a resource type. More can be defined in
// the future and encountered in the wild. Always in upper case. ../rfc/9208:533
type QuotaResourceName string

const (
	QuotaResourceStorage           QuotaResourceName = "STORAGE"
	QuotaResourceMesssage          QuotaResourceName = "MESSAGE"
	QuotaResourceMailbox           QuotaResourceName = "MAILBOX"
	QuotaResourceAnnotationStorage QuotaResourceName = "ANNOTATION-STORAGE"
)

type QuotaResource struct {
	Name  QuotaResourceName
	Usage int64 // Currently in use. Count or disk size in 1024 byte blocks.
	Limit int64 // Maximum allowed usage.
}

// UntaggedID carries the server/client identification fields of the ID
// extension. ../rfc/2971:184
type UntaggedID map[string]string

// UntaggedMetadataKeys is the unsolicited response indicating a mailbox or
// server annotation changed. ../rfc/5464:716
type UntaggedMetadataKeys struct {
	Mailbox string // Empty means not specific to a mailbox.

	// Keys that changed. To get values (or determine absence), the server must
	// be queried.
	Keys []string
}

// Annotation is a metadata server or mailbox annotation.
type Annotation struct {
	Key string
	// Nil is represented by IsString false and a nil Value.
	IsString bool
	Value    []byte
}

// UntaggedMetadataAnnotations is a GETMETADATA response. ../rfc/5464:683
type UntaggedMetadataAnnotations struct {
	Mailbox     string // Empty means not specific to a mailbox.
	Annotations []Annotation
}

// xneedDisabled requires all of caps to be disabled on the connection,
// e.g. a server should not send an untagged SEARCH response after
// IMAP4rev2 was negotiated or explicitly enabled.
func (p *Proto) xneedDisabled(msg string, caps ...Capability) {
	for _, cap := range caps {
		if p.capEnabled[cap] {
			p.xerrorf("%s: invalid because of enabled capability %q", msg, cap)
		}
	}
}

// xuntagged parses a single untagged response line. Already consumed: "*"
// SP. ../rfc/9051:6868
func (p *Proto) xuntagged() Untagged {
	w := p.xnonspace()
	W := strings.ToUpper(w)

	switch W {
	case "PREAUTH":
		p.xspace()
		r := p.xrespTextAs(func(code Code, text string) Untagged { return UntaggedPreauth{code, text} })
		p.xcrlf()
		return r

	case "BYE":
		p.xspace()
		r := p.xrespTextAs(func(code Code, text string) Untagged { return UntaggedBye{code, text} })
		p.xcrlf()
		return r

	case "OK", "NO", "BAD":
		p.xspace()
		r := UntaggedResult(p.xresult(Status(W)))
		p.xcrlf()
		return r

	case "CAPABILITY":
		caps := p.xcapabilityList()
		r := UntaggedCapability(caps)
		p.xcrlf()
		return r

	case "ENABLED":
		// ../rfc/9051:6520
		var caps []Capability
		for p.take(' ') {
			caps = append(caps, Capability(strings.ToUpper(p.xnonspace())))
		}
		if p.capEnabled == nil {
			p.capEnabled = map[Capability]bool{}
		}
		for _, c := range caps {
			p.capEnabled[c] = true
		}
		r := UntaggedEnabled(caps)
		p.xcrlf()
		return r

	case "FLAGS":
		p.xspace()
		r := UntaggedFlags(p.xflagList())
		p.xcrlf()
		return r

	case "LIST":
		p.xspace()
		r := p.xmailboxList()
		p.xcrlf()
		return r

	case "STATUS":
		r := p.xstatusResponse()
		p.xcrlf()
		return r

	case "NAMESPACE":
		// ../rfc/9051:6778
		p.xspace()
		personal := p.xnamespace()
		p.xspace()
		other := p.xnamespace()
		p.xspace()
		shared := p.xnamespace()
		r := UntaggedNamespace{personal, other, shared}
		p.xcrlf()
		return r

	case "SEARCH":
		// ../rfc/9051:6809
		p.xneedDisabled("untagged SEARCH response", CapIMAP4rev2)
		var nums []uint32
		for p.take(' ') {
			// ../rfc/7162:2557
			if p.take('(') {
				p.xtake("MODSEQ")
				p.xspace()
				modseq := p.xint64()
				p.xtake(")")
				p.xcrlf()
				return UntaggedSearchModSeq{nums, modseq}
			}
			nums = append(nums, p.xnzuint32())
		}
		r := UntaggedSearch(nums)
		p.xcrlf()
		return r

	case "ESEARCH":
		r := p.xesearchResponse()
		p.xcrlf()
		return r

	case "LSUB":
		p.xneedDisabled("untagged LSUB response", CapIMAP4rev2)
		r := p.xlsub()
		p.xcrlf()
		return r

	case "ID":
		r := p.xidResponse()
		p.xcrlf()
		return r

	case "VANISHED":
		// ../rfc/7162:2623
		p.xspace()
		var earlier bool
		if p.take('(') {
			p.xtake("EARLIER")
			p.xtake(")")
			p.xspace()
			earlier = true
		}
		uids := p.xuidset()
		p.xcrlf()
		return UntaggedVanished{earlier, NumSet{Ranges: uids}}

	default:
		return p.xuntaggedNumbered(w)
	}
}

// xrespTextAs parses a resp-text (optional [code] followed by free text) and
// hands it to build, used by PREAUTH and BYE which share resp-text syntax
// but produce distinct response types.
func (p *Proto) xrespTextAs(build func(Code, string) Untagged) Untagged {
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
	return build(code, sb.String())
}

// xcapabilityList parses the space-separated list following an untagged
// CAPABILITY response. ../rfc/9051:6427
func (p *Proto) xcapabilityList() []Capability {
	var caps []Capability
	for p.take(' ') {
		caps = append(caps, Capability(strings.ToUpper(p.xnonspace())))
	}
	return caps
}

// xstatusResponse parses an untagged STATUS response. ../rfc/9051:6681
func (p *Proto) xstatusResponse() UntaggedStatus {
	p.xspace()
	mailbox := p.xastring()
	p.xspace()
	p.xtake("(")
	attrs := map[StatusAttr]int64{}
	for !p.take(')') {
		if len(attrs) > 0 {
			p.xspace()
		}
		s := strings.ToUpper(p.xword())
		p.xspace()
		attr := StatusAttr(s)
		var num int64
		// ../rfc/9051:7059
		switch attr {
		case StatusMessages, StatusUnseen, StatusDeleted:
			num = int64(p.xuint32())
		case StatusUIDNext, StatusUIDValidity:
			num = int64(p.xnzuint32())
		case StatusSize, StatusHighestModSeq:
			num = p.xint64()
		case StatusRecent:
			p.xneedDisabled("RECENT status flag", CapIMAP4rev2)
			num = int64(p.xuint32())
		case StatusAppendLimit:
			if p.peek('n') || p.peek('N') {
				p.xtake("nil")
			} else {
				num = p.xint64()
			}
		default:
			p.xerrorf("status: unknown attribute %q", s)
		}
		if _, ok := attrs[attr]; ok {
			p.xerrorf("status: duplicate attribute %q", s)
		}
		attrs[attr] = num
	}
	return UntaggedStatus{mailbox, attrs}
}

// xidResponse parses an untagged ID response. ../rfc/2971:243
func (p *Proto) xidResponse() UntaggedID {
	p.xspace()
	if !p.take('(') {
		p.xtake("NIL")
		return nil
	}
	params := map[string]string{}
	for !p.take(')') {
		if len(params) > 0 {
			p.xspace()
		}
		k := p.xstring()
		p.xspace()
		v := p.xnilString()
		if _, ok := params[k]; ok {
			p.xerrorf("duplicate key %q", k)
		}
		params[k] = v
	}
	return params
}

// xuntaggedNumbered handles the untagged responses prefixed with a message
// number rather than a keyword: FETCH, EXPUNGE, EXISTS, RECENT.
// ../rfc/3501:4864 ../rfc/9051:6742
func (p *Proto) xuntaggedNumbered(first string) Untagged {
	v, err := strconv.ParseUint(first, 10, 32)
	if err != nil {
		p.xerrorf("unknown untagged response %q", first)
	}
	num := uint32(v)
	p.xspace()
	w := strings.ToUpper(p.xword())
	switch w {
	case "FETCH":
		if num == 0 {
			p.xerrorf("invalid zero number for untagged fetch response")
		}
		p.xspace()
		r := p.xfetch(num)
		p.xcrlf()
		return r

	case "EXPUNGE":
		if num == 0 {
			p.xerrorf("invalid zero number for untagged expunge response")
		}
		p.xcrlf()
		return UntaggedExpunge(num)

	case "EXISTS":
		p.xcrlf()
		return UntaggedExists(num)

	case "RECENT":
		p.xneedDisabled("should not send RECENT in IMAP4rev2", CapIMAP4rev2)
		p.xcrlf()
		return UntaggedRecent(num)
	}
	p.xerrorf("unknown untagged numbered response %q", w)
	panic("not reached")
}
