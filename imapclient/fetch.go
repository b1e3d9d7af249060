package imapclient

import "strings"

// FetchAttr represents a FETCH response attribute.
type FetchAttr interface {
	Attr() string // Name of attribute in upper case, e.g. "UID".
}

// FetchFlags is the "FLAGS" fetch response.
type FetchFlags []string

func (f FetchFlags) Attr() string { return "FLAGS" }

// FetchEnvelope is the "ENVELOPE" fetch response.
type FetchEnvelope Envelope

func (f FetchEnvelope) Attr() string { return "ENVELOPE" }

// Envelope holds the basic email message fields.
type Envelope struct {
	Date                               string
	Subject                            string
	From, Sender, ReplyTo, To, CC, BCC []Address
	InReplyTo, MessageID               string
}

// Address is an address field in an email message, e.g. To.
type Address struct {
	Name, Adl, Mailbox, Host string
}

// FetchInternalDate is the "INTERNALDATE" fetch response.
type FetchInternalDate struct {
	Date string // Not parsed to time.Time: format varies more than the RFC promises in practice.
}

func (f FetchInternalDate) Attr() string { return "INTERNALDATE" }

// FetchSaveDate is the "SAVEDATE" fetch response. ../rfc/8514:265
type FetchSaveDate struct {
	SaveDate *string // nil means absent for message.
}

func (f FetchSaveDate) Attr() string { return "SAVEDATE" }

// FetchRFC822Size is the "RFC822.SIZE" fetch response.
type FetchRFC822Size int64

func (f FetchRFC822Size) Attr() string { return "RFC822.SIZE" }

// FetchRFC822 is the "RFC822" fetch response.
type FetchRFC822 string

func (f FetchRFC822) Attr() string { return "RFC822" }

// FetchRFC822Header is the "RFC822.HEADER" fetch response.
type FetchRFC822Header string

func (f FetchRFC822Header) Attr() string { return "RFC822.HEADER" }

// FetchRFC822Text is the "RFC822.TEXT" fetch response.
type FetchRFC822Text string

func (f FetchRFC822Text) Attr() string { return "RFC822.TEXT" }

// FetchBodystructure is the "BODYSTRUCTURE" (or plain "BODY" with no
// section) fetch response. ../rfc/9051:6355
type FetchBodystructure struct {
	RespAttr string
	Body     any // One of the BodyType*.
}

func (f FetchBodystructure) Attr() string { return f.RespAttr }

// FetchBody is a "BODY[section]" fetch response.
type FetchBody struct {
	// ../rfc/9051:6756 ../rfc/9051:6985
	RespAttr string
	Section  string
	Offset   int32
	Body     string
}

func (f FetchBody) Attr() string { return f.RespAttr }

// BodyFields is part of a FETCH BODY[] response.
type BodyFields struct {
	Params                       [][2]string
	ContentID, ContentDescr, CTE string
	Octets                       int32
}

// BodyTypeMpart represents the body structure of a multipart message, with
// subparts and the multipart media subtype. ../rfc/9051:6411
type BodyTypeMpart struct {
	Bodies       []any // BodyTypeBasic, BodyTypeMsg, BodyTypeText.
	MediaSubtype string
	Ext          *BodyExtensionMpart
}

// BodyTypeBasic represents basic information about a part. ../rfc/9051:6407
type BodyTypeBasic struct {
	MediaType, MediaSubtype string
	BodyFields              BodyFields
	Ext                     *BodyExtension1Part
}

// BodyTypeMsg represents an email message as a body structure. ../rfc/9051:6415
type BodyTypeMsg struct {
	MediaType, MediaSubtype string
	BodyFields              BodyFields
	Envelope                Envelope
	Bodystructure           any // One of the BodyType*.
	Lines                   int64
	Ext                     *BodyExtension1Part
}

// BodyTypeText represents a text part as a body structure. ../rfc/9051:6418
type BodyTypeText struct {
	MediaType, MediaSubtype string
	BodyFields              BodyFields
	Lines                   int64
	Ext                     *BodyExtension1Part
}

// BodyExtensionMpart has the extensible form fields of a BODYSTRUCTURE for
// multiparts. Fields are optional in IMAP4 and can be NIL. The parsing of
// these trailing extension fields is not implemented; Ext is always nil.
// ../rfc/9051:5986 ../rfc/3501:4161 ../rfc/9051:6371 ../rfc/3501:4599
type BodyExtensionMpart struct {
	Params            [][2]string
	Disposition       **string
	DispositionParams *[][2]string
	Language          *[]string
	Location          **string
	More              []BodyExtension
}

// BodyExtension1Part has the extensible form fields of a BODYSTRUCTURE for
// non-multiparts. Parsing of these trailing extension fields is not
// implemented; Ext is always nil. ../rfc/9051:6023 ../rfc/3501:4191 ../rfc/9051:6366 ../rfc/3501:4584
type BodyExtension1Part struct {
	MD5               *string
	Disposition       **string
	DispositionParams *[][2]string
	Language          *[]string
	Location          **string
	More              []BodyExtension
}

// BodyExtension has additional extension fields for future expansion.
type BodyExtension struct {
	String *string
	Number *int64
	More   []BodyExtension
}

// FetchBinary is the "BINARY" fetch response.
type FetchBinary struct {
	RespAttr string
	Parts    []uint32 // Can be nil.
	Data     string
}

func (f FetchBinary) Attr() string { return f.RespAttr }

// FetchBinarySize is the "BINARY.SIZE" fetch response.
type FetchBinarySize struct {
	RespAttr string
	Parts    []uint32
	Size     int64
}

func (f FetchBinarySize) Attr() string { return f.RespAttr }

// FetchUID is the "UID" fetch response.
type FetchUID uint32

func (f FetchUID) Attr() string { return "UID" }

// FetchModSeq is the "MODSEQ" fetch response.
type FetchModSeq int64

func (f FetchModSeq) Attr() string { return "MODSEQ" }

// FetchPreview is the "PREVIEW" fetch response. ../rfc/8970:146
type FetchPreview struct {
	Preview *string
}

func (f FetchPreview) Attr() string { return "PREVIEW" }

// xfetch parses the parenthesized attribute list of an untagged FETCH
// response. Already consumed: "*" SP nznumber SP "FETCH" SP.
func (p *Proto) xfetch(num uint32) UntaggedFetch {
	p.xtake("(")
	attrs := []FetchAttr{p.xmsgatt1()}
	for p.take(' ') {
		attrs = append(attrs, p.xmsgatt1())
	}
	p.xtake(")")
	return UntaggedFetch{num, attrs}
}

// xmsgatt1 parses a single FETCH message attribute. ../rfc/9051:6746
func (p *Proto) xmsgatt1() FetchAttr {
	var sb strings.Builder
	for {
		b := p.xbyte()
		if b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '.' {
			sb.WriteByte(b)
			continue
		}
		p.unreadbyte()
		break
	}
	name := strings.ToUpper(sb.String())

	switch name {
	case "FLAGS":
		p.xspace()
		return FetchFlags(p.xflagList())

	case "ENVELOPE":
		p.xspace()
		return FetchEnvelope(p.xenvelope())

	case "INTERNALDATE":
		p.xspace()
		return FetchInternalDate{p.xquoted()}

	case "SAVEDATE":
		p.xspace()
		if p.peek('N') || p.peek('n') {
			p.xtake("NIL")
			return FetchSaveDate{}
		}
		s := p.xquoted()
		return FetchSaveDate{&s}

	case "RFC822.SIZE":
		p.xspace()
		return FetchRFC822Size(p.xint64())

	case "RFC822":
		p.xspace()
		return FetchRFC822(p.xnilString())

	case "RFC822.HEADER":
		p.xspace()
		return FetchRFC822Header(p.xnilString())

	case "RFC822.TEXT":
		p.xspace()
		return FetchRFC822Text(p.xnilString())

	case "BODY":
		if p.take(' ') {
			return FetchBodystructure{RespAttr: name, Body: p.xbodystructure()}
		}
		p.record = true
		section := p.xsection()
		var offset int32
		if p.take('<') {
			offset = p.xint32()
			p.xtake(">")
		}
		name += p.recorded()
		p.xspace()
		return FetchBody{name, section, offset, p.xnilString()}

	case "BODYSTRUCTURE":
		p.xspace()
		return FetchBodystructure{RespAttr: name, Body: p.xbodystructure()}

	case "BINARY":
		p.record = true
		nums := p.xsectionBinary()
		name += p.recorded()
		p.xspace()
		buf := p.xnilStringLiteral8()
		return FetchBinary{name, nums, string(buf)}

	case "BINARY.SIZE":
		p.record = true
		nums := p.xsectionBinary()
		name += p.recorded()
		p.xspace()
		return FetchBinarySize{name, nums, p.xint64()}

	case "UID":
		p.xspace()
		return FetchUID(p.xuint32())

	case "MODSEQ":
		// ../rfc/7162:2488
		p.xspace()
		p.xtake("(")
		modseq := p.xint64()
		p.xtake(")")
		return FetchModSeq(modseq)

	case "PREVIEW":
		// ../rfc/8970:146
		p.xspace()
		if p.peek('N') || p.peek('n') {
			p.xtake("NIL")
			return FetchPreview{}
		}
		s := p.xnilString()
		return FetchPreview{&s}
	}
	p.xerrorf("unknown fetch attribute %q", sb.String())
	panic("not reached")
}

// xbodystructure parses a BODY/BODYSTRUCTURE fetch response value.
// ../rfc/9051:6355
func (p *Proto) xbodystructure() any {
	p.xtake("(")
	if p.peek('(') {
		// ../rfc/9051:6411
		parts := []any{p.xbodystructure()}
		for p.peek('(') {
			parts = append(parts, p.xbodystructure())
		}
		p.xspace()
		mediaSubtype := p.xstring()
		// Trailing body-ext-mpart is not parsed; Ext stays nil.
		p.xtakeuntil(')')
		p.xtake(")")
		return BodyTypeMpart{Bodies: parts, MediaSubtype: mediaSubtype}
	}

	mediaType := p.xstring()
	p.xspace()
	mediaSubtype := p.xstring()
	p.xspace()
	bodyFields := p.xbodyFields()
	if p.take(' ') {
		if p.peek('(') {
			// ../rfc/9051:6415
			envelope := p.xenvelope()
			p.xspace()
			bodyStructure := p.xbodystructure()
			p.xspace()
			lines := p.xint64()
			p.xtakeuntil(')')
			p.xtake(")")
			return BodyTypeMsg{
				MediaType: mediaType, MediaSubtype: mediaSubtype, BodyFields: bodyFields,
				Envelope: envelope, Bodystructure: bodyStructure, Lines: lines,
			}
		}
		// ../rfc/9051:6418
		lines := p.xint64()
		p.xtakeuntil(')')
		p.xtake(")")
		return BodyTypeText{MediaType: mediaType, MediaSubtype: mediaSubtype, BodyFields: bodyFields, Lines: lines}
	}
	// ../rfc/9051:6407
	p.xtake(")")
	return BodyTypeBasic{MediaType: mediaType, MediaSubtype: mediaSubtype, BodyFields: bodyFields}
}

// xbodyFields parses the fields shared by all BODYSTRUCTURE part types.
// ../rfc/9051:6376
func (p *Proto) xbodyFields() BodyFields {
	params := p.xbodyFldParam()
	p.xspace()
	contentID := p.xnilString()
	p.xspace()
	contentDescr := p.xnilString()
	p.xspace()
	cte := p.xnilString()
	p.xspace()
	octets := p.xint32()
	return BodyFields{params, contentID, contentDescr, cte, octets}
}

// xbodyFldParam parses a body-fld-param, a NIL or parenthesized list of
// key/value string pairs. ../rfc/9051:6401
func (p *Proto) xbodyFldParam() [][2]string {
	if !p.take('(') {
		p.xtake("NIL")
		return nil
	}
	k := p.xstring()
	p.xspace()
	v := p.xstring()
	l := [][2]string{{k, v}}
	for p.take(' ') {
		k = p.xstring()
		p.xspace()
		v = p.xstring()
		l = append(l, [2]string{k, v})
	}
	p.xtake(")")
	return l
}

// xenvelope parses an ENVELOPE fetch attribute value. ../rfc/9051:6522
func (p *Proto) xenvelope() Envelope {
	p.xtake("(")
	date := p.xnilString()
	p.xspace()
	subject := p.xnilString()
	p.xspace()
	from := p.xaddresses()
	p.xspace()
	sender := p.xaddresses()
	p.xspace()
	replyTo := p.xaddresses()
	p.xspace()
	to := p.xaddresses()
	p.xspace()
	cc := p.xaddresses()
	p.xspace()
	bcc := p.xaddresses()
	p.xspace()
	inReplyTo := p.xnilString()
	p.xspace()
	messageID := p.xnilString()
	p.xtake(")")
	return Envelope{date, subject, from, sender, replyTo, to, cc, bcc, inReplyTo, messageID}
}

// xaddresses parses an address list, NIL or parenthesized. ../rfc/9051:6526
func (p *Proto) xaddresses() []Address {
	if !p.take('(') {
		p.xtake("NIL")
		return nil
	}
	l := []Address{p.xaddress()}
	for !p.take(')') {
		l = append(l, p.xaddress())
	}
	return l
}

// xaddress parses a single address structure. ../rfc/9051:6303
func (p *Proto) xaddress() Address {
	p.xtake("(")
	name := p.xnilString()
	p.xspace()
	adl := p.xnilString()
	p.xspace()
	mailbox := p.xnilString()
	p.xspace()
	host := p.xnilString()
	p.xtake(")")
	return Address{name, adl, mailbox, host}
}
