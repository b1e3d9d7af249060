package message

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"strings"
	"time"

	"github.com/sguinebert/mailio/address"
	"github.com/sguinebert/mailio/codec"
	"github.com/sguinebert/mailio/mlog"
)

// Pedantic enables stricter parsing: invalid content-type headers and bare
// CR/LF are rejected instead of worked around.
var Pedantic bool

var (
	ErrBadContentType = errors.New("bad content-type")
	ErrHeader         = errors.New("bad message header")
)

var errMissingBoundaryParam = errors.New("missing/empty boundary content-type parameter")

// Part is a node in a MIME message tree (spec.md §3). A multipart part
// (MediaType "MULTIPART") has a non-empty boundary and only Parts set; every
// other part is a leaf with Body set and no Parts. Body holds the content
// exactly as transferred, still subject to ContentTransferEncoding; use
// Reader/ReaderUTF8OrBinary for decoded access.
type Part struct {
	MediaType    string            // From Content-Type, upper case, e.g. "TEXT". Empty if the header was absent; treat as TEXT/PLAIN.
	MediaSubType string            // From Content-Type, upper case, e.g. "PLAIN".
	Params       map[string]string // Lower-case keys, original-case values; holds "boundary"/"charset"/"name" when present.

	ContentID               string
	ContentDescription      string
	ContentTransferEncoding string // Upper case; "" means identity (7bit).
	ContentDisposition      string // "INLINE", "ATTACHMENT", or "".
	Filename                string
	ContentMD5              string
	ContentLanguage         string
	ContentLocation         string

	Header textproto.MIMEHeader

	Body  []byte // Raw, still-encoded content. Always empty for a multipart part.
	Parts []Part // Children; only non-empty when MediaType == "MULTIPART".

	Envelope *Envelope `json:",omitempty"` // Set only on the outermost part of a parsed message.
}

// Envelope holds the message-level headers of spec.md §3's Message type.
type Envelope struct {
	Date       time.Time
	Subject    string // Q/B-word-decoded.
	From       address.Mailboxes
	Sender     address.Mailboxes
	ReplyTo    address.Mailboxes
	To         address.Mailboxes
	CC         address.Mailboxes
	BCC        address.Mailboxes
	InReplyTo  []string // Raw Message-ID references, including <>.
	References []string
	MessageID  string // From Message-Id header, includes <>.
}

// Parse reads a whole MIME message from r and returns its Part tree. If
// strict is set, fewer attempts are made to recover from malformed
// content-type headers or bare CR/LF.
func Parse(elog *slog.Logger, strict bool, r io.Reader) (Part, error) {
	log := mlog.New("message", elog)
	br := bufio.NewReader(r)
	header, err := readMessageHeader(br)
	if err != nil {
		return Part{}, err
	}
	body, err := io.ReadAll(br)
	if err != nil {
		return Part{}, err
	}
	p, err := buildPart(log, strict, header, body)
	if err != nil {
		return p, err
	}
	env, err := parseEnvelope(log, header)
	if err != nil {
		return p, err
	}
	p.Envelope = env
	return p, nil
}

// readMessageHeader reads header lines (with continuations) up to and
// including the blank line that ends the header section, and parses them.
// An entirely empty header (body starts immediately) is valid and returns an
// empty MIMEHeader.
func readMessageHeader(br *bufio.Reader) (textproto.MIMEHeader, error) {
	var buf bytes.Buffer
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			buf.Write(line)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(line) <= 2 && (string(line) == "\r\n" || string(line) == "\n") {
			break
		}
	}
	if buf.Len() == 0 {
		return textproto.MIMEHeader{}, nil
	}
	tp := textproto.NewReader(bufio.NewReader(&buf))
	h, err := tp.ReadMIMEHeader()
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("%w: %v", ErrHeader, err)
	}
	return h, nil
}

// buildPart interprets header and body (already split from the wire form)
// into a Part, recursing into sub-parts for multipart content-types.
func buildPart(log mlog.Log, strict bool, header textproto.MIMEHeader, body []byte) (Part, error) {
	p := Part{Header: header}

	ct := header.Get("Content-Type")
	mt, params, err := mime.ParseMediaType(ct)
	if err != nil && ct != "" {
		if Pedantic || strict {
			return p, fmt.Errorf("%w: %s: %q", ErrBadContentType, err, ct)
		}
		// Recover a bare type/subtype, ignoring unparsable parameters.
		ct = strings.TrimSpace(strings.SplitN(ct, ";", 2)[0])
		t := strings.SplitN(ct, "/", 2)
		if len(t) == 2 && isMIMEToken(t[0]) && !strings.EqualFold(t[0], "multipart") && isMIMEToken(t[1]) {
			p.MediaType = strings.ToUpper(t[0])
			p.MediaSubType = strings.ToUpper(t[1])
		} else {
			p.MediaType = "APPLICATION"
			p.MediaSubType = "OCTET-STREAM"
		}
		log.Debugx("malformed content-type, recovering", err, slog.String("contenttype", ct))
	} else if mt != "" {
		t := strings.SplitN(strings.ToUpper(mt), "/", 2)
		if len(t) != 2 {
			if Pedantic || strict {
				return p, fmt.Errorf("%w: %q", ErrBadContentType, mt)
			}
			p.MediaType = "APPLICATION"
			p.MediaSubType = "OCTET-STREAM"
		} else {
			p.MediaType = t[0]
			p.MediaSubType = t[1]
			p.Params = params
		}
	}

	if v := header.Get("Content-Id"); v != "" {
		p.ContentID = v
	}
	if v := header.Get("Content-Description"); v != "" {
		p.ContentDescription = v
	}
	if v := header.Get("Content-Transfer-Encoding"); v != "" {
		p.ContentTransferEncoding = strings.ToUpper(v)
	}
	if v := header.Get("Content-Disposition"); v != "" {
		disp, dparams, err := mime.ParseMediaType(v)
		if err == nil {
			p.ContentDisposition = strings.ToUpper(disp)
			if name, derr := tryDecodeParam(dparams["filename"]); derr == nil {
				p.Filename = name
			}
		}
	}
	if p.Filename == "" && p.Params != nil {
		if name, err := tryDecodeParam(p.Params["name"]); err == nil {
			p.Filename = name
		}
	}
	p.ContentMD5 = header.Get("Content-Md5")
	p.ContentLanguage = header.Get("Content-Language")
	p.ContentLocation = header.Get("Content-Location")

	if p.MediaType != "MULTIPART" {
		p.Body = body
		return p, nil
	}

	boundary := params["boundary"]
	if boundary == "" {
		return p, errMissingBoundaryParam
	}
	mr := multipart.NewReader(bytes.NewReader(body), boundary)
	for {
		mp, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			if !Pedantic && !strict && err == io.ErrUnexpectedEOF {
				// Missing closing boundary; accept what we have, as some spam/bounce
				// generators truncate the original message.
				break
			}
			return p, fmt.Errorf("reading multipart: %w", err)
		}
		subBody, err := io.ReadAll(mp)
		if err != nil {
			return p, fmt.Errorf("reading multipart body: %w", err)
		}
		sub, err := buildPart(log, strict, textproto.MIMEHeader(mp.Header), subBody)
		if err != nil {
			return p, fmt.Errorf("parsing sub-part: %w", err)
		}
		p.Parts = append(p.Parts, sub)
	}
	return p, nil
}

func isMIMEToken(s string) bool {
	const separators = `()<>@,;:\\"/[]?= `
	for _, c := range s {
		if c < 0x20 || c >= 0x80 || strings.ContainsRune(separators, c) {
			return false
		}
	}
	return len(s) > 0
}

// tryDecodeParam decodes a Content-Disposition/Content-Type parameter value
// that some senders emit as an RFC 2047 Q/B-word instead of the RFC
// 2231-defined encoding Go's mime.ParseMediaType already understands. Values
// without the "=?"/"?=" markers are returned unchanged.
func tryDecodeParam(name string) (string, error) {
	if name == "" || !strings.HasPrefix(name, "=?") && !strings.HasSuffix(name, "?=") {
		return name, nil
	}
	if Pedantic {
		return name, fmt.Errorf("attachment uses rfc2047 q/b-word instead of rfc2231 parameter encoding")
	}
	s, err := codec.DecodeHeaderWord(name)
	if err != nil {
		return name, fmt.Errorf("q/b-word decoding mime parameter: %v", err)
	}
	return s, nil
}

// Reader returns a reader for the decoded body content of a leaf part,
// applying ContentTransferEncoding. For a multipart part it returns an empty
// reader.
func (p *Part) Reader() io.Reader {
	r := io.Reader(bytes.NewReader(p.Body))
	switch p.ContentTransferEncoding {
	case "BASE64":
		return codec.DecodeBase64(r)
	case "QUOTED-PRINTABLE":
		return codec.DecodeQP(r)
	default:
		return r
	}
}

// ReaderUTF8OrBinary returns a reader for the decoded body content,
// transcoded to UTF-8 for known charsets (skipped for us-ascii/utf-8, or
// when the charset is unrecognized, in which case the original bytes are
// returned unchanged).
func (p *Part) ReaderUTF8OrBinary() io.Reader {
	return codec.DecodeCharset(p.paramsCharset(), p.Reader())
}

func (p *Part) paramsCharset() string {
	if p.Params == nil {
		return ""
	}
	return p.Params["charset"]
}

// Attachment returns the i'th descendant leaf part, depth-first, whose
// Content-Disposition is attachment or whose media type is neither text nor
// multipart (a part without Content-Type counts as text). It returns an
// error if there is no such part.
func (p *Part) Attachment(i int) (*Part, error) {
	var found []*Part
	var walk func(pp *Part)
	walk = func(pp *Part) {
		if len(pp.Parts) > 0 {
			for k := range pp.Parts {
				walk(&pp.Parts[k])
			}
			return
		}
		if pp.ContentDisposition == "ATTACHMENT" || (pp.MediaType != "" && pp.MediaType != "TEXT" && pp.MediaType != "MULTIPART") {
			found = append(found, pp)
		}
	}
	walk(p)
	if i < 0 || i >= len(found) {
		return nil, fmt.Errorf("attachment %d not found, have %d", i, len(found))
	}
	return found[i], nil
}

func parseEnvelope(log mlog.Log, h textproto.MIMEHeader) (*Envelope, error) {
	date, _ := parseDate(h.Get("Date"))

	subject := h.Get("Subject")
	if s, err := codec.DecodeHeaderWord(subject); err == nil {
		subject = s
	}

	env := &Envelope{
		Date:       date,
		Subject:    subject,
		From:       parseAddressList(log, h, "From"),
		Sender:     parseAddressList(log, h, "Sender"),
		ReplyTo:    parseAddressList(log, h, "Reply-To"),
		To:         parseAddressList(log, h, "To"),
		CC:         parseAddressList(log, h, "Cc"),
		BCC:        parseAddressList(log, h, "Bcc"),
		InReplyTo:  h.Values("In-Reply-To"),
		References: h.Values("References"),
		MessageID:  h.Get("Message-Id"),
	}
	return env, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := mail.ParseDate(s)
	if err != nil {
		return time.Time{}, nil
	}
	if t.Year() > 9999 {
		return time.Time{}, nil
	}
	if _, offset := t.Zone(); offset <= -24*3600 || offset >= 24*3600 {
		return time.Unix(t.Unix(), 0).UTC(), nil
	}
	return t, nil
}

func parseAddressList(log mlog.Log, h textproto.MIMEHeader, k string) address.Mailboxes {
	v := h.Get(k)
	if v == "" {
		return address.Mailboxes{}
	}
	mb, err := address.ParseList(v)
	if err != nil {
		log.Debugx("parsing address list header, ignoring", err, slog.String("field", k), slog.String("value", v))
		return address.Mailboxes{}
	}
	return mb
}
