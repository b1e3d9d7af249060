package imapclient

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

// NumSet is a set of message sequence numbers or UIDs, either a literal
// list of numbers/ranges or the special "$" search-result placeholder.
type NumSet struct {
	SearchResult bool // True if "$"; Ranges is irrelevant then.
	Ranges       []NumRange
}

func (ns NumSet) IsZero() bool {
	return !ns.SearchResult && ns.Ranges == nil
}

func (ns NumSet) String() string {
	if ns.SearchResult {
		return "$"
	}
	var sb strings.Builder
	for i, r := range ns.Ranges {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(r.String())
	}
	return sb.String()
}

// ParseNumSet parses s (without surrounding whitespace) as a sequence set.
func ParseNumSet(s string) (ns NumSet, rerr error) {
	p := Proto{br: bufio.NewReader(strings.NewReader(s))}
	defer p.recover(&rerr)
	ns = p.xsequenceSet()
	return
}

// ParseUIDRange parses s as a single UID or UID range.
func ParseUIDRange(s string) (nr NumRange, rerr error) {
	p := Proto{br: bufio.NewReader(strings.NewReader(s))}
	defer p.recover(&rerr)
	nr = p.xuidrange()
	return
}

// NumRange is a single number, or a range of numbers.
type NumRange struct {
	First uint32  // 0 for "*".
	Last  *uint32 // Nil if absent, 0 for "*".
}

func (nr NumRange) String() string {
	var sb strings.Builder
	if nr.First == 0 {
		sb.WriteByte('*')
	} else {
		fmt.Fprintf(&sb, "%d", nr.First)
	}
	if nr.Last == nil {
		return sb.String()
	}
	sb.WriteByte(':')
	if *nr.Last == 0 {
		sb.WriteByte('*')
	} else {
		fmt.Fprintf(&sb, "%d", *nr.Last)
	}
	return sb.String()
}

// TaggedExtComp is a tagged-ext-comp, a possibly nested list of atoms/
// strings used inside extension response data. ../rfc/9051:7097
type TaggedExtComp struct {
	String string
	Comps  []TaggedExtComp // Used for both space-separated and parenthesized lists.
}

// TaggedExtVal is a tagged-ext-val: a number, a sequence set, or a
// tagged-ext-comp. ../rfc/9051:7111
type TaggedExtVal struct {
	Number *int64
	SeqSet *NumSet
	Comp   *TaggedExtComp // Optional even when neither Number nor SeqSet is set.
}

// MboxListExtendedItem is one entry of the extended data of a LIST response.
// ../rfc/9051:6699
type MboxListExtendedItem struct {
	Tag string
	Val TaggedExtVal
}

// EsearchDataExt is one extension entry of an ESEARCH response.
type EsearchDataExt struct {
	Tag   string
	Value TaggedExtVal
}

// UntaggedEsearch is an ESEARCH response. Fields are optional and zero if
// absent. ../rfc/9051:6546
type UntaggedEsearch struct {
	Tag         string // ../rfc/9051:6546
	Mailbox     string // For MULTISEARCH. ../rfc/7377:437
	UIDValidity uint32 // For MULTISEARCH. ../rfc/7377:438

	UID    bool
	Min    uint32
	Max    uint32
	All    NumSet
	Count  *uint32
	ModSeq int64
	Exts   []EsearchDataExt
}

// xsequenceSet parses a sequence-set: a comma-separated list of numbers or
// number:number ranges, or the "$" search-result placeholder.
// ../rfc/9051:7034
func (p *Proto) xsequenceSet() NumSet {
	if p.take('$') {
		return NumSet{SearchResult: true}
	}
	var ss NumSet
	for {
		var r NumRange
		if !p.take('*') {
			r.First = p.xnzuint32()
		}
		if p.take(':') {
			var last uint32
			if !p.take('*') {
				last = p.xnzuint32()
			}
			r.Last = &last
		}
		ss.Ranges = append(ss.Ranges, r)
		if !p.take(',') {
			break
		}
	}
	return ss
}

// xuidset parses a comma-separated list of UID ranges. ../rfc/9051:7133
func (p *Proto) xuidset() []NumRange {
	ranges := []NumRange{p.xuidrange()}
	for p.take(',') {
		ranges = append(ranges, p.xuidrange())
	}
	return ranges
}

func (p *Proto) xuidrange() NumRange {
	uid := p.xnzuint32()
	var last *uint32
	if p.take(':') {
		v := p.xnzuint32()
		last = &v
	}
	return NumRange{uid, last}
}

// xtaggedExtVal parses a tagged-ext-val. ../rfc/9051:7111
func (p *Proto) xtaggedExtVal() TaggedExtVal {
	if p.take('(') {
		var r TaggedExtVal
		if !p.take(')') {
			comp := p.xtaggedExtComp()
			r.Comp = &comp
			p.xtake(")")
		}
		return r
	}
	// A leading digit could start a plain number or a larger sequence-set;
	// look ahead one byte to tell them apart.
	b := p.xbyte()
	if b < '0' || b > '9' {
		p.unreadbyte()
		ss := p.xsequenceSet()
		return TaggedExtVal{SeqSet: &ss}
	}
	p.unreadbyte()
	s := p.xdigits()
	num, err := strconv.ParseInt(s, 10, 63)
	p.xcheckf(err, "parsing tagged-ext-val number")
	if !p.peek(':') && !p.peek(',') {
		return TaggedExtVal{Number: &num}
	}
	var first NumRange
	first.First = uint32(num)
	if p.take(':') {
		var last uint32
		if !p.take('*') {
			last = p.xnzuint32()
		}
		first.Last = &last
	}
	ss := p.xsequenceSet()
	ss.Ranges = append([]NumRange{first}, ss.Ranges...)
	return TaggedExtVal{SeqSet: &ss}
}

// xtaggedExtComp parses a tagged-ext-comp. ../rfc/9051:7097
func (p *Proto) xtaggedExtComp() TaggedExtComp {
	if p.take('(') {
		r := p.xtaggedExtComp()
		p.xtake(")")
		return TaggedExtComp{Comps: []TaggedExtComp{r}}
	}
	s := p.xastring()
	if !p.peek(' ') {
		return TaggedExtComp{String: s}
	}
	l := []TaggedExtComp{{String: s}}
	for p.take(' ') {
		l = append(l, p.xtaggedExtComp())
	}
	return TaggedExtComp{Comps: l}
}

// xesearchResponse parses an ESEARCH response body. Already consumed:
// "ESEARCH". ../rfc/9051:6546
func (p *Proto) xesearchResponse() (r UntaggedEsearch) {
	if !p.take(' ') {
		return
	}
	if p.take('(') {
		// ../rfc/9051:6921
		p.xtake("TAG")
		p.xspace()
		r.Tag = p.xastring()
		p.xtake(")")
	}
	if !p.take(' ') {
		return
	}
	w := p.xnonspace()
	W := strings.ToUpper(w)
	if W == "UID" {
		r.UID = true
		if !p.take(' ') {
			return
		}
		w = p.xnonspace()
		W = strings.ToUpper(w)
	}
	for {
		// ../rfc/9051:6957
		switch W {
		case "MIN":
			if r.Min != 0 {
				p.xerrorf("duplicate MIN in ESEARCH")
			}
			p.xspace()
			r.Min = p.xnzuint32()

		case "MAX":
			if r.Max != 0 {
				p.xerrorf("duplicate MAX in ESEARCH")
			}
			p.xspace()
			r.Max = p.xnzuint32()

		case "ALL":
			if !r.All.IsZero() {
				p.xerrorf("duplicate ALL in ESEARCH")
			}
			p.xspace()
			ss := p.xsequenceSet()
			if ss.SearchResult {
				p.xerrorf("$ for ALL not valid in ESEARCH")
			}
			r.All = ss

		case "COUNT":
			if r.Count != nil {
				p.xerrorf("duplicate COUNT in ESEARCH")
			}
			p.xspace()
			num := p.xuint32()
			r.Count = &num

		// ../rfc/7162:1211 ../rfc/4731:273
		case "MODSEQ":
			p.xspace()
			r.ModSeq = p.xint64()

		default:
			// ../rfc/9051:7090
			for i, b := range []byte(w) {
				if !(b >= 'A' && b <= 'Z' || strings.IndexByte("-_.", b) >= 0 || i > 0 && strings.IndexByte("0123456789:", b) >= 0) {
					p.xerrorf("invalid esearch tag %q", w)
				}
			}
			p.xspace()
			r.Exts = append(r.Exts, EsearchDataExt{w, p.xtaggedExtVal()})
		}

		if !p.take(' ') {
			break
		}
		w = p.xnonspace()
		W = strings.ToUpper(w)
	}
	return
}
