package message

import (
	"strings"
)

// refWalker consumes a References/In-Reply-To field value one angle-bracket
// entry at a time, appending each canonicalized message-id it recognizes to
// ids.
type refWalker struct {
	ids []string
}

// next consumes one entry from the front of s and returns whatever text
// remains for a subsequent call, or "" once s is exhausted.
func (w *refWalker) next(s string) string {
	s = strings.TrimLeft(s, " \t\r\n")
	if !strings.HasPrefix(s, "<") {
		// Not a well-formed entry: skip ahead to the next plausible boundary
		// to keep making progress through the field.
		i := strings.IndexAny(s, " >")
		if i < 0 {
			return ""
		}
		return s[i+1:]
	}
	s = s[1:]
	// The entry ends at ">"; if "<" comes first, this entry was truncated
	// mid-message-id and is skipped.
	i := strings.IndexAny(s, "<>")
	if i < 0 {
		return ""
	}
	if s[i] == '<' {
		return s[i:]
	}
	w.add(s[:i])
	return s[i+1:]
}

// add canonicalizes and records one message-id extracted from between a
// pair of angle brackets.
func (w *refWalker) add(raw string) {
	ref := strings.ToLower(raw)
	// Some MUAs wrap References mid-message-id, others recombine the
	// wrapped pieces with a bare space or tab; strip both back out.
	ref = strings.NewReplacer(" ", "", "\t", "").Replace(ref)
	if folded, _ := foldLocalpart(ref); folded != "" {
		ref = folded
	}
	if ref != "" {
		w.ids = append(w.ids, ref)
	}
}

// walkAll drains s by repeated next calls, collecting every entry found.
func (w *refWalker) walkAll(s string) {
	for s != "" {
		s = w.next(s)
	}
}

// ReferencedIDs returns the Message-IDs referenced from the References header(s),
// with a fallback to the In-Reply-To header(s). The ids are canonicalized for
// thread-matching, like with MessageIDCanonical. Empty message-id's are skipped.
func ReferencedIDs(references []string, inReplyTo []string) ([]string, error) {
	w := &refWalker{}

	// References is the modern way (for a long time already) to reference
	// ancestors. The direct parent is typically at the end of the list.
	for _, refs := range references {
		w.walkAll(refs)
	}
	// Only fall back to In-Reply-To if References gave us nothing.
	if len(w.ids) == 0 {
		for _, s := range inReplyTo {
			w.next(s)
			if len(w.ids) > 0 {
				break
			}
		}
	}

	return w.ids, nil
}
