package codec

import "strings"

// FoldHeader wraps a already-encoded header value (name not included) across
// multiple lines using RFC 5322 folding whitespace (CRLF followed by a
// tab, which replaces the space at the break), breaking only at the spaces already present in value so encoded
// words and quoted-strings are never split apart. name is used only to
// compute how much room is left on the first line.
func FoldHeader(name, value string, policy LinePolicy) string {
	max := policy.max(true)
	if max <= 0 {
		max = 78
	}
	linelen := len(name) + len(": ")
	words := strings.Split(value, " ")
	var b strings.Builder
	for i, w := range words {
		if i > 0 {
			if linelen+1+len(w) > max {
				b.WriteString("\r\n\t")
				linelen = 1
			} else {
				b.WriteByte(' ')
				linelen++
			}
		}
		b.WriteString(w)
		linelen += len(w)
	}
	return b.String()
}

// UnfoldHeader joins a folded header value back into a single line,
// replacing each CRLF-LWSP fold with a single space, as RFC 5322 §2.2.3
// requires before a value is otherwise interpreted.
func UnfoldHeader(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for i := 0; i < len(value); i++ {
		c := value[i]
		if c == '\r' && i+2 < len(value) && value[i+1] == '\n' && (value[i+2] == ' ' || value[i+2] == '\t') {
			b.WriteByte(' ')
			i += 2
			continue
		}
		if c == '\n' && i+1 < len(value) && (value[i+1] == ' ' || value[i+1] == '\t') {
			b.WriteByte(' ')
			i++
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
