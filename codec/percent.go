package codec

import (
	"fmt"
	"strconv"
	"strings"
)

// attrCharSafe are the octets RFC 2231 §7 (via RFC 5987) allows unescaped in
// an extended-parameter value: attribute-char minus the percent sign and
// everything outside of 0x21-0x7E.
func attrCharSafe(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	switch c {
	case '!', '#', '$', '&', '+', '-', '.', '^', '_', '`', '|', '~':
		return true
	}
	return false
}

// EncodeExtValue percent-encodes value for use as an RFC 2231 extended
// parameter value (the right-hand side of a "name*=" or "name*0*="
// attribute), prefixed with the charset and an empty language tag as RFC
// 2231 §4 requires: charset'language'encoded-value.
func EncodeExtValue(value string) string {
	var b strings.Builder
	b.WriteString("utf-8''")
	for i := 0; i < len(value); i++ {
		c := value[i]
		if attrCharSafe(c) {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

// EncodeExtParam renders a Content-Type/Content-Disposition parameter whose
// value needs RFC 2231 extended-value encoding (non-ASCII or containing
// characters unsafe for a bare quoted-string), splitting it into continuation
// segments ("name*0*=...; name*1*=...") when the encoded value would not fit
// within policy's line length on its own.
func EncodeExtParam(name, value string, policy LinePolicy) string {
	encoded := EncodeExtValue(value)
	max := policy.max(false)
	if max <= 0 {
		max = 76
	}
	overhead := len(name) + len("*NN*=;") + 1
	segMax := max - overhead
	if segMax < 8 {
		segMax = 8
	}
	if len(encoded) <= segMax+len("utf-8''") {
		return name + "*=" + encoded
	}
	var parts []string
	// The charset'lang' prefix only appears on segment 0.
	rest := strings.TrimPrefix(encoded, "utf-8''")
	first := true
	idx := 0
	for {
		var chunk string
		limit := segMax
		if first {
			limit -= len("utf-8''")
		}
		if len(rest) <= limit {
			chunk = rest
			rest = ""
		} else {
			// Never split in the middle of a %XX escape.
			cut := limit
			for cut > 0 && rest[cut-1] == '%' {
				cut--
			}
			if cut > 1 && rest[cut-2] == '%' {
				cut -= 2
			}
			chunk = rest[:cut]
			rest = rest[cut:]
		}
		if first {
			chunk = "utf-8''" + chunk
		}
		parts = append(parts, name+"*"+strconv.Itoa(idx)+"*="+chunk)
		idx++
		first = false
		if rest == "" {
			break
		}
	}
	return strings.Join(parts, ";\r\n\t")
}
