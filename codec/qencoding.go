package codec

import (
	"fmt"
	"io"
	"mime"
	"strings"

	"golang.org/x/text/encoding/ianaindex"
)

// WordDecoder decodes RFC 2047 encoded words ("=?charset?Q?...?=" and
// "=?charset?B?...?="), looking up charsets by IANA or MIME name. It wraps
// the standard library's mime.WordDecoder, which does the actual token
// parsing; we only supply the CharsetReader so non-UTF-8 charsets resolve.
var WordDecoder = mime.WordDecoder{
	CharsetReader: func(charset string, r io.Reader) (io.Reader, error) {
		switch strings.ToLower(charset) {
		case "", "us-ascii", "utf-8":
			return r, nil
		}
		enc, _ := ianaindex.MIME.Encoding(charset)
		if enc == nil {
			enc, _ = ianaindex.IANA.Encoding(charset)
		}
		if enc == nil {
			return r, fmt.Errorf("codec: unknown charset %q", charset)
		}
		return enc.NewDecoder().Reader(r), nil
	},
}

// DecodeHeaderWord decodes a header value that may contain RFC 2047 encoded
// words, such as Subject or a display name in an address header.
func DecodeHeaderWord(s string) (string, error) {
	return WordDecoder.DecodeHeader(s)
}

// EncodeHeaderWordQ encodes word as RFC 2047 encoded words if it contains
// non-ASCII, using for each word whichever of Q- and B-encoding is shorter,
// and splitting the input on rune boundaries so no single encoded word
// exceeds 75 bytes. policy and used do not affect the result. ASCII input is
// returned unchanged.
func EncodeHeaderWordQ(word string, policy LinePolicy, used int) string {
	if isASCIIWord(word) {
		return word
	}
	// mime.QEncoding.Encode has no length limit of its own; RFC 2047 caps an
	// encoded word at 75 bytes including the "=?utf-8?Q?...?=" wrapper, so
	// split the input on rune boundaries until each encoded chunk fits.
	const maxEncoded = 75
	var out []string
	runes := []rune(word)
	for len(runes) > 0 {
		n := len(runes)
		for n > 0 {
			s := string(runes[:n])
			candidate := mime.QEncoding.Encode("utf-8", s)
			if b := mime.BEncoding.Encode("utf-8", s); len(b) < len(candidate) {
				candidate = b
			}
			if len(candidate) <= maxEncoded {
				out = append(out, candidate)
				break
			}
			n--
		}
		if n == 0 {
			// Single rune already exceeds the cap (rare, e.g. combining
			// sequences); emit it anyway rather than loop forever.
			out = append(out, mime.QEncoding.Encode("utf-8", string(runes[:1])))
			n = 1
		}
		runes = runes[n:]
	}
	return strings.Join(out, " ")
}

// DecodeCharset returns a reader that transcodes r from charset to UTF-8.
// For an empty, "us-ascii" or "utf-8" charset, or one this module cannot
// resolve via IANA/MIME names, r is returned unchanged.
func DecodeCharset(charset string, r io.Reader) io.Reader {
	switch strings.ToLower(charset) {
	case "", "us-ascii", "utf-8":
		return r
	}
	enc, _ := ianaindex.MIME.Encoding(charset)
	if enc == nil {
		enc, _ = ianaindex.IANA.Encoding(charset)
	}
	if enc == nil {
		return r
	}
	return enc.NewDecoder().Reader(r)
}

func isASCIIWord(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
