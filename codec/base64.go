package codec

import (
	"encoding/base64"
	"io"
)

// EncodeBase64 writes the base64 encoding of r to w, split into lines no
// longer than policy allows. Used for Content-Transfer-Encoding: base64
// bodies and for B-encoded words (RFC 2047).
func EncodeBase64(w io.Writer, r io.Reader, policy LinePolicy) error {
	enc := base64.StdEncoding
	raw := make([]byte, 3*1024)
	lineLen := 0
	first := true
	for {
		n, rerr := r.Read(raw)
		if n > 0 {
			chunk := raw[:n]
			for len(chunk) > 0 {
				max := policy.max(first)
				if max <= 0 {
					max = 76
				}
				// enc.EncodedLen rounds groups of 3 input bytes to 4 output
				// chars; take as many whole groups as fit in the remaining
				// line budget.
				remain := max - lineLen
				if remain < 4 {
					if _, err := w.Write([]byte("\r\n")); err != nil {
						return err
					}
					lineLen = 0
					first = false
					remain = policy.max(false)
				}
				groups := remain / 4
				if groups < 1 {
					groups = 1
				}
				take := groups * 3
				if take > len(chunk) {
					take = len(chunk)
				}
				dst := make([]byte, enc.EncodedLen(take))
				enc.Encode(dst, chunk[:take])
				if _, err := w.Write(dst); err != nil {
					return err
				}
				lineLen += len(dst)
				chunk = chunk[take:]
			}
		}
		if rerr == io.EOF {
			break
		} else if rerr != nil {
			return rerr
		}
	}
	return nil
}

// DecodeBase64 returns a reader that decodes base64 read from r, tolerating
// embedded CR/LF line breaks and surrounding whitespace, as most mail
// servers emit and as a lenient client must accept.
func DecodeBase64(r io.Reader) io.Reader {
	return base64.NewDecoder(base64.StdEncoding, &stripWhitespaceReader{r: r})
}

type stripWhitespaceReader struct {
	r io.Reader
}

func (s *stripWhitespaceReader) Read(p []byte) (int, error) {
	buf := make([]byte, len(p))
	n, err := s.r.Read(buf)
	w := 0
	for i := 0; i < n; i++ {
		c := buf[i]
		if c == '\r' || c == '\n' || c == ' ' || c == '\t' {
			continue
		}
		p[w] = c
		w++
	}
	if w == 0 && err == nil && n > 0 {
		return s.Read(p)
	}
	return w, err
}
