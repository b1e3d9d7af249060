package imapclient

import (
	"io"
	"net"
)

// prefixConn wraps a net.Conn, draining a leftover byte buffer before
// passing reads through: TLS handshake bytes read by the bufio.Reader ahead
// of STARTTLS must still reach the TLS handshake once it starts.
type prefixConn struct {
	leftover []byte
	net.Conn
}

func (c *prefixConn) Read(buf []byte) (int, error) {
	if len(c.leftover) == 0 {
		return c.Conn.Read(buf)
	}
	n := copy(buf, c.leftover)
	c.leftover = c.leftover[n:]
	return n, nil
}

// xprefixConn returns c.conn directly if the bufio.Reader in front of it has
// no unconsumed bytes, or a *prefixConn that replays those bytes first
// otherwise.
func (c *Conn) xprefixConn() net.Conn {
	pending := c.br.Buffered()
	if pending == 0 {
		return c.conn
	}
	leftover := make([]byte, pending)
	_, err := io.ReadFull(c.br, leftover)
	c.xcheckf(err, "get buffered data")
	return &prefixConn{leftover, c.conn}
}
