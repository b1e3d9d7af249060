package scram

import (
	"bytes"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"hash"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Client is the client side of a SCRAM-SHA-* exchange.
type Client struct {
	authc string
	authz string

	h            func() hash.Hash
	noServerPlus bool // Client wanted PLUS but believes the server doesn't support it.
	cs           *tls.ConnectionState

	clientFirstBare         string
	serverFirst             string
	clientFinalWithoutProof string
	authMessage             string

	gs2header       string
	clientNonce     string
	nonce           string
	saltedPassword  []byte
	channelBindData []byte
}

// NewClient returns a client that will authenticate as authc, optionally
// requesting the authz role, using h (sha1.New or sha256.New).
//
// If cs is non-nil, the PLUS variant is used, binding the exchange to
// that TLS connection via tls-exporter (TLS 1.3+) or tls-unique. If cs is
// nil but noServerPlus is true, the client marks that it would have used
// PLUS had the server advertised it, letting the server detect a
// mechanism-list downgrade attack.
//
// Call order: ClientFirst (write to server), then ServerFirst on the
// server's response (write its result to the server), then ServerFinal
// on the server's last message.
func NewClient(h func() hash.Hash, authc, authz string, noServerPlus bool, cs *tls.ConnectionState) *Client {
	return &Client{
		authc:        norm.NFC.String(authc),
		authz:        norm.NFC.String(authz),
		h:            h,
		noServerPlus: noServerPlus,
		cs:           cs,
	}
}

// ClientFirst returns the first message to send to the server.
func (c *Client) ClientFirst() (clientFirst string, rerr error) {
	if c.noServerPlus && c.cs != nil {
		return "", fmt.Errorf("cannot both claim channel binding is unsupported and use it")
	}
	// ../rfc/5802:903
	switch {
	case c.cs != nil && c.cs.Version >= tls.VersionTLS13:
		c.gs2header = "p=tls-exporter"
	case c.cs != nil:
		c.gs2header = "p=tls-unique"
	case c.noServerPlus:
		c.gs2header = "y"
	default:
		c.gs2header = "n"
	}
	if c.cs != nil {
		cbdata, err := channelBindData(c.cs)
		if err != nil {
			return "", fmt.Errorf("reading channel binding data: %v", err)
		}
		c.channelBindData = cbdata
	}
	if c.authz != "" {
		c.gs2header += ",a=" + saslname(c.authz) + ","
	} else {
		c.gs2header += ",,"
	}
	if c.clientNonce == "" {
		c.clientNonce = base64.StdEncoding.EncodeToString(MakeRandom())
	}
	c.clientFirstBare = fmt.Sprintf("n=%s,r=%s", saslname(c.authc), c.clientNonce)
	return c.gs2header + c.clientFirstBare, nil
}

// ServerFirst processes the server's first message, computes the client
// proof from password, and returns the final client message to send.
func (c *Client) ServerFirst(serverFirst []byte, password string) (clientFinal string, rerr error) {
	c.serverFirst = string(serverFirst)
	r := newReader(serverFirst)
	defer r.recover(&rerr)

	// ../rfc/5802:632 ../rfc/5802:959 ../rfc/5802:973
	if r.accept("m=") {
		r.fail("server sent unsupported mandatory extension: %w", ErrExtensionsNotSupported)
	}

	c.nonce = r.nonce()
	r.expect(",")
	salt := r.salt()
	r.expect(",")
	iterations := r.iterations()
	for r.accept(",") {
		r.skipAttr()
	}
	r.done()

	if !strings.HasPrefix(c.nonce, c.clientNonce) {
		return "", fmt.Errorf("%w: server dropped our nonce prefix", errProtocol)
	}
	if len(c.nonce)-len(c.clientNonce) < 8 {
		return "", fmt.Errorf("%w: server nonce too short", errUnsafe)
	}
	if len(salt) < 8 {
		return "", fmt.Errorf("%w: salt too short", errUnsafe)
	}
	if iterations < 2048 {
		return "", fmt.Errorf("%w: too few iterations", errUnsafe)
	}

	// Send our channel binding data back; a MitM tampering with it would
	// make the server's signature check below fail. ../rfc/5802:925 ../rfc/5802:1015
	cbindInput := append([]byte(c.gs2header), c.channelBindData...)
	c.clientFinalWithoutProof = fmt.Sprintf("c=%s,r=%s", base64.StdEncoding.EncodeToString(cbindInput), c.nonce)
	c.authMessage = c.clientFirstBare + "," + c.serverFirst + "," + c.clientFinalWithoutProof

	c.saltedPassword = SaltPassword(c.h, password, salt, iterations)
	clientKey := hmacSum(c.h, c.saltedPassword, "Client Key")
	storedHash := c.h()
	storedHash.Write(clientKey)
	storedKey := storedHash.Sum(nil)
	clientSig := hmacSum(c.h, storedKey, c.authMessage)
	xorInto(clientSig, clientKey) // clientSig is now the proof.

	return c.clientFinalWithoutProof + ",p=" + base64.StdEncoding.EncodeToString(clientSig), nil
}

// ServerFinal verifies the server's closing message proves it knows the
// password too.
func (c *Client) ServerFinal(serverFinal []byte) (rerr error) {
	r := newReader(serverFinal)
	defer r.recover(&rerr)

	if r.accept("e=") {
		return fmt.Errorf("server reported error: %w", lookupError(r.value()))
	}
	r.expect("v=")
	verifier := r.base64Value()

	serverKey := hmacSum(c.h, c.saltedPassword, "Server Key")
	serverSig := hmacSum(c.h, serverKey, c.authMessage)
	if !bytes.Equal(verifier, serverSig) {
		return fmt.Errorf("server signature does not match, possible tampering")
	}
	return nil
}
