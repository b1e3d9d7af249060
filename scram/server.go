package scram

import (
	"bytes"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"hash"

	"golang.org/x/text/unicode/norm"
)

// Server is the server side of a SCRAM-SHA-* exchange. Use NewServer to
// start one from a client's first message.
type Server struct {
	Authentication string // "authc", always set and non-empty.
	Authorization  string // "authz", set if the client requested a different role.

	h func() hash.Hash

	clientFirstBare         string
	serverFirst             string
	clientFinalWithoutProof string

	gs2header           string
	clientNonce         string
	serverNonceOverride string // Set in tests to pin the server nonce to a test vector.
	nonce               string
	channelBinding       []byte
}

// NewServer parses a client's first SCRAM message and returns a Server to
// continue the exchange with.
//
// cs, if set, is the TLS connection the exchange runs over; it allows the
// PLUS channel-binding variant to be negotiated. channelBindingRequired
// rejects clients that send the "n" flag (no channel binding). A client
// sending the "y" flag (it supports channel binding but believes the server
// does not) is always rejected.
//
// Call order: NewServer, then ServerFirst (write its result to the
// client), then Finish or FinishError on the client's response.
func NewServer(h func() hash.Hash, clientFirst []byte, cs *tls.ConnectionState, channelBindingRequired bool) (server *Server, rerr error) {
	r := newReader(clientFirst)
	defer r.recover(&rerr)

	server = &Server{h: h}

	// gs2-cbind-flag: "n" no binding, "y" client supports but thinks we
	// don't, "p=<name>" client wants binding. ../rfc/5802:903 ../rfc/5802:949
	switch flag := r.byte(); flag {
	case 'n':
		if channelBindingRequired {
			r.fail("channel binding is required: %w", ErrChannelBindingsDontMatch)
		}
	case 'y':
		r.fail("client believes server does not support channel binding: %w", ErrServerDoesSupportChannelBinding)
	case 'p':
		r.expect("=")
		name := r.cbName()
		if err := checkChannelBindingName(name, cs); err != nil {
			r.fail("%s", err)
		}
		cb, err := channelBindData(cs)
		r.check(err, "reading channel binding data")
		server.channelBinding = cb
	default:
		r.fail("unrecognized gs2 channel binding flag %q", flag)
	}
	r.expect(",")
	if !r.accept(",") {
		server.Authorization = r.authzid()
		if norm.NFC.String(server.Authorization) != server.Authorization {
			return nil, fmt.Errorf("%w: authzid not normalized", errNorm)
		}
		r.expect(",")
	}
	server.gs2header = r.rawText[:r.pos]
	server.clientFirstBare = r.rawText[r.pos:]

	// A mandatory extension we don't understand must abort. ../rfc/5802:632
	// ../rfc/5802:946 ../rfc/5802:973
	if r.accept("m=") {
		r.fail("client requires unsupported extension: %w", ErrExtensionsNotSupported)
	}
	server.Authentication = r.username()
	if norm.NFC.String(server.Authentication) != server.Authentication {
		return nil, fmt.Errorf("%w: username not normalized", errNorm)
	}
	r.expect(",")
	server.clientNonce = r.nonce()
	if len(server.clientNonce) < 8 {
		return nil, fmt.Errorf("%w: client nonce too short", errUnsafe)
	}
	for r.accept(",") {
		r.skipAttr()
	}
	r.done()
	return server, nil
}

// ServerFirst returns the message to send back after NewServer.
func (s *Server) ServerFirst(iterations int, salt []byte) (string, error) {
	serverNonce := s.serverNonceOverride
	if serverNonce == "" {
		serverNonce = base64.StdEncoding.EncodeToString(MakeRandom())
	}
	s.nonce = s.clientNonce + serverNonce
	s.serverFirst = fmt.Sprintf("r=%s,s=%s,i=%d", s.nonce, base64.StdEncoding.EncodeToString(salt), iterations)
	return s.serverFirst, nil
}

// Finish verifies the client's final message against saltedPassword and
// returns the server's final message. A non-nil rerr means authentication
// failed; the returned string, if non-empty, is still the message to send
// back to the client (an "e=" error report).
func (s *Server) Finish(clientFinal []byte, saltedPassword []byte) (serverFinal string, rerr error) {
	r := newReader(clientFinal)
	defer r.recover(&rerr)

	// A mismatched channel binding may mean a MitM stripped or rewrote it;
	// the signature check below would fail either way, but checking here
	// gives a clearer error.
	cbind := r.channelBinding()
	cbindExpected := append([]byte(s.gs2header), s.channelBinding...)
	if !bytes.Equal(cbind, cbindExpected) {
		return "e=" + string(ErrChannelBindingsDontMatch), ErrChannelBindingsDontMatch
	}
	r.expect(",")
	if nonce := r.nonce(); nonce != s.nonce {
		return "e=" + string(ErrInvalidProof), ErrInvalidProof
	}
	for !r.peek(",p=") {
		r.expect(",")
		r.skipAttr()
	}
	s.clientFinalWithoutProof = r.rawText[:r.pos]
	r.expect(",")
	proof := r.proof()
	r.done()

	authMessage := s.clientFirstBare + "," + s.serverFirst + "," + s.clientFinalWithoutProof

	clientKey := hmacSum(s.h, saltedPassword, "Client Key")
	storedHash := s.h()
	storedHash.Write(clientKey)
	storedKey := storedHash.Sum(nil)

	clientSig := hmacSum(s.h, storedKey, authMessage)
	xorInto(clientSig, clientKey) // clientSig is now the received proof, if valid.
	if !bytes.Equal(clientSig, proof) {
		return "e=" + string(ErrInvalidProof), ErrInvalidProof
	}

	serverKey := hmacSum(s.h, saltedPassword, "Server Key")
	serverSig := hmacSum(s.h, serverKey, authMessage)
	return fmt.Sprintf("v=%s", base64.StdEncoding.EncodeToString(serverSig)), nil
}

// FinishError formats err as the final server message for a failed
// authentication attempt.
func (s *Server) FinishError(err Error) string {
	return "e=" + string(err)
}
