// Package scram implements the SCRAM-SHA-* SASL mechanisms (RFC 5802, RFC
// 7677): a client proves knowledge of a password without ever sending it,
// and the server proves back that it holds the matching salted password.
// Both sides are implemented since this module dials out as a client and
// the same wire format is easiest to test against a local server.
package scram

// todo: test with messages that contain extensions
// todo: figure out how invalid parameters should be surfaced beyond imap/smtp auth failures

import (
	"crypto/hmac"
	cryptorand "crypto/rand"
	"fmt"
	"hash"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/text/unicode/norm"
)

// Error is a SCRAM protocol-level error string, exchangeable between client
// and server as an "e=" field.
type Error string

func (e Error) Error() string { return string(e) }

// Errors defined by RFC 5802 section 7 that a server may report back to a
// client, or a client may see and recognize.
const (
	ErrInvalidEncoding                 Error = "invalid-encoding"
	ErrExtensionsNotSupported          Error = "extensions-not-supported"
	ErrInvalidProof                    Error = "invalid-proof"
	ErrChannelBindingsDontMatch        Error = "channel-bindings-dont-match"
	ErrServerDoesSupportChannelBinding Error = "server-does-support-channel-binding"
	ErrChannelBindingNotSupported      Error = "channel-binding-not-supported"
	ErrUnsupportedChannelBindingType   Error = "unsupported-channel-binding-type"
	ErrUnknownUser                     Error = "unknown-user"
	ErrNoResources                     Error = "no-resources"
	ErrOtherError                      Error = "other-error"
)

var knownErrors = func() map[string]Error {
	m := map[string]Error{}
	for _, e := range []Error{
		ErrInvalidEncoding, ErrExtensionsNotSupported, ErrInvalidProof,
		ErrChannelBindingsDontMatch, ErrServerDoesSupportChannelBinding,
		ErrChannelBindingNotSupported, ErrUnsupportedChannelBindingType,
		ErrUnknownUser, ErrNoResources, ErrOtherError,
	} {
		m[string(e)] = e
	}
	return m
}()

// Go-side errors, not part of the wire protocol.
var (
	errNorm     = fmt.Errorf("parameter not unicode normalized")
	errUnsafe   = fmt.Errorf("unsafe parameter")
	errProtocol = fmt.Errorf("protocol violation")
)

// MakeRandom returns cryptographically random bytes for use as a nonce or
// salt.
func MakeRandom() []byte {
	buf := make([]byte, 12)
	if _, err := cryptorand.Read(buf); err != nil {
		panic("scram: reading random bytes: " + err.Error())
	}
	return buf
}

// SaltPassword derives a salted password from a cleartext password using
// PBKDF2 with the given hash, matching RFC 5802's SaltedPassword.
func SaltPassword(h func() hash.Hash, password string, salt []byte, iterations int) []byte {
	password = norm.NFC.String(password)
	return pbkdf2.Key([]byte(password), salt, iterations, h().Size(), h)
}

func hmacSum(h func() hash.Hash, key []byte, msg string) []byte {
	mac := hmac.New(h, key)
	mac.Write([]byte(msg))
	return mac.Sum(nil)
}

func xorInto(dst, src []byte) {
	for i := range dst {
		dst[i] ^= src[i]
	}
}

// saslname escapes "," as "=2C" and "=" as "=3D", per the saslname
// production.
func saslname(s string) string {
	buf := make([]byte, 0, len(s))
	for _, c := range s {
		switch c {
		case ',':
			buf = append(buf, "=2C"...)
		case '=':
			buf = append(buf, "=3D"...)
		default:
			buf = append(buf, string(c)...)
		}
	}
	return string(buf)
}

func lookupError(s string) error {
	if e, ok := knownErrors[s]; ok {
		return e
	}
	return fmt.Errorf("server error: %s", s)
}
