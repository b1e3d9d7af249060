// Package authpolicy gates authentication on a connection's TLS state, so a
// caller can't accidentally hand credentials to a plaintext connection
// unless it explicitly opted in. It is consulted by smtpclient and
// pop3client before sending AUTH/USER; imapclient does not call it.
package authpolicy

import (
	"log/slog"

	"github.com/sguinebert/mailio/mailio"
	"github.com/sguinebert/mailio/mlog"
)

// Options controls Check's decision for a plaintext connection.
type Options struct {
	// RequireTLSForAuth, if true, forbids authentication over a connection
	// that is not TLS-protected unless AllowCleartextAuth is also set.
	RequireTLSForAuth bool

	// AllowCleartextAuth, if true together with RequireTLSForAuth, allows
	// authentication over plaintext anyway (logged at Info level; mlog has
	// no warning level). It has no
	// effect when RequireTLSForAuth is false, since that already allows it.
	AllowCleartextAuth bool
}

// Check implements the table in spec.md §4.10:
//
//	is_tls | require_tls | allow_cleartext | outcome
//	true   | —           | —               | allow
//	false  | false       | —               | allow
//	false  | true        | true            | allow (with an Info-level log)
//	false  | true        | false           | deny
func Check(isTLS bool, opts Options, log mlog.Log) error {
	if isTLS || !opts.RequireTLSForAuth {
		return nil
	}
	if opts.AllowCleartextAuth {
		log.Info("authenticating over plaintext connection, allowed by configuration",
			slog.Bool("requiretlsforauth", opts.RequireTLSForAuth))
		return nil
	}
	return mailio.New(mailio.ErrAuthForbidden, "authentication requires tls and allow_cleartext_auth is false", nil)
}
