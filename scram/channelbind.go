package scram

import (
	"crypto/tls"
	"fmt"
)

// channelBindData returns the bytes a "p=" channel binding commits to for
// the given TLS connection: tls-unique before TLS 1.3, tls-exporter from
// 1.3 onward, since tls-unique isn't defined for 1.3. ../rfc/9266:95
func channelBindData(cs *tls.ConnectionState) ([]byte, error) {
	if cs.Version <= tls.VersionTLS12 {
		if cs.TLSUnique == nil {
			return nil, fmt.Errorf("no tls-unique channel binding value, possibly due to a resumed session or missing extended master secret support")
		}
		return cs.TLSUnique, nil
	}
	// A zero-length and absent context are equivalent since TLS 1.3.
	// ../rfc/8446:5385 ../rfc/8446:5405
	return cs.ExportKeyingMaterial("EXPORTER-Channel-Binding", nil, 32)
}

// checkChannelBindingName validates a server-announced or client-requested
// channel binding type name against the TLS connection it will bind to.
// ../rfc/5802:889
func checkChannelBindingName(name string, cs *tls.ConnectionState) error {
	if cs == nil {
		return fmt.Errorf("no tls connection: %w", ErrChannelBindingsDontMatch)
	}
	switch name {
	case "tls-unique":
		if cs.Version >= tls.VersionTLS13 {
			return fmt.Errorf("tls-unique not defined for tls 1.3 and later, use tls-exporter: %w", ErrChannelBindingsDontMatch)
		}
		if cs.TLSUnique == nil {
			return fmt.Errorf("no tls-unique value for this connection: %w", ErrChannelBindingsDontMatch)
		}
	case "tls-exporter":
		if cs.Version < tls.VersionTLS13 {
			return fmt.Errorf("tls-exporter with tls before 1.3 not supported, use tls-unique: %w", ErrChannelBindingsDontMatch)
		}
	default:
		return fmt.Errorf("unknown channel binding type %q: %w", name, ErrUnsupportedChannelBindingType)
	}
	return nil
}
