package tlsutil

import "crypto/tls"

// NewProbeTLSConfig returns a tls.Config suitable for a proxy/cert probe's outbound connection:
// certificate verification is always disabled, because a probe cares about the certificate's
// content (fingerprint, subject, SANs) rather than whether it's trusted.
func NewProbeTLSConfig() *tls.Config {
	return &tls.Config{InsecureSkipVerify: true}
}
