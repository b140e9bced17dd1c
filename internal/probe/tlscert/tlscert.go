// Package tlscert implements the TLS certificate probe: complete a handshake against the suspect
// port and test the peer certificate's fingerprint, subject/issuer CN and O, and SubjectAltNames
// against a configured table of regexes.
package tlscert

import (
	"context"
	"crypto/sha1"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"regexp"
	"syscall"

	"github.com/markdingo/trustydns-opm/internal/scanengine"
	"github.com/markdingo/trustydns-opm/internal/tlsutil"
)

// Entry pairs a compiled, anchored, case-insensitive pattern with the description to report when it
// fully matches one of a certificate's candidate keys.
type Entry struct {
	Pattern     *regexp.Regexp
	Description string
}

// Compile anchors pattern for a full-string, case-insensitive match against a candidate key such as
// "sha1:<hex>" or "scn:<name>".
func Compile(pattern, description string) (Entry, error) {
	re, err := regexp.Compile("(?i)^(?:" + pattern + ")$")
	if err != nil {
		return Entry{}, fmt.Errorf("tlscert:Compile:%w", err)
	}
	return Entry{Pattern: re, Description: description}, nil
}

// New returns a probe that connects to port over TLS and matches the peer certificate against bad.
func New(port int, bad []Entry) scanengine.Probe {
	return scanengine.Probe{
		ID: fmt.Sprintf("tlscert:%d", port),
		Run: func(ctx context.Context, scan *scanengine.Scan, env *scanengine.Environment) (string, error) {
			addr := fmt.Sprintf("%s:%d", scan.IP(), port)
			dialer := &tls.Dialer{Config: tlsutil.NewProbeTLSConfig()}
			if env.BindAddress != "" {
				dialer.NetDialer = &net.Dialer{LocalAddr: &net.TCPAddr{IP: net.ParseIP(env.BindAddress)}}
			}
			conn, err := dialer.DialContext(ctx, "tcp", addr)
			if err != nil {
				if isBenign(err) {
					return "", nil
				}
				return "", fmt.Errorf("tlscert:dial:%w", err)
			}
			defer conn.Close()

			tlsConn, ok := conn.(*tls.Conn)
			if !ok {
				return "", fmt.Errorf("tlscert: unexpected connection type %T", conn)
			}
			state := tlsConn.ConnectionState()
			if len(state.PeerCertificates) == 0 {
				return "", nil
			}
			cert := state.PeerCertificates[0]

			for _, key := range candidateKeys(cert) {
				for _, entry := range bad {
					if entry.Pattern.MatchString(key) {
						return fmt.Sprintf("%s (%s)", entry.Description, key), nil
					}
				}
			}
			return "", nil
		},
	}
}

// candidateKeys builds the set of keys a probe entry can match: "sha1:<hex>" of the whole
// certificate, "scn:"/"son:" of the subject's CommonName/Organization, "icn:"/"ion:" of the
// issuer's, and one "san:" per SubjectAltName DNS name.
func candidateKeys(cert *x509.Certificate) []string {
	var keys []string

	sum := sha1.Sum(cert.Raw)
	keys = append(keys, fmt.Sprintf("sha1:%x", sum))

	if cert.Subject.CommonName != "" {
		keys = append(keys, "scn:"+cert.Subject.CommonName)
	}
	for _, o := range cert.Subject.Organization {
		keys = append(keys, "son:"+o)
	}
	if cert.Issuer.CommonName != "" {
		keys = append(keys, "icn:"+cert.Issuer.CommonName)
	}
	for _, o := range cert.Issuer.Organization {
		keys = append(keys, "ion:"+o)
	}
	for _, name := range cert.DNSNames {
		keys = append(keys, "san:"+name)
	}
	return keys
}

func isBenign(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
