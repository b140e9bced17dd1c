// Package rdns implements the reverse-DNS probe: resolve the scan target's PTR name and match it,
// full-string and case-insensitively, against a configured table of regexes.
package rdns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"

	"github.com/markdingo/trustydns-opm/internal/scanengine"
)

// Entry pairs a compiled, anchored, case-insensitive pattern with the description to report when it
// fully matches a PTR name.
type Entry struct {
	Pattern     *regexp.Regexp
	Description string
}

// Compile anchors pattern so MatchString behaves like a full-string match, and folds case, matching
// the source probe's "first full-match wins, case-insensitive" semantics.
func Compile(pattern, description string) (Entry, error) {
	re, err := regexp.Compile("(?i)^(?:" + pattern + ")$")
	if err != nil {
		return Entry{}, fmt.Errorf("rdns:Compile:%w", err)
	}
	return Entry{Pattern: re, Description: description}, nil
}

// New returns a probe that PTR-resolves the scan IP and reports the first entry whose pattern fully
// matches a returned name.
func New(id string, entries []Entry) scanengine.Probe {
	return scanengine.Probe{
		ID: id,
		Run: func(ctx context.Context, scan *scanengine.Scan, env *scanengine.Environment) (string, error) {
			names, err := env.Resolver.LookupAddr(ctx, scan.IP())
			if err != nil {
				if isNotFound(err) {
					return "", nil
				}
				return "", err
			}
			for _, name := range names {
				name = strings.TrimSuffix(name, ".")
				for _, e := range entries {
					if e.Pattern.MatchString(name) {
						return e.Description, nil
					}
				}
			}
			return "", nil
		},
	}
}

func isNotFound(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsNotFound
	}
	return false
}
