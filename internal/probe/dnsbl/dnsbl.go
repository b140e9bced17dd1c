// Package dnsbl implements the DNS blacklist probe: a reversed-octet (or reversed-nibble, for
// IPv6) query under a configured zone, with the A-record reply's last octet selecting a reason from
// a configured table.
package dnsbl

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/miekg/dns"

	"github.com/markdingo/trustydns-opm/internal/scanengine"
)

// Reasons maps a DNSBL reply's last octet to a human description.
type Reasons map[byte]string

// New returns a probe that queries zone through nameserver (a "host:port" address; if empty, the
// query uses the system resolver's default nameserver setup via net.DefaultResolver instead of
// miekg/dns, so a configured nameserver is required to exercise the explicit-server code path).
func New(zone string, reasons Reasons, nameserver string) scanengine.Probe {
	return scanengine.Probe{
		ID: fmt.Sprintf("dnsbl:%s:%s", zone, nameserver),
		Run: func(ctx context.Context, scan *scanengine.Scan, env *scanengine.Environment) (string, error) {
			query, err := BuildQuery(scan.IP(), zone)
			if err != nil {
				return "", err
			}
			last, found, err := lookup(ctx, query, nameserver)
			if err != nil {
				return "", fmt.Errorf("dnsbl:lookup:%w", err)
			}
			if !found {
				return "", nil
			}
			if reason, ok := reasons[last]; ok {
				return reason, nil
			}
			return fmt.Sprintf("Unknown reason %d", last), nil
		},
	}
}

// BuildQuery returns the DNSBL query name for ip under zone: "d.c.b.a.zone" for IPv4 a.b.c.d, or 32
// reversed nibbles of the exploded IPv6 address followed by zone.
func BuildQuery(ip, zone string) (string, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "", fmt.Errorf("dnsbl: invalid ip %q", ip)
	}
	if v4 := parsed.To4(); v4 != nil {
		return fmt.Sprintf("%d.%d.%d.%d.%s", v4[3], v4[2], v4[1], v4[0], zone), nil
	}

	v6 := parsed.To16()
	nibbles := make([]string, 0, 32)
	for i := len(v6) - 1; i >= 0; i-- {
		b := v6[i]
		nibbles = append(nibbles, fmt.Sprintf("%x", b&0x0f), fmt.Sprintf("%x", b>>4))
	}
	return strings.Join(nibbles, ".") + "." + zone, nil
}

func lookup(ctx context.Context, query, nameserver string) (byte, bool, error) {
	if nameserver == "" {
		addrs, err := net.DefaultResolver.LookupHost(ctx, query)
		if err != nil {
			if isNotFound(err) {
				return 0, false, nil
			}
			return 0, false, err
		}
		return lastOctetOf(addrs)
	}

	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(query), dns.TypeA)
	c := new(dns.Client)
	r, _, err := c.ExchangeContext(ctx, m, nameserver)
	if err != nil {
		return 0, false, err
	}
	if r.Rcode == dns.RcodeNameError {
		return 0, false, nil
	}
	if r.Rcode != dns.RcodeSuccess {
		return 0, false, fmt.Errorf("query %s against %s: rcode %s", query, nameserver, dns.RcodeToString[r.Rcode])
	}
	for _, rr := range r.Answer {
		if a, ok := rr.(*dns.A); ok {
			v4 := a.A.To4()
			if v4 != nil {
				return v4[3], true, nil
			}
		}
	}
	return 0, false, nil
}

func lastOctetOf(addrs []string) (byte, bool, error) {
	for _, addr := range addrs {
		parsed := net.ParseIP(addr)
		if v4 := parsed.To4(); v4 != nil {
			return v4[3], true, nil
		}
	}
	return 0, false, nil
}

func isNotFound(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsNotFound
	}
	return false
}
