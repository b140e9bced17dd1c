// Package socks implements the SOCKS4 and SOCKS5 CONNECT probes. Unlike the line-based probes, the
// request is a fixed binary packet; the reply is still read and matched the same line-oriented way
// as every other proxy probe, since a relayed session behaves identically regardless of how the
// relay itself was negotiated.
package socks

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"

	"github.com/markdingo/trustydns-opm/internal/probe/lineprobe"
	"github.com/markdingo/trustydns-opm/internal/scanengine"
)

// Socks4 returns a probe that issues a SOCKS4 CONNECT request through port.
func Socks4(port int) scanengine.Probe {
	return scanengine.Probe{
		ID: fmt.Sprintf("socks4:%d", port),
		Run: func(ctx context.Context, scan *scanengine.Scan, env *scanengine.Environment) (string, error) {
			payload, err := BuildSOCKS4(env.TargetIP, env.TargetPort)
			if err != nil {
				return "", err
			}
			addr := fmt.Sprintf("%s:%d", scan.IP(), port)
			matched, err := lineprobe.Run(ctx, addr, env.BindAddress, payload, env.TargetStrings, env.MaxBytes)
			if err != nil || !matched {
				return "", err
			}
			return fmt.Sprintf("SOCKS 4 (%d)", port), nil
		},
	}
}

// Socks5 returns a probe that issues a SOCKS5 greeting plus CONNECT request through port, both sent
// back-to-back without waiting for the negotiation reply.
func Socks5(port int) scanengine.Probe {
	return scanengine.Probe{
		ID: fmt.Sprintf("socks5:%d", port),
		Run: func(ctx context.Context, scan *scanengine.Scan, env *scanengine.Environment) (string, error) {
			payload, err := BuildSOCKS5(env.TargetIP, env.TargetPort)
			if err != nil {
				return "", err
			}
			addr := fmt.Sprintf("%s:%d", scan.IP(), port)
			matched, err := lineprobe.Run(ctx, addr, env.BindAddress, payload, env.TargetStrings, env.MaxBytes)
			if err != nil || !matched {
				return "", err
			}
			return fmt.Sprintf("SOCKS 5 (%d)", port), nil
		},
	}
}

// BuildSOCKS4 returns the exact SOCKS4 CONNECT packet for (ip, port): version 4, command 1
// (CONNECT), the port big-endian, the IPv4 address, and a zero-byte terminator for the (unused)
// user-id field.
func BuildSOCKS4(ip string, port int) ([]byte, error) {
	v4, err := ipv4(ip)
	if err != nil {
		return nil, fmt.Errorf("socks:BuildSOCKS4:%w", err)
	}
	packet := make([]byte, 9)
	packet[0] = 4
	packet[1] = 1
	binary.BigEndian.PutUint16(packet[2:4], uint16(port))
	copy(packet[4:8], v4)
	packet[8] = 0
	return packet, nil
}

// BuildSOCKS5 returns the SOCKS5 greeting ("no auth required") concatenated with the CONNECT
// request for an IPv4 address, exactly as sent on the wire by this probe.
func BuildSOCKS5(ip string, port int) ([]byte, error) {
	v4, err := ipv4(ip)
	if err != nil {
		return nil, fmt.Errorf("socks:BuildSOCKS5:%w", err)
	}
	packet := make([]byte, 0, 13)
	packet = append(packet, 5, 1, 0) // version, 1 method offered, "no auth"
	packet = append(packet, 5, 1, 0, 1)
	packet = append(packet, v4...)
	port16 := make([]byte, 2)
	binary.BigEndian.PutUint16(port16, uint16(port))
	packet = append(packet, port16...)
	return packet, nil
}

func ipv4(ip string) ([]byte, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return nil, fmt.Errorf("invalid ip %q", ip)
	}
	v4 := parsed.To4()
	if v4 == nil {
		return nil, fmt.Errorf("not an IPv4 address: %q", ip)
	}
	return v4, nil
}
