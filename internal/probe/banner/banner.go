// Package banner implements the TCP/TLS line-banner probe: connect (optionally with a preamble
// write), read up to 20 lines, and test the accumulated set of lines against a configured table of
// named line-subsets.
package banner

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"

	"github.com/markdingo/trustydns-opm/internal/scanengine"
	"github.com/markdingo/trustydns-opm/internal/tlsutil"
)

const maxLines = 20

// Groups maps a group name to the set of lines that must all appear (as a subset of what was read)
// for that group to match.
type Groups map[string][]string

// New returns a probe that connects to port, optionally over TLS, optionally writes preamble first,
// then reads banner lines looking for a full subset match against one of groups.
func New(port int, groups Groups, preamble string, useTLS bool) scanengine.Probe {
	id := fmt.Sprintf("banner:%d", port)
	if useTLS {
		id = fmt.Sprintf("banner-tls:%d", port)
	}
	return scanengine.Probe{
		ID: id,
		Run: func(ctx context.Context, scan *scanengine.Scan, env *scanengine.Environment) (string, error) {
			addr := fmt.Sprintf("%s:%d", scan.IP(), port)
			conn, err := dial(ctx, addr, env.BindAddress, useTLS)
			if err != nil {
				if isBenign(err) {
					return "", nil
				}
				return "", fmt.Errorf("banner:dial:%w", err)
			}
			defer conn.Close()

			done := make(chan struct{})
			defer close(done)
			go func() {
				select {
				case <-ctx.Done():
					conn.Close()
				case <-done:
				}
			}()

			if preamble != "" {
				if _, err := conn.Write([]byte(preamble)); err != nil {
					return "", nil
				}
			}

			lines := readLines(conn)
			for name, want := range groups {
				if isSubset(want, lines) {
					return fmt.Sprintf("TCP banner (%s)", name), nil
				}
			}
			return "", nil
		},
	}
}

func dial(ctx context.Context, addr, localAddr string, useTLS bool) (net.Conn, error) {
	d := &net.Dialer{}
	if localAddr != "" {
		if tcpAddr, err := net.ResolveTCPAddr("tcp", net.JoinHostPort(localAddr, "0")); err == nil {
			d.LocalAddr = tcpAddr
		}
	}
	if useTLS {
		td := &tls.Dialer{NetDialer: d, Config: tlsutil.NewProbeTLSConfig()}
		return td.DialContext(ctx, "tcp", addr)
	}
	return d.DialContext(ctx, "tcp", addr)
}

// readLines reads up to maxLines lines, stopping early on a blank line (two consecutive newlines).
// Anything left over after the last newline when the connection closes is treated as one final
// pseudo-line, to handle servers that never emit EOL.
func readLines(conn net.Conn) map[string]struct{} {
	lines := make(map[string]struct{})
	buf := make([]byte, 4096)
	var pending []byte

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			for {
				idx := bytes.IndexByte(pending, '\n')
				if idx < 0 {
					break
				}
				line := strings.TrimRight(string(pending[:idx]), "\r")
				pending = pending[idx+1:]
				if line == "" {
					return lines
				}
				lines[line] = struct{}{}
				if len(lines) >= maxLines {
					return lines
				}
			}
		}
		if err != nil {
			if len(pending) > 0 {
				lines[string(pending)] = struct{}{}
			}
			return lines
		}
	}
}

func isSubset(want []string, have map[string]struct{}) bool {
	for _, w := range want {
		if _, ok := have[w]; !ok {
			return false
		}
	}
	return true
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
