// Package httphash implements the HTTP response-hash probe: read a response's headers and
// Content-Length-bounded body, hash several stable combinations of them, and match any hash against
// a configured table.
package httphash

import (
	"bufio"
	"context"
	"crypto/sha1"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"syscall"

	"github.com/markdingo/trustydns-opm/internal/scanengine"
	"github.com/markdingo/trustydns-opm/internal/tlsutil"
)

// stableHeaders is the fixed set of response headers folded into the header and header+body
// hashes; anything else (notably Date) would make the hash useless for fingerprinting.
var stableHeaders = []string{"content-type", "cache-control", "referrer-policy", "connection", "server"}

// Hashes maps a hex sha1 digest to the description reported when it's seen.
type Hashes map[string]string

// New returns a probe that connects to port, optionally over TLS, sends send (typically
// "GET / HTTP/1.0\r\n\r\n"), and matches the body hash, the stable-header hash, and the
// stable-header+body hash against bad.
func New(port int, bad Hashes, send string, useTLS bool) scanengine.Probe {
	id := fmt.Sprintf("httphash:%d", port)
	if useTLS {
		id = fmt.Sprintf("httphash-tls:%d", port)
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
				return "", fmt.Errorf("httphash:dial:%w", err)
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

			if send != "" {
				if _, err := conn.Write([]byte(send)); err != nil {
					return "", nil
				}
			}

			headers, body, ok := readResponse(conn)
			if !ok {
				return "", nil
			}

			for _, hash := range candidateHashes(headers, body) {
				if description, ok := bad[hash]; ok {
					return fmt.Sprintf("%s (%s)", description, hash), nil
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

// readResponse reads headers (up to 20, key lower-cased) until a blank line, then a
// Content-Length-bounded body. ok is false if the connection closed before a complete,
// length-bounded body was read.
func readResponse(conn net.Conn) (headers map[string]string, body []byte, ok bool) {
	headers = make(map[string]string)
	r := bufio.NewReader(conn)
	contentLength := -1

	for i := 0; i <= 20; i++ {
		line, err := r.ReadString('\n')
		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == "" {
			goto readBody
		}
		if idx := strings.Index(trimmed, ":"); idx > 0 {
			key := strings.ToLower(strings.TrimSpace(trimmed[:idx]))
			val := strings.TrimSpace(trimmed[idx+1:])
			headers[key] = val
			if key == "content-length" {
				if n, err := strconv.Atoi(val); err == nil {
					contentLength = n
				} else {
					return nil, nil, false
				}
			}
		}
		if err != nil {
			return nil, nil, false
		}
	}
	return nil, nil, false

readBody:
	if contentLength < 0 {
		return nil, nil, false
	}
	body = make([]byte, contentLength)
	if _, err := readFull(r, body); err != nil {
		return nil, nil, false
	}
	return headers, body, true
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func candidateHashes(headers map[string]string, body []byte) []string {
	var headerBlob strings.Builder
	for _, name := range stableHeaders {
		if v, ok := headers[name]; ok {
			headerBlob.WriteString(name)
			headerBlob.WriteString(":")
			headerBlob.WriteString(v)
			headerBlob.WriteString("\n")
		}
	}
	stable := []byte(headerBlob.String())

	bodyHash := sha1.Sum(body)
	headerHash := sha1.Sum(stable)
	combinedHash := sha1.Sum(append(append([]byte{}, stable...), body...))

	return []string{
		fmt.Sprintf("%x", bodyHash),
		fmt.Sprintf("%x", headerHash),
		fmt.Sprintf("%x", combinedHash),
	}
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
