// Package lineprobe holds the dial-write-read-match logic shared by every proxy probe that speaks
// in terms of lines: HTTP CONNECT/POST/GET, Wingate, Cisco telnet, and the SOCKS4/5 probes (whose
// request is binary but whose expected reply is still read and matched line-by-line).
package lineprobe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// Run dials addr (optionally bound to localAddr), writes payload, then reads from the connection
// looking for any of targetStrings as a substring of either a completed line or whatever partial
// data has accumulated since the last line - catching servers that never emit a newline. Reading
// stops once more than maxBytes has been received across completed lines. A positive match, EOF, or
// any read-time failure all resolve to a clean (matched, nil) return; only a non-refused,
// non-timeout dial failure is returned as an error for the caller to report upstream.
func Run(ctx context.Context, addr, localAddr string, payload []byte, targetStrings []string, maxBytes int) (bool, error) {
	conn, err := dial(ctx, addr, localAddr)
	if err != nil {
		if isBenign(err) {
			return false, nil
		}
		return false, fmt.Errorf("lineprobe:dial:%w", err)
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

	if len(payload) > 0 {
		if _, err := conn.Write(payload); err != nil {
			return false, nil
		}
	}

	return readMatch(conn, targetStrings, maxBytes), nil
}

// JoinLines renders lines the way the probe library's wire protocols expect: every line, including
// a trailing empty string for a blank line, terminated by CRLF.
func JoinLines(lines ...string) []byte {
	var buf bytes.Buffer
	for _, line := range lines {
		buf.WriteString(line)
		buf.WriteString("\r\n")
	}
	return buf.Bytes()
}

func dial(ctx context.Context, addr, localAddr string) (net.Conn, error) {
	d := &net.Dialer{}
	if localAddr != "" {
		if tcpAddr, err := net.ResolveTCPAddr("tcp", net.JoinHostPort(localAddr, "0")); err == nil {
			d.LocalAddr = tcpAddr
		}
	}
	return d.DialContext(ctx, "tcp", addr)
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

func readMatch(conn net.Conn, targetStrings []string, maxBytes int) bool {
	buf := make([]byte, 4096)
	var pending []byte
	var bytesReceived int

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			for {
				idx := bytes.IndexByte(pending, '\n')
				if idx < 0 {
					break
				}
				line := bytes.TrimRight(pending[:idx], "\r")
				pending = pending[idx+1:]
				bytesReceived += len(line)
				if containsAny(line, targetStrings) {
					return true
				}
				if bytesReceived > maxBytes {
					return false
				}
			}
			if containsAny(pending, targetStrings) {
				return true
			}
		}
		if err != nil {
			return false
		}
	}
}

func containsAny(data []byte, targets []string) bool {
	s := string(data)
	for _, t := range targets {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
