package httpproxy

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/markdingo/trustydns-opm/internal/scanengine"
)

// capture starts a one-shot listener that records whatever the probe writes and replies with
// response, returning the listener's port and a channel that yields the captured bytes.
func capture(t *testing.T, response []byte) (int, <-chan []byte) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	got := make(chan []byte, 1)
	go func() {
		defer ln.Close()
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 4096)
		n, _ := conn.Read(buf)
		got <- append([]byte(nil), buf[:n]...)
		conn.Write(response)
	}()
	return ln.Addr().(*net.TCPAddr).Port, got
}

func TestConnectWritesExactRequestAndMatches(t *testing.T) {
	port, got := capture(t, []byte("200 OK relayed successfully\r\n"))
	env := &scanengine.Environment{TargetIP: "198.51.100.9", TargetPort: 81, TargetStrings: []string{"relayed successfully"}, MaxBytes: 4096}
	p := Connect(port)

	reason, err := p.Run(context.Background(), fakeScan("127.0.0.1"), env)
	if err != nil {
		t.Fatal(err)
	}
	want := "HTTP CONNECT (" + strconv.Itoa(port) + ")"
	if reason != want {
		t.Errorf("reason = %q, want %q", reason, want)
	}

	select {
	case req := <-got:
		expect := "CONNECT 198.51.100.9:81 HTTP/1.0\r\n\r\n"
		if string(req) != expect {
			t.Errorf("request = %q, want %q", req, expect)
		}
	case <-time.After(time.Second):
		t.Fatal("server never saw a request")
	}
}

func TestPostWritesBody(t *testing.T) {
	port, got := capture(t, []byte("no match here\r\n"))
	env := &scanengine.Environment{TargetURL: "/relay", TargetStrings: []string{"never"}, MaxBytes: 4096}
	p := Post(port)

	_, err := p.Run(context.Background(), fakeScan("127.0.0.1"), env)
	if err != nil {
		t.Fatal(err)
	}
	req := <-got
	expect := "POST /relay HTTP/1.0\r\nContent-type: text/plain\r\nContent-length: 5\r\n\r\nquit\r\n\r\n"
	if string(req) != expect {
		t.Errorf("request = %q, want %q", req, expect)
	}
}

func TestGetWritesRequestLine(t *testing.T) {
	port, got := capture(t, []byte("no match\r\n"))
	env := &scanengine.Environment{TargetURL: "/relay", TargetStrings: []string{"never"}, MaxBytes: 4096}
	p := Get(port)

	_, err := p.Run(context.Background(), fakeScan("127.0.0.1"), env)
	if err != nil {
		t.Fatal(err)
	}
	req := <-got
	expect := "GET /relay HTTP/1.0\r\n\r\n"
	if string(req) != expect {
		t.Errorf("request = %q, want %q", req, expect)
	}
}

func TestNoMatchReturnsEmptyReason(t *testing.T) {
	port, _ := capture(t, []byte("nothing interesting\r\n"))
	env := &scanengine.Environment{TargetIP: "198.51.100.9", TargetPort: 81, TargetStrings: []string{"never-appears"}, MaxBytes: 4096}
	p := Connect(port)

	reason, err := p.Run(context.Background(), fakeScan("127.0.0.1"), env)
	if err != nil {
		t.Fatal(err)
	}
	if reason != "" {
		t.Errorf("expected no match, got %q", reason)
	}
}

func fakeScan(ip string) *scanengine.Scan {
	return scanengine.NewScan(ip)
}
