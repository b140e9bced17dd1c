package banner

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/markdingo/trustydns-opm/internal/scanengine"
)

func serve(t *testing.T, response string, waitForClose bool) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go func() {
		defer ln.Close()
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write([]byte(response))
		if waitForClose {
			buf := make([]byte, 16)
			conn.Read(buf)
		}
	}()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestNewMatchesLineSubset(t *testing.T) {
	port := serve(t, "SSH-2.0-OpenSSH_8.9\r\nWelcome\r\n", false)
	groups := Groups{"openssh": {"SSH-2.0-OpenSSH_8.9"}}
	p := New(port, groups, "", false)

	reason, err := p.Run(context.Background(), scanengine.NewScan("127.0.0.1"), &scanengine.Environment{})
	if err != nil {
		t.Fatal(err)
	}
	if reason != "TCP banner (openssh)" {
		t.Errorf("reason = %q", reason)
	}
}

func TestNewRequiresFullSubset(t *testing.T) {
	port := serve(t, "one line only\r\n", false)
	groups := Groups{"two-liner": {"one line only", "a second line"}}
	p := New(port, groups, "", false)

	reason, err := p.Run(context.Background(), scanengine.NewScan("127.0.0.1"), &scanengine.Environment{})
	if err != nil {
		t.Fatal(err)
	}
	if reason != "" {
		t.Errorf("expected no match on a partial subset, got %q", reason)
	}
}

func TestNewMatchesLeftoverWithoutEOL(t *testing.T) {
	port := serve(t, "no newline sentinel-value", false)
	groups := Groups{"sentinel": {"no newline sentinel-value"}}
	p := New(port, groups, "", false)

	reason, err := p.Run(context.Background(), scanengine.NewScan("127.0.0.1"), &scanengine.Environment{})
	if err != nil {
		t.Fatal(err)
	}
	if reason != "TCP banner (sentinel)" {
		t.Errorf("reason = %q", reason)
	}
}

func TestNewBlankLineEndsReading(t *testing.T) {
	port := serve(t, "first\r\n\r\nnever-seen\r\n", true)
	groups := Groups{"never": {"never-seen"}}
	p := New(port, groups, "", false)

	reason, err := p.Run(context.Background(), scanengine.NewScan("127.0.0.1"), &scanengine.Environment{})
	if err != nil {
		t.Fatal(err)
	}
	if reason != "" {
		t.Errorf("expected reading to stop at the blank line, got %q", reason)
	}
}

func TestNewSendsPreamble(t *testing.T) {
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
		buf := make([]byte, 64)
		n, _ := conn.Read(buf)
		got <- append([]byte(nil), buf[:n]...)
		conn.Write([]byte("ack\r\n"))
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	p := New(port, Groups{"ack": {"ack"}}, "HELLO\r\n", false)
	_, err = p.Run(context.Background(), scanengine.NewScan("127.0.0.1"), &scanengine.Environment{})
	if err != nil {
		t.Fatal(err)
	}
	select {
	case req := <-got:
		if string(req) != "HELLO\r\n" {
			t.Errorf("preamble = %q", req)
		}
	case <-time.After(time.Second):
		t.Fatal("server never saw the preamble")
	}
}
