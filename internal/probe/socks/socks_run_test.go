package socks

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/markdingo/trustydns-opm/internal/scanengine"
)

func TestSocks4RunMatchesRelayedReply(t *testing.T) {
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
		conn.Write([]byte{0x00, 0x5a}) // granted
		conn.Write([]byte("relayed ok\r\n"))
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	env := &scanengine.Environment{TargetIP: "1.2.3.4", TargetPort: 8, TargetStrings: []string{"relayed ok"}, MaxBytes: 4096}
	p := Socks4(port)
	reason, err := p.Run(context.Background(), scanengine.NewScan("127.0.0.1"), env)
	if err != nil {
		t.Fatal(err)
	}
	if reason == "" {
		t.Error("expected a positive verdict")
	}

	select {
	case req := <-got:
		want := []byte{0x04, 0x01, 0x00, 0x08, 0x01, 0x02, 0x03, 0x04, 0x00}
		if string(req) != string(want) {
			t.Errorf("request = % x, want % x", req, want)
		}
	case <-time.After(time.Second):
		t.Fatal("server never saw a request")
	}
}
