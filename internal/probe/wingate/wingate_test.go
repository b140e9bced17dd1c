package wingate

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/markdingo/trustydns-opm/internal/scanengine"
)

func TestNewSendsHostPortLine(t *testing.T) {
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
		buf := make([]byte, 256)
		n, _ := conn.Read(buf)
		got <- append([]byte(nil), buf[:n]...)
		conn.Write([]byte("connect to any host you like\r\n"))
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	env := &scanengine.Environment{TargetIP: "198.51.100.9", TargetPort: 81, TargetStrings: []string{"any host"}, MaxBytes: 4096}
	p := New(port)
	reason, err := p.Run(context.Background(), scanengine.NewScan("127.0.0.1"), env)
	if err != nil {
		t.Fatal(err)
	}
	if reason == "" {
		t.Error("expected a match")
	}

	select {
	case req := <-got:
		if string(req) != "198.51.100.9:81\r\n" {
			t.Errorf("request = %q", req)
		}
	case <-time.After(time.Second):
		t.Fatal("server never saw a request")
	}
}
