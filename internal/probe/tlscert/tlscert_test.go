package tlscert

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/markdingo/trustydns-opm/internal/scanengine"
)

func selfSignedListener(t *testing.T, commonName string) (net.Listener, *x509.Certificate) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: commonName},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		DNSNames:     []string{"proxy.example.net"},
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatal(err)
	}

	tlsCert := tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}
	ln, err := tls.Listen("tcp", "127.0.0.1:0", &tls.Config{Certificates: []tls.Certificate{tlsCert}})
	if err != nil {
		t.Fatal(err)
	}
	return ln, cert
}

func TestNewMatchesCommonName(t *testing.T) {
	ln, cert := selfSignedListener(t, "known-bad-proxy.example.net")
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		if tlsConn, ok := conn.(*tls.Conn); ok {
			tlsConn.Handshake()
		}
		time.Sleep(50 * time.Millisecond)
	}()

	entry, err := Compile(`scn:known-bad-proxy\.example\.net`, "known bad cert")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	p := New(port, []Entry{entry})

	reason, err := p.Run(context.Background(), scanengine.NewScan("127.0.0.1"), &scanengine.Environment{})
	if err != nil {
		t.Fatal(err)
	}
	want := "known bad cert (scn:known-bad-proxy.example.net)"
	if reason != want {
		t.Errorf("reason = %q, want %q", reason, want)
	}
	_ = cert
}

func TestNewNoMatch(t *testing.T) {
	ln, _ := selfSignedListener(t, "innocuous.example.net")
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		if tlsConn, ok := conn.(*tls.Conn); ok {
			tlsConn.Handshake()
		}
		time.Sleep(50 * time.Millisecond)
	}()

	entry, err := Compile(`scn:known-bad-proxy\.example\.net`, "known bad cert")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	p := New(port, []Entry{entry})

	reason, err := p.Run(context.Background(), scanengine.NewScan("127.0.0.1"), &scanengine.Environment{})
	if err != nil {
		t.Fatal(err)
	}
	if reason != "" {
		t.Errorf("expected no match, got %q", reason)
	}
}

func TestNewConnectionRefusedIsNil(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	p := New(port, nil)
	reason, err := p.Run(context.Background(), scanengine.NewScan("127.0.0.1"), &scanengine.Environment{})
	if err != nil {
		t.Fatal("connection-refused must not be an error:", err)
	}
	if reason != "" {
		t.Error("a refused connection can't match")
	}
}
