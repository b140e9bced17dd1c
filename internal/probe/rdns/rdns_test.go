package rdns

import (
	"context"
	"net"
	"testing"

	"github.com/markdingo/trustydns-opm/internal/scanengine"
)

type fakeResolver struct {
	names []string
	err   error
}

func (f *fakeResolver) LookupHost(ctx context.Context, host string) ([]string, error) { return nil, nil }
func (f *fakeResolver) LookupAddr(ctx context.Context, addr string) ([]string, error) {
	return f.names, f.err
}

func TestNewMatchesFullName(t *testing.T) {
	dialup, err := Compile(`dialup-\d+\.example\.net`, "residential dialup")
	if err != nil {
		t.Fatal(err)
	}
	p := New("rdns:residential", []Entry{dialup})

	env := &scanengine.Environment{Resolver: &fakeResolver{names: []string{"dialup-42.example.net."}}}
	reason, err := p.Run(context.Background(), scanengine.NewScan("198.51.100.9"), env)
	if err != nil {
		t.Fatal(err)
	}
	if reason != "residential dialup" {
		t.Errorf("reason = %q, want full match", reason)
	}
}

func TestNewRejectsPartialMatch(t *testing.T) {
	dialup, err := Compile(`dialup-\d+`, "residential dialup")
	if err != nil {
		t.Fatal(err)
	}
	p := New("rdns:residential", []Entry{dialup})

	env := &scanengine.Environment{Resolver: &fakeResolver{names: []string{"not-dialup-42.example.net."}}}
	reason, err := p.Run(context.Background(), scanengine.NewScan("198.51.100.9"), env)
	if err != nil {
		t.Fatal(err)
	}
	if reason != "" {
		t.Errorf("expected no match without full-string anchoring, got %q", reason)
	}
}

func TestNewNoNamesFound(t *testing.T) {
	p := New("rdns:x", nil)
	env := &scanengine.Environment{Resolver: &fakeResolver{err: &net.DNSError{IsNotFound: true}}}
	reason, err := p.Run(context.Background(), scanengine.NewScan("198.51.100.9"), env)
	if err != nil {
		t.Fatal(err)
	}
	if reason != "" {
		t.Error("expected no match on an unresolvable PTR")
	}
}
