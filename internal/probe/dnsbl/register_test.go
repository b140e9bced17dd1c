package dnsbl

import (
	"testing"

	"github.com/markdingo/trustydns-opm/internal/probe"
)

func TestRegisteredFactory(t *testing.T) {
	f, ok := probe.Factories["dnsbl"]
	if !ok {
		t.Fatal("expected dnsbl to be registered")
	}
	args := []interface{}{
		"dnsbl.example.org",
		map[interface{}]interface{}{2: "open proxy", 4: "spam source"},
	}
	p, err := f(args)
	if err != nil {
		t.Fatal(err)
	}
	if p.ID == "" {
		t.Error("expected a non-empty probe ID")
	}
}

func TestFactoryRejectsBadReasons(t *testing.T) {
	f := probe.Factories["dnsbl"]
	args := []interface{}{"dnsbl.example.org", "not-a-map"}
	if _, err := f(args); err == nil {
		t.Error("expected an error for a non-mapping reasons argument")
	}
}
