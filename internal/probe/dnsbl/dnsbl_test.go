package dnsbl

import "testing"

func TestBuildQueryIPv4(t *testing.T) {
	got, err := BuildQuery("1.2.3.4", "dnsbl.example.org")
	if err != nil {
		t.Fatal(err)
	}
	want := "4.3.2.1.dnsbl.example.org"
	if got != want {
		t.Errorf("BuildQuery = %q, want %q", got, want)
	}
}

func TestBuildQueryIPv6(t *testing.T) {
	got, err := BuildQuery("2001:db8::1", "dnsbl.example.org")
	if err != nil {
		t.Fatal(err)
	}
	// 32 reversed nibbles of the exploded address, then the zone.
	want := "1.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.8.b.d.0.1.0.0.2.dnsbl.example.org"
	if got != want {
		t.Errorf("BuildQuery = %q, want %q", got, want)
	}
}

func TestBuildQueryInvalidIP(t *testing.T) {
	if _, err := BuildQuery("garbage", "dnsbl.example.org"); err == nil {
		t.Error("expected an error for an invalid ip")
	}
}
