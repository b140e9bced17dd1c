package socks

import (
	"bytes"
	"testing"
)

func TestBuildSOCKS4ExactBytes(t *testing.T) {
	got, err := BuildSOCKS4("1.2.3.4", 8)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x04, 0x01, 0x00, 0x08, 0x01, 0x02, 0x03, 0x04, 0x00}
	if !bytes.Equal(got, want) {
		t.Errorf("BuildSOCKS4 = % x, want % x", got, want)
	}
}

func TestBuildSOCKS5ExactBytes(t *testing.T) {
	got, err := BuildSOCKS5("1.2.3.4", 8)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x05, 0x01, 0x00, 0x05, 0x01, 0x00, 0x01, 0x01, 0x02, 0x03, 0x04, 0x00, 0x08}
	if !bytes.Equal(got, want) {
		t.Errorf("BuildSOCKS5 = % x, want % x", got, want)
	}
}

func TestBuildSOCKS4RejectsIPv6(t *testing.T) {
	if _, err := BuildSOCKS4("2001:db8::1", 8); err == nil {
		t.Error("expected an error for a non-IPv4 target")
	}
}

func TestBuildSOCKS4RejectsGarbage(t *testing.T) {
	if _, err := BuildSOCKS4("not-an-ip", 8); err == nil {
		t.Error("expected an error for an unparseable address")
	}
}
