package ircchallenge

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
)

func writeKey(t *testing.T, dir string, key *rsa.PrivateKey, password string) string {
	t.Helper()
	der := x509.MarshalPKCS1PrivateKey(key)
	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: der}
	if password != "" {
		var err error
		block, err = x509.EncryptPEMBlock(rand.Reader, block.Type, block.Bytes, []byte(password), x509.PEMCipherAES256) //nolint:staticcheck
		if err != nil {
			t.Fatalf("EncryptPEMBlock: %v", err)
		}
	}
	path := filepath.Join(dir, "oper.pem")
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func expectedResponse(plaintext []byte) string {
	sum := sha1.Sum(plaintext)
	return base64.StdEncoding.EncodeToString(sum[:])
}

func TestFinalizeDecryptsAndHashesSingleChunk(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	path := writeKey(t, t.TempDir(), key, "")

	c, err := New(path, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	nonce := []byte("a server-chosen nonce")
	ciphertext, err := rsa.EncryptPKCS1v15(rand.Reader, &key.PublicKey, nonce)
	if err != nil {
		t.Fatalf("EncryptPKCS1v15: %v", err)
	}
	c.Push(base64.StdEncoding.EncodeToString(ciphertext))

	got, err := c.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if want := expectedResponse(nonce); got != want {
		t.Errorf("Finalize() = %q, want %q", got, want)
	}
}

func TestPushAcrossMultipleChunksAndStripsPlusPrefix(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	path := writeKey(t, t.TempDir(), key, "")

	c, err := New(path, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	nonce := []byte("a longer nonce that we will split across two 740 lines")
	ciphertext, err := rsa.EncryptPKCS1v15(rand.Reader, &key.PublicKey, nonce)
	if err != nil {
		t.Fatalf("EncryptPKCS1v15: %v", err)
	}
	encoded := base64.StdEncoding.EncodeToString(ciphertext)
	mid := len(encoded) / 2
	c.Push("+" + encoded[:mid])
	c.Push(encoded[mid:])

	got, err := c.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if want := expectedResponse(nonce); got != want {
		t.Errorf("Finalize() = %q, want %q", got, want)
	}
}

func TestNewLoadsPasswordEncryptedKey(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	path := writeKey(t, t.TempDir(), key, "hunter2")

	c, err := New(path, "hunter2")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	nonce := []byte("nonce")
	ciphertext, err := rsa.EncryptPKCS1v15(rand.Reader, &key.PublicKey, nonce)
	if err != nil {
		t.Fatalf("EncryptPKCS1v15: %v", err)
	}
	c.Push(base64.StdEncoding.EncodeToString(ciphertext))

	if _, err := c.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
}

func TestNewWrongPasswordFails(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	path := writeKey(t, t.TempDir(), key, "hunter2")

	if _, err := New(path, "wrong"); err == nil {
		t.Error("expected an error for a wrong password")
	}
}

func TestNewMissingFile(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "missing.pem"), ""); err == nil {
		t.Error("expected an error for a missing key file")
	}
}
