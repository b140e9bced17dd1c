// Package ircchallenge implements the client side of the ircd-hybrid/charybdis "CHALLENGE"
// operator-authentication extension: the server RSA-encrypts a nonce with the operator's public
// key (configured server-side from the operator's public key block) and streams it back across one
// or more RPL_RSACHALLENGE2 (740) lines; the client decrypts it with the matching private key,
// SHA-1 hashes the recovered nonce and replies with "CHALLENGE +<base64 sha1>" once it sees
// RPL_ENDOFRSACHALLENGE2 (741).
//
// There is no Go library for this extension — it is a small, self-contained RSA/PKCS#1v1.5
// operation, not a networking concern, so it lives here rather than pulled in whole-cloth from the
// Python original.
package ircchallenge

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"
	"strings"
)

// Challenge accumulates the base64 chunks of an in-progress RSA CHALLENGE exchange and produces
// the SHA-1 response once the server signals end-of-challenge.
type Challenge struct {
	key *rsa.PrivateKey
	buf strings.Builder
}

// New loads an RSA private key from keyfile (PEM, PKCS#1 or PKCS#8) and returns a Challenge ready
// to accumulate 740 payloads for it. password decrypts the PEM block if it is encrypted; pass an
// empty string for an unencrypted key.
func New(keyfile, password string) (*Challenge, error) {
	me := "ircchallenge:New"

	raw, err := os.ReadFile(keyfile)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", me, err)
	}

	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("%s: no PEM block found in %s", me, keyfile)
	}

	der := block.Bytes
	if x509.IsEncryptedPEMBlock(block) { //nolint:staticcheck // PEM encryption is legacy but still what ircd-hybrid keys use
		der, err = x509.DecryptPEMBlock(block, []byte(password)) //nolint:staticcheck
		if err != nil {
			return nil, fmt.Errorf("%s: decrypt %s:%w", me, keyfile, err)
		}
	}

	key, err := parsePrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("%s: parse %s:%w", me, keyfile, err)
	}

	return &Challenge{key: key}, nil
}

func parsePrivateKey(der []byte) (*rsa.PrivateKey, error) {
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	k, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, err
	}
	key, ok := k.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("not an RSA key")
	}
	return key, nil
}

// Push appends one RPL_RSACHALLENGE2 payload line to the accumulated ciphertext. A leading '+'
// continuation marker, if present, is stripped.
func (c *Challenge) Push(payload string) {
	c.buf.WriteString(strings.TrimPrefix(payload, "+"))
}

// Finalize decrypts the accumulated ciphertext with the challenge's private key, SHA-1 hashes the
// recovered plaintext and returns the base64-encoded digest to send back as "CHALLENGE +<digest>".
// The Challenge must not be reused after Finalize.
func (c *Challenge) Finalize() (string, error) {
	me := "ircchallenge:Finalize"

	ciphertext, err := base64.StdEncoding.DecodeString(c.buf.String())
	if err != nil {
		return "", fmt.Errorf("%s: decode accumulated payload:%w", me, err)
	}

	plaintext, err := rsa.DecryptPKCS1v15(rand.Reader, c.key, ciphertext)
	if err != nil {
		return "", fmt.Errorf("%s: decrypt:%w", me, err)
	}

	sum := sha1.Sum(plaintext)
	return base64.StdEncoding.EncodeToString(sum[:]), nil
}
