// Package crypto provides transaction signing and key handling for the
// ledger: RSA-PSS signatures over canonical payloads, PEM key codecs, and a
// passphrase-protected keystore. It does not manage key distribution; the
// node obtains keys from its key-management collaborator.
package crypto

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

// KeyBits is the RSA modulus size for generated key pairs.
const KeyBits = 2048

// ErrMalformedKey is returned when a PEM key encoding cannot be decoded.
var ErrMalformedKey = errors.New("crypto: malformed key encoding")

var pssOpts = &rsa.PSSOptions{
	SaltLength: rsa.PSSSaltLengthAuto,
	Hash:       crypto.SHA256,
}

// GenerateKeyPair creates a fresh RSA signing key.
func GenerateKeyPair() (*rsa.PrivateKey, error) {
	priv, err := rsa.GenerateKey(rand.Reader, KeyBits)
	if err != nil {
		return nil, fmt.Errorf("generate rsa key: %w", err)
	}
	return priv, nil
}

// Sign produces an RSA-PSS-SHA256 signature over payload.
func Sign(priv *rsa.PrivateKey, payload []byte) ([]byte, error) {
	if priv == nil {
		return nil, errors.New("crypto: nil private key")
	}
	digest := sha256.Sum256(payload)
	sig, err := rsa.SignPSS(rand.Reader, priv, crypto.SHA256, digest[:], pssOpts)
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	return sig, nil
}

// Verify reports whether sig is a valid signature by pub over payload. It
// returns false for any malformed signature, wrong key, or mutated payload;
// it never returns an error.
func Verify(pub *rsa.PublicKey, payload, sig []byte) bool {
	if pub == nil {
		return false
	}
	digest := sha256.Sum256(payload)
	return rsa.VerifyPSS(pub, crypto.SHA256, digest[:], sig, pssOpts) == nil
}

// EncodePrivateKey renders priv as a PKCS#8 PEM block.
func EncodePrivateKey(priv *rsa.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("encode private key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// DecodePrivateKey parses a PKCS#8 PEM private key.
func DecodePrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil || block.Type != "PRIVATE KEY" {
		return nil, ErrMalformedKey
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}
	priv, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA key", ErrMalformedKey)
	}
	return priv, nil
}

// EncodePublicKey renders pub as a PKIX PEM block. These bytes travel in
// the transaction's sender_public_key field.
func EncodePublicKey(pub *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("encode public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

// DecodePublicKey parses a PKIX PEM public key.
func DecodePublicKey(pemBytes []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil || block.Type != "PUBLIC KEY" {
		return nil, ErrMalformedKey
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}
	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA key", ErrMalformedKey)
	}
	return pub, nil
}
