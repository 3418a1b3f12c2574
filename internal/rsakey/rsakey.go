// Package rsakey is the end-entity keypair collaborator named in spec §1
// ("the RSA keypair implementation itself is a black-box collaborator, not
// part of this design"). It is the one place this module reaches for
// crypto/rsa directly rather than a pack library: end-entity keys never
// touch the BLS12-381 machinery and generating/encoding an RSA keypair is
// not a cryptographic design decision this system makes, so there is no
// ecosystem BLS/pairing library to prefer over the standard library here.
package rsakey

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

// KeySize is the RSA modulus size this collaborator generates.
const KeySize = 2048

// KeyPair holds a freshly generated RSA keypair for an end-entity subject.
type KeyPair struct {
	Private *rsa.PrivateKey
}

// Generate returns a fresh RSA keypair.
func Generate() (*KeyPair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, KeySize)
	if err != nil {
		return nil, fmt.Errorf("generate rsa key: %w", err)
	}
	return &KeyPair{Private: priv}, nil
}

// PublicKeyPEM renders the public half as a PEM-encoded PKIX block, the
// encoding an end-entity's subject_pub_blob field carries (spec §4.5 step
// 1: "call the RSA-keypair collaborator and use its returned public-key
// encoding").
func (k *KeyPair) PublicKeyPEM() (string, error) {
	der, err := x509.MarshalPKIXPublicKey(&k.Private.PublicKey)
	if err != nil {
		return "", fmt.Errorf("marshal rsa public key: %w", err)
	}
	block := &pem.Block{Type: "RSA PUBLIC KEY", Bytes: der}
	return string(pem.EncodeToMemory(block)), nil
}
