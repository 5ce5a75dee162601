// Package idcrypt obfuscates identifiers that are handed to clients and must
// come back unchanged, such as registry document ids embedded in URLs.
//
// Tokens are XChaCha20-Poly1305 ciphertexts with a random nonce, encoded as
// unpadded URL-safe base64, so they are opaque, tamper-evident and safe in a
// path segment.
package idcrypt

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// KeySize is the required key length in bytes.
const KeySize = chacha20poly1305.KeySize

var (
	ErrInvalidKey   = errors.New("idcrypt: key must be 32 bytes")
	ErrInvalidToken = errors.New("idcrypt: invalid token")
)

var encoding = base64.RawURLEncoding

// Cipher encrypts and decrypts identifiers. Safe for concurrent use.
type Cipher struct {
	aead cipher.AEAD
}

// New builds a Cipher from a raw 32-byte key.
func New(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("idcrypt: init aead: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// NewFromBase64 builds a Cipher from a standard or URL-safe base64 key.
func NewFromBase64(encoded string) (*Cipher, error) {
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.URLEncoding, base64.RawStdEncoding, base64.RawURLEncoding} {
		if key, err := enc.DecodeString(encoded); err == nil {
			return New(key)
		}
	}
	return nil, ErrInvalidKey
}

// Encrypt returns an opaque token for plain. Encrypting the same value twice
// yields different tokens.
func (c *Cipher) Encrypt(plain string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plain)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("idcrypt: read nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plain), nil)
	return encoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Any malformed or tampered token yields ErrInvalidToken.
func (c *Cipher) Decrypt(token string) (string, error) {
	raw, err := encoding.DecodeString(token)
	if err != nil {
		return "", ErrInvalidToken
	}
	if len(raw) < c.aead.NonceSize()+c.aead.Overhead() {
		return "", ErrInvalidToken
	}
	nonce, ciphertext := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrInvalidToken
	}
	return string(plain), nil
}
