package secure

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"

	specerr "github.com/solidforge/mesh3mf/errors"
)

// Encrypted part layout: 12-byte nonce, then ciphertext carrying the
// 16-byte auth tag.
const (
	nonceSize = 12
	tagSize   = 16
)

// EncryptContent seals plaintext under a 32-byte CEK with
// AES-256-GCM and returns nonce-prefixed output in the part layout.
func EncryptContent(cek, plaintext []byte) ([]byte, error) {
	gcm, err := newGCM(cek)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, specerr.Encryption(err, "nonce generation failed")
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// DecryptContent opens a nonce-prefixed AES-256-GCM blob.
func DecryptContent(cek, blob []byte) ([]byte, error) {
	if len(blob) < nonceSize+tagSize {
		return nil, specerr.Validationf("encrypted part too short: %d bytes", len(blob))
	}
	gcm, err := newGCM(cek)
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, blob[:nonceSize], blob[nonceSize:], nil)
	if err != nil {
		return nil, specerr.Encryption(err, "content decryption failed")
	}
	return plaintext, nil
}

func newGCM(cek []byte) (cipher.AEAD, error) {
	if len(cek) != 32 {
		return nil, specerr.Validationf("AES-256-GCM key must be 32 bytes, got %d", len(cek))
	}
	block, err := aes.NewCipher(cek)
	if err != nil {
		return nil, specerr.Encryption(err, "cipher init failed")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, specerr.Encryption(err, "cipher init failed")
	}
	return gcm, nil
}
