package secure

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/pem"
	"os"

	specerr "github.com/solidforge/mesh3mf/errors"
)

// ParsePrivateKeyPEM decodes an RSA private key in PKCS#1 or PKCS#8
// PEM form.
func ParsePrivateKeyPEM(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, specerr.Validationf("no PEM block in private key data")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, specerr.Validationf("invalid private key: %v", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, specerr.Validationf("private key is not RSA")
	}
	return key, nil
}

// ParsePublicKeyPEM decodes an RSA public key in PKCS#1 or PKIX PEM
// form.
func ParsePublicKeyPEM(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, specerr.Validationf("no PEM block in public key data")
	}
	if key, err := x509.ParsePKCS1PublicKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, specerr.Validationf("invalid public key: %v", err)
	}
	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, specerr.Validationf("public key is not RSA")
	}
	return key, nil
}

// LoadPrivateKey reads an RSA private key from a PEM file.
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, specerr.Iof(err, "read key file %s", path)
	}
	return ParsePrivateKeyPEM(data)
}

// WrapKey encrypts a content encryption key for a recipient with
// RSA-OAEP over SHA-1, the Secure Content profile algorithm.
func WrapKey(pub *rsa.PublicKey, cek []byte) ([]byte, error) {
	wrapped, err := rsa.EncryptOAEP(sha1.New(), rand.Reader, pub, cek, nil)
	if err != nil {
		return nil, specerr.Encryption(err, "key wrapping failed")
	}
	return wrapped, nil
}

// UnwrapKey decrypts a wrapped content encryption key with the
// recipient's private key.
func UnwrapKey(priv *rsa.PrivateKey, wrapped []byte) ([]byte, error) {
	cek, err := rsa.DecryptOAEP(sha1.New(), rand.Reader, priv, wrapped, nil)
	if err != nil {
		return nil, specerr.Encryption(err, "key unwrapping failed")
	}
	return cek, nil
}
