package secure

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"

	specerr "github.com/solidforge/mesh3mf/errors"
)

// Algorithm URIs supported by the verifier.
const (
	AlgRSASHA256 = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha256"
	AlgSHA256    = "http://www.w3.org/2001/04/xmlenc#sha256"
	AlgSHA1      = "http://www.w3.org/2000/09/xmldsig#sha1"
)

// ContentResolver maps a reference URI to the bytes it digests.
type ContentResolver func(uri string) ([]byte, error)

// VerifySignature checks every reference digest, then the signature
// value over the canonical SignedInfo bytes. Any mismatch is a
// validation error; unsupported algorithms fail the same way.
func VerifySignature(sig *Signature, pub *rsa.PublicKey, resolve ContentResolver, signedInfo []byte) error {
	for i := range sig.SignedInfo.References {
		if err := verifyReference(&sig.SignedInfo.References[i], resolve); err != nil {
			return err
		}
	}

	value, err := base64.StdEncoding.DecodeString(sig.SignatureValue)
	if err != nil {
		return specerr.Validationf("invalid base64 signature value: %v", err)
	}
	switch sig.SignedInfo.SignatureMethod {
	case AlgRSASHA256:
		digest := sha256.Sum256(signedInfo)
		if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], value); err != nil {
			return specerr.Validationf("signature verification failed: %v", err)
		}
	default:
		return specerr.Validationf("unsupported signature method %q", sig.SignedInfo.SignatureMethod)
	}
	return nil
}

func verifyReference(ref *Reference, resolve ContentResolver) error {
	content, err := resolve(ref.URI)
	if err != nil {
		return err
	}
	var digest []byte
	switch ref.DigestMethod {
	case AlgSHA256:
		sum := sha256.Sum256(content)
		digest = sum[:]
	case AlgSHA1:
		sum := sha1.Sum(content)
		digest = sum[:]
	default:
		return specerr.Validationf("unsupported digest method %q", ref.DigestMethod)
	}
	stored, err := base64.StdEncoding.DecodeString(ref.DigestValue)
	if err != nil {
		return specerr.Validationf("invalid base64 digest for %q: %v", ref.URI, err)
	}
	if !bytesEqual(digest, stored) {
		return specerr.Validationf("digest mismatch for %q", ref.URI)
	}
	return nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
