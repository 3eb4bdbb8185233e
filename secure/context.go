package secure

import (
	"crypto/rsa"

	"github.com/solidforge/mesh3mf/container"
	specerr "github.com/solidforge/mesh3mf/errors"
)

// SecureContext decrypts package parts covered by a keystore on
// behalf of one consumer. Unwrapped content keys are memoized.
type SecureContext struct {
	keystore   *KeyStore
	privateKey *rsa.PrivateKey
	consumerID string
	// pathKeys maps an encrypted part path to the UUID of its CEK.
	pathKeys map[string]string
	cekCache map[string][]byte
}

// NewContext builds a decryption context. pathKeys maps part paths to
// content-encryption-key UUIDs, usually derived from the part
// relationships of the package.
func NewContext(ks *KeyStore, priv *rsa.PrivateKey, consumerID string, pathKeys map[string]string) *SecureContext {
	return &SecureContext{
		keystore:   ks,
		privateKey: priv,
		consumerID: consumerID,
		pathKeys:   pathKeys,
		cekCache:   map[string][]byte{},
	}
}

// DecryptEntry reads and decrypts the part at path. A path with no
// entry in pathKeys returns (nil, nil): it is simply not encrypted. A
// path whose key UUID is missing from the keystore is an error.
func (c *SecureContext) DecryptEntry(archive container.ArchiveReader, path string) ([]byte, error) {
	keyUUID, ok := c.pathKeys[path]
	if !ok {
		return nil, nil
	}
	cek, err := c.contentKey(keyUUID)
	if err != nil {
		return nil, err
	}
	blob, err := archive.ReadEntry(path)
	if err != nil {
		return nil, err
	}
	return DecryptContent(cek, blob)
}

func (c *SecureContext) contentKey(keyUUID string) ([]byte, error) {
	if cek, ok := c.cekCache[keyUUID]; ok {
		return cek, nil
	}
	group, ok := c.keystore.FindGroup(keyUUID)
	if !ok {
		return nil, specerr.Validationf("key %s not in keystore", keyUUID)
	}
	var right *AccessRight
	for i := range group.AccessRights {
		if group.AccessRights[i].ConsumerID == c.consumerID {
			right = &group.AccessRights[i]
			break
		}
	}
	if right == nil {
		return nil, specerr.Validationf("no access right for consumer %s on key %s", c.consumerID, keyUUID)
	}
	cek, err := UnwrapKey(c.privateKey, right.WrappedKey)
	if err != nil {
		return nil, err
	}
	c.cekCache[keyUUID] = cek
	return cek, nil
}
