package secure

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	specerr "github.com/solidforge/mesh3mf/errors"
)

// mapArchive is an in-memory ArchiveReader for tests.
type mapArchive map[string][]byte

func (a mapArchive) ReadEntry(name string) ([]byte, error) {
	if data, ok := a[name]; ok {
		return data, nil
	}
	return nil, specerr.NotFoundf("entry %s not in package", name)
}

func (a mapArchive) EntryExists(name string) bool {
	_, ok := a[name]
	return ok
}

func (a mapArchive) ListEntries() []string {
	names := make([]string, 0, len(a))
	for n := range a {
		names = append(names, n)
	}
	return names
}

func testKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func TestAESGCMRoundTrip(t *testing.T) {
	cek := bytes.Repeat([]byte{0x42}, 32)
	plaintext := []byte("Super Secret 3D Model Data")

	blob, err := EncryptContent(cek, plaintext)
	require.NoError(t, err)
	require.Len(t, blob, 12+len(plaintext)+16)

	got, err := DecryptContent(cek, blob)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestAESGCMAuthFailure(t *testing.T) {
	cek := bytes.Repeat([]byte{0x42}, 32)
	blob, err := EncryptContent(cek, []byte("payload"))
	require.NoError(t, err)
	blob[len(blob)-1] ^= 0xff
	_, err = DecryptContent(cek, blob)
	assert.True(t, specerr.IsKind(err, specerr.KindEncryption))
}

func TestAESGCMRejectsBadInput(t *testing.T) {
	_, err := DecryptContent(make([]byte, 16), make([]byte, 64))
	assert.True(t, specerr.IsKind(err, specerr.KindValidation))
	_, err = DecryptContent(make([]byte, 32), make([]byte, 10))
	assert.True(t, specerr.IsKind(err, specerr.KindValidation))
}

func TestWrapUnwrapKey(t *testing.T) {
	key := testKey(t)
	cek := bytes.Repeat([]byte{0x42}, 32)
	wrapped, err := WrapKey(&key.PublicKey, cek)
	require.NoError(t, err)
	assert.NotEqual(t, cek, wrapped)

	got, err := UnwrapKey(key, wrapped)
	require.NoError(t, err)
	assert.Equal(t, cek, got)

	other := testKey(t)
	_, err = UnwrapKey(other, wrapped)
	assert.True(t, specerr.IsKind(err, specerr.KindEncryption))
}

func TestParsePrivateKeyPEMForms(t *testing.T) {
	key := testKey(t)

	pkcs1 := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	got, err := ParsePrivateKeyPEM(pkcs1)
	require.NoError(t, err)
	assert.Zero(t, got.D.Cmp(key.D))

	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	pkcs8 := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
	got, err = ParsePrivateKeyPEM(pkcs8)
	require.NoError(t, err)
	assert.Zero(t, got.D.Cmp(key.D))

	_, err = ParsePrivateKeyPEM([]byte("garbage"))
	assert.True(t, specerr.IsKind(err, specerr.KindValidation))
}

const keystoreTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<keystore xmlns="http://schemas.microsoft.com/3dmanufacturing/securecontent/2019/04" UUID="b7aa9a31-9136-4654-a3ef-b00dde81b941">
	<consumer consumerid="printer-7" keyid="KEK_1"/>
	<resourcedatagroup keyuuid="0ad04779-9d64-4e4f-aanot"/>
</keystore>`

func keystoreXML(wrapped []byte) []byte {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<keystore xmlns="http://schemas.microsoft.com/3dmanufacturing/securecontent/2019/04" UUID="b7aa9a31-9136-4654-a3ef-b00dde81b941">
	<consumer consumerid="printer-7" keyid="KEK_1"/>
	<resourcedatagroup keyuuid="0ad04779-9d64-4e4f-a211-1b1d6e4b6b1f">
		<accessright consumerid="printer-7">
			<wrappedkey encryptionalgorithm="http://www.w3.org/2001/04/xmlenc#rsa-oaep-mgf1p">` +
		base64.StdEncoding.EncodeToString(wrapped) + `</wrappedkey>
		</accessright>
	</resourcedatagroup>
</keystore>`
	return []byte(doc)
}

func TestParseKeyStore(t *testing.T) {
	wrapped := []byte{1, 2, 3, 4}
	ks, err := ParseKeyStore(keystoreXML(wrapped))
	require.NoError(t, err)
	assert.Equal(t, "b7aa9a31-9136-4654-a3ef-b00dde81b941", ks.UUID)
	require.Len(t, ks.Consumers, 1)
	assert.Equal(t, "printer-7", ks.Consumers[0].ID)
	require.Len(t, ks.ResourceDataGroups, 1)
	group := ks.ResourceDataGroups[0]
	require.Len(t, group.AccessRights, 1)
	assert.Equal(t, wrapped, group.AccessRights[0].WrappedKey)
	assert.Equal(t, "http://www.w3.org/2001/04/xmlenc#rsa-oaep-mgf1p", group.AccessRights[0].Algorithm)
}

func TestParseKeyStoreBadKeyUUID(t *testing.T) {
	_, err := ParseKeyStore([]byte(keystoreTemplate))
	assert.True(t, specerr.IsKind(err, specerr.KindValidation))
}

func TestSecureContextDecryptEntry(t *testing.T) {
	key := testKey(t)
	cek := bytes.Repeat([]byte{0x42}, 32)
	plaintext := []byte("Super Secret 3D Model Data")

	wrapped, err := WrapKey(&key.PublicKey, cek)
	require.NoError(t, err)
	ks, err := ParseKeyStore(keystoreXML(wrapped))
	require.NoError(t, err)

	blob, err := EncryptContent(cek, plaintext)
	require.NoError(t, err)
	archive := mapArchive{
		"3D/secret.model": blob,
		"3D/plain.model":  []byte("<model/>"),
	}

	ctx := NewContext(ks, key, "printer-7", map[string]string{
		"3D/secret.model": "0ad04779-9d64-4e4f-a211-1b1d6e4b6b1f",
	})

	got, err := ctx.DecryptEntry(archive, "3D/secret.model")
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)

	// Unencrypted paths report nil without error.
	got, err = ctx.DecryptEntry(archive, "3D/plain.model")
	require.NoError(t, err)
	assert.Nil(t, got)

	// The unwrapped CEK is memoized.
	require.Contains(t, ctx.cekCache, "0ad04779-9d64-4e4f-a211-1b1d6e4b6b1f")
	got, err = ctx.DecryptEntry(archive, "3D/secret.model")
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestSecureContextWrongConsumer(t *testing.T) {
	key := testKey(t)
	wrapped, err := WrapKey(&key.PublicKey, bytes.Repeat([]byte{0x42}, 32))
	require.NoError(t, err)
	ks, err := ParseKeyStore(keystoreXML(wrapped))
	require.NoError(t, err)

	ctx := NewContext(ks, key, "somebody-else", map[string]string{
		"3D/secret.model": "0ad04779-9d64-4e4f-a211-1b1d6e4b6b1f",
	})
	_, err = ctx.DecryptEntry(mapArchive{"3D/secret.model": make([]byte, 64)}, "3D/secret.model")
	assert.True(t, specerr.IsKind(err, specerr.KindValidation))
}

func TestCanonicalizeSortsAndExpands(t *testing.T) {
	in := []byte(`<SignedInfo b="2" a="1"><Empty/><Data>text</Data></SignedInfo>`)
	out, err := Canonicalize(in)
	require.NoError(t, err)
	assert.Equal(t,
		`<SignedInfo a="1" b="2"><Empty></Empty><Data>text</Data></SignedInfo>`,
		string(out))
}

func TestCanonicalizeSubtree(t *testing.T) {
	doc := []byte(`<Signature><SignedInfo z="1" a="2"><Reference URI="/3D/3dmodel.model"/></SignedInfo><SignatureValue>abc</SignatureValue></Signature>`)
	out, err := CanonicalizeSubtree(doc, "SignedInfo")
	require.NoError(t, err)
	assert.Equal(t,
		`<SignedInfo a="2" z="1"><Reference URI="/3D/3dmodel.model"></Reference></SignedInfo>`,
		string(out))

	_, err = CanonicalizeSubtree(doc, "NotThere")
	assert.True(t, specerr.IsKind(err, specerr.KindValidation))
}

func signatureXML(digest, sigValue string) []byte {
	return []byte(`<Signature xmlns="http://www.w3.org/2000/09/xmldsig#">
	<SignedInfo>
		<CanonicalizationMethod Algorithm="http://www.w3.org/TR/2001/REC-xml-c14n-20010315"/>
		<SignatureMethod Algorithm="http://www.w3.org/2001/04/xmldsig-more#rsa-sha256"/>
		<Reference URI="/3D/3dmodel.model">
			<DigestMethod Algorithm="http://www.w3.org/2001/04/xmlenc#sha256"/>
			<DigestValue>` + digest + `</DigestValue>
		</Reference>
	</SignedInfo>
	<SignatureValue>` + sigValue + `</SignatureValue>
	<KeyInfo><KeyName>KEK_1</KeyName></KeyInfo>
</Signature>`)
}

func TestVerifySignature(t *testing.T) {
	key := testKey(t)
	content := []byte("<model/>")
	contentDigest := sha256.Sum256(content)
	digestB64 := base64.StdEncoding.EncodeToString(contentDigest[:])

	// First build the document with an empty signature value to
	// extract canonical SignedInfo bytes, then sign those.
	unsigned := signatureXML(digestB64, "")
	signedInfo, err := CanonicalizeSubtree(unsigned, "SignedInfo")
	require.NoError(t, err)
	infoDigest := sha256.Sum256(signedInfo)
	rawSig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, infoDigest[:])
	require.NoError(t, err)

	doc := signatureXML(digestB64, base64.StdEncoding.EncodeToString(rawSig))
	sig, err := ParseSignature(doc)
	require.NoError(t, err)
	assert.Equal(t, "KEK_1", sig.KeyInfo.KeyName)
	require.Len(t, sig.SignedInfo.References, 1)

	resolve := func(uri string) ([]byte, error) {
		assert.Equal(t, "/3D/3dmodel.model", uri)
		return content, nil
	}
	require.NoError(t, VerifySignature(sig, &key.PublicKey, resolve, signedInfo))

	// Tampered content fails the reference digest.
	badResolve := func(string) ([]byte, error) { return []byte("<model unit=\"inch\"/>"), nil }
	err = VerifySignature(sig, &key.PublicKey, badResolve, signedInfo)
	assert.True(t, specerr.IsKind(err, specerr.KindValidation))

	// A different key fails the signature value.
	other := testKey(t)
	err = VerifySignature(sig, &other.PublicKey, resolve, signedInfo)
	assert.True(t, specerr.IsKind(err, specerr.KindValidation))
}
