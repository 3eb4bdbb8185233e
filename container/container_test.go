package container

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	specerr "github.com/solidforge/mesh3mf/errors"
)

const (
	contentTypesXML = `<?xml version="1.0" encoding="UTF-8"?>` +
		`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
		`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
		`<Default Extension="model" ContentType="application/vnd.ms-package.3dmanufacturing-3dmodel+xml"/>` +
		`<Default Extension="png" ContentType="image/png"/>` +
		`</Types>`

	relsOpen  = `<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`
	relsClose = `</Relationships>`

	modelXML = `<?xml version="1.0" encoding="UTF-8"?><model xmlns="http://schemas.microsoft.com/3dmanufacturing/core/2015/02"><resources/><build/></model>`
)

// buildArchive assembles a raw ZIP from entry name to content.
func buildArchive(t *testing.T, entries map[string]string) *Reader {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	r, err := NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	return r
}

func modelRel(id, target string) string {
	return `<Relationship Id="` + id + `" Type="` + relType3DModel + `" Target="` + target + `"/>`
}

func TestReaderEntryAccess(t *testing.T) {
	r := buildArchive(t, map[string]string{
		"[Content_Types].xml": contentTypesXML,
		"_rels/.rels":         relsOpen + modelRel("rel0", "/3D/3dmodel.model") + relsClose,
		"3D/3dmodel.model":    modelXML,
	})
	data, err := r.ReadEntry("3D/3dmodel.model")
	require.NoError(t, err)
	assert.Equal(t, modelXML, string(data))

	// Leading slash accepted on lookup.
	data, err = r.ReadEntry("/3D/3dmodel.model")
	require.NoError(t, err)
	assert.Equal(t, modelXML, string(data))

	assert.True(t, r.EntryExists("_rels/.rels"))
	assert.False(t, r.EntryExists("3D/missing.model"))

	_, err = r.ReadEntry("nope")
	assert.True(t, specerr.IsKind(err, specerr.KindResourceNotFound))
	assert.Len(t, r.ListEntries(), 3)
}

func TestReaderNotAZip(t *testing.T) {
	data := []byte("not a zip at all")
	_, err := NewReader(bytes.NewReader(data), int64(len(data)))
	require.Error(t, err)
}

func TestFindModelPath(t *testing.T) {
	r := buildArchive(t, map[string]string{
		"[Content_Types].xml": contentTypesXML,
		"_rels/.rels":         relsOpen + modelRel("rel0", "/3D/3dmodel.model") + relsClose,
		"3D/3dmodel.model":    modelXML,
	})
	path, err := FindModelPath(r)
	require.NoError(t, err)
	assert.Equal(t, "3D/3dmodel.model", path)
}

func TestFindModelPathMissingRels(t *testing.T) {
	r := buildArchive(t, map[string]string{
		"[Content_Types].xml": contentTypesXML,
		"3D/3dmodel.model":    modelXML,
	})
	_, err := FindModelPath(r)
	assert.True(t, specerr.IsKind(err, specerr.KindInvalidStructure))
}

func TestFindModelPathEmptyRels(t *testing.T) {
	r := buildArchive(t, map[string]string{
		"[Content_Types].xml": contentTypesXML,
		"_rels/.rels":         relsOpen + relsClose,
		"3D/3dmodel.model":    modelXML,
	})
	_, err := FindModelPath(r)
	assert.True(t, specerr.IsKind(err, specerr.KindInvalidStructure))
}

func TestFindModelPathDuplicateStartPart(t *testing.T) {
	r := buildArchive(t, map[string]string{
		"[Content_Types].xml": contentTypesXML,
		"_rels/.rels": relsOpen +
			modelRel("rel0", "/3D/3dmodel.model") +
			modelRel("rel1", "/3D/other.model") +
			relsClose,
		"3D/3dmodel.model": modelXML,
		"3D/other.model":   modelXML,
	})
	_, err := FindModelPath(r)
	assert.True(t, specerr.IsKind(err, specerr.KindValidation))
}

func TestFindModelPathExternalRelationship(t *testing.T) {
	r := buildArchive(t, map[string]string{
		"[Content_Types].xml": contentTypesXML,
		"_rels/.rels": relsOpen +
			`<Relationship Id="relX" Type="http://example.com/custom" Target="http://example.com/data" TargetMode="External"/>` +
			modelRel("rel0", "/3D/3dmodel.model") +
			relsClose,
		"3D/3dmodel.model": modelXML,
	})
	_, err := FindModelPath(r)
	assert.True(t, specerr.IsKind(err, specerr.KindValidation))
}

func TestFindModelPathMissingThumbnail(t *testing.T) {
	r := buildArchive(t, map[string]string{
		"[Content_Types].xml": contentTypesXML,
		"_rels/.rels": relsOpen +
			modelRel("rel0", "/3D/3dmodel.model") +
			`<Relationship Id="rel1" Type="http://schemas.openxmlformats.org/package/2006/relationships/metadata/thumbnail" Target="/Metadata/thumbnail.png"/>` +
			relsClose,
		"3D/3dmodel.model": modelXML,
	})
	_, err := FindModelPath(r)
	assert.True(t, specerr.IsKind(err, specerr.KindValidation))
}

func TestWriterRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WritePart("3D/3dmodel.model",
		"application/vnd.ms-package.3dmanufacturing-3dmodel+xml", []byte(modelXML), nil))
	require.NoError(t, w.WriteEntry("Metadata/thumbnail.png", []byte{0x89, 'P', 'N', 'G'}))
	w.SetRootRelationships([]Relationship{
		{ID: "rel0", Type: relType3DModel, Target: "/3D/3dmodel.model"},
		{ID: "rel1", Type: relTypeThumbnail, Target: "/Metadata/thumbnail.png"},
	})
	require.NoError(t, w.Close())

	r, err := NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	assert.True(t, r.EntryExists("[Content_Types].xml"))
	assert.True(t, r.EntryExists("_rels/.rels"))

	data, err := r.ReadEntry("3D/3dmodel.model")
	require.NoError(t, err)
	assert.Equal(t, modelXML, string(data))

	path, err := FindModelPath(r)
	require.NoError(t, err)
	assert.Equal(t, "3D/3dmodel.model", path)
}

func TestContentTypeOf(t *testing.T) {
	assert.Equal(t, "application/vnd.ms-package.3dmanufacturing-3dmodel+xml", ContentTypeOf("3D/3dmodel.model"))
	assert.Equal(t, "image/png", ContentTypeOf("Metadata/thumbnail.PNG"))
	assert.Equal(t, "application/vnd.openxmlformats-package.relationships+xml", ContentTypeOf("_rels/.rels"))
	assert.Equal(t, "application/octet-stream", ContentTypeOf("Metadata/blob.bin"))
}
