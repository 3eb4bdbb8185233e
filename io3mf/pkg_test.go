package io3mf

import (
	"bytes"
	"testing"

	"github.com/go-test/deep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mesh3mf "github.com/solidforge/mesh3mf"
	"github.com/solidforge/mesh3mf/container"
)

func TestWritePackageRoundTrip(t *testing.T) {
	want := minimalModel()
	want.Metadata = []mesh3mf.Metadata{{Name: "Title", Value: "boxes"}}
	want.Attachments = map[string][]byte{
		"Metadata/thumbnail.png": {0x89, 'P', 'N', 'G', 0},
		"3D/Textures/skin.png":   {0x89, 'P', 'N', 'G', 1},
	}

	var buf bytes.Buffer
	require.NoError(t, WritePackage(&buf, want))

	r, err := NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	got, err := r.Decode()
	require.NoError(t, err)

	assert.Equal(t, "/3D/3dmodel.model", got.Path)
	assert.Equal(t, "/Metadata/thumbnail.png", got.Thumbnail)
	assert.Equal(t, want.Attachments, got.Attachments)
	assert.Equal(t, want.Metadata, got.Metadata)
	if diff := deep.Equal(got.Resources, want.Resources); diff != nil {
		t.Errorf("resources diff: %v", diff)
	}
	if diff := deep.Equal(got.Build, want.Build); diff != nil {
		t.Errorf("build diff: %v", diff)
	}

	// The texture attachment got a model-part relationship.
	rels := got.ExistingRelationships["3D/3dmodel.model"]
	require.Len(t, rels, 1)
	assert.Equal(t, mesh3mf.RelTypeTexture, rels[0].Type)
	assert.Equal(t, "/3D/Textures/skin.png", rels[0].Target)
}

func TestWritePackageSecondCycleStable(t *testing.T) {
	m := minimalModel()
	var first bytes.Buffer
	require.NoError(t, WritePackage(&first, m))

	r1, err := NewReader(bytes.NewReader(first.Bytes()), int64(first.Len()))
	require.NoError(t, err)
	m1, err := r1.Decode()
	require.NoError(t, err)

	var second bytes.Buffer
	require.NoError(t, WritePackage(&second, m1))
	r2, err := NewReader(bytes.NewReader(second.Bytes()), int64(second.Len()))
	require.NoError(t, err)
	m2, err := r2.Decode()
	require.NoError(t, err)

	m1.Path, m2.Path = "", ""
	m1.RootRelationships, m2.RootRelationships = nil, nil
	if diff := deep.Equal(m1, m2); diff != nil {
		t.Errorf("second cycle diff: %v", diff)
	}
}

// multiPartPackage builds a package whose root object references an
// object living in a separate model part.
func multiPartPackage(t *testing.T) []byte {
	t.Helper()
	sub := &mesh3mf.Model{Units: mesh3mf.UnitMillimeter}
	require.NoError(t, sub.Resources.AddObject(&mesh3mf.Object{
		ID: 8,
		Geometry: &mesh3mf.Mesh{
			Vertices: []mesh3mf.Point3D{{0, 0, 0}, {5, 0, 0}, {5, 5, 0}, {0, 5, 0}},
			Triangles: []mesh3mf.Triangle{
				{Indices: [3]uint32{0, 1, 2}},
				{Indices: [3]uint32{0, 2, 3}},
			},
		},
	}))

	root := &mesh3mf.Model{Units: mesh3mf.UnitMillimeter}
	require.NoError(t, root.Resources.AddObject(&mesh3mf.Object{
		ID: 1,
		Geometry: &mesh3mf.Components{Components: []*mesh3mf.Component{{
			ObjectID:  8,
			Path:      "/3D/Objects/object_1.model",
			Transform: mesh3mf.Identity(),
		}}},
	}))
	root.Build.Items = []*mesh3mf.Item{{ObjectID: 1, Transform: mesh3mf.Identity()}}
	root.Childs = map[string]*mesh3mf.Model{"/3D/Objects/object_1.model": sub}

	var buf bytes.Buffer
	require.NoError(t, WritePackage(&buf, root))
	return buf.Bytes()
}

func TestResolverMultiPart(t *testing.T) {
	data := multiPartPackage(t)
	cr, err := container.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	path, err := container.FindModelPath(cr)
	require.NoError(t, err)
	modelData, err := cr.ReadEntry(path)
	require.NoError(t, err)
	root, err := ParseModel(modelData)
	require.NoError(t, err)

	resolver := NewPartResolver(cr, root, path)

	sub, obj, ok, err := resolver.ResolveObject(8, "/3D/Objects/object_1.model")
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, obj)
	assert.Equal(t, uint32(8), obj.ID)
	mesh := obj.Geometry.(*mesh3mf.Mesh)
	assert.Len(t, mesh.Triangles, 2)
	assert.Equal(t, "/3D/Objects/object_1.model", sub.Path)

	// Second request comes from the cache: same model pointer.
	again, _, ok, err := resolver.ResolveObject(8, "3D/Objects/object_1.model")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Same(t, sub, again)

	// Root spellings all resolve against the start part.
	for _, p := range []string{"", "ROOT", "/" + path, path} {
		_, obj, ok, err := resolver.ResolveObject(1, p)
		require.NoError(t, err)
		require.True(t, ok, p)
		assert.Equal(t, uint32(1), obj.ID)
	}

	_, _, _, err = resolver.ResolveObject(8, "/3D/Objects/missing.model")
	require.Error(t, err)
}

func TestDecodeChildModels(t *testing.T) {
	data := multiPartPackage(t)
	r, err := NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	got, err := r.Decode()
	require.NoError(t, err)
	require.Contains(t, got.Childs, "/3D/Objects/object_1.model")
	child := got.Childs["/3D/Objects/object_1.model"]
	_, ok := child.Resources.FindObject(8)
	assert.True(t, ok)
	assert.Empty(t, got.Attachments)
}
