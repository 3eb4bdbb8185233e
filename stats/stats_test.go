package stats

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mesh3mf "github.com/solidforge/mesh3mf"
	"github.com/solidforge/mesh3mf/container"
	"github.com/solidforge/mesh3mf/io3mf"
)

func cube(s float32) *mesh3mf.Mesh {
	m := &mesh3mf.Mesh{
		Vertices: []mesh3mf.Point3D{
			{0, 0, 0}, {s, 0, 0}, {s, s, 0}, {0, s, 0},
			{0, 0, s}, {s, 0, s}, {s, s, s}, {0, s, s},
		},
	}
	for _, f := range [][3]uint32{
		{0, 2, 1}, {0, 3, 2},
		{4, 5, 6}, {4, 6, 7},
		{0, 1, 5}, {0, 5, 4},
		{1, 2, 6}, {1, 6, 5},
		{2, 3, 7}, {2, 7, 6},
		{3, 0, 4}, {3, 4, 7},
	} {
		m.Triangles = append(m.Triangles, mesh3mf.Triangle{Indices: f})
	}
	return m
}

// packageFor writes m to an in-memory package and reopens it.
func packageFor(t *testing.T, m *mesh3mf.Model) *container.Reader {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, io3mf.WritePackage(&buf, m))
	cr, err := container.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	return cr
}

func TestComputeCubeStats(t *testing.T) {
	m := &mesh3mf.Model{Units: mesh3mf.UnitMillimeter}
	m.Metadata = []mesh3mf.Metadata{{Name: "Application", Value: "statstest"}}
	require.NoError(t, m.Resources.AddObject(&mesh3mf.Object{ID: 1, Geometry: cube(10)}))
	m.Build.Items = []*mesh3mf.Item{{ObjectID: 1, Transform: mesh3mf.Identity()}}

	st, err := Compute(m, packageFor(t, m))
	require.NoError(t, err)
	assert.Equal(t, "statstest", st.Generator)
	assert.Equal(t, 1, st.Geometry.InstanceCount)
	assert.Equal(t, 1, st.Geometry.ObjectCount)
	assert.Equal(t, uint64(8), st.Geometry.VertexCount)
	assert.Equal(t, uint64(12), st.Geometry.TriangleCount)
	assert.InDelta(t, 600, st.Geometry.SurfaceArea, 1e-6)
	assert.InDelta(t, 1000, st.Geometry.Volume, 1e-6)
	require.NotNil(t, st.Geometry.BoundingBox)
	assert.Equal(t, mesh3mf.Point3D{0, 0, 0}, st.Geometry.BoundingBox.Min)
	assert.Equal(t, mesh3mf.Point3D{10, 10, 10}, st.Geometry.BoundingBox.Max)
	assert.Equal(t, 1, st.Geometry.ByType[mesh3mf.ObjectTypeModel])
}

func TestComputeAppliesTransforms(t *testing.T) {
	m := &mesh3mf.Model{Units: mesh3mf.UnitMillimeter}
	require.NoError(t, m.Resources.AddObject(&mesh3mf.Object{ID: 1, Geometry: cube(10)}))
	// Uniform scale by 2 and translate by (100, 0, 0).
	scale := mesh3mf.Matrix{2, 0, 0, 0, 0, 2, 0, 0, 0, 0, 2, 0, 100, 0, 0, 1}
	m.Build.Items = []*mesh3mf.Item{{ObjectID: 1, Transform: scale}}

	st, err := Compute(m, packageFor(t, m))
	require.NoError(t, err)
	// |det| = 8: volume x8, area x 8^(2/3) = x4.
	assert.InDelta(t, 8000, st.Geometry.Volume, 1e-5)
	assert.InDelta(t, 2400, st.Geometry.SurfaceArea, 1e-5)
	assert.Equal(t, mesh3mf.Point3D{100, 0, 0}, st.Geometry.BoundingBox.Min)
	assert.Equal(t, mesh3mf.Point3D{120, 20, 20}, st.Geometry.BoundingBox.Max)
}

func TestComputeDescendsComponents(t *testing.T) {
	m := &mesh3mf.Model{Units: mesh3mf.UnitMillimeter}
	require.NoError(t, m.Resources.AddObject(&mesh3mf.Object{ID: 1, Geometry: cube(10)}))
	translate := mesh3mf.Matrix{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 50, 0, 0, 1}
	require.NoError(t, m.Resources.AddObject(&mesh3mf.Object{
		ID: 2,
		Geometry: &mesh3mf.Components{Components: []*mesh3mf.Component{
			{ObjectID: 1, Transform: mesh3mf.Identity()},
			{ObjectID: 1, Transform: translate},
		}},
	}))
	m.Build.Items = []*mesh3mf.Item{{ObjectID: 2, Transform: mesh3mf.Identity()}}

	st, err := Compute(m, packageFor(t, m))
	require.NoError(t, err)
	assert.Equal(t, 2, st.Geometry.ObjectCount)
	assert.Equal(t, uint64(24), st.Geometry.TriangleCount)
	assert.InDelta(t, 2000, st.Geometry.Volume, 1e-5)
	assert.Equal(t, mesh3mf.Point3D{0, 0, 0}, st.Geometry.BoundingBox.Min)
	assert.Equal(t, mesh3mf.Point3D{60, 10, 10}, st.Geometry.BoundingBox.Max)
}

func TestComputeResolvesSubParts(t *testing.T) {
	sub := &mesh3mf.Model{Units: mesh3mf.UnitMillimeter}
	require.NoError(t, sub.Resources.AddObject(&mesh3mf.Object{ID: 8, Geometry: cube(5)}))

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

	st, err := Compute(root, packageFor(t, root))
	require.NoError(t, err)
	assert.Equal(t, uint64(12), st.Geometry.TriangleCount)
	assert.InDelta(t, 125, st.Geometry.Volume, 1e-6)
}

func TestComputeMaterialCounts(t *testing.T) {
	m := &mesh3mf.Model{Units: mesh3mf.UnitMillimeter}
	m.Resources.AddAsset(&mesh3mf.BaseMaterials{ID: 5, Materials: []mesh3mf.Base{{Name: "A"}}})
	m.Resources.AddAsset(&mesh3mf.ColorGroup{ID: 6})
	m.Resources.AddAsset(&mesh3mf.Texture2D{ID: 7, Path: "/3D/Textures/t.png"})
	m.Resources.AddAsset(&mesh3mf.Texture2DGroup{ID: 8, TextureID: 7})

	st, err := Compute(m, packageFor(t, m))
	require.NoError(t, err)
	assert.Equal(t, 1, st.Materials.BaseMaterialGroups)
	assert.Equal(t, 1, st.Materials.ColorGroups)
	assert.Equal(t, 1, st.Materials.Texture2DGroups)
}
